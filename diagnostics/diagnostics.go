// Package diagnostics defines the typed errors every pass in this
// module returns. A pass either succeeds and returns a complete,
// valid replacement for its input, or fails and returns the input
// untouched alongside one of these errors — never a partially
// mutated result.
package diagnostics

import "fmt"

// Kind classifies why a pass rejected its input, mirroring the
// severities a godoctor refactoring logs (refactoring/log.go's
// Severity enum) but collapsed to the single terminal outcome a pure
// pass produces instead of an accumulating log.
type Kind int

const (
	// MalformedIR means the instruction stream itself is
	// inconsistent (e.g. a function with no name, or an
	// instruction with neither a label nor an op).
	MalformedIR Kind = iota
	// UnknownLabel means a jmp/br instruction names a label with
	// no corresponding block.
	UnknownLabel
	// UnsupportedOp means a pass encountered an opcode it does
	// not know how to analyze or transform.
	UnsupportedOp
	// UsageError means the caller invoked the tool incorrectly
	// (e.g. an unknown command or a missing subcommand argument)
	// rather than the IR itself being invalid.
	UsageError
)

func (k Kind) String() string {
	switch k {
	case MalformedIR:
		return "malformed IR"
	case UnknownLabel:
		return "unknown label"
	case UnsupportedOp:
		return "unsupported op"
	case UsageError:
		return "usage error"
	default:
		return "unknown diagnostic"
	}
}

// Error is the single error type every exported pass function
// returns. Func and Label are populated when known; zero values are
// omitted from the message.
type Error struct {
	Kind    Kind
	Func    string
	Label   string
	Op      string
	Message string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Func != "" {
		msg = fmt.Sprintf("%s (func %s)", msg, e.Func)
	}
	if e.Label != "" {
		msg = fmt.Sprintf("%s (block %s)", msg, e.Label)
	}
	if e.Op != "" {
		msg = fmt.Sprintf("%s (op %s)", msg, e.Op)
	}
	return msg
}

// Is supports errors.Is against a Kind-only sentinel created with
// New(kind, "").
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Message == "" && other.Kind == e.Kind
}

// New builds an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithFunc returns a copy of e annotated with a function name.
func (e *Error) WithFunc(name string) *Error {
	clone := *e
	clone.Func = name
	return &clone
}

// WithLabel returns a copy of e annotated with a block label.
func (e *Error) WithLabel(label string) *Error {
	clone := *e
	clone.Label = label
	return &clone
}

// Sentinels usable with errors.Is(err, diagnostics.ErrUnknownLabel), etc.
var (
	ErrMalformedIR   = &Error{Kind: MalformedIR}
	ErrUnknownLabel  = &Error{Kind: UnknownLabel}
	ErrUnsupportedOp = &Error{Kind: UnsupportedOp}
	ErrUsageError    = &Error{Kind: UsageError}
)
