// Package ir defines the JSON-wire data model for the three-address
// instruction set this module operates over: a flat list of tagged
// instruction records grouped into functions, grouped into a program.
//
// The shape mirrors the instruction records produced by the Bril
// toolchain (github.com/sampsyo/bril): every instruction is either a
// label marker or an operation with an optional destination, argument
// list, successor labels, and literal value. There is no instruction
// hierarchy; callers switch on Op.
package ir

import (
	"encoding/json"

	"github.com/bril-go/brilgo/diagnostics"
)

// Program is the top-level JSON document: a list of functions.
type Program struct {
	Functions []*Function `json:"functions"`
}

// Param is a formal parameter of a Function.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Function is a single Bril function: a name, optional parameters, an
// optional return type, and a flat instruction list. Blocks are not
// stored on Function; callers derive them with cfg.FormBasicBlocks.
type Function struct {
	Name   string        `json:"name"`
	Args   []Param       `json:"args,omitempty"`
	Type   string        `json:"type,omitempty"`
	Instrs []*Instruction `json:"instrs"`
}

// Instruction is either a label marker (Label != "") or an operation
// record. Op is empty only for a label marker. Value holds a literal
// operand for "const" instructions and is decoded lazily via
// json.RawMessage so both integer and boolean constants round-trip
// without loss.
type Instruction struct {
	Label  string          `json:"label,omitempty"`
	Op     string          `json:"op,omitempty"`
	Dest   string          `json:"dest,omitempty"`
	Type   string          `json:"type,omitempty"`
	Args   []string        `json:"args,omitempty"`
	Labels []string        `json:"labels,omitempty"`
	Funcs  []string        `json:"funcs,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
}

// IsLabel reports whether instr is a label marker rather than an
// operation.
func (instr *Instruction) IsLabel() bool {
	return instr.Label != ""
}

// HasDest reports whether instr assigns a result.
func (instr *Instruction) HasDest() bool {
	return instr.Dest != ""
}

// Clone returns a shallow copy of instr with its own Args/Labels/Funcs
// backing arrays, so callers can rewrite one instruction's argument
// list without aliasing another's.
func (instr *Instruction) Clone() *Instruction {
	clone := *instr
	clone.Args = append([]string(nil), instr.Args...)
	clone.Labels = append([]string(nil), instr.Labels...)
	clone.Funcs = append([]string(nil), instr.Funcs...)
	return &clone
}

// Opcodes the passes refer to by name. OpJump, OpBranch and OpReturn
// are the terminators that end a basic block by transferring control
// rather than falling through to the next instruction.
const (
	OpJump   = "jmp"
	OpBranch = "br"
	OpReturn = "ret"
	OpConst  = "const"
	OpID     = "id"
)

// SideEffectOps is the frozen set of opcodes that must never be
// rewritten to a value-numbered alias or dropped by dead-code
// elimination purely because their destination looks unused: they
// affect control flow or external state.
var SideEffectOps = map[string]bool{
	"print": true,
	"store": true,
	"call":  true,
	OpReturn: true,
	OpJump:   true,
	OpBranch: true,
}

// HasSideEffect reports whether instr is in SideEffectOps.
func HasSideEffect(instr *Instruction) bool {
	return instr.Op != "" && SideEffectOps[instr.Op]
}

// Validate checks prog's structural well-formedness per spec.md §7's
// MalformedIR kind: every function must have a name, and every
// instruction must be either a label marker or carry an opcode — one
// with neither is malformed. Validate does not check label resolution
// (cfg.Build reports that separately as UnknownLabel) or opcode
// legality (that is the strict-mode concern of individual analyses).
func Validate(prog *Program) error {
	for _, fn := range prog.Functions {
		if fn.Name == "" {
			return diagnostics.New(diagnostics.MalformedIR, "function has no name")
		}
		for i, instr := range fn.Instrs {
			if !instr.IsLabel() && instr.Op == "" {
				return diagnostics.New(diagnostics.MalformedIR, "instruction %d has neither an op nor a label", i).WithFunc(fn.Name)
			}
		}
	}
	return nil
}
