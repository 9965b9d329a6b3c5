package ir

import (
	"encoding/json"
	"fmt"
	"io"
)

// Decode reads a Program document from r and validates its structural
// well-formedness (see Validate).
func Decode(r io.Reader) (*Program, error) {
	var prog Program
	if err := json.NewDecoder(r).Decode(&prog); err != nil {
		return nil, fmt.Errorf("brilgo: decode program: %w", err)
	}
	if err := Validate(&prog); err != nil {
		return nil, err
	}
	return &prog, nil
}

// Encode writes prog to w as indented JSON, matching the original
// toolchain's `json.dump(..., indent=2)` output shape.
func Encode(w io.Writer, prog *Program) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(prog)
}

// Func looks up a function by name.
func (p *Program) Func(name string) *Function {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// String renders instr the way the CLI's diagnostic dumps do: close
// to Bril's textual form, not the JSON wire form.
func (instr *Instruction) String() string {
	if instr.IsLabel() {
		return "." + instr.Label + ":"
	}
	var dest string
	if instr.HasDest() {
		dest = fmt.Sprintf("%s: %s = ", instr.Dest, instr.Type)
	}
	switch {
	case len(instr.Labels) > 0:
		return fmt.Sprintf("%s%s %v", dest, instr.Op, instr.Labels)
	case len(instr.Value) > 0:
		return fmt.Sprintf("%s%s %s", dest, instr.Op, string(instr.Value))
	case len(instr.Args) > 0:
		return fmt.Sprintf("%s%s %v", dest, instr.Op, instr.Args)
	default:
		return fmt.Sprintf("%s%s", dest, instr.Op)
	}
}
