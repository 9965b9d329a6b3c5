package ssa

import "github.com/bril-go/brilgo/ir"

// From destroys set/get SSA form by dropping set/get/undef
// instructions and stripping every "var.label[.N]" suffix back to the
// bare variable name — grounded on ssa.py:from_ssa.
func From(fn *ir.Function) *ir.Function {
	var out []*ir.Instruction
	for _, instr := range fn.Instrs {
		if instr.Op == opSet || instr.Op == opGet || instr.Op == opUndef {
			continue
		}
		clone := instr.Clone()
		if clone.HasDest() {
			clone.Dest = splitFirst(clone.Dest)
		}
		for i, a := range clone.Args {
			clone.Args[i] = splitFirst(a)
		}
		out = append(out, clone)
	}
	return &ir.Function{Name: fn.Name, Args: fn.Args, Type: fn.Type, Instrs: out}
}
