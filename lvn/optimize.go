package lvn

import "github.com/bril-go/brilgo/ir"

// Optimize runs local value numbering followed by trivial dead code
// elimination over every function in prog under the default
// (non-strict) policy, matching lvn.py:optimize_program's
// LVN-then-TDCE pipeline.
func Optimize(prog *ir.Program) {
	_ = OptimizeStrict(prog, false)
}

// OptimizeStrict is Optimize with an explicit strict-mode policy; see
// TDCEStrict. prog is only updated once every function has been
// optimized without error.
func OptimizeStrict(prog *ir.Program, strict bool) error {
	optimized := make([][]*ir.Instruction, len(prog.Functions))
	for i, fn := range prog.Functions {
		work := *fn
		FunctionLVN(&work)
		if err := TDCEStrict(&work, strict); err != nil {
			return err
		}
		optimized[i] = work.Instrs
	}
	for i, fn := range prog.Functions {
		fn.Instrs = optimized[i]
	}
	return nil
}
