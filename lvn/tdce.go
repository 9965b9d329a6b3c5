package lvn

import (
	"github.com/bril-go/brilgo/cfg"
	"github.com/bril-go/brilgo/diagnostics"
	"github.com/bril-go/brilgo/ir"
)

// knownPureOps lists every defining opcode this package knows is free
// of side effects and therefore safe to drop when its result goes
// unused. An opcode that is neither in ir.SideEffectOps nor here is
// unknown: spec.md §7's default policy treats it as side-effecting
// (so it survives DCE untouched) rather than risk deleting something
// with an observable effect; strict mode instead reports it as
// diagnostics.UnsupportedOp.
var knownPureOps = map[string]bool{
	ir.OpConst: true, ir.OpID: true,
	"add": true, "sub": true, "mul": true, "div": true,
	"not": true, "and": true, "or": true,
	"eq": true, "lt": true, "gt": true, "le": true, "ge": true,
	"load": true, "ptradd": true, "alloc": true, "phi": true, "nop": true,
}

func isSafeToDrop(instr *ir.Instruction, strict bool) (bool, error) {
	if ir.HasSideEffect(instr) {
		return false, nil
	}
	if knownPureOps[instr.Op] {
		return true, nil
	}
	if strict {
		return false, diagnostics.New(diagnostics.UnsupportedOp, "trivial dead code elimination: unsupported opcode %q", instr.Op)
	}
	return false, nil
}

// usedVars returns every variable name read anywhere in fn's
// instructions, including branch conditions — grounded on
// tdce.py:analyze_liveness. This is function-global, not per-block,
// matching the original's use of one liveness set across all blocks.
func usedVars(instrs []*ir.Instruction) map[string]bool {
	used := map[string]bool{}
	for _, instr := range instrs {
		for _, a := range instr.Args {
			used[a] = true
		}
	}
	return used
}

// removeUnused drops any instruction whose destination is never read
// anywhere in the function, unless the instruction has a side effect
// — grounded on tdce.py:remove_unused_variables. Returns the filtered
// instructions and whether anything changed.
func removeUnused(instrs []*ir.Instruction, used map[string]bool, strict bool) ([]*ir.Instruction, bool, error) {
	out := make([]*ir.Instruction, 0, len(instrs))
	changed := false
	for _, instr := range instrs {
		safe, err := isSafeToDrop(instr, strict)
		if err != nil {
			return nil, false, err
		}
		if !safe {
			out = append(out, instr)
			continue
		}
		if instr.HasDest() && !used[instr.Dest] {
			changed = true
			continue
		}
		out = append(out, instr)
	}
	return out, changed, nil
}

// removeShadowed drops an assignment to a variable that is redefined
// later in the same block before ever being read in between, as long
// as that variable isn't needed outside the block — grounded on
// tdce.py:remove_shadowed_assignments.
func removeShadowed(instrs []*ir.Instruction, usedOutside map[string]bool, strict bool) ([]*ir.Instruction, error) {
	lastDef := map[string]int{}
	drop := map[int]bool{}

	for i, instr := range instrs {
		for _, arg := range instr.Args {
			delete(lastDef, arg)
		}
		if instr.HasDest() {
			if prev, ok := lastDef[instr.Dest]; ok && !usedOutside[instr.Dest] {
				if safe, err := isSafeToDrop(instrs[prev], strict); err != nil {
					return nil, err
				} else if safe {
					drop[prev] = true
				}
			}
			lastDef[instr.Dest] = i
		}
	}

	out := make([]*ir.Instruction, 0, len(instrs))
	for i, instr := range instrs {
		if !drop[i] {
			out = append(out, instr)
		}
	}
	return out, nil
}

// TDCE iteratively applies removeUnused and removeShadowed across
// every block of fn until neither makes progress, matching
// tdce.py:trivial_dce_function's fixed-point loop, under the default
// (non-strict) policy of spec.md §7.
func TDCE(fn *ir.Function) {
	_ = TDCEStrict(fn, false)
}

// TDCEStrict runs TDCE under an explicit strict-mode policy: when
// strict is true, an opcode that is neither a known side effect nor a
// known pure op aborts the pass with diagnostics.UnsupportedOp instead
// of being conservatively kept.
func TDCEStrict(fn *ir.Function, strict bool) error {
	for {
		used := usedVars(fn.Instrs)
		filtered, changed1, err := removeUnused(fn.Instrs, used, strict)
		if err != nil {
			return err
		}

		blocks := cfg.FormBasicBlocks(filtered)
		var rebuilt []*ir.Instruction
		changed2 := false
		for bi, b := range blocks {
			var elsewhere []*ir.Instruction
			for bj, other := range blocks {
				if bj != bi {
					elsewhere = append(elsewhere, other.Instrs...)
				}
			}
			shadow, err := removeShadowed(b.Instrs, usedVars(elsewhere), strict)
			if err != nil {
				return err
			}
			if len(shadow) != len(b.Instrs) {
				changed2 = true
			}
			rebuilt = append(rebuilt, shadow...)
		}

		if !changed1 && !changed2 {
			fn.Instrs = filtered
			return nil
		}
		fn.Instrs = rebuilt
	}
}
