// Package licm implements loop-invariant code motion over natural
// loops discovered from back edges in the dominator tree — grounded
// on the original loop_opt.py, restructured in the
// discover-loops/find-invariants/hoist step split used by
// other_examples' malphas-lang licm.go for a typed MIR.
package licm

import (
	"fmt"

	"github.com/bril-go/brilgo/cfg"
	"github.com/bril-go/brilgo/dom"
	"github.com/bril-go/brilgo/ir"
)

// hasSideEffects follows loop_opt.py:has_side_effects, which is
// narrower than ir.SideEffectOps (it omits "store"): the original
// only protects call/print/jmp/br/ret from hoisting. A store is
// folded in here too, since hoisting a memory write out of a loop
// changes observable behavior regardless of what the original script
// happened to check.
func hasSideEffects(instr *ir.Instruction) bool {
	return ir.HasSideEffect(instr)
}

// Loop is one natural loop: Header is the loop header block index and
// Blocks is every block index in the loop body, including the header.
type Loop struct {
	Header int
	Blocks map[int]bool
}

// discoverLoops finds natural loops via back edges (an edge whose
// destination dominates its source) and the usual predecessor-closure
// construction of the loop body — grounded on loop_opt.py:licm's
// loop-discovery block.
func discoverLoops(g *cfg.Graph, info *dom.Info, blockCount int) []Loop {
	var loops []Loop
	for src := 0; src < blockCount; src++ {
		for _, dst := range g.Succs[src] {
			if !info.Dom[src].Has(dst) {
				continue
			}
			body := map[int]bool{dst: true, src: true}
			worklist := []int{src}
			for len(worklist) > 0 {
				b := worklist[0]
				worklist = worklist[1:]
				for _, p := range g.Preds[b] {
					if !body[p] {
						body[p] = true
						worklist = append(worklist, p)
					}
				}
			}
			loops = append(loops, Loop{Header: dst, Blocks: body})
		}
	}
	return loops
}

// isInvariant follows loop_opt.py:is_loop_invariant: an instruction
// with no operands (e.g. const) is trivially invariant; otherwise
// every operand must, for each of its definition sites, either be
// defined outside the loop or already be known invariant.
func isInvariant(instr *ir.Instruction, loopBlocks map[int]bool, defs map[string][]int, invariant map[string]bool) bool {
	if hasSideEffects(instr) {
		return false
	}
	if len(instr.Args) == 0 {
		return true
	}
	for _, arg := range instr.Args {
		for _, defBlock := range defs[arg] {
			if loopBlocks[defBlock] && !invariant[arg] {
				return false
			}
		}
	}
	return true
}

// Run hoists loop-invariant instructions into a fresh preheader for
// every natural loop in fn that has at least one invariant
// instruction, leaving loops with none untouched (never emitting an
// empty preheader) — grounded on loop_opt.py:licm.
func Run(fn *ir.Function) (*ir.Function, error) {
	originalBlocks := cfg.FormBasicBlocks(fn.Instrs)
	g, err := cfg.Build(originalBlocks)
	if err != nil {
		return nil, err
	}
	originalCount := len(g.Blocks)
	entry := cfg.EnsureUniqueEntry(g, 0)
	info := dom.Compute(g, entry)

	blocks := make([][]*ir.Instruction, len(g.Blocks))
	for i, b := range originalBlocks {
		instrs := make([]*ir.Instruction, len(b.Instrs))
		for j, in := range b.Instrs {
			instrs[j] = in.Clone()
		}
		blocks[i] = instrs
	}

	defs := map[string][]int{}
	for i, instrs := range blocks {
		for _, instr := range instrs {
			if instr.HasDest() {
				defs[instr.Dest] = append(defs[instr.Dest], i)
			}
		}
	}

	loops := discoverLoops(g, info, originalCount)

	for _, loop := range loops {
		invariant := map[string]bool{}
		type location struct {
			block int
			instr *ir.Instruction
		}
		var invariantInstrs []location

		changed := true
		for changed {
			changed = false
			for block := range loop.Blocks {
				if block >= len(blocks) {
					continue
				}
				for _, instr := range blocks[block] {
					if !instr.HasDest() || invariant[instr.Dest] {
						continue
					}
					if isInvariant(instr, loop.Blocks, defs, invariant) {
						invariant[instr.Dest] = true
						invariantInstrs = append(invariantInstrs, location{block, instr})
						changed = true
					}
				}
			}
		}

		if len(invariantInstrs) == 0 {
			continue
		}

		preheaderIdx := len(blocks)
		preheaderLabel := fmt.Sprintf("preheader%d", preheaderIdx)
		headerLabel := g.Blocks[loop.Header].Label

		var preheaderBody []*ir.Instruction
		for _, loc := range invariantInstrs {
			blocks[loc.block] = removeInstr(blocks[loc.block], loc.instr)
			preheaderBody = append(preheaderBody, loc.instr)
		}
		preheaderInstrs := append([]*ir.Instruction{{Label: preheaderLabel}}, preheaderBody...)
		preheaderInstrs = append(preheaderInstrs, &ir.Instruction{Op: ir.OpJump, Labels: []string{headerLabel}})

		blocks = append(blocks, preheaderInstrs)
		g.Blocks = append(g.Blocks, &cfg.Block{Label: preheaderLabel})
		g.Succs = append(g.Succs, []int{loop.Header})
		g.Preds = append(g.Preds, nil)

		oldPreds := append([]int(nil), g.Preds[loop.Header]...)
		var remainingPreds []int
		for _, pred := range oldPreds {
			if loop.Blocks[pred] {
				remainingPreds = append(remainingPreds, pred)
				continue
			}
			g.Succs[pred] = replaceSucc(g.Succs[pred], loop.Header, preheaderIdx)
			g.Preds[preheaderIdx] = append(g.Preds[preheaderIdx], pred)
			// Retarget pred's own terminator (or add a jmp where it fell
			// through) so the emitted code enters through the preheader.
			if n := len(blocks[pred]); n > 0 && (blocks[pred][n-1].Op == ir.OpJump || blocks[pred][n-1].Op == ir.OpBranch) {
				for j, l := range blocks[pred][n-1].Labels {
					if l == headerLabel {
						blocks[pred][n-1].Labels[j] = preheaderLabel
					}
				}
			} else {
				blocks[pred] = append(blocks[pred], &ir.Instruction{Op: ir.OpJump, Labels: []string{preheaderLabel}})
			}
		}
		remainingPreds = append(remainingPreds, preheaderIdx)
		g.Preds[loop.Header] = remainingPreds
	}

	var out []*ir.Instruction
	for i := 0; i < originalCount; i++ {
		out = append(out, blocks[i]...)
	}
	for i := originalCount; i < len(blocks); i++ {
		out = append(out, blocks[i]...)
	}

	return &ir.Function{Name: fn.Name, Args: fn.Args, Type: fn.Type, Instrs: out}, nil
}

func removeInstr(instrs []*ir.Instruction, target *ir.Instruction) []*ir.Instruction {
	out := instrs[:0:0]
	for _, instr := range instrs {
		if instr != target {
			out = append(out, instr)
		}
	}
	return out
}

func replaceSucc(succs []int, from, to int) []int {
	out := make([]int, len(succs))
	for i, s := range succs {
		if s == from {
			out[i] = to
		} else {
			out[i] = s
		}
	}
	return out
}
