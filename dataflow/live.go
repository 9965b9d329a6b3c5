package dataflow

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/bril-go/brilgo/cfg"
)

// LiveResult reports, per block, the set of variable names live at
// block entry and block exit.
type LiveResult struct {
	In, Out []map[string]bool
}

// Live computes live variables over g: for each block, scanning top
// to bottom, `use` is variables read before being defined locally and
// `def` is variables defined anywhere in the block — grounded on
// spec.md's live-variables transfer `use ∪ (out \ def)` and on
// df.py's LiveVariables.extract_uses_and_defs.
func Live(g *cfg.Graph) LiveResult {
	n := len(g.Blocks)
	varSet := map[string]bool{}
	use := make([]map[string]bool, n)
	def := make([]map[string]bool, n)
	for i, b := range g.Blocks {
		u, d := map[string]bool{}, map[string]bool{}
		for _, instr := range b.Instrs {
			for _, arg := range instr.Args {
				if !d[arg] {
					u[arg] = true
				}
				varSet[arg] = true
			}
			if instr.HasDest() {
				d[instr.Dest] = true
				varSet[instr.Dest] = true
			}
		}
		use[i], def[i] = u, d
	}

	var universe []string
	for v := range varSet {
		universe = append(universe, v)
	}
	index := make(map[string]uint, len(universe))
	for i, v := range universe {
		index[v] = uint(i)
	}

	toBits := func(vars map[string]bool) *bitset.BitSet {
		b := bitset.New(uint(len(universe)))
		for v := range vars {
			b.Set(index[v])
		}
		return b
	}

	gen := make([]*bitset.BitSet, n)
	kill := make([]*bitset.BitSet, n)
	for i := range g.Blocks {
		gen[i] = toBits(use[i])
		kill[i] = toBits(def[i])
	}

	result := Solve(g.Succs, g.Preds, Backward, bitsetLattice(gen, kill))

	return LiveResult{
		In:  decodeSets(result.In, universe),
		Out: decodeSets(result.Out, universe),
	}
}
