package dataflow

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/bril-go/brilgo/cfg"
)

// ReachingResult reports, per block, the set of `var@label` definition
// tokens reaching the block's entry and leaving its exit.
type ReachingResult struct {
	In, Out []map[string]bool
}

// Reaching computes reaching definitions over g: gen[B] is the set of
// tokens for variables defined anywhere in B, kill[B] is every other
// block's token for a variable B also defines — grounded on
// spec.md's `gen[B] = {v_B}`, `kill[B] = all_defs(v) \ {v_B}` and on
// df.py's ReachingDefinitions, but using union (not df.py's
// last-write-wins assignment) to build each block's kill set, per
// spec.md's "for every v defined in B" wording.
func Reaching(g *cfg.Graph) ReachingResult {
	n := len(g.Blocks)
	token := func(v, label string) string { return v + "@" + label }

	allDefs := make(map[string]map[string]bool) // var -> set of tokens
	blockDefs := make([]map[string]bool, n)      // block -> set of vars it defines
	for i, b := range g.Blocks {
		defs := map[string]bool{}
		for _, instr := range b.Instrs {
			if instr.HasDest() {
				defs[instr.Dest] = true
				if allDefs[instr.Dest] == nil {
					allDefs[instr.Dest] = map[string]bool{}
				}
				allDefs[instr.Dest][token(instr.Dest, b.Label)] = true
			}
		}
		blockDefs[i] = defs
	}

	universe, index := buildUniverse(allDefs)

	gen := make([]*bitset.BitSet, n)
	kill := make([]*bitset.BitSet, n)
	for i, b := range g.Blocks {
		gen[i] = bitset.New(uint(len(universe)))
		kill[i] = bitset.New(uint(len(universe)))
		for v := range blockDefs[i] {
			gen[i].Set(index[token(v, b.Label)])
			for tok := range allDefs[v] {
				if tok != token(v, b.Label) {
					kill[i].Set(index[tok])
				}
			}
		}
	}

	result := Solve(g.Succs, g.Preds, Forward, bitsetLattice(gen, kill))

	return ReachingResult{
		In:  decodeSets(result.In, universe),
		Out: decodeSets(result.Out, universe),
	}
}

func buildUniverse(allDefs map[string]map[string]bool) ([]string, map[string]uint) {
	var universe []string
	for _, toks := range allDefs {
		for tok := range toks {
			universe = append(universe, tok)
		}
	}
	index := make(map[string]uint, len(universe))
	for i, tok := range universe {
		index[tok] = uint(i)
	}
	return universe, index
}

func bitsetLattice(gen, kill []*bitset.BitSet) Lattice[*bitset.BitSet] {
	return Lattice[*bitset.BitSet]{
		Bottom: func() *bitset.BitSet { return bitset.New(0) },
		Equal: func(a, b *bitset.BitSet) bool {
			return a.Equal(b)
		},
		Merge: func(values []*bitset.BitSet) *bitset.BitSet {
			acc := bitset.New(0)
			for _, v := range values {
				acc = acc.Union(v)
			}
			return acc
		},
		Transfer: func(block int, in *bitset.BitSet) *bitset.BitSet {
			return gen[block].Union(in.Difference(kill[block]))
		},
	}
}

func decodeSets(sets []*bitset.BitSet, universe []string) []map[string]bool {
	out := make([]map[string]bool, len(sets))
	for i, s := range sets {
		m := map[string]bool{}
		for idx, ok := uint(0), true; ok; idx++ {
			if idx, ok = s.NextSet(idx); ok {
				m[universe[idx]] = true
			}
		}
		out[i] = m
	}
	return out
}
