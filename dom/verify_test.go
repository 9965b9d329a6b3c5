package dom

import "github.com/bril-go/brilgo/cfg"

// findAllPaths enumerates every simple path from start to end in g —
// exponential, usable only on small test fixtures. Grounded on
// dom-utils.py:find_all_paths.
func findAllPaths(g *cfg.Graph, start, end int, visiting map[int]bool) [][]int {
	if visiting == nil {
		visiting = map[int]bool{}
	}
	if start == end {
		return [][]int{{start}}
	}
	if visiting[start] {
		return nil
	}
	visiting[start] = true
	defer delete(visiting, start)

	var paths [][]int
	for _, succ := range g.Succs[start] {
		for _, p := range findAllPaths(g, succ, end, visiting) {
			paths = append(paths, append([]int{start}, p...))
		}
	}
	return paths
}

// verifyDominators naively checks that every block d claimed to
// dominate b lies on every path from entry to b — the same oracle
// dom-utils.py:verify_dominators uses to sanity check
// compute_full_dominators, kept here as a test-only helper since path
// enumeration is exponential in general but fine for the 5-10 block
// fixtures these tests build.
func verifyDominators(g *cfg.Graph, entry int, info *Info) bool {
	for b := range g.Blocks {
		ds := info.Dom[b].AppendTo(nil)
		paths := findAllPaths(g, entry, b, nil)
		for _, d := range ds {
			for _, path := range paths {
				if !contains(path, d) {
					return false
				}
			}
		}
	}
	return true
}

func contains(path []int, x int) bool {
	for _, v := range path {
		if v == x {
			return true
		}
	}
	return false
}
