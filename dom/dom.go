// Package dom computes dominator sets, the immediate-dominator tree,
// and the dominance frontier over a cfg.Graph — grounded on
// dom-utils.py's Dominators class (full dominator fixed point,
// Cooper/Harvey/Kennedy immediate dominators) and, for the dominance
// frontier the Python original never computes, on the classical
// Cytron et al. algorithm as used by Go's own SSA builder
// (ssa/lift.go's domFrontier, read for shape only).
//
// Block-index sets here use golang.org/x/tools/container/intsets —
// a sparse int set, a better fit than a token-universe bitset for
// "set of block index" the way dominator sets and frontiers are.
package dom

import (
	"sort"

	"github.com/bril-go/brilgo/cfg"
	"golang.org/x/tools/container/intsets"
)

// Info is the complete dominator analysis of a graph rooted at Entry.
type Info struct {
	Entry    int
	Dom      []*intsets.Sparse // Dom[b]: every block that dominates b (including b)
	Idom     []int             // Idom[b]: b's immediate dominator; Idom[Entry] == Entry
	Children [][]int           // dominator-tree children of each block
	Frontier []*intsets.Sparse // Frontier[b]: the dominance frontier of b
}

// Compute runs the full analysis over g starting at entry.
func Compute(g *cfg.Graph, entry int) *Info {
	dom := fullDominators(g, entry)
	idom := immediateDominators(g, entry, dom)
	children := dominatorTree(g, entry, idom)
	frontier := dominanceFrontier(g, idom)
	return &Info{Entry: entry, Dom: dom, Idom: idom, Children: children, Frontier: frontier}
}

// fullDominators computes, for every block, the full set of blocks
// that dominate it via the textbook iterative fixed point — grounded
// on dom-utils.py:Dominators.compute_full_dominators.
func fullDominators(g *cfg.Graph, entry int) []*intsets.Sparse {
	n := len(g.Blocks)
	dom := make([]*intsets.Sparse, n)
	all := &intsets.Sparse{}
	for i := 0; i < n; i++ {
		all.Insert(i)
	}
	for i := 0; i < n; i++ {
		d := &intsets.Sparse{}
		d.Copy(all)
		dom[i] = d
	}
	dom[entry] = &intsets.Sparse{}
	dom[entry].Insert(entry)

	changed := true
	for changed {
		changed = false
		for b := 0; b < n; b++ {
			if b == entry {
				continue
			}
			preds := g.Preds[b]
			var common *intsets.Sparse
			if len(preds) == 0 {
				common = &intsets.Sparse{}
			} else {
				common = &intsets.Sparse{}
				common.Copy(dom[preds[0]])
				for _, p := range preds[1:] {
					inter := &intsets.Sparse{}
					inter.Intersection(common, dom[p])
					common = inter
				}
			}
			newDom := &intsets.Sparse{}
			newDom.Copy(common)
			newDom.Insert(b)
			if !newDom.Equals(dom[b]) {
				dom[b] = newDom
				changed = true
			}
		}
	}
	return dom
}

// dfsPostorder walks g's successors from entry and returns blocks in
// postorder, matching dom-utils.py:dfs_postorder.
func dfsPostorder(g *cfg.Graph, entry int) []int {
	visited := make([]bool, len(g.Blocks))
	var order []int
	var visit func(b int)
	visit = func(b int) {
		visited[b] = true
		for _, s := range g.Succs[b] {
			if !visited[s] {
				visit(s)
			}
		}
		order = append(order, b)
	}
	visit(entry)
	return order
}

// immediateDominators implements the Cooper/Harvey/Kennedy algorithm
// — grounded on dom-utils.py:compute_idom_classic/intersect_idom.
func immediateDominators(g *cfg.Graph, entry int, dom []*intsets.Sparse) []int {
	n := len(g.Blocks)
	postorder := dfsPostorder(g, entry)
	postIndex := make([]int, n)
	for i, b := range postorder {
		postIndex[b] = i
	}

	idom := make([]int, n)
	for i := range idom {
		idom[i] = -1
	}
	idom[entry] = entry

	intersect := func(x, y int) int {
		for x != y {
			for postIndex[x] < postIndex[y] {
				x = idom[x]
			}
			for postIndex[y] < postIndex[x] {
				y = idom[y]
			}
		}
		return x
	}

	// process in reverse postorder, excluding entry
	revPost := make([]int, len(postorder))
	copy(revPost, postorder)
	sort.Slice(revPost, func(i, j int) bool { return postIndex[revPost[i]] > postIndex[revPost[j]] })
	filtered := revPost[:0]
	for _, b := range revPost {
		if b != entry {
			filtered = append(filtered, b)
		}
	}
	revPost = filtered

	changed := true
	for changed {
		changed = false
		for _, b := range revPost {
			var newIdom int = -1
			for _, p := range g.Preds[b] {
				if idom[p] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = p
				} else {
					newIdom = intersect(newIdom, p)
				}
			}
			if newIdom == -1 {
				continue
			}
			if idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	return idom
}

// dominatorTree builds the children-list representation of the
// immediate-dominator tree, grounded on
// dom-utils.py:Dominators.build_dominator_tree.
func dominatorTree(g *cfg.Graph, entry int, idom []int) [][]int {
	children := make([][]int, len(g.Blocks))
	for b, parent := range idom {
		if b != entry && parent != -1 {
			children[parent] = append(children[parent], b)
		}
	}
	for _, c := range children {
		sort.Ints(c)
	}
	return children
}

// dominanceFrontier computes each block's dominance frontier with the
// classical Cytron, Ferrante, Rosen, Wegman & Zadeck algorithm: for
// every block with 2+ predecessors, walk each predecessor up the
// dominator tree until reaching the block's immediate dominator,
// adding the block to every frontier visited along the way.
func dominanceFrontier(g *cfg.Graph, idom []int) []*intsets.Sparse {
	n := len(g.Blocks)
	df := make([]*intsets.Sparse, n)
	for i := range df {
		df[i] = &intsets.Sparse{}
	}
	for b := 0; b < n; b++ {
		preds := g.Preds[b]
		if len(preds) < 2 {
			continue
		}
		for _, p := range preds {
			runner := p
			for runner != idom[b] {
				df[runner].Insert(b)
				runner = idom[runner]
			}
		}
	}
	return df
}
