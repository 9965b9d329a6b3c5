// Package dataflow implements a generic worklist-based dataflow
// solver parametric over direction, lattice, meet, and transfer —
// grounded on the iterative fixed-point loops in the teacher's
// extras/cfg/df.go (bitset-backed GEN/KILL over a go/ast CFG) and on
// the original Python DataFlowSolver class (df.py), generalized here
// with a Go type parameter so the same worklist loop serves both the
// bitset-backed "may" analyses (reaching definitions, live variables)
// and the map-lattice constant propagation analysis.
package dataflow

// Direction selects whether a Solver propagates along successor edges
// (Forward) or predecessor edges (Backward).
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Lattice bundles the operations a Solver needs for value type T:
// Bottom is the lattice's least element, Equal tests value equality
// (sets/maps don't compare with ==), Merge is the meet over a
// (possibly empty) sequence of neighbor values, and Transfer computes
// a block's output from its input.
type Lattice[T any] struct {
	Bottom   func() T
	Equal    func(a, b T) bool
	Merge    func(values []T) T
	Transfer func(block int, in T) T
}

// Result holds the IN and OUT value at every block index after the
// Solver reaches a fixed point.
type Result[T any] struct {
	In, Out []*T
}

// Solve runs the generic worklist algorithm of spec.md's dataflow
// engine: in forward mode, `in[B] = merge(out[preds(B)])` and
// `out[B] = transfer(B, in[B])`; in backward mode the same with in/out
// and preds/succs swapped. The worklist is seeded with every block and
// reprocessed whenever its computed value changes, so the final
// result does not depend on pop order.
func Solve[T any](succs, preds [][]int, dir Direction, lat Lattice[T]) Result[T] {
	n := len(succs)
	in := make([]*T, n)
	out := make([]*T, n)
	for i := 0; i < n; i++ {
		b := lat.Bottom()
		in[i] = &b
		b2 := lat.Bottom()
		out[i] = &b2
	}

	// Seed every block's transfer output from bottom before the
	// worklist runs. Without this, a block whose merged input never
	// moves away from bottom — the entry block forward (no preds), or
	// an exit block backward (no succs) — would never have its
	// transfer applied at all, since the loop below only recomputes
	// transfer() when the merged input changes.
	neighborsIn, neighborsOut := preds, succs
	if dir == Backward {
		neighborsIn, neighborsOut = succs, preds
	}
	if dir == Forward {
		for i := 0; i < n; i++ {
			o := lat.Transfer(i, *in[i])
			out[i] = &o
		}
	} else {
		for i := 0; i < n; i++ {
			o := lat.Transfer(i, *out[i])
			in[i] = &o
		}
	}

	worklist := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		worklist[i] = true
	}

	for len(worklist) > 0 {
		var block int
		for b := range worklist {
			block = b
			break
		}
		delete(worklist, block)

		if dir == Forward {
			newIn := mergeNeighbors(lat, out, neighborsIn[block])
			if !lat.Equal(*in[block], newIn) {
				in[block] = &newIn
				newOut := lat.Transfer(block, newIn)
				if !lat.Equal(*out[block], newOut) {
					out[block] = &newOut
					for _, s := range neighborsOut[block] {
						worklist[s] = true
					}
				}
			}
		} else {
			newOut := mergeNeighbors(lat, in, neighborsIn[block])
			if !lat.Equal(*out[block], newOut) {
				out[block] = &newOut
				newIn := lat.Transfer(block, newOut)
				if !lat.Equal(*in[block], newIn) {
					in[block] = &newIn
					for _, p := range neighborsOut[block] {
						worklist[p] = true
					}
				}
			}
		}
	}

	return Result[T]{In: in, Out: out}
}

func mergeNeighbors[T any](lat Lattice[T], values []*T, neighbors []int) T {
	if len(neighbors) == 0 {
		return lat.Bottom()
	}
	vs := make([]T, len(neighbors))
	for i, nb := range neighbors {
		vs[i] = *values[nb]
	}
	return lat.Merge(vs)
}
