// Package cfg builds basic blocks and a control flow graph from a
// flat ir.Function instruction list, following the same two-step
// split the teacher's extras/cfg package uses for go/ast source: form
// leader-delimited blocks first, then resolve labels into a graph of
// block indices.
package cfg

import (
	"fmt"

	"github.com/bril-go/brilgo/diagnostics"
	"github.com/bril-go/brilgo/ir"
)

// Block is one basic block: a maximal run of instructions with a
// single entry (the first instruction, possibly a label) and a single
// exit (the last instruction, possibly a terminator).
type Block struct {
	// Label is the block's entry label. Synthetic blocks (a
	// fallthrough block with no explicit label, or the unique
	// entry block added by EnsureUniqueEntry) get a generated
	// label of the form ".blkN" or ".uentry".
	Label  string
	Instrs []*ir.Instruction
}

// Terminator returns the block's last instruction, or nil if the
// block is empty.
func (b *Block) Terminator() *ir.Instruction {
	if len(b.Instrs) == 0 {
		return nil
	}
	return b.Instrs[len(b.Instrs)-1]
}

// Graph is a control flow graph over a slice of Blocks, indexed by
// position in Blocks. It stores both directions of each edge so
// dataflow.Solver and dom.Idom can walk either without recomputing.
type Graph struct {
	Blocks []*Block
	Succs  [][]int
	Preds  [][]int

	// Entry is the index of the graph's entry block.
	Entry int

	// label indexes Blocks by Label for resolving jmp/br targets.
	label map[string]int
}

// BlockOf returns the index of the block labeled name, or -1.
func (g *Graph) BlockOf(name string) int {
	idx, ok := g.label[name]
	if !ok {
		return -1
	}
	return idx
}

// FormBasicBlocks splits instrs into maximal basic blocks: a new block
// starts at every label and after every terminator (jmp/br/ret),
// exactly as bril_cfg.py's form_basic_blocks does. Blocks with no
// explicit leading label are assigned a synthetic ".blkN" label here
// so every block is addressable.
func FormBasicBlocks(instrs []*ir.Instruction) []*Block {
	var blocks []*Block
	var current []*ir.Instruction

	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, &Block{Instrs: current})
			current = nil
		}
	}

	for _, instr := range instrs {
		if instr.IsLabel() || (len(current) > 0 && isTerminatorOp(current[len(current)-1].Op)) {
			flush()
		}
		current = append(current, instr)
	}
	flush()

	for i, b := range blocks {
		if b.Instrs[0].IsLabel() {
			b.Label = b.Instrs[0].Label
		} else {
			b.Label = fmt.Sprintf(".blk%d", i)
		}
	}
	return blocks
}

func isTerminatorOp(op string) bool {
	return op == ir.OpJump || op == ir.OpBranch || op == ir.OpReturn
}

// Build resolves jmp/br targets into a Graph over blocks, grounded on
// bril_cfg.py's build_cfg: a jmp adds one successor edge, a br adds
// two, any other non-ret terminator falls through to the next block.
// An unresolvable label produces a diagnostics.UnknownLabel error
// instead of the Python original's bare KeyError.
func Build(blocks []*Block) (*Graph, error) {
	g := &Graph{
		Blocks: blocks,
		Succs:  make([][]int, len(blocks)),
		Preds:  make([][]int, len(blocks)),
		label:  make(map[string]int, len(blocks)),
	}
	for i, b := range blocks {
		g.label[b.Label] = i
	}

	addEdge := func(src, dst int) {
		g.Succs[src] = append(g.Succs[src], dst)
		g.Preds[dst] = append(g.Preds[dst], src)
	}

	for i, b := range blocks {
		term := b.Terminator()
		switch term.Op {
		case ir.OpJump:
			dst, err := g.resolve(term.Labels[0])
			if err != nil {
				return nil, err
			}
			addEdge(i, dst)
		case ir.OpBranch:
			for _, label := range term.Labels {
				dst, err := g.resolve(label)
				if err != nil {
					return nil, err
				}
				addEdge(i, dst)
			}
		case ir.OpReturn:
			// no successors
		default:
			if i+1 < len(blocks) {
				addEdge(i, i+1)
			}
		}
	}
	return g, nil
}

func (g *Graph) resolve(label string) (int, error) {
	idx, ok := g.label[label]
	if !ok {
		return 0, diagnostics.New(diagnostics.UnknownLabel, "no block labeled %q", label)
	}
	return idx, nil
}

// EnsureUniqueEntry inserts a synthetic ".uentry" block before entry
// whenever entry already has predecessors (i.e. there is a back edge
// or loop into the function's first block), so dominator computation
// always has a single, predecessor-free start node. Grounded on
// dom-utils.py's ensure_unique_entry. It returns the index of the
// (possibly new) entry block; g is mutated in place.
func EnsureUniqueEntry(g *Graph, entry int) int {
	if len(g.Preds[entry]) == 0 {
		g.Entry = entry
		return entry
	}

	uentry := len(g.Blocks)
	g.Blocks = append(g.Blocks, &Block{Label: ".uentry"})
	g.Succs = append(g.Succs, []int{entry})
	g.Preds = append(g.Preds, nil)
	g.label[".uentry"] = uentry

	// Mirror dom-utils.py's ensure_unique_entry: every old predecessor
	// of entry loses its succ edge to entry, since entry's only
	// predecessor now is the synthetic node.
	for _, p := range g.Preds[entry] {
		g.Succs[p] = removeEdge(g.Succs[p], entry)
	}
	g.Preds[entry] = []int{uentry}
	g.Entry = uentry
	return uentry
}

func removeEdge(succs []int, target int) []int {
	out := succs[:0:0]
	for _, s := range succs {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// Dump renders g as a textual block/edge listing, the Go-side
// equivalent of bril_cfg.py main()'s "Block N: ..." / "Block src ->
// [dsts]" console dump.
func Dump(g *Graph) string {
	out := ""
	for i, b := range g.Blocks {
		out += fmt.Sprintf("Block %d (%s): %d instrs\n", i, b.Label, len(b.Instrs))
	}
	out += "\n"
	for i := range g.Blocks {
		out += fmt.Sprintf("Block %d -> %v\n", i, g.Succs[i])
	}
	return out
}
