// Package ssa converts a function into and out of this module's
// phi-free "set/get" SSA discipline — grounded line-for-line on the
// original ssa.py's to_ssa/from_ssa, reusing this module's own cfg,
// dom, and dataflow packages in place of the Python script's
// hand-rolled block/dominator/liveness helpers.
package ssa

import (
	"fmt"
	"sort"

	"github.com/bril-go/brilgo/cfg"
	"github.com/bril-go/brilgo/dataflow"
	"github.com/bril-go/brilgo/dom"
	"github.com/bril-go/brilgo/ir"
)

const (
	opSet   = "set"
	opGet   = "get"
	opUndef = "undef"
)

type counterKey struct {
	variable, label string
}

type renamer struct {
	blocks       []*cfg.Block
	g            *cfg.Graph
	liveIn       []map[string]bool
	liveOut      []map[string]bool
	types        map[string]string
	argNames     map[string]bool
	stack        map[string][]string
	counters     map[counterKey]int
	preInstrs    map[int][]*ir.Instruction
	postInstrs   map[int][]*ir.Instruction
	blockLabel   []string
	dominator    *dom.Info
}

func liveInOf(live []map[string]bool, b int) map[string]bool {
	if b < 0 || b >= len(live) {
		return nil
	}
	return live[b]
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func getTypes(fn *ir.Function) map[string]string {
	types := map[string]string{}
	for _, arg := range fn.Args {
		types[arg.Name] = arg.Type
	}
	for _, instr := range fn.Instrs {
		if instr.HasDest() && instr.Type != "" {
			if _, ok := types[instr.Dest]; !ok {
				types[instr.Dest] = instr.Type
			}
		}
	}
	return types
}

// To converts fn into set/get SSA form, returning a new function and
// leaving fn untouched on success or error — grounded on
// ssa.py:to_ssa.
func To(fn *ir.Function) (*ir.Function, error) {
	originalBlocks := cfg.FormBasicBlocks(fn.Instrs)
	g, err := cfg.Build(originalBlocks)
	if err != nil {
		return nil, err
	}
	originalCount := len(g.Blocks)

	liveResult := dataflow.Live(g)

	types := getTypes(fn)
	argNames := map[string]bool{}
	for _, a := range fn.Args {
		argNames[a.Name] = true
	}

	entryLabel := g.Blocks[0].Label
	var prologue []*ir.Instruction
	for _, v := range sortedKeys(liveInOf(liveResult.In, 0)) {
		if !argNames[v] {
			if t, ok := types[v]; ok {
				prologue = append(prologue, &ir.Instruction{Op: opUndef, Dest: v, Type: t})
			}
		}
	}
	for _, v := range sortedKeys(liveInOf(liveResult.In, 0)) {
		prologue = append(prologue, &ir.Instruction{Op: opSet, Args: []string{v + "." + entryLabel, v}})
	}

	entry := cfg.EnsureUniqueEntry(g, 0)
	info := dom.Compute(g, entry)

	r := &renamer{
		blocks:     cloneBlocks(originalBlocks),
		g:          g,
		liveIn:     liveResult.In,
		liveOut:    liveResult.Out,
		types:      types,
		argNames:   argNames,
		stack:      map[string][]string{},
		counters:   map[counterKey]int{},
		preInstrs:  map[int][]*ir.Instruction{},
		postInstrs: map[int][]*ir.Instruction{},
		blockLabel: blockLabels(g),
		dominator:  info,
	}
	for v := range argNames {
		r.stack[v] = append(r.stack[v], v)
	}

	r.rename(entry)

	var newInstrs []*ir.Instruction
	newInstrs = append(newInstrs, prologue...)
	for i := 0; i < originalCount; i++ {
		b := r.blocks[i]
		newInstrs = append(newInstrs, &ir.Instruction{Label: r.blockLabel[i]})
		newInstrs = append(newInstrs, r.preInstrs[i]...)
		start := 0
		if len(b.Instrs) > 0 && b.Instrs[0].IsLabel() {
			start = 1
		}
		newInstrs = append(newInstrs, b.Instrs[start:]...)
		newInstrs = append(newInstrs, r.postInstrs[i]...)
	}
	if len(newInstrs) == 0 || newInstrs[len(newInstrs)-1].Op != ir.OpReturn {
		newInstrs = append(newInstrs, &ir.Instruction{Op: ir.OpReturn})
	}

	out := &ir.Function{Name: fn.Name, Args: fn.Args, Type: fn.Type, Instrs: newInstrs}
	return out, nil
}

func blockLabels(g *cfg.Graph) []string {
	labels := make([]string, len(g.Blocks))
	for i, b := range g.Blocks {
		labels[i] = b.Label
	}
	return labels
}

func cloneBlocks(blocks []*cfg.Block) []*cfg.Block {
	out := make([]*cfg.Block, len(blocks))
	for i, b := range blocks {
		instrs := make([]*ir.Instruction, len(b.Instrs))
		for j, in := range b.Instrs {
			instrs[j] = in.Clone()
		}
		out[i] = &cfg.Block{Label: b.Label, Instrs: instrs}
	}
	return out
}

// rename performs the dominator-tree-driven renaming pass, grounded
// on ssa.py:to_ssa's nested rename() closure.
func (r *renamer) rename(b int) {
	label := r.blockLabel[b]
	for _, v := range sortedKeys(liveInOf(r.liveIn, b)) {
		newName := v + "." + label
		r.stack[v] = append(r.stack[v], newName)
		t := r.types[v]
		if t == "" {
			t = "unknown"
		}
		r.preInstrs[b] = append(r.preInstrs[b], &ir.Instruction{Op: opGet, Dest: newName, Type: t})
	}

	if b < len(r.blocks) {
		for _, instr := range r.blocks[b].Instrs {
			if instr.IsLabel() {
				continue
			}
			if len(instr.Args) > 0 {
				newArgs := make([]string, len(instr.Args))
				for i, arg := range instr.Args {
					if s := r.stack[arg]; len(s) > 0 {
						newArgs[i] = s[len(s)-1]
					} else {
						newArgs[i] = "undef"
					}
				}
				instr.Args = newArgs
			}
			if instr.HasDest() {
				v := instr.Dest
				key := counterKey{v, label}
				r.counters[key]++
				newName := v + "." + label
				if r.counters[key] > 1 {
					newName = fmt.Sprintf("%s.%d", newName, r.counters[key])
				}
				instr.Dest = newName
				r.stack[v] = append(r.stack[v], newName)
			}
		}
	}

	for _, succ := range r.g.Succs[b] {
		succLabel := r.blockLabel[succ]
		wanted := intersect(liveInOf(r.liveIn, succ), liveInOf(r.liveOut, b))
		for _, v := range sortedKeys(wanted) {
			cur := "undef"
			if s := r.stack[v]; len(s) > 0 {
				cur = s[len(s)-1]
			}
			r.postInstrs[b] = append(r.postInstrs[b], &ir.Instruction{Op: opSet, Args: []string{v + "." + succLabel, cur}})
		}
	}

	for _, child := range r.dominator.Children[b] {
		r.rename(child)
	}

	for _, v := range sortedKeys(liveInOf(r.liveIn, b)) {
		if s := r.stack[v]; len(s) > 0 {
			r.stack[v] = s[:len(s)-1]
		}
	}
	if b < len(r.blocks) {
		for _, instr := range r.blocks[b].Instrs {
			if instr.HasDest() {
				v := splitFirst(instr.Dest)
				if s := r.stack[v]; len(s) > 0 {
					r.stack[v] = s[:len(s)-1]
				}
			}
		}
	}
}

func intersect(a, b map[string]bool) map[string]bool {
	out := map[string]bool{}
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

func splitFirst(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s[:i]
		}
	}
	return s
}
