package dataflow

import (
	"encoding/json"
	"strconv"

	"github.com/bril-go/brilgo/cfg"
	"github.com/bril-go/brilgo/diagnostics"
	"github.com/bril-go/brilgo/ir"
)

// knownDefiningOps lists every opcode this analysis knows how to
// interpret when it produces a value, including the arithmetic ops
// transferBlock folds directly. An opcode outside this set
// falls back to NC under the default (non-strict) policy; under
// strict mode it is reported as diagnostics.UnsupportedOp, per
// spec.md §7.
var knownDefiningOps = map[string]bool{
	ir.OpConst: true, ir.OpID: true,
	"add": true, "sub": true, "mul": true, "div": true,
	"not": true, "and": true, "or": true,
	"eq": true, "lt": true, "gt": true, "le": true, "ge": true,
	"call": true, "load": true, "ptradd": true, "alloc": true, "phi": true,
}

// ConstVal is one value in the constant-propagation lattice: bottom
// (no information yet), a concrete literal, or NC ("not constant").
// The zero value is Bottom.
type ConstVal struct {
	kind    constKind
	numeric float64
	isInt   bool
	intVal  int64
}

type constKind int

const (
	ckBottom constKind = iota
	ckLiteral
	ckNC
)

// Bottom, NC, and IntLit/FloatLit construct lattice elements.
func Bottom() ConstVal           { return ConstVal{kind: ckBottom} }
func NC() ConstVal               { return ConstVal{kind: ckNC} }
func IntLit(v int64) ConstVal    { return ConstVal{kind: ckLiteral, isInt: true, intVal: v} }
func FloatLit(v float64) ConstVal { return ConstVal{kind: ckLiteral, numeric: v} }

func (v ConstVal) IsBottom() bool { return v.kind == ckBottom }
func (v ConstVal) IsNC() bool     { return v.kind == ckNC }
func (v ConstVal) IsLiteral() bool { return v.kind == ckLiteral }

func (v ConstVal) equal(o ConstVal) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind != ckLiteral {
		return true
	}
	if v.isInt != o.isInt {
		return false
	}
	if v.isInt {
		return v.intVal == o.intVal
	}
	return v.numeric == o.numeric
}

// meetVal implements spec.md's `meet(x, x) = x; meet(⊥, y) = y;
// meet(x, ⊥) = x; otherwise NC`, mirroring df.py's meet_val.
func meetVal(x, y ConstVal) ConstVal {
	switch {
	case x.equal(y):
		return x
	case x.IsBottom():
		return y
	case y.IsBottom():
		return x
	default:
		return NC()
	}
}

// ConstMap is the per-block state: variable name -> ConstVal. Missing
// keys are implicitly Bottom, matching df.py's merge_maps treating an
// absent key as BOTTOM.
type ConstMap map[string]ConstVal

func mergeConstMaps(maps []ConstMap) ConstMap {
	keys := map[string]bool{}
	for _, m := range maps {
		for k := range m {
			keys[k] = true
		}
	}
	result := ConstMap{}
	for k := range keys {
		merged := Bottom()
		for _, m := range maps {
			v, ok := m[k]
			if !ok {
				v = Bottom()
			}
			merged = meetVal(merged, v)
		}
		result[k] = merged
	}
	return result
}

func equalConstMaps(a, b ConstMap) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		ov, ok := b[k]
		if !ok || !v.equal(ov) {
			return false
		}
	}
	return true
}

// transferBlock implements spec.md's constant-propagation transfer:
// `const` assigns the literal, `{add,sub,mul,div}` fold when both
// operands are concrete numbers (integer division floors, like
// Python's //, and yields NC on division by zero; float division follows IEEE
// semantics and also yields NC on division by zero, resolving the
// open question spec.md §9 leaves for float operands), and every
// other defining op yields NC.
func transferBlock(instrs []*ir.Instruction, in ConstMap, strict bool) (ConstMap, error) {
	state := ConstMap{}
	for k, v := range in {
		state[k] = v
	}
	for _, instr := range instrs {
		if !instr.HasDest() {
			continue
		}
		switch instr.Op {
		case ir.OpConst:
			state[instr.Dest] = literalFromValue(instr.Value)
		case "add", "sub", "mul", "div":
			state[instr.Dest] = foldArith(instr.Op, instr.Args, state)
		default:
			if strict && !knownDefiningOps[instr.Op] {
				return nil, diagnostics.New(diagnostics.UnsupportedOp, "constant propagation: unsupported opcode %q", instr.Op)
			}
			state[instr.Dest] = NC()
		}
	}
	return state, nil
}

func literalFromValue(raw json.RawMessage) ConstVal {
	if len(raw) == 0 {
		return NC()
	}
	var i int64
	if err := json.Unmarshal(raw, &i); err == nil {
		return IntLit(i)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return FloatLit(f)
	}
	return NC()
}

func foldArith(op string, args []string, state ConstMap) ConstVal {
	if len(args) != 2 {
		return NC()
	}
	a, aok := state[args[0]]
	b, bok := state[args[1]]
	if !aok || !bok || !a.IsLiteral() || !b.IsLiteral() {
		return NC()
	}
	if a.isInt && b.isInt {
		x, y := a.intVal, b.intVal
		switch op {
		case "add":
			return IntLit(x + y)
		case "sub":
			return IntLit(x - y)
		case "mul":
			return IntLit(x * y)
		case "div":
			if y == 0 {
				return NC()
			}
			q := x / y
			if (x%y != 0) && ((x < 0) != (y < 0)) {
				q-- // floor division, matching Python's //
			}
			return IntLit(q)
		}
	}
	x, y := asFloat(a), asFloat(b)
	switch op {
	case "add":
		return FloatLit(x + y)
	case "sub":
		return FloatLit(x - y)
	case "mul":
		return FloatLit(x * y)
	case "div":
		if y == 0 {
			return NC()
		}
		return FloatLit(x / y)
	}
	return NC()
}

func asFloat(v ConstVal) float64 {
	if v.isInt {
		return float64(v.intVal)
	}
	return v.numeric
}

// ConstPropResult reports, per block, the constant map at entry and
// exit.
type ConstPropResult struct {
	In, Out []ConstMap
}

// ConstProp runs constant propagation over g in the default
// (non-strict) policy of spec.md §7: an opcode this analysis cannot
// interpret is folded to NC rather than rejected.
func ConstProp(g *cfg.Graph) ConstPropResult {
	result, _ := ConstPropStrict(g, false)
	return result
}

// ConstPropStrict runs constant propagation over g, grounded on
// df.py's ConstantPropagation class. When strict is true, any
// defining opcode outside knownDefiningOps aborts the analysis with
// diagnostics.UnsupportedOp instead of silently folding to NC.
func ConstPropStrict(g *cfg.Graph, strict bool) (ConstPropResult, error) {
	n := len(g.Blocks)
	instrsOf := make([][]*ir.Instruction, n)
	for i, b := range g.Blocks {
		instrsOf[i] = b.Instrs
	}

	if strict {
		for _, instrs := range instrsOf {
			if _, err := transferBlock(instrs, ConstMap{}, true); err != nil {
				return ConstPropResult{}, err
			}
		}
	}

	lat := Lattice[ConstMap]{
		Bottom: func() ConstMap { return ConstMap{} },
		Equal:  equalConstMaps,
		Merge:  mergeConstMaps,
		Transfer: func(block int, in ConstMap) ConstMap {
			out, _ := transferBlock(instrsOf[block], in, false)
			return out
		},
	}

	result := Solve(g.Succs, g.Preds, Forward, lat)

	in := make([]ConstMap, n)
	out := make([]ConstMap, n)
	for i := range in {
		in[i] = *result.In[i]
		out[i] = *result.Out[i]
	}
	return ConstPropResult{In: in, Out: out}, nil
}

// String renders a ConstVal for diagnostic output.
func (v ConstVal) String() string {
	switch v.kind {
	case ckBottom:
		return "⊥"
	case ckNC:
		return "NC"
	default:
		if v.isInt {
			return strconv.FormatInt(v.intVal, 10)
		}
		return strconv.FormatFloat(v.numeric, 'g', -1, 64)
	}
}
