package cfg

import (
	"testing"

	"github.com/bril-go/brilgo/ir"
)

func assertEqual(expected, actual int, t *testing.T) {
	if expected != actual {
		t.Errorf("Expected: %d Actual: %d", expected, actual)
	}
}

func label(name string) *ir.Instruction { return &ir.Instruction{Label: name} }

func instr(op, dest string, args ...string) *ir.Instruction {
	return &ir.Instruction{Op: op, Dest: dest, Args: args}
}

func jmp(target string) *ir.Instruction {
	return &ir.Instruction{Op: ir.OpJump, Labels: []string{target}}
}

func br(cond, t, f string) *ir.Instruction {
	return &ir.Instruction{Op: ir.OpBranch, Args: []string{cond}, Labels: []string{t, f}}
}

func ret() *ir.Instruction { return &ir.Instruction{Op: ir.OpReturn} }

// A straight-line program with no labels at all forms one fallthrough block.
func TestFormBasicBlocksStraightLine(t *testing.T) {
	instrs := []*ir.Instruction{
		instr("const", "a"),
		instr("const", "b"),
		instr("add", "c", "a", "b"),
	}
	blocks := FormBasicBlocks(instrs)
	assertEqual(1, len(blocks), t)
	assertEqual(3, len(blocks[0].Instrs), t)
}

func TestFormBasicBlocksSplitsOnLabelAndTerminator(t *testing.T) {
	instrs := []*ir.Instruction{
		label("entry"),
		instr("const", "cond"),
		br("cond", "then", "else"),
		label("then"),
		instr("const", "x"),
		jmp("end"),
		label("else"),
		instr("const", "y"),
		label("end"),
		ret(),
	}
	blocks := FormBasicBlocks(instrs)
	assertEqual(4, len(blocks), t)
	assertEqualStr("entry", blocks[0].Label, t)
	assertEqualStr("then", blocks[1].Label, t)
	assertEqualStr("else", blocks[2].Label, t)
	assertEqualStr("end", blocks[3].Label, t)
}

func assertEqualStr(expected, actual string, t *testing.T) {
	if expected != actual {
		t.Errorf("Expected: %s Actual: %s", expected, actual)
	}
}

func TestBuildResolvesBranchesAndFallthrough(t *testing.T) {
	instrs := []*ir.Instruction{
		label("entry"),
		br("cond", "then", "else"),
		label("then"),
		jmp("end"),
		label("else"),
		label("end"),
		ret(),
	}
	blocks := FormBasicBlocks(instrs)
	g, err := Build(blocks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// entry (block 0) ends in br -> then, else
	if len(g.Succs[0]) != 2 {
		t.Fatalf("expected 2 successors from entry, got %v", g.Succs[0])
	}
	// then (block 1) ends in jmp -> end (block 3)
	assertEqual(3, g.Succs[1][0], t)
	// else (block 2) falls through to end (block 3)
	assertEqual(3, g.Succs[2][0], t)
	assertEqual(2, len(g.Preds[3]), t)
}

func TestBuildUnknownLabel(t *testing.T) {
	instrs := []*ir.Instruction{
		label("entry"),
		jmp("nowhere"),
	}
	blocks := FormBasicBlocks(instrs)
	_, err := Build(blocks)
	if err == nil {
		t.Fatal("expected an UnknownLabel error")
	}
}

func TestEnsureUniqueEntryNoOpWhenAlreadyUnique(t *testing.T) {
	instrs := []*ir.Instruction{
		label("entry"),
		ret(),
	}
	blocks := FormBasicBlocks(instrs)
	g, err := Build(blocks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := len(g.Blocks)
	entry := EnsureUniqueEntry(g, 0)
	assertEqual(0, entry, t)
	assertEqual(before, len(g.Blocks), t)
}

func TestEnsureUniqueEntryInsertsSyntheticBlockOnLoop(t *testing.T) {
	// entry: br loop -> loop, exit
	// loop: jmp entry  (back edge into entry)
	// exit: ret
	instrs := []*ir.Instruction{
		label("entry"),
		br("cond", "loop", "exit"),
		label("loop"),
		jmp("entry"),
		label("exit"),
		ret(),
	}
	blocks := FormBasicBlocks(instrs)
	g, err := Build(blocks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry := EnsureUniqueEntry(g, 0)
	assertEqualStr(".uentry", g.Blocks[entry].Label, t)
	assertEqual(0, len(g.Preds[entry]), t)
	assertEqual(1, len(g.Preds[0]), t)
	assertEqual(entry, g.Preds[0][0], t)

	// The old back edge from "loop" into entry must be gone from
	// loop's succ list too, not just reflected in entry's preds.
	loopIdx := g.BlockOf("loop")
	for _, s := range g.Succs[loopIdx] {
		if s == 0 {
			t.Fatalf("expected loop's stale succ edge to entry to be removed, got succs=%v", g.Succs[loopIdx])
		}
	}
}
