package ssa

import (
	"strings"
	"testing"

	"github.com/bril-go/brilgo/ir"
)

func assertTrue(cond bool, msg string, t *testing.T) {
	if !cond {
		t.Errorf("Expected: %s", msg)
	}
}

func hasOp(instrs []*ir.Instruction, op string) bool {
	for _, instr := range instrs {
		if instr.Op == op {
			return true
		}
	}
	return false
}

func TestToSSAInsertsGetsAndSets(t *testing.T) {
	fn := &ir.Function{
		Name: "main",
		Instrs: []*ir.Instruction{
			{Label: "entry"},
			{Op: ir.OpConst, Dest: "x", Type: "int", Value: []byte("1")},
			{Op: ir.OpBranch, Args: []string{"x"}, Labels: []string{"then", "else"}},
			{Label: "then"},
			{Op: "id", Dest: "y", Type: "int", Args: []string{"x"}},
			{Op: ir.OpJump, Labels: []string{"end"}},
			{Label: "else"},
			{Op: "id", Dest: "y", Type: "int", Args: []string{"x"}},
			{Op: ir.OpJump, Labels: []string{"end"}},
			{Label: "end"},
			{Op: ir.OpReturn},
		},
	}
	out, err := To(fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertTrue(hasOp(out.Instrs, opSet), "expected at least one set instruction", t)
	assertTrue(hasOp(out.Instrs, opGet), "expected at least one get instruction", t)
	// every instruction with a dest should carry a '.' suffix (block-
	// qualified SSA name); set has no dest, get's dest is already
	// suffixed, and no undef is emitted since nothing is live into entry.
	for _, instr := range out.Instrs {
		if instr.HasDest() && !strings.Contains(instr.Dest, ".") {
			t.Errorf("expected dest %q to carry an SSA suffix", instr.Dest)
		}
	}
}

func TestFromSSAStripsSuffixesAndMarkers(t *testing.T) {
	fn := &ir.Function{
		Name: "main",
		Instrs: []*ir.Instruction{
			{Label: "entry"},
			{Op: ir.OpConst, Dest: "x", Type: "int", Value: []byte("1")},
			{Op: ir.OpReturn},
		},
	}
	ssaFn, err := To(fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rt := From(ssaFn)
	assertTrue(!hasOp(rt.Instrs, opSet), "from_ssa should drop set", t)
	assertTrue(!hasOp(rt.Instrs, opGet), "from_ssa should drop get", t)
	assertTrue(!hasOp(rt.Instrs, opUndef), "from_ssa should drop undef", t)
	for _, instr := range rt.Instrs {
		if instr.HasDest() && strings.Contains(instr.Dest, ".") {
			t.Errorf("expected dest %q stripped of its SSA suffix", instr.Dest)
		}
	}
}

func TestStatsReportsDeltas(t *testing.T) {
	fn := &ir.Function{
		Name: "main",
		Instrs: []*ir.Instruction{
			{Label: "entry"},
			{Op: ir.OpConst, Dest: "x", Type: "int", Value: []byte("1")},
			{Op: ir.OpReturn},
		},
	}
	stats, err := ComputeStats(fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertTrue(stats.OriginalInstructionCount == 3, "expected original count 3", t)
	assertTrue(stats.SSAInstructionCount >= stats.OriginalInstructionCount, "SSA form should not shrink the instruction count", t)
}
