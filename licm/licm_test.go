package licm

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

// loop body: four = 4; two = 2; x = four + two (all invariant);
// i = i + x; br i, loop, exit
func TestRunHoistsInvariantConst(t *testing.T) {
	fn := &ir.Function{
		Name: "main",
		Instrs: []*ir.Instruction{
			{Label: "entry"},
			{Op: ir.OpConst, Dest: "i", Type: "int", Value: []byte("0")},
			{Op: ir.OpJump, Labels: []string{"loop"}},
			{Label: "loop"},
			{Op: ir.OpConst, Dest: "four", Type: "int", Value: []byte("4")},
			{Op: ir.OpConst, Dest: "two", Type: "int", Value: []byte("2")},
			{Op: "add", Dest: "x", Type: "int", Args: []string{"four", "two"}},
			{Op: "add", Dest: "i", Type: "int", Args: []string{"i", "x"}},
			{Op: ir.OpBranch, Args: []string{"i"}, Labels: []string{"loop", "exit"}},
			{Label: "exit"},
			{Op: ir.OpReturn},
		},
	}
	out, err := Run(fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	foundPreheader := false
	for _, instr := range out.Instrs {
		if strings.HasPrefix(instr.Label, "preheader") {
			foundPreheader = true
		}
	}
	assertTrue(foundPreheader, "expected a preheader block to be created", t)
}

func TestRunSkipsLoopWithNoInvariants(t *testing.T) {
	fn := &ir.Function{
		Name: "main",
		Instrs: []*ir.Instruction{
			{Label: "entry"},
			{Op: ir.OpConst, Dest: "i", Type: "int", Value: []byte("0")},
			{Op: ir.OpJump, Labels: []string{"loop"}},
			{Label: "loop"},
			{Op: "add", Dest: "i", Type: "int", Args: []string{"i", "i"}},
			{Op: ir.OpBranch, Args: []string{"i"}, Labels: []string{"loop", "exit"}},
			{Label: "exit"},
			{Op: ir.OpReturn},
		},
	}
	out, err := Run(fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, instr := range out.Instrs {
		if strings.HasPrefix(instr.Label, "preheader") {
			t.Errorf("expected no preheader when nothing in the loop is invariant")
		}
	}
}
