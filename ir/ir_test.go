package ir

import (
	"errors"
	"strings"
	"testing"

	"github.com/bril-go/brilgo/diagnostics"
)

func TestDecodeAcceptsWellFormedProgram(t *testing.T) {
	doc := `{"functions":[{"name":"main","instrs":[
		{"op":"const","dest":"x","type":"int","value":1},
		{"op":"ret"}
	]}]}`
	prog, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Functions) != 1 || prog.Functions[0].Name != "main" {
		t.Fatalf("unexpected decode result: %+v", prog)
	}
}

func TestDecodeRejectsInstructionWithNeitherOpNorLabel(t *testing.T) {
	doc := `{"functions":[{"name":"main","instrs":[{"dest":"x"}]}]}`
	_, err := Decode(strings.NewReader(doc))
	if !errors.Is(err, diagnostics.ErrMalformedIR) {
		t.Fatalf("expected ErrMalformedIR, got %v", err)
	}
}

func TestDecodeRejectsUnnamedFunction(t *testing.T) {
	doc := `{"functions":[{"instrs":[{"op":"ret"}]}]}`
	_, err := Decode(strings.NewReader(doc))
	if !errors.Is(err, diagnostics.ErrMalformedIR) {
		t.Fatalf("expected ErrMalformedIR, got %v", err)
	}
}

func TestHasSideEffect(t *testing.T) {
	if !HasSideEffect(&Instruction{Op: "print"}) {
		t.Errorf("expected print to have a side effect")
	}
	if HasSideEffect(&Instruction{Op: "add"}) {
		t.Errorf("expected add to be pure")
	}
	if HasSideEffect(&Instruction{Label: "entry"}) {
		t.Errorf("expected a label marker to have no side effect")
	}
}

func TestCloneDoesNotAliasSlices(t *testing.T) {
	orig := &Instruction{Op: "add", Args: []string{"a", "b"}}
	clone := orig.Clone()
	clone.Args[0] = "z"
	if orig.Args[0] != "a" {
		t.Fatalf("expected clone to own its Args backing array")
	}
}
