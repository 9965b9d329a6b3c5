package fanout

import (
	"context"
	"errors"
	"testing"

	"github.com/bril-go/brilgo/ir"
)

func TestFunctionsRunsEveryFunction(t *testing.T) {
	prog := &ir.Program{Functions: []*ir.Function{
		{Name: "a", Instrs: []*ir.Instruction{{Op: ir.OpReturn}}},
		{Name: "b", Instrs: []*ir.Instruction{{Op: ir.OpReturn}}},
	}}
	err := Functions(context.Background(), prog, func(_ context.Context, fn *ir.Function) (*ir.Function, error) {
		clone := *fn
		clone.Name = fn.Name + "!"
		return &clone, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prog.Functions[0].Name != "a!" || prog.Functions[1].Name != "b!" {
		t.Fatalf("expected every function to be replaced by the pass's result, got %+v", prog.Functions)
	}
}

func TestFunctionsLeavesProgramUntouchedOnError(t *testing.T) {
	prog := &ir.Program{Functions: []*ir.Function{
		{Name: "a"},
		{Name: "bad"},
	}}
	original := prog.Functions[0]
	wantErr := errors.New("boom")
	err := Functions(context.Background(), prog, func(_ context.Context, fn *ir.Function) (*ir.Function, error) {
		if fn.Name == "bad" {
			return nil, wantErr
		}
		return fn, nil
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wantErr, got %v", err)
	}
	if prog.Functions[0] != original {
		t.Fatalf("expected program to be left untouched on error")
	}
}
