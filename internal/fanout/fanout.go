// Package fanout runs a pass across every function of a program
// concurrently. Grounded on spec.md's concurrency design note that
// "parallelism across functions is trivially safe because functions
// do not share mutable state" — no single teacher file does this
// (godoctor analyzes one user selection at a time), so this package
// is new, written to give the module's golang.org/x/sync/errgroup
// dependency a real caller in the style of the rest of the pack's
// compiler passes that iterate every function in a module.
package fanout

import (
	"context"

	"github.com/bril-go/brilgo/ir"
	"golang.org/x/sync/errgroup"
)

// Functions runs pass over every function in prog concurrently and
// replaces each function's entry in prog.Functions with pass's
// result, in place, once every goroutine has returned successfully.
// If any pass invocation returns an error, Functions returns that
// error (the first one observed) and leaves prog untouched — matching
// the rest of this module's no-partial-mutation contract even across
// a concurrent fan-out.
func Functions(ctx context.Context, prog *ir.Program, pass func(context.Context, *ir.Function) (*ir.Function, error)) error {
	results := make([]*ir.Function, len(prog.Functions))

	g, gctx := errgroup.WithContext(ctx)
	for i, fn := range prog.Functions {
		i, fn := i, fn
		g.Go(func() error {
			out, err := pass(gctx, fn)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	copy(prog.Functions, results)
	return nil
}
