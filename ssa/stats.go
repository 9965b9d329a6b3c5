package ssa

import "github.com/bril-go/brilgo/ir"

// Stats is the supplemented `ssa stats` feature from ssa.py's `stats`
// mode: instruction counts before SSA construction, after it, and
// after a full to_ssa/from_ssa round trip, plus the deltas a caller
// would otherwise have to compute by hand.
type Stats struct {
	OriginalInstructionCount   int
	SSAInstructionCount        int
	RoundtripInstructionCount  int
	IncreaseFromToSSA          int
	IncreaseFromRoundtrip      int
}

// ComputeStats runs fn through To and To-then-From, reporting the
// instruction-count deltas without mutating fn.
func ComputeStats(fn *ir.Function) (Stats, error) {
	orig := len(fn.Instrs)

	ssaFn, err := To(fn)
	if err != nil {
		return Stats{}, err
	}
	ssaCount := len(ssaFn.Instrs)

	rtSSA, err := To(fn)
	if err != nil {
		return Stats{}, err
	}
	rt := From(rtSSA)
	rtCount := len(rt.Instrs)

	return Stats{
		OriginalInstructionCount:  orig,
		SSAInstructionCount:       ssaCount,
		RoundtripInstructionCount: rtCount,
		IncreaseFromToSSA:         ssaCount - orig,
		IncreaseFromRoundtrip:     rtCount - orig,
	}, nil
}
