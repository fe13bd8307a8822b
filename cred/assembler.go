// Package cred rescales a stationary distribution over a
// MarkovProcessGraph into final cred values and per-participant payout
// summaries (C6, spec.md §4.6).
package cred

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/credgraph/markovgraph"
)

// ErrNoAccumulatorMass indicates the stationary distribution's total
// mass over every epoch accumulator is zero, so cred cannot be scaled
// into mint units.
var ErrNoAccumulatorMass = errors.New("cred: no accumulator mass")

// ParticipantSummary is one participant's cred flow, total and broken
// down per epoch in epoch-start order.
type ParticipantSummary struct {
	Total    float64
	PerEpoch []float64
}

// Result is the assembled cred for one (graph, pi) pair.
type Result struct {
	// Cred is indexed by the graph's canonical node order.
	Cred []float64
	// Scale is the T/S factor applied to pi to obtain Cred.
	Scale float64
	// Participants maps a participant ID to its payout summary.
	Participants map[string]ParticipantSummary
}

// Assemble computes cred from g's structure and a stationary
// distribution pi produced by solving g.ToChain() (same length and
// canonical order as g). T is the total mint weight driving the scale;
// callers typically pass g.MintTotal().
func Assemble(g *markovgraph.Graph, pi []float64, totalMint float64) (Result, error) {
	if len(pi) != g.NodeCount() {
		return Result{}, fmt.Errorf("cred: Assemble: pi has length %d, want %d", len(pi), g.NodeCount())
	}

	var s float64
	for e := range g.EpochStarts() {
		s += pi[g.AccumulatorIndex(e)]
	}
	if s == 0 {
		return Result{}, ErrNoAccumulatorMass
	}
	scale := totalMint / s

	cred := make([]float64, len(pi))
	for i, p := range pi {
		cred[i] = p * scale
	}

	participants := g.Participants()
	summaries := make(map[string]ParticipantSummary, len(participants))
	perEpoch := make([][]float64, len(participants))
	for p := range participants {
		perEpoch[p] = make([]float64, len(g.EpochStarts()))
	}
	for e := range g.EpochStarts() {
		payoutProb := g.PayoutProbability(e)
		for p := range participants {
			flow := cred[g.UserEpochIndex(e, p)] * payoutProb[p]
			perEpoch[p][e] = flow
		}
	}
	for p, participant := range participants {
		var total float64
		for _, v := range perEpoch[p] {
			total += v
		}
		summaries[participant.ID] = ParticipantSummary{Total: total, PerEpoch: perEpoch[p]}
	}

	return Result{Cred: cred, Scale: scale, Participants: summaries}, nil
}
