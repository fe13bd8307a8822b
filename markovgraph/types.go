// Package markovgraph builds the augmented Markov process graph (C5):
// a row-stochastic stochastic operator over base contribution-graph
// nodes plus a reified seed node, per-participant time-period
// user-epoch nodes, per-epoch accumulators, and the edge families that
// connect them (base, payout, webbing, minting, radiation, personal
// attribution).
//
// Construction (Build) is single-threaded and synchronous; the
// resulting *Graph is immutable and may be freely shared. See
// spec.md §4.5 for the full construction contract this package
// implements.
package markovgraph

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/credgraph/addr"
)

// Error kinds (spec.md §7). Each is a sentinel; construction failures
// wrap one of these with fmt.Errorf("%w: ...") so callers can branch
// with errors.Is.
var (
	// ErrParameter reports a transition parameter outside [0,1], a
	// jointly-infeasible parameter set, or an empty interval sequence.
	ErrParameter = errors.New("markovgraph: parameter error")

	// ErrNodeWeight reports a negative or non-finite composed node weight.
	ErrNodeWeight = errors.New("markovgraph: node weight error")

	// ErrGraphStructure reports a contribution-graph node address in the
	// reserved core namespace.
	ErrGraphStructure = errors.New("markovgraph: graph structure error")

	// ErrMintExhaustion reports that no base node has positive mint, so
	// the seed has no outflow.
	ErrMintExhaustion = errors.New("markovgraph: mint exhaustion error")

	// ErrAttribution reports a (from, epoch) personal-attribution
	// proportion sum exceeding 1.
	ErrAttribution = errors.New("markovgraph: attribution error")

	// ErrEdgeProbability reports an assigned base-edge transition
	// probability outside [0,1].
	ErrEdgeProbability = errors.New("markovgraph: edge probability error")
)

// Parameters are the four scalar transition probabilities governing the
// augmented graph (spec.md §3).
type Parameters struct {
	Alpha         float64
	Beta          float64
	GammaForward  float64
	GammaBackward float64
}

// EpochTransitionRemainder is the mass left over for contribution edges
// leaving a user-epoch node: 1 - (Alpha+Beta+GammaForward+GammaBackward).
func (p Parameters) EpochTransitionRemainder() float64 {
	return 1 - (p.Alpha + p.Beta + p.GammaForward + p.GammaBackward)
}

// Validate checks every parameter lies in [0,1] and the remainder is
// non-negative.
func (p Parameters) Validate() error {
	for name, v := range map[string]float64{
		"alpha": p.Alpha, "beta": p.Beta,
		"gammaForward": p.GammaForward, "gammaBackward": p.GammaBackward,
	} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s=%v out of [0,1]", ErrParameter, name, v)
		}
	}
	if r := p.EpochTransitionRemainder(); r < 0 {
		return fmt.Errorf("%w: epochTransitionRemainder=%v < 0", ErrParameter, r)
	}
	return nil
}

// Interval is a half-open [StartMs, EndMs) timeline span; StartMs
// defines one epoch.
type Interval struct {
	StartMs int64
	EndMs   int64
}

// Participant is a stable identity whose address appears in the
// contribution graph but whose cred accrues through epoch-accumulator
// inflows rather than direct node weight (spec.md §3).
type Participant struct {
	Address     addr.Address
	ID          string
	Description string
}

// PersonalAttribution lets a participant direct a fraction of their own
// epoch payout to another participant in the same epoch (spec.md
// §4.5.4).
type PersonalAttribution struct {
	FromID       string
	ToID         string
	EpochStartMs int64
	Proportion   float64
}

// NodeRecord is a materialized base node: one per contribution node that
// is neither a participant address nor in the reserved core namespace.
type NodeRecord struct {
	Address     addr.Address
	Description string
	Mint        float64
}

// EdgeFamily tags the kind of a materialized or virtualized edge
// (design note: tagged union over families, not a polymorphic
// hierarchy).
type EdgeFamily int

const (
	FamilyBase EdgeFamily = iota
	FamilyPayout
	FamilyWebbing
	FamilyMinting
	FamilyRadiation
	FamilyAttribution
)

// EdgeRecord describes one directed transition in the augmented graph.
// Src/Dst are indices into the canonical node order (see Graph.NodeCount
// and Graph.NodeAddress).
type EdgeRecord struct {
	Family                EdgeFamily
	Address               addr.Address
	Reversed              bool
	Src                   int
	Dst                   int
	TransitionProbability float64
}
