package markovgraph_test

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/credgraph/addr"
	"github.com/katalvlaran/credgraph/contribgraph"
	"github.com/katalvlaran/credgraph/contribgraph/fixture"
	"github.com/katalvlaran/credgraph/cred"
	"github.com/katalvlaran/credgraph/markovchain"
	"github.com/katalvlaran/credgraph/markovgraph"
	"github.com/katalvlaran/credgraph/weight"
)

func identityEvaluator() *weight.Evaluator {
	return weight.NewEvaluator(weight.New())
}

// buildScenarioC builds the single-participant, two-epoch toy graph from
// spec.md §8 Scenario C: one minting contribution C with weight 1, one
// edge C->P timestamped in the first epoch, alpha=0.1, beta=0.4,
// gammaForward=gammaBackward=0.1.
func buildScenarioC(t *testing.T) (*markovgraph.Graph, markovgraph.Parameters) {
	t.Helper()

	cAddr := addr.Address{"C"}
	pAddr := addr.Address{"P"}

	g, err := fixture.Build(
		fixture.Node(cAddr, "contribution C", nil),
		fixture.Node(pAddr, "participant P", nil),
		fixture.Edge(addr.Address{"e1"}, cAddr, pAddr, 500),
	)
	require.NoError(t, err)

	params := markovgraph.Parameters{Alpha: 0.1, Beta: 0.4, GammaForward: 0.1, GammaBackward: 0.1}
	participants := []markovgraph.Participant{{Address: pAddr, ID: "p1", Description: "participant P"}}
	intervals := []markovgraph.Interval{{StartMs: 0, EndMs: 1000}, {StartMs: 1000, EndMs: 2000}}

	mg, err := markovgraph.Build(g, identityEvaluator(), participants, intervals, nil, params)
	require.NoError(t, err)
	return mg, params
}

func TestBuild_ScenarioC_PayoutAndWebbingProbabilities(t *testing.T) {
	mg, params := buildScenarioC(t)

	require.Len(t, mg.Participants(), 1)
	require.Len(t, mg.EpochStarts(), 2)

	for e := range mg.EpochStarts() {
		payout := mg.PayoutProbability(e)
		require.InDelta(t, params.Beta, payout[0], 1e-9)
	}

	firstStart := mg.EpochStarts()[0]
	lastStart := mg.EpochStarts()[1]

	backwardLoop, ok := mg.Edge(markovgraph.WebbingAddress(firstStart, firstStart, "p1"))
	require.True(t, ok)
	require.InDelta(t, params.GammaBackward, backwardLoop.TransitionProbability, 1e-9)

	forwardLoop, ok := mg.Edge(markovgraph.WebbingAddress(lastStart, lastStart, "p1"))
	require.True(t, ok)
	require.InDelta(t, params.GammaForward, forwardLoop.TransitionProbability, 1e-9)

	forwardEdge, ok := mg.Edge(markovgraph.WebbingAddress(firstStart, lastStart, "p1"))
	require.True(t, ok)
	require.InDelta(t, params.GammaForward, forwardEdge.TransitionProbability, 1e-9)

	backwardEdge, ok := mg.Edge(markovgraph.WebbingAddress(lastStart, firstStart, "p1"))
	require.True(t, ok)
	require.InDelta(t, params.GammaBackward, backwardEdge.TransitionProbability, 1e-9)
}

func TestBuild_ScenarioC_CredIsPositiveAfterSolve(t *testing.T) {
	mg, _ := buildScenarioC(t)

	chain, err := mg.ToChain()
	require.NoError(t, err)

	n := chain.Length()
	pi0 := make([]float64, n)
	pi0[0] = 1
	seed := make([]float64, n)

	result, err := markovchain.FindStationaryDistribution(context.Background(), chain, pi0, seed, markovchain.DefaultOptions())
	require.NoError(t, err)

	res, err := cred.Assemble(mg, result.Pi, mg.MintTotal())
	require.NoError(t, err)

	summary, ok := res.Participants["p1"]
	require.True(t, ok)
	require.Greater(t, summary.Total, 0.0)
}

// Invariant 1: every node's out-mass (excluding seed) is within
// markovchain.Tolerance of 1, enforced by ToChain's own validation.
func TestToChain_RowStochasticityHolds(t *testing.T) {
	mg, _ := buildScenarioC(t)
	_, err := mg.ToChain()
	require.NoError(t, err)
}

// Invariant 3: the mint table sums to the total mint weight, and the
// seed's recorded mint-edge probabilities sum to 1.
func TestBuild_MintInvariant(t *testing.T) {
	mg, _ := buildScenarioC(t)
	require.InDelta(t, 1.0, mg.MintTotal(), 1e-9)

	chain, err := mg.ToChain()
	require.NoError(t, err)
	require.NoError(t, chain.ValidateStochastic())
}

// Invariant 5: two builds from identical inputs produce identical
// canonical structure.
func TestBuild_DeterministicAcrossRuns(t *testing.T) {
	mg1, _ := buildScenarioC(t)
	mg2, _ := buildScenarioC(t)

	require.Equal(t, mg1.NodeCount(), mg2.NodeCount())
	require.Equal(t, mg1.BaseEdges(), mg2.BaseEdges())
}

// Invariant 8: serializing and reloading yields identical materialized
// structure, and virtualized edges re-derive identical probabilities.
func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	mg, _ := buildScenarioC(t)

	data, err := json.Marshal(mg)
	require.NoError(t, err)

	var reloaded markovgraph.Graph
	require.NoError(t, json.Unmarshal(data, &reloaded))

	require.Equal(t, mg.BaseEdges(), reloaded.BaseEdges())
	require.Equal(t, mg.EpochStarts(), reloaded.EpochStarts())
	require.InDelta(t, mg.MintTotal(), reloaded.MintTotal(), 1e-9)

	firstStart := mg.EpochStarts()[0]
	before, ok := mg.Edge(markovgraph.WebbingAddress(firstStart, firstStart, "p1"))
	require.True(t, ok)
	after, ok := reloaded.Edge(markovgraph.WebbingAddress(firstStart, firstStart, "p1"))
	require.True(t, ok)
	require.Equal(t, before.TransitionProbability, after.TransitionProbability)
}

// Invariant 8, zero-Beta edge case: with Beta=0 a personal attribution's
// probability is 0/0 under naive division, so the persisted proportion
// must be carried independently of the derived probability rather than
// recovered by dividing by Beta.
func TestMarshalUnmarshalRoundTrip_ZeroBetaAttribution(t *testing.T) {
	pAddr := addr.Address{"P"}
	qAddr := addr.Address{"Q"}
	cAddr := addr.Address{"C"}
	g, err := fixture.Build(
		fixture.Node(cAddr, "", nil),
		fixture.Node(pAddr, "", nil),
		fixture.Node(qAddr, "", nil),
		fixture.Edge(addr.Address{"e1"}, cAddr, pAddr, 500),
	)
	require.NoError(t, err)

	participants := []markovgraph.Participant{
		{Address: pAddr, ID: "p1"},
		{Address: qAddr, ID: "q1"},
	}
	attributions := []markovgraph.PersonalAttribution{
		{FromID: "p1", ToID: "q1", EpochStartMs: 0, Proportion: 0.5},
	}
	params := markovgraph.Parameters{Alpha: 0.1, Beta: 0, GammaForward: 0.1, GammaBackward: 0.1}
	mg, err := markovgraph.Build(g, identityEvaluator(), participants,
		[]markovgraph.Interval{{StartMs: 0, EndMs: 1000}}, attributions, params)
	require.NoError(t, err)

	data, err := json.Marshal(mg)
	require.NoError(t, err)

	var reloaded markovgraph.Graph
	require.NoError(t, json.Unmarshal(data, &reloaded))

	before, ok := mg.Edge(markovgraph.AttributionAddress(0, "p1", "q1"))
	require.True(t, ok)
	require.False(t, math.IsNaN(before.TransitionProbability))

	after, ok := reloaded.Edge(markovgraph.AttributionAddress(0, "p1", "q1"))
	require.True(t, ok)
	require.False(t, math.IsNaN(after.TransitionProbability))
	require.Equal(t, before.TransitionProbability, after.TransitionProbability)
}

func TestBuild_RejectsCoreNamespaceNode(t *testing.T) {
	g, err := fixture.Build(
		fixture.Node(addr.Address{"core", "whatever"}, "", nil),
	)
	require.NoError(t, err)

	_, err = markovgraph.Build(g, identityEvaluator(), nil,
		[]markovgraph.Interval{{StartMs: 0, EndMs: 1000}}, nil,
		markovgraph.Parameters{})
	require.ErrorIs(t, err, markovgraph.ErrGraphStructure)
}

func TestBuild_RejectsEmptyIntervals(t *testing.T) {
	g := contribgraph.New()
	_, err := markovgraph.Build(g, identityEvaluator(), nil, nil, nil, markovgraph.Parameters{})
	require.ErrorIs(t, err, markovgraph.ErrParameter)
}

func TestBuild_RejectsMintExhaustion(t *testing.T) {
	weights := weight.New()
	weights.SetNodeWeight(addr.Address{"C"}, 0)
	g, err := fixture.Build(fixture.Node(addr.Address{"C"}, "", nil))
	require.NoError(t, err)

	_, err = markovgraph.Build(g, weight.NewEvaluator(weights), nil,
		[]markovgraph.Interval{{StartMs: 0, EndMs: 1000}}, nil,
		markovgraph.Parameters{})
	require.ErrorIs(t, err, markovgraph.ErrMintExhaustion)
}

func TestBuild_RejectsOverAllocatedAttribution(t *testing.T) {
	pAddr := addr.Address{"P"}
	qAddr := addr.Address{"Q"}
	cAddr := addr.Address{"C"}
	g, err := fixture.Build(
		fixture.Node(cAddr, "", nil),
		fixture.Node(pAddr, "", nil),
		fixture.Node(qAddr, "", nil),
		fixture.Edge(addr.Address{"e1"}, cAddr, pAddr, 500),
	)
	require.NoError(t, err)

	participants := []markovgraph.Participant{
		{Address: pAddr, ID: "p1"},
		{Address: qAddr, ID: "q1"},
	}
	attributions := []markovgraph.PersonalAttribution{
		{FromID: "p1", ToID: "q1", EpochStartMs: 0, Proportion: 0.7},
		{FromID: "p1", ToID: "q1", EpochStartMs: 0, Proportion: 0.7},
	}
	_, err = markovgraph.Build(g, identityEvaluator(), participants,
		[]markovgraph.Interval{{StartMs: 0, EndMs: 1000}}, attributions,
		markovgraph.Parameters{Alpha: 0.1, Beta: 0.4, GammaForward: 0.1, GammaBackward: 0.1})
	require.ErrorIs(t, err, markovgraph.ErrAttribution)
}
