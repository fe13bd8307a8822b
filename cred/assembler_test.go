package cred_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/credgraph/addr"
	"github.com/katalvlaran/credgraph/contribgraph/fixture"
	"github.com/katalvlaran/credgraph/cred"
	"github.com/katalvlaran/credgraph/markovgraph"
	"github.com/katalvlaran/credgraph/weight"
)

func buildTwoParticipantGraph(t *testing.T) *markovgraph.Graph {
	t.Helper()

	cAddr := addr.Address{"C"}
	pAddr := addr.Address{"P"}
	qAddr := addr.Address{"Q"}

	g, err := fixture.Build(
		fixture.Node(cAddr, "contribution", nil),
		fixture.Node(pAddr, "participant P", nil),
		fixture.Node(qAddr, "participant Q", nil),
		fixture.Edge(addr.Address{"e1"}, cAddr, pAddr, 500),
		fixture.Edge(addr.Address{"e2"}, cAddr, qAddr, 500),
	)
	require.NoError(t, err)

	params := markovgraph.Parameters{Alpha: 0.1, Beta: 0.4, GammaForward: 0.1, GammaBackward: 0.1}
	participants := []markovgraph.Participant{
		{Address: pAddr, ID: "p1"},
		{Address: qAddr, ID: "q1"},
	}
	intervals := []markovgraph.Interval{{StartMs: 0, EndMs: 1000}}

	mg, err := markovgraph.Build(g, weight.NewEvaluator(weight.New()), participants, intervals, nil, params)
	require.NoError(t, err)
	return mg
}

func TestAssemble_AccumulatorCredSumsToTotalMint(t *testing.T) {
	mg := buildTwoParticipantGraph(t)
	n := mg.NodeCount()
	pi := make([]float64, n)

	accIdx := mg.AccumulatorIndex(0)
	pi[accIdx] = 0.6
	pi[mg.UserEpochIndex(0, 0)] = 0.2
	pi[mg.UserEpochIndex(0, 1)] = 0.2

	result, err := cred.Assemble(mg, pi, mg.MintTotal())
	require.NoError(t, err)

	var accumulatorCred float64
	for e := range mg.EpochStarts() {
		accumulatorCred += result.Cred[mg.AccumulatorIndex(e)]
	}
	require.InDelta(t, mg.MintTotal(), accumulatorCred, 1e-9)
}

func TestAssemble_RejectsZeroAccumulatorMass(t *testing.T) {
	mg := buildTwoParticipantGraph(t)
	pi := make([]float64, mg.NodeCount())

	_, err := cred.Assemble(mg, pi, mg.MintTotal())
	require.ErrorIs(t, err, cred.ErrNoAccumulatorMass)
}

func TestAssemble_RejectsWrongLengthPi(t *testing.T) {
	mg := buildTwoParticipantGraph(t)
	_, err := cred.Assemble(mg, []float64{1, 2, 3}, mg.MintTotal())
	require.Error(t, err)
}

func TestAssemble_PerParticipantSummaries(t *testing.T) {
	mg := buildTwoParticipantGraph(t)
	pi := make([]float64, mg.NodeCount())
	pi[mg.AccumulatorIndex(0)] = 0.5
	pi[mg.UserEpochIndex(0, 0)] = 0.3
	pi[mg.UserEpochIndex(0, 1)] = 0.1

	result, err := cred.Assemble(mg, pi, mg.MintTotal())
	require.NoError(t, err)

	require.Contains(t, result.Participants, "p1")
	require.Contains(t, result.Participants, "q1")
	require.Len(t, result.Participants["p1"].PerEpoch, 1)
	require.Greater(t, result.Participants["p1"].Total, result.Participants["q1"].Total)
}
