package weight_test

import (
	"testing"

	"github.com/katalvlaran/credgraph/addr"
	"github.com/katalvlaran/credgraph/weight"
	"github.com/stretchr/testify/require"
)

// Scenario A — empty weights yield unit composition.
func TestEvaluator_EmptyWeightsYieldIdentity(t *testing.T) {
	ev := weight.NewEvaluator(weight.New())

	require.Equal(t, 1.0, ev.NodeWeight(addr.Address{"anything"}))
	require.Equal(t, weight.EdgeWeight{Forward: 1, Backward: 1}, ev.EdgeWeight(addr.Address{"anything"}))
}

// Scenario B — multiplicative weight composition.
func TestEvaluator_MultiplicativeComposition(t *testing.T) {
	w := weight.New()
	w.SetNodeWeight(addr.Address{"foo"}, 2)
	w.SetNodeWeight(addr.Address{"foo", "bar"}, 3)
	ev := weight.NewEvaluator(w)

	require.Equal(t, 2.0, ev.NodeWeight(addr.Address{"foo"}))
	require.Equal(t, 6.0, ev.NodeWeight(addr.Address{"foo", "bar"}))
	require.Equal(t, 6.0, ev.NodeWeight(addr.Address{"foo", "bar", "qox"}))
	require.Equal(t, 1.0, ev.NodeWeight(addr.Address{"qox"}))
}

func TestEvaluator_EdgeWeightComponentwise(t *testing.T) {
	w := weight.New()
	w.SetEdgeWeight(addr.Address{"edge"}, 2, 0.5)
	w.SetEdgeWeight(addr.Address{"edge", "sub"}, 3, 4)
	ev := weight.NewEvaluator(w)

	got := ev.EdgeWeight(addr.Address{"edge", "sub"})
	require.Equal(t, weight.EdgeWeight{Forward: 6, Backward: 2}, got)
}

func TestNewEvaluator_NilWeightsIsIdentity(t *testing.T) {
	ev := weight.NewEvaluator(nil)
	require.Equal(t, 1.0, ev.NodeWeight(addr.Address{"x"}))
}
