package fixture_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/credgraph/addr"
	"github.com/katalvlaran/credgraph/contribgraph"
	"github.com/katalvlaran/credgraph/contribgraph/fixture"
)

func TestBuild_ComposesConstructorsInOrder(t *testing.T) {
	g, err := fixture.Build(
		fixture.Node(addr.Address{"A"}, "node A", nil),
		fixture.Node(addr.Address{"B"}, "node B", nil),
		fixture.Edge(addr.Address{"e1"}, addr.Address{"A"}, addr.Address{"B"}, 42),
	)
	require.NoError(t, err)
	require.Len(t, g.Nodes(), 2)
	require.Len(t, g.Edges(), 1)
}

func TestBuild_WrapsFirstFailingConstructor(t *testing.T) {
	_, err := fixture.Build(
		fixture.Edge(addr.Address{"e1"}, addr.Address{"missing-a"}, addr.Address{"missing-b"}, 0),
	)
	require.ErrorIs(t, err, contribgraph.ErrDanglingEndpoint)
}

func TestChain_AddsNodesAndSequentialEdges(t *testing.T) {
	g, err := fixture.Build(
		fixture.Chain(100, addr.Address{"A"}, addr.Address{"B"}, addr.Address{"C"}),
	)
	require.NoError(t, err)
	require.Len(t, g.Nodes(), 3)
	require.Len(t, g.Edges(), 2)
}
