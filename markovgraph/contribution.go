package markovgraph

import "github.com/katalvlaran/credgraph/addr"

// ContributionNode is one node of the external contribution graph
// (spec.md §3). TimestampMs is nil when the node carries no timestamp.
type ContributionNode struct {
	Address     addr.Address
	Description string
	TimestampMs *int64
}

// ContributionEdge is one non-dangling edge of the external contribution
// graph. The external component is responsible for excluding edges that
// reference an absent endpoint before they reach this interface
// (spec.md §3).
type ContributionEdge struct {
	Address     addr.Address
	Src         addr.Address
	Dst         addr.Address
	TimestampMs int64
}

// ContributionGraph is the narrow iteration interface the core consumes
// from the out-of-scope graph data model (spec.md §1, §4.7). Build never
// mutates a ContributionGraph.
type ContributionGraph interface {
	// Nodes returns every node, in the graph's own stable order.
	Nodes() []ContributionNode
	// Edges returns every non-dangling edge, in the graph's own stable
	// order.
	Edges() []ContributionEdge
}
