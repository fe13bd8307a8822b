// Package fixture composes deterministic contribgraph.Graph instances
// for tests, in the style of lvlath's builder package: a sequence of
// Constructor closures applied in order to a freshly created graph.
package fixture

import (
	"fmt"

	"github.com/katalvlaran/credgraph/addr"
	"github.com/katalvlaran/credgraph/contribgraph"
)

// Constructor applies one deterministic mutation to g. Constructors
// never panic; they return the error the graph reported.
type Constructor func(g *contribgraph.Graph) error

// Build creates a new contribgraph.Graph and applies cons in order,
// wrapping the first failing constructor's error with its index.
func Build(cons ...Constructor) (*contribgraph.Graph, error) {
	g := contribgraph.New()
	for i, fn := range cons {
		if err := fn(g); err != nil {
			return nil, fmt.Errorf("fixture: Build: constructor %d: %w", i, err)
		}
	}
	return g, nil
}

// Node adds a single timestamped or timestampless node.
func Node(address addr.Address, description string, timestampMs *int64) Constructor {
	return func(g *contribgraph.Graph) error {
		_, err := g.AddNode(address, description, timestampMs)
		return err
	}
}

// Edge adds a directed edge between two already-added node addresses.
func Edge(address, src, dst addr.Address, timestampMs int64) Constructor {
	return func(g *contribgraph.Graph) error {
		_, err := g.AddEdge(address, src, dst, timestampMs)
		return err
	}
}

// Chain adds a path of nodes addrs[0] -> addrs[1] -> ... -> addrs[n-1],
// one node per address (description equal to its last address part) and
// one edge per consecutive pair, all timestamped atMs.
func Chain(atMs int64, addrs ...addr.Address) Constructor {
	return func(g *contribgraph.Graph) error {
		for _, a := range addrs {
			desc := ""
			if len(a) > 0 {
				desc = a[len(a)-1]
			}
			if _, err := g.AddNode(a, desc, nil); err != nil {
				return err
			}
		}
		for i := 0; i+1 < len(addrs); i++ {
			edgeAddr := addr.Address{"fixture", "chain"}.Append(addrs[i]...).Append(addrs[i+1]...)
			if _, err := g.AddEdge(edgeAddr, addrs[i], addrs[i+1], atMs); err != nil {
				return err
			}
		}
		return nil
	}
}
