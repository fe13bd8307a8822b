// Package contribgraph is a reference, thread-safe implementation of
// the external contribution-graph boundary contract markovgraph
// consumes (spec.md §4.7). It is not part of the cred computation
// itself; callers may supply any type satisfying
// markovgraph.ContributionGraph instead.
package contribgraph

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/katalvlaran/credgraph/addr"
	"github.com/katalvlaran/credgraph/markovgraph"
)

// ErrEmptyAddress indicates a node or edge was given a zero-part
// address.
var ErrEmptyAddress = errors.New("contribgraph: empty address")

// ErrDanglingEndpoint indicates an edge referenced a node address not
// present in the graph; such edges are excluded rather than stored.
var ErrDanglingEndpoint = errors.New("contribgraph: dangling edge endpoint")

// Node is one contribution-graph node: an address, an optional
// description, and an optional timestamp.
type Node struct {
	ID          string
	Address     addr.Address
	Description string
	TimestampMs *int64
}

// Edge is one directed contribution-graph edge between two existing
// node addresses.
type Edge struct {
	ID          string
	Address     addr.Address
	Src         addr.Address
	Dst         addr.Address
	TimestampMs int64
}

// Graph is an in-memory contribution graph. Node and edge insertion
// order is preserved so Nodes/Edges return a stable iteration order
// across calls, per the markovgraph.ContributionGraph contract.
//
// Mutations acquire a write lock; reads acquire a read lock, mirroring
// core.Graph's locking discipline.
type Graph struct {
	mu sync.RWMutex

	nodeOrder  []string // node IDs in insertion order
	nodes      map[string]Node
	nodeByAddr map[string]string // addrKey -> node ID

	edgeOrder []string
	edges     map[string]Edge
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		nodes:      make(map[string]Node),
		nodeByAddr: make(map[string]string),
		edges:      make(map[string]Edge),
	}
}

func addrKey(a addr.Address) string {
	key := ""
	for i, p := range a {
		if i > 0 {
			key += "\x1f"
		}
		key += p
	}
	return key
}

// AddNode inserts a node at address with an optional description and
// timestamp (nil if untimestamped). Its ID is minted with uuid and
// returned. Re-adding the same address is rejected.
func (g *Graph) AddNode(address addr.Address, description string, timestampMs *int64) (string, error) {
	if len(address) == 0 {
		return "", ErrEmptyAddress
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	key := addrKey(address)
	if _, exists := g.nodeByAddr[key]; exists {
		return "", errors.New("contribgraph: node address already present")
	}
	id := uuid.NewString()
	g.nodes[id] = Node{ID: id, Address: address.Clone(), Description: description, TimestampMs: timestampMs}
	g.nodeByAddr[key] = id
	g.nodeOrder = append(g.nodeOrder, id)
	return id, nil
}

// AddEdge inserts a directed edge from src to dst at address, timestamped
// timestampMs. If either endpoint address is absent, the edge is
// rejected with ErrDanglingEndpoint rather than stored, satisfying the
// "non-dangling" guarantee markovgraph.ContributionGraph relies on.
func (g *Graph) AddEdge(address, src, dst addr.Address, timestampMs int64) (string, error) {
	if len(address) == 0 {
		return "", ErrEmptyAddress
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodeByAddr[addrKey(src)]; !ok {
		return "", ErrDanglingEndpoint
	}
	if _, ok := g.nodeByAddr[addrKey(dst)]; !ok {
		return "", ErrDanglingEndpoint
	}
	id := uuid.NewString()
	g.edges[id] = Edge{ID: id, Address: address.Clone(), Src: src.Clone(), Dst: dst.Clone(), TimestampMs: timestampMs}
	g.edgeOrder = append(g.edgeOrder, id)
	return id, nil
}

// RemoveNode deletes the node at address and every edge incident to it,
// so the dangling-edge invariant holds after removal too.
func (g *Graph) RemoveNode(address addr.Address) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := addrKey(address)
	id, ok := g.nodeByAddr[key]
	if !ok {
		return
	}
	delete(g.nodes, id)
	delete(g.nodeByAddr, key)
	g.nodeOrder = removeID(g.nodeOrder, id)

	var keptEdges []string
	for _, eid := range g.edgeOrder {
		e := g.edges[eid]
		if e.Src.Equal(address) || e.Dst.Equal(address) {
			delete(g.edges, eid)
			continue
		}
		keptEdges = append(keptEdges, eid)
	}
	g.edgeOrder = keptEdges
}

func removeID(order []string, id string) []string {
	out := make([]string, 0, len(order))
	for _, v := range order {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Nodes implements markovgraph.ContributionGraph.
func (g *Graph) Nodes() []markovgraph.ContributionNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]markovgraph.ContributionNode, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		n := g.nodes[id]
		out = append(out, markovgraph.ContributionNode{
			Address: n.Address, Description: n.Description, TimestampMs: n.TimestampMs,
		})
	}
	return out
}

// Edges implements markovgraph.ContributionGraph.
func (g *Graph) Edges() []markovgraph.ContributionEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]markovgraph.ContributionEdge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		e := g.edges[id]
		out = append(out, markovgraph.ContributionEdge{
			Address: e.Address, Src: e.Src, Dst: e.Dst, TimestampMs: e.TimestampMs,
		})
	}
	return out
}
