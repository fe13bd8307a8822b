// Package weight composes multiplicative node and edge weights from a
// prefix trie (package addr).
//
// Weights are two finite mappings: node-address-prefix → positive real,
// and edge-address-prefix → (forward, backward) pair of positive reals.
// An absent mapping implies the identity (1, or (1, 1)). A queried
// address's weight is the product of every weight whose key is a prefix
// of that address; an address with no matching prefix evaluates to the
// identity.
package weight

import "github.com/katalvlaran/credgraph/addr"

// EdgeWeight is the (forward, backward) pair composed for an edge address.
type EdgeWeight struct {
	Forward  float64
	Backward float64
}

// identityEdgeWeight is the value returned when no edge-weight prefix
// matches a queried address.
var identityEdgeWeight = EdgeWeight{Forward: 1, Backward: 1}

// Weights holds the two independent weight mappings. The zero value,
// obtained from New, has no entries and every query evaluates to the
// identity.
type Weights struct {
	nodes *addr.Trie[float64]
	edges *addr.Trie[EdgeWeight]
}

// New constructs an empty Weights.
func New() *Weights {
	return &Weights{
		nodes: addr.New[float64](),
		edges: addr.New[EdgeWeight](),
	}
}

// SetNodeWeight stores w at the given node-address prefix. Last write at
// an identical prefix wins.
func (w *Weights) SetNodeWeight(prefix addr.Address, value float64) {
	w.nodes.Add(prefix, value)
}

// SetEdgeWeight stores (forward, backward) at the given edge-address
// prefix. Last write at an identical prefix wins.
func (w *Weights) SetEdgeWeight(prefix addr.Address, forward, backward float64) {
	w.edges.Add(prefix, EdgeWeight{Forward: forward, Backward: backward})
}

// Evaluator composes Weights into two total callables, NodeWeight and
// EdgeWeight, over any address. Construction is O(1); it simply captures
// the underlying Weights by reference, since Weights is treated as
// immutable once an Evaluator is built from it.
type Evaluator struct {
	weights *Weights
}

// NewEvaluator builds an Evaluator over w. A nil w behaves as an empty
// Weights (every query evaluates to the identity).
func NewEvaluator(w *Weights) *Evaluator {
	if w == nil {
		w = New()
	}
	return &Evaluator{weights: w}
}

// NodeWeight folds every node weight stored at a prefix of address under
// multiplication, starting from the identity 1. The empty set of matches
// yields 1.
func (e *Evaluator) NodeWeight(address addr.Address) float64 {
	product := 1.0
	for _, w := range e.weights.nodes.Get(address) {
		product *= w
	}
	return product
}

// EdgeWeight folds every edge weight stored at a prefix of address
// componentwise under multiplication, starting from the identity (1, 1).
// The empty set of matches yields (1, 1).
func (e *Evaluator) EdgeWeight(address addr.Address) EdgeWeight {
	result := identityEdgeWeight
	for _, w := range e.weights.edges.Get(address) {
		result.Forward *= w.Forward
		result.Backward *= w.Backward
	}
	return result
}
