// Package markovchain implements a sparse, row-stochastic Markov
// transition operator and a cooperative power-iteration solver for its
// stationary distribution.
//
// The operator is stored in in-neighbor (CSR-like) form: for node i,
// inNeighbors[i] lists every node j with a directed edge j→i, and
// inWeights[i][k] is that edge's transition probability. Parallel edges
// are never coalesced; their separate contributions are summed during
// iteration, exactly as spec'd.
package markovchain

import (
	"errors"
	"fmt"
)

// ErrLengthMismatch indicates inNeighbors and inWeights were not built
// with matching shapes (same outer length; matching per-row lengths).
var ErrLengthMismatch = errors.New("markovchain: inNeighbors/inWeights shape mismatch")

// ErrNeighborOutOfRange indicates a stored in-neighbor index falls
// outside [0, Length()).
var ErrNeighborOutOfRange = errors.New("markovchain: in-neighbor index out of range")

// RowStochasticityError reports that the out-mass of a single node,
// summed over every edge the chain records leaving it, falls outside the
// accepted tolerance of 1. Index is the offending node's position in the
// chain's canonical order; callers that track a parallel address slice
// should use Index to recover the address for diagnostics (see
// spec.md §4.3, §7 StochasticityError).
type RowStochasticityError struct {
	Index int
	Sum   float64
}

func (e *RowStochasticityError) Error() string {
	return fmt.Sprintf("markovchain: node %d has out-mass %.9f, want 1±1e-3", e.Index, e.Sum)
}

// Tolerance is the accepted absolute deviation from 1 for a node's
// out-mass (spec.md §3, §8 invariant 1).
const Tolerance = 1e-3

// Chain is a fixed-length sparse Markov transition operator stored as a
// dense-per-row list of (in-neighbor, probability) pairs.
type Chain struct {
	inNeighbors [][]int
	inWeights   [][]float64
}

// New builds a Chain from parallel in-neighbor and in-weight rows.
// inNeighbors[i][k] and inWeights[i][k] describe the k-th incoming edge
// to node i: an edge from inNeighbors[i][k] to i with probability
// inWeights[i][k].
func New(inNeighbors [][]int, inWeights [][]float64) (*Chain, error) {
	if len(inNeighbors) != len(inWeights) {
		return nil, ErrLengthMismatch
	}
	n := len(inNeighbors)
	for i := range inNeighbors {
		if len(inNeighbors[i]) != len(inWeights[i]) {
			return nil, fmt.Errorf("markovchain: New: row %d: %w", i, ErrLengthMismatch)
		}
		for _, j := range inNeighbors[i] {
			if j < 0 || j >= n {
				return nil, fmt.Errorf("markovchain: New: row %d: %w", i, ErrNeighborOutOfRange)
			}
		}
	}
	return &Chain{inNeighbors: inNeighbors, inWeights: inWeights}, nil
}

// Length returns the number of nodes in the chain.
func (c *Chain) Length() int {
	return len(c.inNeighbors)
}

// ValidateStochastic checks that every node's recorded out-mass — the
// sum, over all rows, of weights attributed to that node as an
// in-neighbor — is within Tolerance of 1. It returns a
// *RowStochasticityError naming the first offending node found, in
// canonical index order, or nil if the chain is row-stochastic.
func (c *Chain) ValidateStochastic() error {
	outMass := make([]float64, c.Length())
	for i, neighbors := range c.inNeighbors {
		weights := c.inWeights[i]
		for k, j := range neighbors {
			outMass[j] += weights[k]
		}
	}
	for i, sum := range outMass {
		if diff := sum - 1; diff > Tolerance || diff < -Tolerance {
			return &RowStochasticityError{Index: i, Sum: sum}
		}
	}
	return nil
}

// Iterate performs one power-iteration step:
//
//	pi'[i] = alpha*seed[i] + (1-alpha) * sum_k inWeights[i][k]*pi[inNeighbors[i][k]]
//
// The solver used by this module always calls Iterate with alpha=0; the
// alpha/seed parameters exist so Chain can be reused for classic
// teleporting PageRank by other callers.
func (c *Chain) Iterate(pi []float64, alpha float64, seed []float64) []float64 {
	n := c.Length()
	next := make([]float64, n)
	oneMinusAlpha := 1 - alpha
	for i := 0; i < n; i++ {
		var acc float64
		neighbors := c.inNeighbors[i]
		weights := c.inWeights[i]
		for k, j := range neighbors {
			acc += weights[k] * pi[j]
		}
		next[i] = alpha*seed[i] + oneMinusAlpha*acc
	}
	return next
}
