package markovgraph

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/credgraph/addr"
	"github.com/katalvlaran/credgraph/markovchain"
)

// ToChain converts g into a sparse markovchain.Chain by iterating every
// edge family — materialized base edges, then payout, webbing, minting,
// radiation, and personal-attribution edges, generated on demand rather
// than stored — and accumulating each one into its destination's
// in-neighbor row. Before returning, it verifies every row's out-mass is
// within markovchain.Tolerance of 1, per spec.md §4.5.5; a violation is
// reported as a *markovchain.RowStochasticityError wrapped with the
// offending node's address.
func (g *Graph) ToChain() (*markovchain.Chain, error) {
	n := g.NodeCount()
	inNeighbors := make([][]int, n)
	inWeights := make([][]float64, n)
	add := func(src, dst int, p float64) {
		if p == 0 {
			return
		}
		inNeighbors[dst] = append(inNeighbors[dst], src)
		inWeights[dst] = append(inWeights[dst], p)
	}

	for _, e := range g.baseEdges {
		add(e.Src, e.Dst, e.TransitionProbability)
	}

	seedIdx := g.SeedIndex()
	for i, n := range g.baseNodes {
		if n.Mint > 0 {
			add(seedIdx, i, g.mintProbability[i])
		}
	}

	numParticipants := len(g.participants)
	lastEpoch := len(g.epochStarts) - 1
	for e := range g.epochStarts {
		accIdx := g.AccumulatorIndex(e)
		for p := 0; p < numParticipants; p++ {
			ueIdx := g.UserEpochIndex(e, p)

			add(ueIdx, accIdx, g.payoutProbability[e][p])

			backwardDst := e - 1
			if e == 0 {
				backwardDst = e
			}
			add(ueIdx, g.UserEpochIndex(backwardDst, p), g.params.GammaBackward)

			forwardDst := e + 1
			if e == lastEpoch {
				forwardDst = e
			}
			add(ueIdx, g.UserEpochIndex(forwardDst, p), g.params.GammaForward)

			for _, at := range g.attributionsFrom[e][p] {
				add(ueIdx, g.UserEpochIndex(e, at.participantIdx), at.probability)
			}
		}
	}

	for i := 0; i < n; i++ {
		if i == seedIdx {
			continue
		}
		add(i, seedIdx, g.radiation[i])
	}

	chain, err := markovchain.New(inNeighbors, inWeights)
	if err != nil {
		return nil, fmt.Errorf("markovgraph: ToChain: %w", err)
	}
	if err := chain.ValidateStochastic(); err != nil {
		var rse *markovchain.RowStochasticityError
		if errors.As(err, &rse) {
			return nil, fmt.Errorf("markovgraph: ToChain: node %v: %w", g.NodeAddress(rse.Index), err)
		}
		return nil, fmt.Errorf("markovgraph: ToChain: %w", err)
	}
	return chain, nil
}

// NodeAddress returns the address of the node at canonical index i,
// reconstructing synthetic addresses for virtualized nodes on demand.
func (g *Graph) NodeAddress(i int) addr.Address {
	if i < len(g.baseNodes) {
		return g.baseNodes[i].Address
	}
	if i == g.SeedIndex() {
		return SeedAddress()
	}
	rel := i - (len(g.baseNodes) + 1)
	block := 1 + len(g.participants)
	e := rel / block
	offset := rel % block
	if offset == 0 {
		return AccumulatorAddress(g.epochStarts[e])
	}
	p := offset - 1
	return UserEpochAddress(g.epochStarts[e], g.participants[p].ID)
}
