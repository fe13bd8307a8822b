package markovgraph_test

import (
	"fmt"

	"github.com/katalvlaran/credgraph/addr"
	"github.com/katalvlaran/credgraph/contribgraph/fixture"
	"github.com/katalvlaran/credgraph/markovgraph"
	"github.com/katalvlaran/credgraph/weight"
)

// ExampleBuild compiles the single-participant, two-epoch toy graph from
// spec.md §8 Scenario C: one minting contribution C with weight 1, one
// edge C->P, and prints the payout-edge transition probability out of
// each epoch's user-epoch node, which is Beta regardless of epoch count.
func ExampleBuild() {
	cAddr := addr.Address{"C"}
	pAddr := addr.Address{"P"}

	g, err := fixture.Build(
		fixture.Node(cAddr, "contribution C", nil),
		fixture.Node(pAddr, "participant P", nil),
		fixture.Edge(addr.Address{"e1"}, cAddr, pAddr, 500),
	)
	if err != nil {
		fmt.Println(err)
		return
	}

	params := markovgraph.Parameters{Alpha: 0.1, Beta: 0.4, GammaForward: 0.1, GammaBackward: 0.1}
	participants := []markovgraph.Participant{{Address: pAddr, ID: "p1", Description: "participant P"}}
	intervals := []markovgraph.Interval{{StartMs: 0, EndMs: 1000}, {StartMs: 1000, EndMs: 2000}}

	mg, err := markovgraph.Build(g, weight.NewEvaluator(weight.New()), participants, intervals, nil, params)
	if err != nil {
		fmt.Println(err)
		return
	}

	for e := range mg.EpochStarts() {
		fmt.Printf("epoch %d payout probability: %.2f\n", e, mg.PayoutProbability(e)[0])
	}

	// Output:
	// epoch 0 payout probability: 0.40
	// epoch 1 payout probability: 0.40
}
