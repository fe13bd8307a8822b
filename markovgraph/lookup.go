package markovgraph

import (
	"strconv"

	"github.com/katalvlaran/credgraph/addr"
)

// Node looks up the node record at address, reconstructing virtualized
// seed/accumulator/user-epoch records on demand rather than storing
// them (spec.md §4.5.3).
func (g *Graph) Node(address addr.Address) (NodeRecord, bool) {
	if !IsCoreAddress(address) {
		if idx, ok := g.baseNodeIdx[addrKey(address)]; ok {
			return g.baseNodes[idx], true
		}
		return NodeRecord{}, false
	}
	if len(address) < 2 {
		return NodeRecord{}, false
	}
	switch address[1] {
	case "SEED":
		return NodeRecord{Address: SeedAddress(), Description: "seed", Mint: g.mintTotal}, true
	case "EPOCH":
		if len(address) != 3 {
			return NodeRecord{}, false
		}
		startMs, err := strconv.ParseInt(address[2], 10, 64)
		if err != nil {
			return NodeRecord{}, false
		}
		if _, ok := epochIndex(g.epochStarts, startMs); !ok {
			return NodeRecord{}, false
		}
		return NodeRecord{Address: AccumulatorAddress(startMs), Description: "accumulator"}, true
	case "USER_EPOCH":
		if len(address) != 4 {
			return NodeRecord{}, false
		}
		startMs, err := strconv.ParseInt(address[2], 10, 64)
		if err != nil {
			return NodeRecord{}, false
		}
		if _, ok := epochIndex(g.epochStarts, startMs); !ok {
			return NodeRecord{}, false
		}
		if _, ok := g.participantIdxByID[address[3]]; !ok {
			return NodeRecord{}, false
		}
		return NodeRecord{Address: UserEpochAddress(startMs, address[3]), Description: "user-epoch:" + address[3]}, true
	}
	return NodeRecord{}, false
}

// Edge looks up the edge record at address, reconstructing virtualized
// payout/webbing/minting/radiation/attribution records on demand from
// the parameter set, the mint table, the radiation table, and the
// indexed personal-attribution table (spec.md §4.5.3).
func (g *Graph) Edge(address addr.Address) (EdgeRecord, bool) {
	if !IsCoreAddress(address) {
		for _, e := range g.baseEdges {
			if e.Address.Equal(address) {
				return e, true
			}
		}
		return EdgeRecord{}, false
	}
	if len(address) < 2 {
		return EdgeRecord{}, false
	}

	switch address[1] {
	case "SEED_MINT":
		target := addr.Address(address[2:])
		idx, ok := g.baseNodeIdx[addrKey(target)]
		if !ok {
			return EdgeRecord{}, false
		}
		return EdgeRecord{
			Family: FamilyMinting, Address: address,
			Src: g.SeedIndex(), Dst: idx, TransitionProbability: g.mintProbability[idx],
		}, true

	case "CONTRIBUTION_RADIATION":
		target := addr.Address(address[2:])
		idx, ok := g.canonicalIndex(target)
		if !ok || idx == g.SeedIndex() {
			return EdgeRecord{}, false
		}
		return EdgeRecord{
			Family: FamilyRadiation, Address: address,
			Src: idx, Dst: g.SeedIndex(), TransitionProbability: g.radiation[idx],
		}, true

	case "fibration":
		return g.lookupFibrationEdge(address)
	}
	return EdgeRecord{}, false
}

func (g *Graph) lookupFibrationEdge(address addr.Address) (EdgeRecord, bool) {
	if len(address) < 3 {
		return EdgeRecord{}, false
	}
	switch address[2] {
	case "EPOCH_PAYOUT":
		if len(address) != 5 {
			return EdgeRecord{}, false
		}
		startMs, err := strconv.ParseInt(address[3], 10, 64)
		if err != nil {
			return EdgeRecord{}, false
		}
		e, ok := epochIndex(g.epochStarts, startMs)
		if !ok {
			return EdgeRecord{}, false
		}
		p, ok := g.participantIdxByID[address[4]]
		if !ok {
			return EdgeRecord{}, false
		}
		return EdgeRecord{
			Family: FamilyPayout, Address: address,
			Src: g.UserEpochIndex(e, p), Dst: g.AccumulatorIndex(e),
			TransitionProbability: g.payoutProbability[e][p],
		}, true

	case "EPOCH_WEBBING":
		if len(address) != 6 {
			return EdgeRecord{}, false
		}
		thisStart, err1 := strconv.ParseInt(address[3], 10, 64)
		lastStart, err2 := strconv.ParseInt(address[4], 10, 64)
		if err1 != nil || err2 != nil {
			return EdgeRecord{}, false
		}
		thisE, ok1 := epochIndex(g.epochStarts, thisStart)
		lastE, ok2 := epochIndex(g.epochStarts, lastStart)
		if !ok1 || !ok2 {
			return EdgeRecord{}, false
		}
		p, ok := g.participantIdxByID[address[5]]
		if !ok {
			return EdgeRecord{}, false
		}
		var prob float64
		switch {
		case lastE == thisE-1:
			prob = g.params.GammaBackward
		case lastE == thisE+1:
			prob = g.params.GammaForward
		case lastE == thisE:
			// A self-loop only occurs at a timeline boundary: the first
			// epoch has no backward neighbor, the last has no forward
			// neighbor. A single-epoch timeline is both, so both
			// contribute to the one self-loop.
			lastEpoch := len(g.epochStarts) - 1
			if thisE == 0 {
				prob += g.params.GammaBackward
			}
			if thisE == lastEpoch {
				prob += g.params.GammaForward
			}
			if thisE != 0 && thisE != lastEpoch {
				return EdgeRecord{}, false
			}
		default:
			return EdgeRecord{}, false
		}
		return EdgeRecord{
			Family: FamilyWebbing, Address: address, Reversed: lastE < thisE,
			Src: g.UserEpochIndex(thisE, p), Dst: g.UserEpochIndex(lastE, p),
			TransitionProbability: prob,
		}, true

	case "EPOCH_ATTRIBUTION":
		if len(address) != 6 {
			return EdgeRecord{}, false
		}
		startMs, err := strconv.ParseInt(address[3], 10, 64)
		if err != nil {
			return EdgeRecord{}, false
		}
		e, ok := epochIndex(g.epochStarts, startMs)
		if !ok {
			return EdgeRecord{}, false
		}
		fromP, ok := g.participantIdxByID[address[4]]
		if !ok {
			return EdgeRecord{}, false
		}
		toP, ok := g.participantIdxByID[address[5]]
		if !ok {
			return EdgeRecord{}, false
		}
		for _, at := range g.attributionsFrom[e][fromP] {
			if at.participantIdx == toP {
				return EdgeRecord{
					Family: FamilyAttribution, Address: address,
					Src: g.UserEpochIndex(e, fromP), Dst: g.UserEpochIndex(e, toP),
					TransitionProbability: at.probability,
				}, true
			}
		}
		return EdgeRecord{}, false
	}
	return EdgeRecord{}, false
}

// canonicalIndex returns the canonical node index for any node address,
// real or virtualized.
func (g *Graph) canonicalIndex(address addr.Address) (int, bool) {
	if !IsCoreAddress(address) {
		idx, ok := g.baseNodeIdx[addrKey(address)]
		return idx, ok
	}
	if len(address) < 2 {
		return 0, false
	}
	switch address[1] {
	case "SEED":
		return g.SeedIndex(), true
	case "EPOCH":
		if len(address) != 3 {
			return 0, false
		}
		startMs, err := strconv.ParseInt(address[2], 10, 64)
		if err != nil {
			return 0, false
		}
		e, ok := epochIndex(g.epochStarts, startMs)
		if !ok {
			return 0, false
		}
		return g.AccumulatorIndex(e), true
	case "USER_EPOCH":
		if len(address) != 4 {
			return 0, false
		}
		startMs, err := strconv.ParseInt(address[2], 10, 64)
		if err != nil {
			return 0, false
		}
		e, ok := epochIndex(g.epochStarts, startMs)
		if !ok {
			return 0, false
		}
		p, ok := g.participantIdxByID[address[3]]
		if !ok {
			return 0, false
		}
		return g.UserEpochIndex(e, p), true
	}
	return 0, false
}
