package markovgraph

import (
	"fmt"
	"math"
	"sort"

	"github.com/katalvlaran/credgraph/addr"
	"github.com/katalvlaran/credgraph/weight"
)

// attributionEdge is one resolved personal-attribution transfer within
// an epoch, stored by participant index rather than by ID so later
// lookups avoid a map hit per edge. proportion is kept alongside the
// derived probability so it can be persisted without dividing by Beta,
// which may be zero.
type attributionEdge struct {
	participantIdx int
	probability    float64
	proportion     float64
}

// Graph is the immutable augmented Markov process graph produced by
// Build. Its canonical node order is: real base nodes (input order),
// then the seed, then per epoch start: the accumulator followed by each
// participant's user-epoch node (participant list order). See
// spec.md §4.5.2.
type Graph struct {
	baseNodes            []NodeRecord
	baseNodeIdx          map[string]int
	baseEdges            []EdgeRecord
	participants         []Participant
	participantIdxByID   map[string]int
	participantIdxByAddr map[string]int

	epochStarts    []int64
	lastEpochEndMs int64
	params         Parameters

	mintTotal       float64
	mintProbability []float64 // parallel to baseNodes

	// payoutProbability[e][p] is beta*(1-s) for epoch e, participant p,
	// where s is the sum of that participant's outgoing attribution
	// fractions in that epoch.
	payoutProbability [][]float64

	// attributionsFrom[e][p] lists the attribution edges leaving
	// participant p's user-epoch node in epoch e.
	attributionsFrom []map[int][]attributionEdge

	radiation []float64 // indexed by canonical order; radiation[seedIndex] unused
}

// NodeCount returns the size of the canonical augmented node set.
func (g *Graph) NodeCount() int {
	return len(g.baseNodes) + 1 + len(g.epochStarts)*(1+len(g.participants))
}

// BaseNodeCount returns the number of materialized (real) base nodes.
func (g *Graph) BaseNodeCount() int { return len(g.baseNodes) }

// SeedIndex returns the seed node's canonical index.
func (g *Graph) SeedIndex() int { return len(g.baseNodes) }

// AccumulatorIndex returns epoch index e's accumulator canonical index.
func (g *Graph) AccumulatorIndex(epochIdx int) int {
	return len(g.baseNodes) + 1 + epochIdx*(1+len(g.participants))
}

// UserEpochIndex returns the canonical index of participant participantIdx's
// node in epoch epochIdx.
func (g *Graph) UserEpochIndex(epochIdx, participantIdx int) int {
	return g.AccumulatorIndex(epochIdx) + 1 + participantIdx
}

// Participants returns the participant list in construction order.
func (g *Graph) Participants() []Participant { return g.participants }

// EpochStarts returns the epoch-start timeline in ascending order.
func (g *Graph) EpochStarts() []int64 { return g.epochStarts }

// LastEpochEndMs returns the last interval's end timestamp.
func (g *Graph) LastEpochEndMs() int64 { return g.lastEpochEndMs }

// Parameters returns the transition parameters used to build g.
func (g *Graph) Parameters() Parameters { return g.params }

// MintTotal returns the sum of positive mint weights over base nodes.
func (g *Graph) MintTotal() float64 { return g.mintTotal }

// BaseNode returns the materialized base node at local index i.
func (g *Graph) BaseNode(i int) NodeRecord { return g.baseNodes[i] }

// BaseEdges returns the materialized base edges, in canonical insertion
// order (src/dst as global canonical indices).
func (g *Graph) BaseEdges() []EdgeRecord { return g.baseEdges }

// PayoutProbability returns, indexed by participant, the payout-edge
// transition probability for epoch epochIdx.
func (g *Graph) PayoutProbability(epochIdx int) []float64 {
	return g.payoutProbability[epochIdx]
}

// Radiation returns the radiation-edge transition probability for the
// node at canonical index i.
func (g *Graph) Radiation(i int) float64 { return g.radiation[i] }

// builderState carries the mutable fields used only during Build; it is
// consumed into an immutable *Graph and discarded (design note: thread
// the closure-captured state of the source as explicit struct fields).
type builderState struct {
	graph     ContributionGraph
	evaluator *weight.Evaluator
	params    Parameters

	baseNodes   []NodeRecord
	baseNodeIdx map[string]int

	participants         []Participant
	participantIdxByID   map[string]int
	participantIdxByAddr map[string]int

	epochStarts    []int64
	lastEpochEndMs int64

	outMass []float64

	baseEdges []EdgeRecord

	mintTotal       float64
	mintProbability []float64

	payoutProbability []map[int]float64
	attributionsFrom  []map[int][]attributionEdge

	radiation []float64
}

// Build compiles graph, participants, intervals, attributions, and
// params into an augmented *Graph, per spec.md §4.5.1. Every failure
// listed in spec.md §4.5.6 aborts construction immediately; Build never
// attempts partial recovery.
func Build(
	graph ContributionGraph,
	evaluator *weight.Evaluator,
	participants []Participant,
	intervals []Interval,
	attributions []PersonalAttribution,
	params Parameters,
) (*Graph, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(intervals) == 0 {
		return nil, fmt.Errorf("%w: empty interval sequence", ErrParameter)
	}

	b := &builderState{
		graph:                graph,
		evaluator:            evaluator,
		params:               params,
		baseNodeIdx:          make(map[string]int),
		participants:         participants,
		participantIdxByID:   make(map[string]int, len(participants)),
		participantIdxByAddr: make(map[string]int, len(participants)),
	}

	// Step 2: derive epoch starts.
	b.epochStarts = make([]int64, len(intervals))
	for i, iv := range intervals {
		if i > 0 && iv.StartMs <= intervals[i-1].StartMs {
			return nil, fmt.Errorf("%w: intervals must be strictly increasing", ErrParameter)
		}
		b.epochStarts[i] = iv.StartMs
	}
	b.lastEpochEndMs = intervals[len(intervals)-1].EndMs

	for i, p := range participants {
		b.participantIdxByID[p.ID] = i
		b.participantIdxByAddr[addrKey(p.Address)] = i
	}

	// Step 3: materialize base nodes.
	for _, n := range b.graph.Nodes() {
		if IsCoreAddress(n.Address) {
			return nil, fmt.Errorf("%w: unexpected core node %v", ErrGraphStructure, n.Address)
		}
		if _, isParticipant := b.participantIdxByAddr[addrKey(n.Address)]; isParticipant {
			continue
		}
		w := b.evaluator.NodeWeight(n.Address)
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: address %v has weight %v", ErrNodeWeight, n.Address, w)
		}
		idx := len(b.baseNodes)
		b.baseNodes = append(b.baseNodes, NodeRecord{Address: n.Address, Description: n.Description, Mint: w})
		b.baseNodeIdx[addrKey(n.Address)] = idx
	}

	nodeCount := len(b.baseNodes) + 1 + len(b.epochStarts)*(1+len(participants))
	b.outMass = make([]float64, nodeCount)
	seedIdx := len(b.baseNodes)
	accumulatorIdx := func(e int) int { return len(b.baseNodes) + 1 + e*(1+len(participants)) }
	userEpochIdx := func(e, p int) int { return accumulatorIdx(e) + 1 + p }

	// Step 4: epoch structure (payout, webbing, personal attributions).
	b.payoutProbability = make([]map[int]float64, len(b.epochStarts))
	b.attributionsFrom = make([]map[int][]attributionEdge, len(b.epochStarts))
	attribSumByEpoch := make([]map[int]float64, len(b.epochStarts))
	for e := range b.epochStarts {
		b.payoutProbability[e] = make(map[int]float64, len(participants))
		b.attributionsFrom[e] = make(map[int][]attributionEdge)
		attribSumByEpoch[e] = make(map[int]float64)
	}
	for _, a := range attributions {
		fromIdx, ok := b.participantIdxByID[a.FromID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown from-participant %q", ErrAttribution, a.FromID)
		}
		toIdx, ok := b.participantIdxByID[a.ToID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown to-participant %q", ErrAttribution, a.ToID)
		}
		e, ok := epochIndex(b.epochStarts, a.EpochStartMs)
		if !ok {
			return nil, fmt.Errorf("%w: epoch start %d not found", ErrAttribution, a.EpochStartMs)
		}
		attribSumByEpoch[e][fromIdx] += a.Proportion
		if attribSumByEpoch[e][fromIdx] > 1+1e-9 {
			return nil, fmt.Errorf("%w: participant %q attributes more than 100%% of epoch %d", ErrAttribution, a.FromID, a.EpochStartMs)
		}
		prob := params.Beta * a.Proportion
		b.attributionsFrom[e][fromIdx] = append(b.attributionsFrom[e][fromIdx], attributionEdge{participantIdx: toIdx, probability: prob, proportion: a.Proportion})
		b.outMass[userEpochIdx(e, fromIdx)] += prob
	}
	for e := range b.epochStarts {
		for p := range participants {
			s := attribSumByEpoch[e][p]
			payout := params.Beta * (1 - s)
			b.payoutProbability[e][p] = payout
			b.outMass[userEpochIdx(e, p)] += payout

			// Webbing: every user-epoch node has exactly one forward-type
			// and one backward-type outgoing edge; at the timeline
			// boundaries the absent neighbor is replaced by a self-loop
			// (spec.md §4.5.1 step 4) so row-stochasticity holds without
			// biasing endpoint scores.
			b.outMass[userEpochIdx(e, p)] += params.GammaForward
			b.outMass[userEpochIdx(e, p)] += params.GammaBackward
		}
	}

	// Step 5: mint distribution.
	b.mintProbability = make([]float64, len(b.baseNodes))
	for _, n := range b.baseNodes {
		if n.Mint > 0 {
			b.mintTotal += n.Mint
		}
	}
	if b.mintTotal == 0 {
		return nil, fmt.Errorf("%w: no outflow from seed", ErrMintExhaustion)
	}
	for i, n := range b.baseNodes {
		if n.Mint > 0 {
			b.mintProbability[i] = n.Mint / b.mintTotal
		}
	}

	// Step 6: compile base edges.
	type directedEdge struct {
		address  addr.Address
		reversed bool
		src      int
		dst      int
		w        float64
	}
	groups := make(map[int][]directedEdge)
	groupOrder := make([]int, 0)
	resolve := func(target addr.Address, tMs int64) (int, error) {
		if pIdx, ok := b.participantIdxByAddr[addrKey(target)]; ok {
			e, ok := latestEpochAtOrBefore(b.epochStarts, tMs)
			if !ok {
				return 0, fmt.Errorf("%w: edge timestamp %d precedes the first epoch", ErrGraphStructure, tMs)
			}
			return userEpochIdx(e, pIdx), nil
		}
		idx, ok := b.baseNodeIdx[addrKey(target)]
		if !ok {
			return 0, fmt.Errorf("%w: edge references unmaterialized node %v", ErrGraphStructure, target)
		}
		return idx, nil
	}
	for _, ce := range b.graph.Edges() {
		ew := b.evaluator.EdgeWeight(ce.Address)
		for _, dir := range []struct {
			reversed bool
			w        float64
			src, dst addr.Address
		}{
			{false, ew.Forward, ce.Src, ce.Dst},
			{true, ew.Backward, ce.Dst, ce.Src},
		} {
			if dir.w == 0 {
				continue
			}
			srcIdx, err := resolve(dir.src, ce.TimestampMs)
			if err != nil {
				return nil, err
			}
			dstIdx, err := resolve(dir.dst, ce.TimestampMs)
			if err != nil {
				return nil, err
			}
			if _, seen := groups[srcIdx]; !seen {
				groupOrder = append(groupOrder, srcIdx)
			}
			groups[srcIdx] = append(groups[srcIdx], directedEdge{
				address: ce.Address, reversed: dir.reversed, src: srcIdx, dst: dstIdx, w: dir.w,
			})
		}
	}
	sort.Ints(groupOrder) // emit groups in ascending canonical source index
	for _, srcIdx := range groupOrder {
		group := groups[srcIdx]
		var wsum float64
		for _, de := range group {
			wsum += de.w
		}
		if wsum == 0 {
			continue
		}
		P := 1 - params.Alpha
		if srcIdx >= accumulatorIdx(0) && isUserEpochIndex(srcIdx, accumulatorIdx, len(participants), len(b.epochStarts)) {
			P = params.EpochTransitionRemainder()
		}
		for _, de := range group {
			prob := (de.w / wsum) * P
			if prob < 0 || prob > 1 {
				return nil, fmt.Errorf("%w: %v reversed=%v prob=%v", ErrEdgeProbability, de.address, de.reversed, prob)
			}
			b.baseEdges = append(b.baseEdges, EdgeRecord{
				Family: FamilyBase, Address: de.address, Reversed: de.reversed,
				Src: de.src, Dst: de.dst, TransitionProbability: prob,
			})
			b.outMass[de.src] += prob
		}
	}

	// Step 7: radiation.
	b.radiation = make([]float64, nodeCount)
	for i := 0; i < nodeCount; i++ {
		if i == seedIdx {
			continue
		}
		b.radiation[i] = 1 - b.outMass[i]
	}

	return &Graph{
		baseNodes:            b.baseNodes,
		baseNodeIdx:          b.baseNodeIdx,
		baseEdges:            b.baseEdges,
		participants:         participants,
		participantIdxByID:   b.participantIdxByID,
		participantIdxByAddr: b.participantIdxByAddr,
		epochStarts:          b.epochStarts,
		lastEpochEndMs:       b.lastEpochEndMs,
		params:               params,
		mintTotal:            b.mintTotal,
		mintProbability:      b.mintProbability,
		payoutProbability:    flattenPayout(b.payoutProbability, len(participants)),
		attributionsFrom:     b.attributionsFrom,
		radiation:            b.radiation,
	}, nil
}

// epochIndex returns the index of an exact epoch start, if present.
func epochIndex(epochStarts []int64, startMs int64) (int, bool) {
	for i, s := range epochStarts {
		if s == startMs {
			return i, true
		}
	}
	return -1, false
}

// latestEpochAtOrBefore returns the index of the greatest epoch start
// that is <= tMs (epochStarts is ascending), per the rewriteEpoch rule
// in spec.md §4.5.1 step 6.
func latestEpochAtOrBefore(epochStarts []int64, tMs int64) (int, bool) {
	best := -1
	for i, s := range epochStarts {
		if s <= tMs {
			best = i
		} else {
			break
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// isUserEpochIndex reports whether idx falls within the user-epoch band
// of ANY epoch block, used only to select the contribution-edge
// out-mass budget (epochTransitionRemainder vs 1-alpha) in step 6.
func isUserEpochIndex(idx int, accumulatorIdx func(int) int, numParticipants, numEpochs int) bool {
	if numParticipants == 0 {
		return false
	}
	// Every epoch block spans [accumulatorIdx(e), accumulatorIdx(e)+numParticipants].
	// idx is a user-epoch index iff it is strictly greater than some
	// block's accumulator index and within that block's span.
	for e := 0; e < numEpochs; e++ {
		base := accumulatorIdx(e)
		if idx < base {
			return false
		}
		if idx <= base+numParticipants {
			return idx > base
		}
	}
	return false
}

func flattenPayout(payoutProbability []map[int]float64, numParticipants int) [][]float64 {
	out := make([][]float64, len(payoutProbability))
	for e, m := range payoutProbability {
		row := make([]float64, numParticipants)
		for p, v := range m {
			row[p] = v
		}
		out[e] = row
	}
	return out
}
