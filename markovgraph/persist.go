package markovgraph

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/katalvlaran/credgraph/addr"
)

// persistedMint is one (nodeIndex, probability) pair in the on-wire
// mint table.
type persistedMint struct {
	NodeIndex   int     `json:"nodeIndex"`
	Probability float64 `json:"probability"`
}

// persistedAttribution is one on-wire personal-attribution tuple.
type persistedAttribution struct {
	FromID       string  `json:"fromId"`
	ToID         string  `json:"toId"`
	EpochStartMs int64   `json:"epochStart"`
	Proportion   float64 `json:"proportion"`
}

// persistedNode is one materialized base node in the canonical JSON
// artifact (spec.md §6). Virtualized nodes are never persisted; they
// are re-derived on load from Parameters/EpochStarts/Participants.
type persistedNode struct {
	Address     []string `json:"address"`
	Description string   `json:"description"`
	Mint        float64  `json:"mint"`
}

// persistedEdge is one materialized base edge, with Src/Dst as
// canonical node indices. Virtualized edge families are never
// persisted.
type persistedEdge struct {
	Address               []string `json:"address"`
	Reversed              bool     `json:"reversed"`
	Src                   int      `json:"src"`
	Dst                   int      `json:"dst"`
	TransitionProbability float64  `json:"transitionProbability"`
}

// persistedParticipant mirrors Participant for JSON.
type persistedParticipant struct {
	Address     []string `json:"address"`
	ID          string   `json:"id"`
	Description string   `json:"description"`
}

// document is the full on-wire shape of a Markov process graph
// artifact (spec.md §6).
type document struct {
	Nodes                            []persistedNode         `json:"nodes"`
	IndexedEdges                     []persistedEdge         `json:"indexedEdges"`
	Participants                     []persistedParticipant  `json:"participants"`
	EpochStarts                      []int64                 `json:"epochStarts"`
	LastEpochEndMs                   int64                   `json:"lastEpochEndMs"`
	Parameters                       Parameters               `json:"parameters"`
	RadiationTransitionProbabilities []float64                `json:"radiationTransitionProbabilities"`
	IndexedMints                     []persistedMint          `json:"indexedMints"`
	PersonalAttributions             []persistedAttribution   `json:"personalAttributions"`
}

// MarshalJSON encodes g's materialized structure (base nodes, base
// edges, participants, timeline, parameters, radiation table, mint
// table, and personal attributions) per spec.md §6. Virtualized edges
// and nodes are never written; UnmarshalJSON re-derives the same
// payout/attribution tables algebraically from Parameters and the
// persisted attribution tuples, rather than from the original
// contribution graph.
func (g *Graph) MarshalJSON() ([]byte, error) {
	doc := document{
		EpochStarts:                      g.epochStarts,
		LastEpochEndMs:                   g.lastEpochEndMs,
		Parameters:                       g.params,
		RadiationTransitionProbabilities: g.radiation,
	}

	for _, n := range g.baseNodes {
		doc.Nodes = append(doc.Nodes, persistedNode{Address: n.Address, Description: n.Description, Mint: n.Mint})
	}
	for _, e := range g.baseEdges {
		doc.IndexedEdges = append(doc.IndexedEdges, persistedEdge{
			Address: e.Address, Reversed: e.Reversed, Src: e.Src, Dst: e.Dst, TransitionProbability: e.TransitionProbability,
		})
	}
	for _, p := range g.participants {
		doc.Participants = append(doc.Participants, persistedParticipant{Address: p.Address, ID: p.ID, Description: p.Description})
	}
	for i, n := range g.baseNodes {
		if n.Mint > 0 {
			doc.IndexedMints = append(doc.IndexedMints, persistedMint{NodeIndex: i, Probability: g.mintProbability[i]})
		}
	}
	for e, startMs := range g.epochStarts {
		fromPs := make([]int, 0, len(g.attributionsFrom[e]))
		for fromP := range g.attributionsFrom[e] {
			fromPs = append(fromPs, fromP)
		}
		sort.Ints(fromPs)
		for _, fromP := range fromPs {
			for _, at := range g.attributionsFrom[e][fromP] {
				doc.PersonalAttributions = append(doc.PersonalAttributions, persistedAttribution{
					FromID: g.participants[fromP].ID, ToID: g.participants[at.participantIdx].ID,
					EpochStartMs: startMs, Proportion: at.proportion,
				})
			}
		}
	}

	return json.Marshal(doc)
}

// UnmarshalJSON replaces g's contents by decoding a persisted artifact
// and re-deriving its virtualized payout/attribution tables from
// Parameters and the persisted personal-attribution tuples (spec.md
// §6: "virtualized edges are omitted... re-derived on load").
func (g *Graph) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("markovgraph: UnmarshalJSON: %w", err)
	}
	decoded, err := fromDocument(doc)
	if err != nil {
		return fmt.Errorf("markovgraph: UnmarshalJSON: %w", err)
	}
	*g = *decoded
	return nil
}

func fromDocument(doc document) (*Graph, error) {
	participants := make([]Participant, len(doc.Participants))
	participantIdxByID := make(map[string]int, len(doc.Participants))
	participantIdxByAddr := make(map[string]int, len(doc.Participants))
	for i, p := range doc.Participants {
		a := addr.Address(p.Address)
		participants[i] = Participant{Address: a, ID: p.ID, Description: p.Description}
		participantIdxByID[p.ID] = i
		participantIdxByAddr[addrKey(a)] = i
	}

	baseNodes := make([]NodeRecord, len(doc.Nodes))
	baseNodeIdx := make(map[string]int, len(doc.Nodes))
	var mintTotal float64
	for i, n := range doc.Nodes {
		a := addr.Address(n.Address)
		baseNodes[i] = NodeRecord{Address: a, Description: n.Description, Mint: n.Mint}
		baseNodeIdx[addrKey(a)] = i
		if n.Mint > 0 {
			mintTotal += n.Mint
		}
	}

	baseEdges := make([]EdgeRecord, len(doc.IndexedEdges))
	for i, e := range doc.IndexedEdges {
		baseEdges[i] = EdgeRecord{
			Family: FamilyBase, Address: addr.Address(e.Address), Reversed: e.Reversed,
			Src: e.Src, Dst: e.Dst, TransitionProbability: e.TransitionProbability,
		}
	}

	mintProbability := make([]float64, len(baseNodes))
	for _, m := range doc.IndexedMints {
		if m.NodeIndex < 0 || m.NodeIndex >= len(mintProbability) {
			return nil, fmt.Errorf("%w: mint index %d out of range", ErrGraphStructure, m.NodeIndex)
		}
		mintProbability[m.NodeIndex] = m.Probability
	}

	numEpochs := len(doc.EpochStarts)
	attribSum := make([]map[int]float64, numEpochs)
	attributionsFrom := make([]map[int][]attributionEdge, numEpochs)
	for e := range attributionsFrom {
		attribSum[e] = make(map[int]float64)
		attributionsFrom[e] = make(map[int][]attributionEdge)
	}
	for _, a := range doc.PersonalAttributions {
		fromIdx, ok := participantIdxByID[a.FromID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown from-participant %q", ErrAttribution, a.FromID)
		}
		toIdx, ok := participantIdxByID[a.ToID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown to-participant %q", ErrAttribution, a.ToID)
		}
		e, ok := epochIndex(doc.EpochStarts, a.EpochStartMs)
		if !ok {
			return nil, fmt.Errorf("%w: epoch start %d not found", ErrAttribution, a.EpochStartMs)
		}
		attribSum[e][fromIdx] += a.Proportion
		prob := doc.Parameters.Beta * a.Proportion
		attributionsFrom[e][fromIdx] = append(attributionsFrom[e][fromIdx], attributionEdge{participantIdx: toIdx, probability: prob, proportion: a.Proportion})
	}

	payoutProbability := make([][]float64, numEpochs)
	for e := range payoutProbability {
		row := make([]float64, len(participants))
		for p := range participants {
			row[p] = doc.Parameters.Beta * (1 - attribSum[e][p])
		}
		payoutProbability[e] = row
	}

	return &Graph{
		baseNodes:            baseNodes,
		baseNodeIdx:          baseNodeIdx,
		baseEdges:            baseEdges,
		participants:         participants,
		participantIdxByID:   participantIdxByID,
		participantIdxByAddr: participantIdxByAddr,
		epochStarts:          doc.EpochStarts,
		lastEpochEndMs:       doc.LastEpochEndMs,
		params:               doc.Parameters,
		mintTotal:            mintTotal,
		mintProbability:      mintProbability,
		payoutProbability:    payoutProbability,
		attributionsFrom:     attributionsFrom,
		radiation:            doc.RadiationTransitionProbabilities,
	}, nil
}
