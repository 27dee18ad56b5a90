// Package story builds the Story/Sequence render context (spec.md §4.7):
// an ordered edge walk over a subset of datasets, resolved into
// participants, messages and optional containment groups consumed by the
// Mermaid-sequence/PlantUML-sequence renderers. Grounded on
// original_source's sequence-context assembly (no single source file names
// it; the algorithm is read off spec.md §4.7 directly). Palette resolution
// uses this package's own resolveLayerStyle cascade; its Light/Dark fallback
// colours are the same as internal/render's built-in palettes.
package story

import (
	"context"
	"sort"

	"github.com/layercake/layercake/internal/model"
	"github.com/layercake/layercake/internal/store"
)

// Participant is one resolved node that appears as a lifeline in the
// sequence diagram.
type Participant struct {
	Alias       string
	Label       string
	DatasetID   string
	ExternalID  string
	PartitionID string
	Background  string
	Text        string
	Border      string
}

// Message is one resolved edge in the sequence walk.
type Message struct {
	FromAlias    string
	ToAlias      string
	Label        string
	Note         string
	NotePosition string
}

// Group is a participant-containment cluster (spec.md §4.7 step 4).
type Group struct {
	Label        string
	Background   string
	Participants []string // aliases
}

// SequenceContext is the fully resolved render input for one Sequence.
type SequenceContext struct {
	Participants []Participant
	Messages     []Message
	Groups       []Group
}

type datasetView struct {
	id     string
	nodes  map[string]model.NormalNode
	edges  map[string]model.NormalEdge
	layers map[string]model.NormalLayer
}

// BuildSequenceContext implements spec.md §4.7's algorithm for one
// Sequence belonging to story.
func BuildSequenceContext(ctx context.Context, datasets store.DatasetStore, palettes store.GraphDataStore, projectID string, st *model.Story, seq *model.Sequence) (*SequenceContext, error) {
	enabled := seq.EnabledDatasetIDs
	if len(enabled) == 0 {
		enabled = st.EnabledDatasetIDs
	}

	views := make(map[string]*datasetView, len(enabled))
	for _, id := range enabled {
		ds, err := datasets.GetDataset(ctx, id)
		if err != nil {
			continue // missing dataset: skip silently per step 3
		}
		views[id] = indexDataset(ds)
	}

	aliases := newAliasAllocator()
	sc := &SequenceContext{}
	partitionOf := map[string]string{} // alias -> partition id, for grouping
	seenParticipant := map[string]bool{}

	for _, ref := range seq.EdgeOrder {
		dv, ok := views[ref.DatasetID]
		if !ok {
			continue // dataset missing: skip silently
		}
		edge, ok := dv.edges[ref.EdgeID]
		if !ok {
			continue // edge missing: skip silently
		}
		srcNode, srcOK := dv.nodes[edge.Source]
		dstNode, dstOK := dv.nodes[edge.Target]
		if !srcOK || !dstOK {
			continue
		}

		fromAlias := aliases.alias(ref.DatasetID, edge.Source)
		toAlias := aliases.alias(ref.DatasetID, edge.Target)

		for _, p := range []struct {
			alias string
			ext   string
			node  model.NormalNode
		}{{fromAlias, edge.Source, srcNode}, {toAlias, edge.Target, dstNode}} {
			if seenParticipant[p.alias] {
				continue
			}
			seenParticipant[p.alias] = true
			style := resolveLayerStyle(palettes, ctx, projectID, st, ref.DatasetID, dv, p.node.Layer)
			sc.Participants = append(sc.Participants, Participant{
				Alias: p.alias, Label: orFallback(p.node.Label, p.ext), DatasetID: ref.DatasetID,
				ExternalID: p.ext, PartitionID: p.node.BelongsTo,
				Background: style.Background, Text: style.Text, Border: style.Border,
			})
			if p.node.BelongsTo != "" {
				partitionOf[p.alias] = ref.DatasetID + "\x00" + p.node.BelongsTo
			}
		}

		sc.Messages = append(sc.Messages, Message{
			FromAlias: fromAlias, ToAlias: toAlias, Label: edge.Label,
			Note: ref.Note, NotePosition: ref.NotePosition,
		})
	}

	sc.Groups = buildGroups(sc.Participants, partitionOf, views)
	return sc, nil
}

func indexDataset(ds *model.Dataset) *datasetView {
	dv := &datasetView{id: ds.ID, nodes: map[string]model.NormalNode{}, edges: map[string]model.NormalEdge{}, layers: map[string]model.NormalLayer{}}
	if ds.GraphJSON == nil {
		return dv
	}
	for _, n := range ds.GraphJSON.Nodes {
		dv.nodes[n.ID] = n
	}
	for _, e := range ds.GraphJSON.Edges {
		dv.edges[e.ID] = e
	}
	for _, l := range ds.GraphJSON.Layers {
		dv.layers[l.ID] = l
	}
	return dv
}

type layerStyle struct {
	Background, Text, Border string
}

// resolveLayerStyle picks a participant's colours: the first story
// LayerConfig entry whose SourceDatasetID is datasetID or empty selects the
// fallback palette for its mode; otherwise the project palette entry for
// (projectID, layerID) is used, then the dataset's own layer colours, then
// no colours. The project palette lookup is keyed by layer id only; it does
// not distinguish the source dataset.
func resolveLayerStyle(palettes store.GraphDataStore, ctx context.Context, projectID string, st *model.Story, datasetID string, dv *datasetView, layerID string) layerStyle {
	for _, override := range st.LayerConfig {
		if override.SourceDatasetID == datasetID || override.SourceDatasetID == "" {
			return fallbackPalette(override.Mode)
		}
	}

	if p, err := palettes.GetLayerPalette(ctx, projectID, layerID); err == nil && p != nil {
		return layerStyle{Background: p.BackgroundColor, Text: p.TextColor, Border: p.BorderColor}
	}
	if l, ok := dv.layers[layerID]; ok {
		return layerStyle{Background: l.BackgroundColor, Text: l.TextColor, Border: l.BorderColor}
	}
	return layerStyle{}
}

func fallbackPalette(mode string) layerStyle {
	switch mode {
	case "Dark":
		return layerStyle{Background: "#2B2B2B", Text: "#EEEEEE", Border: "#555555"}
	case "Light":
		return layerStyle{Background: "#F5F5F5", Text: "#222222", Border: "#999999"}
	default:
		return layerStyle{}
	}
}

// buildGroups returns one group per (dataset, partition) holding the
// participants whose node has a belongs_to, in sorted key order; a
// participant with no partition is in no group. No contain_nodes mode is
// read: there is no single all-participants group, and Group.Background is
// left empty.
func buildGroups(participants []Participant, partitionOf map[string]string, views map[string]*datasetView) []Group {
	byPartition := map[string][]string{}
	var order []string
	for _, p := range participants {
		key, ok := partitionOf[p.Alias]
		if !ok {
			continue
		}
		if _, seen := byPartition[key]; !seen {
			order = append(order, key)
		}
		byPartition[key] = append(byPartition[key], p.Alias)
	}
	sort.Strings(order)

	var groups []Group
	for _, key := range order {
		groups = append(groups, Group{Label: key, Participants: byPartition[key]})
	}
	return groups
}

func orFallback(label, fallback string) string {
	if label != "" {
		return label
	}
	return fallback
}
