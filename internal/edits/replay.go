package edits

import (
	"context"
	"errors"
	"fmt"

	"github.com/layercake/layercake/internal/graphmodel"
	"github.com/layercake/layercake/internal/model"
)

// Summary is the {applied, skipped, failed} tally spec.md §4.3 returns from
// replay.
type Summary struct {
	Applied int
	Skipped int
	Failed  int
}

// Replay re-derives a GraphData's manual-edit overlay on top of its
// currently persisted nodes/edges/layers, in ascending seq order, per the
// per-entry policy table in spec.md §4.3. It is always run against the
// freshly rebuilt state (the Graph Build Engine clears and rebuilds before
// calling Replay), so every entry is re-applied from scratch on every
// rebuild rather than skipped because it was "already applied" last time.
func (s *Service) Replay(ctx context.Context, graphID string) (Summary, error) {
	entries, err := s.edits.ListEdits(ctx, graphID)
	if err != nil {
		return Summary{}, err
	}

	nodes, edgeRows, layers, err := s.graphs.LoadContents(ctx, graphID)
	if err != nil {
		return Summary{}, err
	}
	g := graphmodel.New(graphID)
	for _, n := range nodes {
		g.UpsertNode(n)
	}
	for _, e := range edgeRows {
		g.AppendEdge(e)
	}
	for _, l := range layers {
		g.UpsertLayer(l)
	}

	gd, err := s.graphs.GetGraphData(ctx, graphID)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	var lastApplied int64
	allSettled := true

	for _, entry := range entries {
		outcome, failureReason := s.applyEntry(g, gd, entry)
		switch outcome {
		case model.OutcomeApplied:
			summary.Applied++
			if entry.Seq > lastApplied {
				lastApplied = entry.Seq
			}
		case model.OutcomeSkipped:
			summary.Skipped++
		case model.OutcomeFailed:
			summary.Failed++
		default:
			allSettled = false
		}
		if err := s.edits.MarkOutcome(ctx, graphID, entry.Seq, outcome, failureReason); err != nil {
			return summary, err
		}
	}

	if err := s.graphs.ReplaceContents(ctx, graphID, g.OrderedNodes(), g.OrderedEdges(), g.OrderedLayers()); err != nil {
		return summary, err
	}

	if lastApplied > gd.LastEditSequence {
		gd.LastEditSequence = lastApplied
	}
	gd.HasPendingEdits = !allSettled
	gd.NodeCount = len(g.Nodes)
	gd.EdgeCount = len(g.OrderedEdges())
	if err := s.graphs.UpdateGraphData(ctx, gd); err != nil {
		return summary, err
	}

	return summary, nil
}

func (s *Service) applyEntry(g *graphmodel.Graph, gd *model.GraphData, entry *model.GraphEdit) (model.EditOutcome, string) {
	switch entry.TargetType {
	case model.TargetNode:
		return s.applyNodeEntry(g, entry)
	case model.TargetEdge:
		return s.applyEdgeEntry(g, entry)
	case model.TargetLayer:
		return s.applyLayerEntry(g, entry)
	case model.TargetGraph:
		return s.applyGraphEntry(gd, entry)
	default:
		return model.OutcomeFailed, fmt.Sprintf("unknown target_type %q", entry.TargetType)
	}
}

func (s *Service) applyNodeEntry(g *graphmodel.Graph, entry *model.GraphEdit) (model.EditOutcome, string) {
	_, exists := g.Nodes[entry.TargetExternalID]
	switch entry.Op {
	case model.OpCreate:
		if exists {
			return model.OutcomeSkipped, ""
		}
		fields, ok := asFieldMap(entry.NewValue)
		if !ok {
			return model.OutcomeFailed, "create requires a field map in new_value"
		}
		g.UpsertNode(nodeFromFields(entry.TargetExternalID, fields))
		return model.OutcomeApplied, ""

	case model.OpUpdate:
		if !exists {
			return model.OutcomeSkipped, ""
		}
		n := g.Nodes[entry.TargetExternalID]
		if err := applyNodeField(n, entry.FieldName, entry.NewValue); err != nil {
			if errors.Is(err, errSkipField) {
				return model.OutcomeSkipped, ""
			}
			return model.OutcomeFailed, err.Error()
		}
		return model.OutcomeApplied, ""

	case model.OpDelete:
		if !exists {
			return model.OutcomeSkipped, ""
		}
		g.DeleteNode(entry.TargetExternalID)
		return model.OutcomeApplied, ""

	default:
		return model.OutcomeFailed, fmt.Sprintf("unknown op %q for node", entry.Op)
	}
}

func (s *Service) applyEdgeEntry(g *graphmodel.Graph, entry *model.GraphEdit) (model.EditOutcome, string) {
	_, exists := g.Edges[entry.TargetExternalID]
	switch entry.Op {
	case model.OpCreate:
		if exists {
			return model.OutcomeSkipped, ""
		}
		fields, ok := asFieldMap(entry.NewValue)
		if !ok {
			return model.OutcomeFailed, "create requires a field map in new_value"
		}
		source, _ := fields["source"].(string)
		target, _ := fields["target"].(string)
		src, srcOK := g.Nodes[source]
		dst, dstOK := g.Nodes[target]
		if !srcOK || !dstOK {
			return model.OutcomeFailed, "edge endpoints must exist"
		}
		if src.IsPartition || dst.IsPartition {
			return model.OutcomeFailed, "edge endpoints must not be partitions"
		}
		g.AppendEdge(edgeFromFields(entry.TargetExternalID, source, target, fields))
		return model.OutcomeApplied, ""

	case model.OpUpdate:
		if !exists {
			return model.OutcomeSkipped, ""
		}
		e := g.Edges[entry.TargetExternalID]
		if err := applyEdgeField(e, entry.FieldName, entry.NewValue); err != nil {
			return model.OutcomeFailed, err.Error()
		}
		return model.OutcomeApplied, ""

	case model.OpDelete:
		if !exists {
			return model.OutcomeSkipped, ""
		}
		g.DeleteEdge(entry.TargetExternalID)
		return model.OutcomeApplied, ""

	default:
		return model.OutcomeFailed, fmt.Sprintf("unknown op %q for edge", entry.Op)
	}
}

func (s *Service) applyLayerEntry(g *graphmodel.Graph, entry *model.GraphEdit) (model.EditOutcome, string) {
	layerID := normalizeLayerID(entry.TargetExternalID)
	_, exists := g.Layers[layerID]
	switch entry.Op {
	case model.OpCreate:
		if exists {
			return model.OutcomeSkipped, ""
		}
		fields, ok := asFieldMap(entry.NewValue)
		if !ok {
			return model.OutcomeFailed, "create requires a field map in new_value"
		}
		g.UpsertLayer(layerFromFields(layerID, fields))
		return model.OutcomeApplied, ""

	case model.OpUpdate:
		if !exists {
			return model.OutcomeSkipped, ""
		}
		l := g.Layers[layerID]
		if err := applyLayerField(l, entry.FieldName, entry.NewValue); err != nil {
			if errors.Is(err, errSkipField) {
				return model.OutcomeSkipped, ""
			}
			return model.OutcomeFailed, err.Error()
		}
		return model.OutcomeApplied, ""

	case model.OpDelete:
		if !exists {
			return model.OutcomeSkipped, ""
		}
		g.DeleteLayer(layerID)
		return model.OutcomeApplied, ""

	default:
		return model.OutcomeFailed, fmt.Sprintf("unknown op %q for layer", entry.Op)
	}
}

func (s *Service) applyGraphEntry(gd *model.GraphData, entry *model.GraphEdit) (model.EditOutcome, string) {
	if entry.Op != model.OpUpdate {
		return model.OutcomeFailed, fmt.Sprintf("graph target only supports update, got %q", entry.Op)
	}
	switch entry.FieldName {
	case "name":
		name, _ := entry.NewValue.(string)
		gd.Name = name
	case "annotations":
		ann, ok := asFieldMap(entry.NewValue)
		if !ok {
			return model.OutcomeFailed, "annotations update requires an object in new_value"
		}
		gd.Annotations = ann
	default:
		return model.OutcomeFailed, fmt.Sprintf("unknown graph field %q", entry.FieldName)
	}
	return model.OutcomeApplied, ""
}
