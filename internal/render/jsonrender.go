package render

import (
	"encoding/json"

	"github.com/layercake/layercake/internal/graphmodel"
	"github.com/layercake/layercake/internal/model"
)

// RenderJSON emits the pretty-printed normalised form: canonically ordered
// nodes/edges/layers, matching the Dataset Store's own NormalForm shape so
// a JSON render can be re-ingested as a dataset (spec.md §4.6).
func RenderJSON(g *graphmodel.Graph, _ model.RenderConfig) (string, error) {
	nf := &model.NormalForm{}
	for _, n := range g.OrderedNodes() {
		w := n.Weight
		nf.Nodes = append(nf.Nodes, model.NormalNode{
			ID: n.ExternalID, Label: n.Label, Layer: n.Layer, Weight: &w,
			IsPartition: n.IsPartition, BelongsTo: n.BelongsTo, Attrs: n.Attributes,
		})
	}
	for _, e := range g.OrderedEdges() {
		w := e.Weight
		nf.Edges = append(nf.Edges, model.NormalEdge{
			ID: e.ExternalID, Source: e.Source, Target: e.Target, Label: e.Label, Layer: e.Layer,
			Weight: &w, Attrs: e.Attributes,
		})
	}
	for _, l := range g.OrderedLayers() {
		nf.Layers = append(nf.Layers, model.NormalLayer{
			ID: l.LayerID, Label: l.Name, BackgroundColor: l.BackgroundColor,
			TextColor: l.TextColor, BorderColor: l.BorderColor, Alias: l.Alias,
		})
	}

	blob, err := json.MarshalIndent(nf, "", "  ")
	if err != nil {
		return "", model.Wrap(model.ErrInternal, "render JSON: %v", err)
	}
	return string(blob), nil
}
