package build

import (
	"github.com/layercake/layercake/internal/graphmodel"
	"github.com/layercake/layercake/internal/model"
)

// MergeInto folds one upstream's normal form into g, dispatching on the
// upstream's declared data_type per spec.md §4.2 step 4. Nodes and layers
// are keyed upserts (last-writer-wins by upstream order); edges are
// appended without deduplication.
func MergeInto(g *graphmodel.Graph, upstream UpstreamSource) {
	nf := upstream.NormalForm
	if nf == nil {
		return
	}

	switch upstream.DataType {
	case model.DataTypeNodes:
		mergeNodes(g, upstream.ID, nf.Nodes)
	case model.DataTypeEdges:
		mergeEdges(g, upstream.ID, nf.Edges)
	case model.DataTypeLayers:
		mergeLayers(g, nf.Layers)
	case model.DataTypeGraph:
		mergeNodes(g, upstream.ID, nf.Nodes)
		mergeEdges(g, upstream.ID, nf.Edges)
		mergeLayers(g, nf.Layers)
	}
}

func mergeNodes(g *graphmodel.Graph, datasetID string, nodes []model.NormalNode) {
	for _, n := range nodes {
		weight := 1.0
		if n.Weight != nil {
			weight = *n.Weight
		}
		label := n.Label
		if label == "" {
			label = n.ID
		}
		g.UpsertNode(&model.GraphNode{
			ExternalID:  n.ID,
			Label:       label,
			Layer:       n.Layer,
			Weight:      weight,
			IsPartition: n.IsPartition,
			BelongsTo:   n.BelongsTo,
			Attributes:  n.Attrs,
			DatasetID:   datasetID,
		})
	}
}

func mergeEdges(g *graphmodel.Graph, datasetID string, edges []model.NormalEdge) {
	for _, e := range edges {
		weight := 1.0
		if e.Weight != nil {
			weight = *e.Weight
		}
		g.AppendEdge(&model.GraphEdge{
			ExternalID: e.ID,
			Source:     e.Source,
			Target:     e.Target,
			Label:      e.Label,
			Layer:      e.Layer,
			Weight:     weight,
			Attributes: e.Attrs,
			DatasetID:  datasetID,
		})
	}
}

func mergeLayers(g *graphmodel.Graph, layers []model.NormalLayer) {
	for _, l := range layers {
		g.UpsertLayer(&model.GraphLayer{
			LayerID:         l.ID,
			Name:            l.Label,
			BackgroundColor: l.BackgroundColor,
			TextColor:       l.TextColor,
			BorderColor:     l.BorderColor,
			Alias:           l.Alias,
		})
	}
}
