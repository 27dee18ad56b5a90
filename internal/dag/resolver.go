package dag

import (
	"context"

	"github.com/layercake/layercake/internal/build"
	"github.com/layercake/layercake/internal/model"
	"github.com/layercake/layercake/internal/store"
)

// NodeResolver implements build.Resolver by inspecting the PlanGraph: a
// DataSetNode upstream resolves straight off its Dataset row; any other
// upstream is a computed GraphData, virtualised into the same normal-form
// shape by reading back its persisted nodes/edges/layers.
type NodeResolver struct {
	Plan     *PlanGraph
	Datasets store.DatasetStore
	Graphs   store.GraphDataStore
}

var _ build.Resolver = (*NodeResolver)(nil)

// ResolveUpstream implements build.Resolver.
func (r *NodeResolver) ResolveUpstream(ctx context.Context, upstreamNodeID string) (build.UpstreamSource, error) {
	node, ok := r.Plan.Nodes[upstreamNodeID]
	if !ok {
		return build.UpstreamSource{}, model.Wrap(model.ErrNotFound, "plan dag node %s", upstreamNodeID)
	}

	if node.NodeType == model.NodeTypeDataSet {
		return r.resolveDataset(ctx, node)
	}
	return r.resolveComputed(ctx, node)
}

func (r *NodeResolver) resolveDataset(ctx context.Context, node *model.PlanDagNode) (build.UpstreamSource, error) {
	if node.Config.DataSet == nil {
		return build.UpstreamSource{}, model.Wrap(model.ErrInvalidConfig, "DataSetNode %s has no dataset config", node.ID)
	}
	ds, err := r.Datasets.GetDataset(ctx, node.Config.DataSet.DatasetID)
	if err != nil {
		return build.UpstreamSource{}, err
	}
	if ds.Status != model.DatasetActive {
		return build.UpstreamSource{}, model.Wrap(model.ErrUpstreamNotReady, "dataset %s is not active (status=%s)", ds.ID, ds.Status)
	}
	return build.UpstreamSource{
		ID:          ds.ID,
		Filename:    ds.Filename,
		ProcessedAt: ds.ProcessedAt,
		DataType:    ds.DataType,
		NormalForm:  ds.GraphJSON,
	}, nil
}

func (r *NodeResolver) resolveComputed(ctx context.Context, node *model.PlanDagNode) (build.UpstreamSource, error) {
	gd, err := r.Graphs.GetGraphDataByNode(ctx, node.ID)
	if err != nil {
		return build.UpstreamSource{}, err
	}
	if gd.Status != model.GraphDataActive {
		return build.UpstreamSource{}, model.Wrap(model.ErrUpstreamNotReady, "graph data for node %s is not active (status=%s)", node.ID, gd.Status)
	}
	nodes, edges, layers, err := r.Graphs.LoadContents(ctx, gd.ID)
	if err != nil {
		return build.UpstreamSource{}, err
	}
	return build.UpstreamSource{
		ID:          gd.ID,
		Filename:    node.ID,
		ProcessedAt: gd.UpdatedAt,
		DataType:    model.DataTypeGraph,
		NormalForm:  virtualizeNormalForm(nodes, edges, layers),
	}, nil
}

func virtualizeNormalForm(nodes []*model.GraphNode, edges []*model.GraphEdge, layers []*model.GraphLayer) *model.NormalForm {
	nf := &model.NormalForm{
		Nodes:  make([]model.NormalNode, 0, len(nodes)),
		Edges:  make([]model.NormalEdge, 0, len(edges)),
		Layers: make([]model.NormalLayer, 0, len(layers)),
	}
	for _, n := range nodes {
		w := n.Weight
		nf.Nodes = append(nf.Nodes, model.NormalNode{
			ID: n.ExternalID, Label: n.Label, Layer: n.Layer, Weight: &w,
			IsPartition: n.IsPartition, BelongsTo: n.BelongsTo, Attrs: n.Attributes,
		})
	}
	for _, e := range edges {
		w := e.Weight
		nf.Edges = append(nf.Edges, model.NormalEdge{
			ID: e.ExternalID, Source: e.Source, Target: e.Target, Label: e.Label, Layer: e.Layer,
			Weight: &w, Attrs: e.Attributes,
		})
	}
	for _, l := range layers {
		nf.Layers = append(nf.Layers, model.NormalLayer{
			ID: l.LayerID, Label: l.Name, BackgroundColor: l.BackgroundColor,
			TextColor: l.TextColor, BorderColor: l.BorderColor, Alias: l.Alias,
		})
	}
	return nf
}
