package render

import (
	"github.com/layercake/layercake/internal/graphmodel"
	"github.com/layercake/layercake/internal/model"
)

// nodeView and edgeView are the plain-map-friendly shapes a Handlebars
// template context exposes, mirroring original_source's RenderContext
// (export/to_dot.rs, to_custom.rs): handlebars templates address fields by
// name, so the context is built once per render and reused by every
// Handlebars-backed target (DOT, Custom).
type nodeView struct {
	ID          string
	Label       string
	Layer       string
	Weight      float64
	IsPartition bool
	BelongsTo   string
	Style       resolvedStyle
}

type edgeView struct {
	ID     string
	Source string
	Target string
	Label  string
	Layer  string
	Weight float64
}

type layerView struct {
	ID    string
	Label string
	Style resolvedStyle
}

// renderContext is the {nodes, edges, tree, layers} view every
// Handlebars-backed renderer consumes (spec.md §4.6 extended: "a shared
// buildRenderContext(graph) produces the context consumed uniformly by the
// Go ports of to_dot.rs and to_custom.rs").
type renderContext struct {
	Nodes  []nodeView
	Edges  []edgeView
	Tree   []*graphmodel.TreeNode
	Layers []layerView
	Config model.RenderConfig
}

func buildRenderContext(g *graphmodel.Graph, cfg model.RenderConfig) renderContext {
	layers := g.LayerMap()

	ctx := renderContext{Config: cfg}
	for _, n := range g.OrderedNodes() {
		ctx.Nodes = append(ctx.Nodes, nodeView{
			ID: n.ExternalID, Label: n.Label, Layer: n.Layer, Weight: n.Weight,
			IsPartition: n.IsPartition, BelongsTo: n.BelongsTo,
			Style: resolveStyle(layers[n.Layer], cfg),
		})
	}
	for _, e := range g.OrderedEdges() {
		ctx.Edges = append(ctx.Edges, edgeView{
			ID: e.ExternalID, Source: e.Source, Target: e.Target, Label: e.Label,
			Layer: e.Layer, Weight: e.Weight,
		})
	}
	for _, l := range g.OrderedLayers() {
		ctx.Layers = append(ctx.Layers, layerView{ID: l.LayerID, Label: l.Name, Style: resolveStyle(l, cfg)})
	}
	ctx.Tree = g.BuildTree()
	return ctx
}
