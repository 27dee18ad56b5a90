package render

import (
	"github.com/aymerick/raymond"

	"github.com/layercake/layercake/internal/graphmodel"
	"github.com/layercake/layercake/internal/model"
)

type customContext struct {
	Nodes  []nodeView
	Edges  []edgeView
	Tree   []*graphmodel.TreeNode
	Layers []layerView
}

// RenderCustom executes cfg.CustomTemplate as a Handlebars template against
// {nodes, edges, tree, layers} (non-partition nodes/edges, the full
// partition tree, and the layer map), registering cfg.CustomPartials by
// name first. Grounded on original_source's to_custom.rs, which reads a
// user-supplied template path plus named partial files; here the caller
// supplies the template/partial bodies directly via RenderConfig rather
// than filesystem paths, since the renderer itself must stay pure.
func RenderCustom(g *graphmodel.Graph, cfg model.RenderConfig) (string, error) {
	if cfg.CustomTemplate == "" {
		return "", model.Wrap(model.ErrInvalidConfig, "Custom target requires a template")
	}

	tpl, err := raymond.Parse(cfg.CustomTemplate)
	if err != nil {
		return "", model.Wrap(model.ErrInvalidConfig, "parse custom template: %v", err)
	}
	for name, src := range cfg.CustomPartials {
		if err := tpl.RegisterPartial(name, src); err != nil {
			return "", model.Wrap(model.ErrInvalidConfig, "register partial %q: %v", name, err)
		}
	}

	rc := buildRenderContext(g, cfg)
	ctx := customContext{
		Nodes:  viewsForNonPartition(rc),
		Edges:  rc.Edges,
		Tree:   rc.Tree,
		Layers: rc.Layers,
	}

	out, err := tpl.Exec(ctx)
	if err != nil {
		return "", model.Wrap(model.ErrInternal, "render custom template: %v", err)
	}
	return out, nil
}

// viewsForNonPartition filters rc.Nodes down to non-partition nodes,
// matching original_source's graph.get_non_partition_nodes() context key.
func viewsForNonPartition(rc renderContext) []nodeView {
	out := make([]nodeView, 0, len(rc.Nodes))
	for _, n := range rc.Nodes {
		if !n.IsPartition {
			out = append(out, n)
		}
	}
	return out
}
