package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aymerick/raymond"

	"github.com/layercake/layercake/internal/graphmodel"
	"github.com/layercake/layercake/internal/model"
)

var registerDOTHelpersOnce sync.Once

// registerDOTHelpers registers the handful of Handlebars helpers the DOT
// template needs. original_source's common::get_handlebars() registers
// "exists" (non-null check), "isnull" and "stringeq"; to_dot.rs's own
// template calls an "eq" and a "dot_render_tree" helper that are referenced
// but never defined anywhere in the retrieved Rust source. This port
// registers its own "exists" (falsy-string aware) and pre-renders the
// partition nesting in Go instead of guessing at dot_render_tree's
// signature (see buildDOTClusters).
func registerDOTHelpers() {
	registerDOTHelpersOnce.Do(func() {
		raymond.RegisterHelper("exists", func(v string) bool { return v != "" })
	})
}

const dotTemplate = `digraph G {
    rankdir="{{Direction}}";
    splines=true;
    node [shape="plaintext" style="filled,rounded" fontsize=12]
    edge [fontname="Lato" color="#2B303A" fontsize=8]

{{#each Nodes}}
{{#unless this.IsPartition}}
    {{this.ID}} [label="{{this.Label}}" fillcolor="{{this.Style.Background}}" fontcolor="{{this.Style.Text}}" color="{{this.Style.Border}}"];
{{/unless}}
{{/each}}

{{{TreeDOT}}}

{{#each Edges}}
{{#if (exists this.Label)}}
    {{this.Source}} -> {{this.Target}} [label="{{this.Label}}"];
{{else}}
    {{this.Source}} -> {{this.Target}};
{{/if}}
{{/each}}
}
`

type dotContext struct {
	Direction string
	Nodes     []nodeView
	Edges     []edgeView
	TreeDOT   string
}

// RenderDOT emits a Graphviz DOT digraph, nesting partitions as subgraph
// clusters when cfg.ContainNodes is set (spec.md §4.6), styled from the
// layer palette.
func RenderDOT(g *graphmodel.Graph, cfg model.RenderConfig) (string, error) {
	registerDOTHelpers()
	rc := buildRenderContext(g, cfg)

	direction := "TB"
	if cfg.Orientation == model.OrientationLR {
		direction = "LR"
	}

	ctx := dotContext{
		Direction: direction,
		Nodes:     rc.Nodes,
		Edges:     rc.Edges,
		TreeDOT:   buildDOTClusters(rc.Tree, cfg),
	}

	tpl, err := raymond.Parse(dotTemplate)
	if err != nil {
		return "", model.Wrap(model.ErrInternal, "parse DOT template: %v", err)
	}
	out, err := tpl.Exec(ctx)
	if err != nil {
		return "", model.Wrap(model.ErrInternal, "render DOT: %v", err)
	}
	return out, nil
}

// buildDOTClusters renders the partition tree as nested subgraph clusters
// (cfg.ContainNodes=true) or as nothing when flattened, since flattened
// nodes are already emitted directly by the template's Nodes loop.
func buildDOTClusters(tree []*graphmodel.TreeNode, cfg model.RenderConfig) string {
	if !cfg.ContainNodes {
		return ""
	}
	var sb strings.Builder
	for _, root := range tree {
		writeDOTCluster(&sb, root, 1)
	}
	return sb.String()
}

func writeDOTCluster(sb *strings.Builder, node *graphmodel.TreeNode, depth int) {
	if !node.Node.IsPartition {
		return
	}
	indent := strings.Repeat("    ", depth)
	fmt.Fprintf(sb, "%ssubgraph cluster_%s {\n%s    label=\"%s\";\n", indent, node.Node.ExternalID, indent, node.Node.Label)
	for _, child := range node.Children {
		if child.Node.IsPartition {
			writeDOTCluster(sb, child, depth+1)
		} else {
			fmt.Fprintf(sb, "%s    %s;\n", indent, child.Node.ExternalID)
		}
	}
	fmt.Fprintf(sb, "%s}\n", indent)
}

// RenderDOTHierarchy emits only the partition tree as nested DOT clusters
// (spec.md §4.6: "partition tree only").
func RenderDOTHierarchy(g *graphmodel.Graph, cfg model.RenderConfig) (string, error) {
	var sb strings.Builder
	sb.WriteString("digraph Hierarchy {\n")
	for _, root := range g.BuildTree() {
		writeDOTCluster(&sb, root, 1)
	}
	sb.WriteString("}\n")
	return sb.String(), nil
}
