package render

import (
	"fmt"
	"strings"

	"github.com/layercake/layercake/internal/graphmodel"
	"github.com/layercake/layercake/internal/model"
)

// RenderMermaid emits a Mermaid flowchart, directioned per
// cfg.Orientation and styled per-layer when cfg.ApplyLayers is set.
// Grounded on the teacher's graph/visualization.go DrawMermaid, adapted
// from the LLM-chain START/END shape to arbitrary graph nodes/edges.
func RenderMermaid(g *graphmodel.Graph, cfg model.RenderConfig) (string, error) {
	direction := "TB"
	if cfg.Orientation == model.OrientationLR {
		direction = "LR"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "flowchart %s\n", direction)

	for _, n := range g.NonPartitionNodes() {
		fmt.Fprintf(&sb, "    %s[%q]\n", mermaidID(n.ExternalID), n.Label)
	}
	for _, e := range g.NonPartitionEdges() {
		label := ""
		if e.Label != "" {
			label = fmt.Sprintf("|%s|", e.Label)
		}
		fmt.Fprintf(&sb, "    %s -->%s %s\n", mermaidID(e.Source), label, mermaidID(e.Target))
	}

	if cfg.ApplyLayers {
		layers := g.LayerMap()
		for _, n := range g.NonPartitionNodes() {
			layer := layers[n.Layer]
			if layer == nil && cfg.BuiltInStyles == model.StyleNone {
				continue
			}
			style := resolveStyle(layer, cfg)
			fmt.Fprintf(&sb, "    style %s fill:%s,color:%s,stroke:%s\n",
				mermaidID(n.ExternalID), orDefault(style.Background, "#FFFFFF"),
				orDefault(style.Text, "#000000"), orDefault(style.Border, "#000000"))
		}
	}

	return sb.String(), nil
}

// RenderMermaidMindmap emits a Mermaid mindmap over the partition tree
// (spec.md §4.6: tree-kind target, requires a rooted partition tree).
func RenderMermaidMindmap(g *graphmodel.Graph, _ model.RenderConfig) (string, error) {
	var sb strings.Builder
	sb.WriteString("mindmap\n")
	for _, root := range g.BuildTree() {
		writeMermaidMindmapNode(&sb, root, 1)
	}
	return sb.String(), nil
}

func writeMermaidMindmapNode(sb *strings.Builder, node *graphmodel.TreeNode, depth int) {
	fmt.Fprintf(sb, "%s%s\n", strings.Repeat("  ", depth), node.Node.Label)
	for _, child := range node.Children {
		writeMermaidMindmapNode(sb, child, depth+1)
	}
}

// RenderMermaidTreemap emits a Mermaid treemap: one leaf entry per
// non-partition node, nested under its partition chain.
func RenderMermaidTreemap(g *graphmodel.Graph, cfg model.RenderConfig) (string, error) {
	var sb strings.Builder
	sb.WriteString("treemap-beta\n")
	for _, root := range g.BuildTree() {
		writeMermaidTreemapNode(&sb, root, 1, cfg)
	}
	return sb.String(), nil
}

func writeMermaidTreemapNode(sb *strings.Builder, node *graphmodel.TreeNode, depth int, cfg model.RenderConfig) {
	indent := strings.Repeat("  ", depth)
	if node.Node.IsPartition {
		fmt.Fprintf(sb, "%s\"%s\"\n", indent, node.Node.Label)
		for _, child := range node.Children {
			writeMermaidTreemapNode(sb, child, depth+1, cfg)
		}
		return
	}
	value := 1.0
	if cfg.UseNodeWeight {
		value = node.Node.Weight
	}
	fmt.Fprintf(sb, "%s\"%s\": %v\n", indent, node.Node.Label, value)
}

func mermaidID(externalID string) string {
	replacer := strings.NewReplacer(" ", "_", "-", "_", ".", "_")
	return replacer.Replace(externalID)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
