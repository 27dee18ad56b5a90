package render

import (
	"fmt"
	"strings"

	"github.com/layercake/layercake/internal/graphmodel"
	"github.com/layercake/layercake/internal/model"
)

// RenderPlantUML emits a PlantUML diagram: one rectangle/circle per node
// (shape by layer, per spec.md §4.6 "rectangle/circle per layer shape"),
// skinparams driven by the layer palette, and an arrow per edge.
func RenderPlantUML(g *graphmodel.Graph, cfg model.RenderConfig) (string, error) {
	var sb strings.Builder
	sb.WriteString("@startuml\n")
	if cfg.Orientation == model.OrientationLR {
		sb.WriteString("left to right direction\n")
	} else {
		sb.WriteString("top to bottom direction\n")
	}

	layers := g.LayerMap()
	if cfg.ApplyLayers {
		for _, l := range g.OrderedLayers() {
			style := resolveStyle(l, cfg)
			fmt.Fprintf(&sb, "skinparam rectangle<<%s>> {\n  BackgroundColor %s\n  FontColor %s\n  BorderColor %s\n}\n",
				layerAlias(l), orDefault(style.Background, "#FFFFFF"), orDefault(style.Text, "#000000"), orDefault(style.Border, "#000000"))
		}
	}

	for _, n := range g.NonPartitionNodes() {
		shape := "rectangle"
		if l := layers[n.Layer]; l != nil {
			if mode, ok := l.Properties["shape"].(string); ok && mode == "circle" {
				shape = "circle"
			}
		}
		stereo := ""
		if cfg.ApplyLayers && n.Layer != "" {
			stereo = fmt.Sprintf(" <<%s>>", n.Layer)
		}
		fmt.Fprintf(&sb, "%s \"%s\" as %s%s\n", shape, n.Label, plantumlID(n.ExternalID), stereo)
	}
	for _, e := range g.NonPartitionEdges() {
		label := ""
		if e.Label != "" {
			label = fmt.Sprintf(" : %s", e.Label)
		}
		fmt.Fprintf(&sb, "%s --> %s%s\n", plantumlID(e.Source), plantumlID(e.Target), label)
	}

	sb.WriteString("@enduml\n")
	return sb.String(), nil
}

// RenderPlantUMLMindmap emits a PlantUML mindmap over the partition tree.
func RenderPlantUMLMindmap(g *graphmodel.Graph, _ model.RenderConfig) (string, error) {
	var sb strings.Builder
	sb.WriteString("@startmindmap\n")
	for _, root := range g.BuildTree() {
		writePlantUMLTreeNode(&sb, root, 1, "*")
	}
	sb.WriteString("@endmindmap\n")
	return sb.String(), nil
}

// RenderPlantUMLWBS emits a PlantUML work-breakdown-structure diagram over
// the partition tree.
func RenderPlantUMLWBS(g *graphmodel.Graph, _ model.RenderConfig) (string, error) {
	var sb strings.Builder
	sb.WriteString("@startwbs\n")
	for _, root := range g.BuildTree() {
		writePlantUMLTreeNode(&sb, root, 1, "*")
	}
	sb.WriteString("@endwbs\n")
	return sb.String(), nil
}

func writePlantUMLTreeNode(sb *strings.Builder, node *graphmodel.TreeNode, depth int, marker string) {
	fmt.Fprintf(sb, "%s %s\n", strings.Repeat(marker, depth), node.Node.Label)
	for _, child := range node.Children {
		writePlantUMLTreeNode(sb, child, depth+1, marker)
	}
}

func plantumlID(externalID string) string {
	replacer := strings.NewReplacer(" ", "_", "-", "_", ".", "_", "\"", "_")
	id := replacer.Replace(externalID)
	if id == "" {
		return "n"
	}
	return id
}
