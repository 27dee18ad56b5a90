package render

import (
	"fmt"
	"strings"

	"github.com/layercake/layercake/internal/graphmodel"
	"github.com/layercake/layercake/internal/model"
)

// RenderGML emits a textual GML graph: a node block per graph node, an edge
// block per flow edge, and a synthetic edge block per belongs_to hierarchy
// link (spec.md §4.6: "both hierarchy and flow edges"). Grounded on the
// teacher's graph/visualization.go string-builder style (DrawDOT/DrawMermaid).
func RenderGML(g *graphmodel.Graph, cfg model.RenderConfig) (string, error) {
	var sb strings.Builder
	sb.WriteString("graph [\n")
	sb.WriteString("  directed 1\n")

	for _, n := range g.OrderedNodes() {
		sb.WriteString("  node [\n")
		fmt.Fprintf(&sb, "    id %q\n", n.ExternalID)
		fmt.Fprintf(&sb, "    label %q\n", n.Label)
		if n.Layer != "" {
			fmt.Fprintf(&sb, "    layer %q\n", n.Layer)
		}
		if cfg.UseNodeWeight {
			fmt.Fprintf(&sb, "    weight %v\n", n.Weight)
		}
		if n.IsPartition {
			sb.WriteString("    isPartition 1\n")
		}
		sb.WriteString("  ]\n")
	}

	for _, e := range g.OrderedEdges() {
		sb.WriteString("  edge [\n")
		fmt.Fprintf(&sb, "    source %q\n", e.Source)
		fmt.Fprintf(&sb, "    target %q\n", e.Target)
		if e.Label != "" {
			fmt.Fprintf(&sb, "    label %q\n", e.Label)
		}
		if cfg.UseEdgeWeight {
			fmt.Fprintf(&sb, "    weight %v\n", e.Weight)
		}
		sb.WriteString("  ]\n")
	}

	for _, he := range g.HierarchyEdges() {
		sb.WriteString("  edge [\n")
		fmt.Fprintf(&sb, "    source %q\n", he.Source)
		fmt.Fprintf(&sb, "    target %q\n", he.Target)
		sb.WriteString("    relation \"belongs_to\"\n")
		sb.WriteString("  ]\n")
	}

	sb.WriteString("]\n")
	return sb.String(), nil
}
