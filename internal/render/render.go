// Package render implements the Artefact Renderers (spec.md §4.6): pure
// render(graph, render_config) -> string functions, one per RenderTarget,
// sharing canonical ordering, preview-row truncation and palette
// resolution. Grounded on the teacher's graph/visualization.go Exporter
// (string-builder renderers) and original_source's export/* Handlebars
// templates for the DOT and Custom targets.
package render

import (
	"github.com/layercake/layercake/internal/graphmodel"
	"github.com/layercake/layercake/internal/model"
)

// Renderer lowers a resolved Graph plus its RenderConfig to a textual
// artefact. Implementations are pure: identical inputs produce
// byte-identical output (spec.md §4.6 determinism guarantee).
type Renderer interface {
	Render(g *graphmodel.Graph, cfg model.RenderConfig) (string, error)
}

// RendererFunc adapts a plain function to Renderer.
type RendererFunc func(g *graphmodel.Graph, cfg model.RenderConfig) (string, error)

// Render implements Renderer.
func (f RendererFunc) Render(g *graphmodel.Graph, cfg model.RenderConfig) (string, error) {
	return f(g, cfg)
}

// ForTarget resolves the Renderer for a RenderTarget. Sequence targets
// (Mermaid-sequence, PlantUML-sequence) are not included: they consume a
// Story context rather than a raw Graph and are rendered via
// RenderMermaidSequence / RenderPlantUMLSequence (sequence.go) instead.
func ForTarget(target model.RenderTarget) (Renderer, error) {
	switch target {
	case model.TargetGML:
		return RendererFunc(RenderGML), nil
	case model.TargetDOT:
		return RendererFunc(RenderDOT), nil
	case model.TargetDOTHierarchy:
		return RendererFunc(RenderDOTHierarchy), nil
	case model.TargetJSON:
		return RendererFunc(RenderJSON), nil
	case model.TargetCSVNodes:
		return RendererFunc(RenderCSVNodes), nil
	case model.TargetCSVEdges:
		return RendererFunc(RenderCSVEdges), nil
	case model.TargetCSVMatrix:
		return RendererFunc(RenderCSVMatrix), nil
	case model.TargetMermaid:
		return RendererFunc(RenderMermaid), nil
	case model.TargetPlantUML:
		return RendererFunc(RenderPlantUML), nil
	case model.TargetMermaidMindmap:
		return RendererFunc(RenderMermaidMindmap), nil
	case model.TargetMermaidTreemap:
		return RendererFunc(RenderMermaidTreemap), nil
	case model.TargetPlantUMLMindmap:
		return RendererFunc(RenderPlantUMLMindmap), nil
	case model.TargetPlantUMLWBS:
		return RendererFunc(RenderPlantUMLWBS), nil
	case model.TargetCustom:
		return RendererFunc(RenderCustom), nil
	default:
		return nil, model.Wrap(model.ErrUnsupportedFormat, "render target %q", target)
	}
}

// truncateRows applies spec.md §4.6's preview-row truncation: for CSV
// targets, when cfg.MaxRows is non-nil, keep the header plus the first N
// data rows (N=0 means header only); every other target ignores MaxRows.
func truncateRows(rows [][]string, maxRows *int) [][]string {
	if maxRows == nil || len(rows) == 0 {
		return rows
	}
	n := *maxRows
	if n < 0 {
		n = 0
	}
	limit := 1 + n // header + N data rows
	if limit >= len(rows) {
		return rows
	}
	return rows[:limit]
}
