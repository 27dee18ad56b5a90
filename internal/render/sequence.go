package render

import (
	"fmt"
	"strings"

	"github.com/layercake/layercake/internal/model"
	"github.com/layercake/layercake/internal/story"
)

// RenderMermaidSequence and RenderPlantUMLSequence take a
// story.SequenceContext rather than a *graphmodel.Graph, since the
// Mermaid-sequence/PlantUML-sequence targets are driven by a Story's
// ordered edge walk (spec.md §4.7), not a materialised Graph. They are
// deliberately excluded from ForTarget for the same reason; callers that
// already hold a built SequenceContext call these directly.

// RenderMermaidSequence emits a Mermaid sequenceDiagram.
func RenderMermaidSequence(sc *story.SequenceContext, cfg model.RenderConfig) (string, error) {
	var sb strings.Builder
	sb.WriteString("sequenceDiagram\n")

	emitted := map[string]bool{}
	for _, g := range sc.Groups {
		fmt.Fprintf(&sb, "    box %s\n", escapeMermaid(g.Label))
		for _, alias := range g.Participants {
			if emitted[alias] {
				continue
			}
			emitted[alias] = true
			fmt.Fprintf(&sb, "    participant %s\n", alias)
		}
		sb.WriteString("    end\n")
	}
	for _, p := range sc.Participants {
		if emitted[p.Alias] {
			continue
		}
		emitted[p.Alias] = true
		fmt.Fprintf(&sb, "    participant %s as %s\n", p.Alias, escapeMermaid(p.Label))
	}

	for _, m := range sc.Messages {
		if m.Note != "" && cfg.AddNodeCommentsAsNotes && notePosBefore(cfg.NotePosition) {
			fmt.Fprintf(&sb, "    Note over %s,%s: %s\n", m.FromAlias, m.ToAlias, escapeMermaid(m.Note))
		}
		fmt.Fprintf(&sb, "    %s->>%s: %s\n", m.FromAlias, m.ToAlias, escapeMermaid(m.Label))
		if m.Note != "" && cfg.AddNodeCommentsAsNotes && !notePosBefore(cfg.NotePosition) {
			fmt.Fprintf(&sb, "    Note over %s,%s: %s\n", m.FromAlias, m.ToAlias, escapeMermaid(m.Note))
		}
	}
	return sb.String(), nil
}

// RenderPlantUMLSequence emits a PlantUML sequence diagram.
func RenderPlantUMLSequence(sc *story.SequenceContext, cfg model.RenderConfig) (string, error) {
	var sb strings.Builder
	sb.WriteString("@startuml\n")

	emitted := map[string]bool{}
	for _, g := range sc.Groups {
		fmt.Fprintf(&sb, "box \"%s\"\n", g.Label)
		for _, alias := range g.Participants {
			if emitted[alias] {
				continue
			}
			emitted[alias] = true
			fmt.Fprintf(&sb, "participant %s\n", alias)
		}
		sb.WriteString("end box\n")
	}
	for _, p := range sc.Participants {
		if emitted[p.Alias] {
			continue
		}
		emitted[p.Alias] = true
		fmt.Fprintf(&sb, "participant %s as \"%s\"\n", p.Alias, p.Label)
	}

	for _, m := range sc.Messages {
		if m.Note != "" && cfg.AddNodeCommentsAsNotes {
			fmt.Fprintf(&sb, "note over %s, %s: %s\n", m.FromAlias, m.ToAlias, m.Note)
		}
		fmt.Fprintf(&sb, "%s -> %s: %s\n", m.FromAlias, m.ToAlias, m.Label)
	}
	sb.WriteString("@enduml\n")
	return sb.String(), nil
}

func notePosBefore(pos model.NotePosition) bool {
	return pos == model.NoteTop || pos == model.NoteLeft
}

func escapeMermaid(s string) string {
	return strings.ReplaceAll(s, ":", " -")
}
