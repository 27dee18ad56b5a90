package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layercake/layercake/internal/model"
	"github.com/layercake/layercake/internal/story"
)

func sampleSequenceContext() *story.SequenceContext {
	return &story.SequenceContext{
		Participants: []story.Participant{
			{Alias: "alice", Label: "Alice"},
			{Alias: "bob", Label: "Bob"},
		},
		Messages: []story.Message{
			{FromAlias: "alice", ToAlias: "bob", Label: "invites", Note: "kickoff", NotePosition: "Top"},
		},
		Groups: []story.Group{
			{Label: "team-a", Participants: []string{"alice"}},
		},
	}
}

func TestRenderMermaidSequence_EmitsParticipantsAndMessages(t *testing.T) {
	sc := sampleSequenceContext()
	out, err := RenderMermaidSequence(sc, model.RenderConfig{AddNodeCommentsAsNotes: true, NotePosition: model.NoteTop})
	require.NoError(t, err)
	assert.Contains(t, out, "sequenceDiagram")
	assert.Contains(t, out, "box team-a")
	assert.Contains(t, out, "participant alice")
	assert.Contains(t, out, "alice->>bob: invites")
	assert.Contains(t, out, "Note over alice,bob: kickoff")
}

func TestRenderPlantUMLSequence_EmitsParticipantsAndMessages(t *testing.T) {
	sc := sampleSequenceContext()
	out, err := RenderPlantUMLSequence(sc, model.RenderConfig{AddNodeCommentsAsNotes: true})
	require.NoError(t, err)
	assert.Contains(t, out, "@startuml")
	assert.Contains(t, out, "box \"team-a\"")
	assert.Contains(t, out, "alice -> bob: invites")
	assert.Contains(t, out, "@enduml")
}
