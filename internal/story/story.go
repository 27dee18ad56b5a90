package story

import (
	"context"
	"sort"

	"github.com/layercake/layercake/internal/log"
	"github.com/layercake/layercake/internal/model"
	"github.com/layercake/layercake/internal/store"
)

// Service implements Story/Sequence CRUD and sequence-context assembly
// (spec.md §4.7), following the teacher/Edit-Journal Service shape: thin
// wiring over a store port plus the cross-cutting lookups a build needs.
type Service struct {
	stories  store.StoryStore
	datasets store.DatasetStore
	graphs   store.GraphDataStore
	logger   log.Logger
}

// NewService wires a Story/Sequence Context service.
func NewService(stories store.StoryStore, datasets store.DatasetStore, graphs store.GraphDataStore, logger log.Logger) *Service {
	if logger == nil {
		logger = log.NoOpLogger{}
	}
	return &Service{stories: stories, datasets: datasets, graphs: graphs, logger: logger}
}

// RecomputeIfChanged implements dag.StoryRecomputer: a StoryNode carries no
// materialised artefact of its own (sequence diagrams render on demand from
// BuildSequenceContext, the same way GraphArtefact nodes render on demand
// from their owning GraphData), so this dispatch only needs to confirm the
// Story still exists — a dangling StoryNode whose Story was deleted should
// surface as an error rather than silently succeed.
func (s *Service) RecomputeIfChanged(ctx context.Context, storyID string) error {
	_, err := s.stories.GetStory(ctx, storyID)
	return err
}

// Sequences returns a Story's Sequences ordered by id ascending (spec.md
// §4.7 step 1). Backends are expected to already return them in that
// order; this re-sorts defensively so callers never depend on storage
// ordering guarantees.
func (s *Service) Sequences(ctx context.Context, storyID string) ([]*model.Sequence, error) {
	seqs, err := s.stories.ListSequences(ctx, storyID)
	if err != nil {
		return nil, err
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i].ID < seqs[j].ID })
	return seqs, nil
}

// BuildContext loads the Story and one of its Sequences and resolves the
// full SequenceContext for rendering.
func (s *Service) BuildContext(ctx context.Context, projectID, storyID, sequenceID string) (*SequenceContext, error) {
	st, err := s.stories.GetStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	seq, err := s.stories.GetSequence(ctx, sequenceID)
	if err != nil {
		return nil, err
	}
	if seq.StoryID != st.ID {
		return nil, model.Wrap(model.ErrInvalidConfig, "sequence %s does not belong to story %s", sequenceID, storyID)
	}
	return BuildSequenceContext(ctx, s.datasets, s.graphs, projectID, st, seq)
}
