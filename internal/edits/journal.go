// Package edits implements the Edit Journal & Replay (spec.md §4.3): an
// append-only log of manual post-build edits that survive rebuilds.
// Grounded on original_source's graph_operations.rs edit-application
// semantics and the teacher's store.CheckpointStore append/list/clear
// persistence shape.
package edits

import (
	"context"
	"errors"
	"time"

	"github.com/layercake/layercake/internal/log"
	"github.com/layercake/layercake/internal/model"
	"github.com/layercake/layercake/internal/store"
)

// Service implements record_edit / replay / clear_edits.
type Service struct {
	edits  store.EditStore
	graphs store.GraphDataStore
	logger log.Logger
	now    func() time.Time
}

// NewService wires an Edit Journal & Replay service.
func NewService(edits store.EditStore, graphs store.GraphDataStore, logger log.Logger) *Service {
	if logger == nil {
		logger = log.NoOpLogger{}
	}
	return &Service{edits: edits, graphs: graphs, logger: logger, now: time.Now}
}

// RecordEdit appends a journal entry and marks the owning GraphData as
// carrying pending edits. applied reflects whether the caller already
// mutated the live graph rows directly; per DESIGN.md's resolution of
// spec.md §9's open question, direct mutations in this implementation
// always pass applied=false, so replay is the single source of truth and
// every rebuild reproduces edits deterministically from the journal alone.
func (s *Service) RecordEdit(ctx context.Context, graphID string, targetType model.TargetType, targetExternalID string, op model.EditOp, field string, oldValue, newValue any, applied bool) (*model.GraphEdit, error) {
	existing, err := s.edits.ListEdits(ctx, graphID)
	if err != nil {
		return nil, err
	}
	var nextSeq int64 = 1
	for _, e := range existing {
		if e.Seq >= nextSeq {
			nextSeq = e.Seq + 1
		}
	}

	entry := &model.GraphEdit{
		Seq:              nextSeq,
		GraphID:          graphID,
		TargetType:       targetType,
		TargetExternalID: targetExternalID,
		Op:               op,
		FieldName:        field,
		OldValue:         oldValue,
		NewValue:         newValue,
		Applied:          applied,
		Outcome:          model.OutcomePending,
		CreatedAt:        s.now(),
	}
	if err := s.edits.AppendEdit(ctx, entry); err != nil {
		return nil, err
	}

	gd, err := s.graphs.GetGraphData(ctx, graphID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return entry, nil
		}
		return nil, err
	}
	gd.HasPendingEdits = true
	gd.UpdatedAt = s.now()
	if err := s.graphs.UpdateGraphData(ctx, gd); err != nil {
		return nil, err
	}
	return entry, nil
}

// ClearEdits wipes the journal for graphID unconditionally.
func (s *Service) ClearEdits(ctx context.Context, graphID string) error {
	if err := s.edits.ClearEdits(ctx, graphID); err != nil {
		return err
	}
	gd, err := s.graphs.GetGraphData(ctx, graphID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		return err
	}
	gd.HasPendingEdits = false
	gd.UpdatedAt = s.now()
	return s.graphs.UpdateGraphData(ctx, gd)
}
