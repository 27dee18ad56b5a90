package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/layercake/layercake/internal/model"
)

func (s *Store) AppendEdit(ctx context.Context, e *model.GraphEdit) error {
	oldValue, err := json.Marshal(e.OldValue)
	if err != nil {
		return fmt.Errorf("failed to marshal old value: %w", err)
	}
	newValue, err := json.Marshal(e.NewValue)
	if err != nil {
		return fmt.Errorf("failed to marshal new value: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO graph_edits (graph_id, seq, target_type, target_external_id, op, field_name,
			old_value, new_value, applied, outcome, failure_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (graph_id, seq) DO NOTHING
	`, e.GraphID, e.Seq, string(e.TargetType), e.TargetExternalID, string(e.Op), e.FieldName,
		oldValue, newValue, e.Applied, string(e.Outcome), e.FailureReason, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append edit: %w", err)
	}
	return nil
}

func (s *Store) ListEdits(ctx context.Context, graphID string) ([]*model.GraphEdit, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT graph_id, seq, target_type, target_external_id, op, field_name, old_value, new_value,
			applied, outcome, failure_reason, created_at
		FROM graph_edits WHERE graph_id = $1 ORDER BY seq ASC
	`, graphID)
	if err != nil {
		return nil, fmt.Errorf("failed to list edits: %w", err)
	}
	defer rows.Close()

	var out []*model.GraphEdit
	for rows.Next() {
		var e model.GraphEdit
		var targetType, op, outcome string
		var oldValue, newValue []byte
		err := rows.Scan(&e.GraphID, &e.Seq, &targetType, &e.TargetExternalID, &op, &e.FieldName,
			&oldValue, &newValue, &e.Applied, &outcome, &e.FailureReason, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edit row: %w", err)
		}
		e.TargetType = model.TargetType(targetType)
		e.Op = model.EditOp(op)
		e.Outcome = model.EditOutcome(outcome)
		if len(oldValue) > 0 {
			if err := json.Unmarshal(oldValue, &e.OldValue); err != nil {
				return nil, fmt.Errorf("failed to unmarshal old value: %w", err)
			}
		}
		if len(newValue) > 0 {
			if err := json.Unmarshal(newValue, &e.NewValue); err != nil {
				return nil, fmt.Errorf("failed to unmarshal new value: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *Store) MarkOutcome(ctx context.Context, graphID string, seq int64, outcome model.EditOutcome, failureReason string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE graph_edits SET outcome = $1, failure_reason = $2, applied = $3
		WHERE graph_id = $4 AND seq = $5
	`, string(outcome), failureReason, outcome == model.OutcomeApplied, graphID, seq)
	if err != nil {
		return fmt.Errorf("failed to mark edit outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.Wrap(model.ErrNotFound, "edit %s/%d", graphID, seq)
	}
	return nil
}

func (s *Store) ClearEdits(ctx context.Context, graphID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM graph_edits WHERE graph_id = $1`, graphID)
	if err != nil {
		return fmt.Errorf("failed to clear edits: %w", err)
	}
	return nil
}
