package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/layercake/layercake/internal/model"
)

func (s *Store) CreateStory(ctx context.Context, st *model.Story) error {
	datasetIDs, err := json.Marshal(st.EnabledDatasetIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal enabled dataset ids: %w", err)
	}
	layerConfig, err := json.Marshal(st.LayerConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal layer config: %w", err)
	}
	tags, err := json.Marshal(st.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO stories (id, project_id, name, enabled_dataset_ids, layer_config, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, enabled_dataset_ids = EXCLUDED.enabled_dataset_ids,
			layer_config = EXCLUDED.layer_config, tags = EXCLUDED.tags, updated_at = EXCLUDED.updated_at
	`, st.ID, st.ProjectID, st.Name, datasetIDs, layerConfig, tags, st.CreatedAt, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save story: %w", err)
	}
	return nil
}

func scanStory(row pgx.Row) (*model.Story, error) {
	var st model.Story
	var datasetIDs, layerConfig, tags []byte
	err := row.Scan(&st.ID, &st.ProjectID, &st.Name, &datasetIDs, &layerConfig, &tags, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(datasetIDs) > 0 {
		if err := json.Unmarshal(datasetIDs, &st.EnabledDatasetIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal enabled dataset ids: %w", err)
		}
	}
	if len(layerConfig) > 0 {
		if err := json.Unmarshal(layerConfig, &st.LayerConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal layer config: %w", err)
		}
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &st.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	return &st, nil
}

const selectStoryColumns = `id, project_id, name, enabled_dataset_ids, layer_config, tags, created_at, updated_at`

func (s *Store) GetStory(ctx context.Context, id string) (*model.Story, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectStoryColumns+` FROM stories WHERE id = $1`, id)
	st, err := scanStory(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.Wrap(model.ErrNotFound, "story %s", id)
		}
		return nil, fmt.Errorf("failed to load story: %w", err)
	}
	return st, nil
}

func (s *Store) ListStories(ctx context.Context, projectID string) ([]*model.Story, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectStoryColumns+` FROM stories WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	defer rows.Close()
	var out []*model.Story
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story row: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStory(ctx context.Context, st *model.Story) error {
	return s.CreateStory(ctx, st)
}

func (s *Store) DeleteStory(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sequences WHERE story_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete story sequences: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM stories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	return nil
}

func (s *Store) CreateSequence(ctx context.Context, sq *model.Sequence) error {
	datasetIDs, err := json.Marshal(sq.EnabledDatasetIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal enabled dataset ids: %w", err)
	}
	edgeOrder, err := json.Marshal(sq.EdgeOrder)
	if err != nil {
		return fmt.Errorf("failed to marshal edge order: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sequences (id, story_id, enabled_dataset_ids, edge_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			enabled_dataset_ids = EXCLUDED.enabled_dataset_ids, edge_order = EXCLUDED.edge_order, updated_at = EXCLUDED.updated_at
	`, sq.ID, sq.StoryID, datasetIDs, edgeOrder, sq.CreatedAt, sq.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save sequence: %w", err)
	}
	return nil
}

func scanSequence(row pgx.Row) (*model.Sequence, error) {
	var sq model.Sequence
	var datasetIDs, edgeOrder []byte
	if err := row.Scan(&sq.ID, &sq.StoryID, &datasetIDs, &edgeOrder, &sq.CreatedAt, &sq.UpdatedAt); err != nil {
		return nil, err
	}
	if len(datasetIDs) > 0 {
		if err := json.Unmarshal(datasetIDs, &sq.EnabledDatasetIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal enabled dataset ids: %w", err)
		}
	}
	if len(edgeOrder) > 0 {
		if err := json.Unmarshal(edgeOrder, &sq.EdgeOrder); err != nil {
			return nil, fmt.Errorf("failed to unmarshal edge order: %w", err)
		}
	}
	return &sq, nil
}

const selectSequenceColumns = `id, story_id, enabled_dataset_ids, edge_order, created_at, updated_at`

func (s *Store) GetSequence(ctx context.Context, id string) (*model.Sequence, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectSequenceColumns+` FROM sequences WHERE id = $1`, id)
	sq, err := scanSequence(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.Wrap(model.ErrNotFound, "sequence %s", id)
		}
		return nil, fmt.Errorf("failed to load sequence: %w", err)
	}
	return sq, nil
}

func (s *Store) ListSequences(ctx context.Context, storyID string) ([]*model.Sequence, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectSequenceColumns+` FROM sequences WHERE story_id = $1 ORDER BY id`, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}
	defer rows.Close()
	var out []*model.Sequence
	for rows.Next() {
		sq, err := scanSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sequence row: %w", err)
		}
		out = append(out, sq)
	}
	return out, rows.Err()
}

func (s *Store) UpdateSequence(ctx context.Context, sq *model.Sequence) error {
	return s.CreateSequence(ctx, sq)
}
