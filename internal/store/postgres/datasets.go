package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/layercake/layercake/internal/model"
)

func marshalGraphJSON(nf *model.NormalForm) ([]byte, error) {
	if nf == nil {
		return nil, nil
	}
	return json.Marshal(nf)
}

func unmarshalGraphJSON(data []byte) (*model.NormalForm, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var nf model.NormalForm
	if err := json.Unmarshal(data, &nf); err != nil {
		return nil, err
	}
	return &nf, nil
}

func (s *Store) CreateDataset(ctx context.Context, d *model.Dataset) error {
	graphJSON, err := marshalGraphJSON(d.GraphJSON)
	if err != nil {
		return fmt.Errorf("failed to marshal graph json: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO datasets (id, project_id, name, description, filename, file_format, data_type,
			blob, status, graph_json, error_message, origin, processed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description, filename = EXCLUDED.filename,
			file_format = EXCLUDED.file_format, data_type = EXCLUDED.data_type, blob = EXCLUDED.blob,
			status = EXCLUDED.status, graph_json = EXCLUDED.graph_json, error_message = EXCLUDED.error_message,
			origin = EXCLUDED.origin, processed_at = EXCLUDED.processed_at, updated_at = EXCLUDED.updated_at
	`, d.ID, d.ProjectID, d.Name, d.Description, d.Filename, string(d.FileFormat), string(d.DataType),
		d.Blob, string(d.Status), graphJSON, d.ErrorMessage, d.Origin, d.ProcessedAt, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	return nil
}

func scanDataset(row pgx.Row) (*model.Dataset, error) {
	var d model.Dataset
	var fileFormat, dataType, status string
	var graphJSON []byte
	err := row.Scan(&d.ID, &d.ProjectID, &d.Name, &d.Description, &d.Filename, &fileFormat, &dataType,
		&d.Blob, &status, &graphJSON, &d.ErrorMessage, &d.Origin, &d.ProcessedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.FileFormat = model.FileFormat(fileFormat)
	d.DataType = model.DataType(dataType)
	d.Status = model.DatasetStatus(status)
	nf, err := unmarshalGraphJSON(graphJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph json: %w", err)
	}
	d.GraphJSON = nf
	return &d, nil
}

const selectDatasetColumns = `id, project_id, name, description, filename, file_format, data_type,
	blob, status, graph_json, error_message, origin, processed_at, created_at, updated_at`

func (s *Store) GetDataset(ctx context.Context, id string) (*model.Dataset, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectDatasetColumns+` FROM datasets WHERE id = $1`, id)
	d, err := scanDataset(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.Wrap(model.ErrNotFound, "dataset %s", id)
		}
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	return d, nil
}

func (s *Store) ListDatasets(ctx context.Context, projectID string) ([]*model.Dataset, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectDatasetColumns+` FROM datasets WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var out []*model.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDataset(ctx context.Context, d *model.Dataset) error {
	return s.CreateDataset(ctx, d)
}

func (s *Store) DeleteDataset(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	return nil
}
