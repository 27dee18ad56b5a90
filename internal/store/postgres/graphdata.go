package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/layercake/layercake/internal/model"
)

const selectGraphDataColumns = `id, project_id, dag_node_id, name, source_type, source_hash, status,
	error_message, node_count, edge_count, last_edit_sequence, has_pending_edits, annotations, created_at, updated_at`

func scanGraphData(row pgx.Row) (*model.GraphData, error) {
	var g model.GraphData
	var sourceType, status string
	var annotations []byte
	err := row.Scan(&g.ID, &g.ProjectID, &g.DagNodeID, &g.Name, &sourceType, &g.SourceHash, &status,
		&g.ErrorMessage, &g.NodeCount, &g.EdgeCount, &g.LastEditSequence, &g.HasPendingEdits, &annotations,
		&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.SourceType = model.SourceType(sourceType)
	g.Status = model.GraphDataStatus(status)
	if len(annotations) > 0 {
		if err := json.Unmarshal(annotations, &g.Annotations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal annotations: %w", err)
		}
	}
	return &g, nil
}

func (s *Store) CreateGraphData(ctx context.Context, g *model.GraphData) error {
	annotations, err := json.Marshal(g.Annotations)
	if err != nil {
		return fmt.Errorf("failed to marshal annotations: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO graph_data (id, project_id, dag_node_id, name, source_type, source_hash, status,
			error_message, node_count, edge_count, last_edit_sequence, has_pending_edits, annotations, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			dag_node_id = EXCLUDED.dag_node_id, name = EXCLUDED.name, source_type = EXCLUDED.source_type,
			source_hash = EXCLUDED.source_hash, status = EXCLUDED.status, error_message = EXCLUDED.error_message,
			node_count = EXCLUDED.node_count, edge_count = EXCLUDED.edge_count,
			last_edit_sequence = EXCLUDED.last_edit_sequence, has_pending_edits = EXCLUDED.has_pending_edits,
			annotations = EXCLUDED.annotations, updated_at = EXCLUDED.updated_at
	`, g.ID, g.ProjectID, g.DagNodeID, g.Name, string(g.SourceType), g.SourceHash, string(g.Status),
		g.ErrorMessage, g.NodeCount, g.EdgeCount, g.LastEditSequence, g.HasPendingEdits, annotations, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save graph data: %w", err)
	}
	return nil
}

func (s *Store) GetGraphData(ctx context.Context, id string) (*model.GraphData, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectGraphDataColumns+` FROM graph_data WHERE id = $1`, id)
	g, err := scanGraphData(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.Wrap(model.ErrNotFound, "graph data %s", id)
		}
		return nil, fmt.Errorf("failed to load graph data: %w", err)
	}
	return g, nil
}

func (s *Store) GetGraphDataByNode(ctx context.Context, dagNodeID string) (*model.GraphData, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectGraphDataColumns+` FROM graph_data WHERE dag_node_id = $1`, dagNodeID)
	g, err := scanGraphData(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.Wrap(model.ErrNotFound, "graph data for node %s", dagNodeID)
		}
		return nil, fmt.Errorf("failed to load graph data: %w", err)
	}
	return g, nil
}

func (s *Store) ListGraphData(ctx context.Context, projectID string) ([]*model.GraphData, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectGraphDataColumns+` FROM graph_data WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list graph data: %w", err)
	}
	defer rows.Close()
	var out []*model.GraphData
	for rows.Next() {
		g, err := scanGraphData(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan graph data row: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) UpdateGraphData(ctx context.Context, g *model.GraphData) error {
	return s.CreateGraphData(ctx, g)
}

func (s *Store) DeleteGraphData(ctx context.Context, id string) error {
	for _, stmt := range []string{
		`DELETE FROM graph_nodes WHERE graph_data_id = $1`,
		`DELETE FROM graph_edges WHERE graph_data_id = $1`,
		`DELETE FROM graph_layers WHERE graph_data_id = $1`,
		`DELETE FROM graph_data WHERE id = $1`,
	} {
		if _, err := s.pool.Exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to delete graph data: %w", err)
		}
	}
	return nil
}

func (s *Store) ReplaceContents(ctx context.Context, graphDataID string, nodes []*model.GraphNode, edges []*model.GraphEdge, layers []*model.GraphLayer) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM graph_nodes WHERE graph_data_id = $1`, graphDataID); err != nil {
		return fmt.Errorf("failed to clear graph nodes: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM graph_edges WHERE graph_data_id = $1`, graphDataID); err != nil {
		return fmt.Errorf("failed to clear graph edges: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM graph_layers WHERE graph_data_id = $1`, graphDataID); err != nil {
		return fmt.Errorf("failed to clear graph layers: %w", err)
	}

	for _, n := range nodes {
		attrs, err := json.Marshal(n.Attributes)
		if err != nil {
			return fmt.Errorf("failed to marshal node attributes: %w", err)
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO graph_nodes (graph_data_id, external_id, label, layer, weight, is_partition, belongs_to, attributes, dataset_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, graphDataID, n.ExternalID, n.Label, n.Layer, n.Weight, n.IsPartition, n.BelongsTo, attrs, n.DatasetID)
		if err != nil {
			return fmt.Errorf("failed to insert graph node: %w", err)
		}
	}
	for _, e := range edges {
		attrs, err := json.Marshal(e.Attributes)
		if err != nil {
			return fmt.Errorf("failed to marshal edge attributes: %w", err)
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO graph_edges (graph_data_id, external_id, source, target, label, layer, weight, attributes, dataset_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, graphDataID, e.ExternalID, e.Source, e.Target, e.Label, e.Layer, e.Weight, attrs, e.DatasetID)
		if err != nil {
			return fmt.Errorf("failed to insert graph edge: %w", err)
		}
	}
	for _, l := range layers {
		props, err := json.Marshal(l.Properties)
		if err != nil {
			return fmt.Errorf("failed to marshal layer properties: %w", err)
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO graph_layers (graph_data_id, layer_id, name, background_color, text_color, border_color, alias, properties)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, graphDataID, l.LayerID, l.Name, l.BackgroundColor, l.TextColor, l.BorderColor, l.Alias, props)
		if err != nil {
			return fmt.Errorf("failed to insert graph layer: %w", err)
		}
	}
	return nil
}

func (s *Store) LoadContents(ctx context.Context, graphDataID string) ([]*model.GraphNode, []*model.GraphEdge, []*model.GraphLayer, error) {
	nodeRows, err := s.pool.Query(ctx, `
		SELECT external_id, label, layer, weight, is_partition, belongs_to, attributes, dataset_id
		FROM graph_nodes WHERE graph_data_id = $1 ORDER BY external_id
	`, graphDataID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load graph nodes: %w", err)
	}
	var nodes []*model.GraphNode
	for nodeRows.Next() {
		n := model.GraphNode{GraphDataID: graphDataID}
		var attrs []byte
		if err := nodeRows.Scan(&n.ExternalID, &n.Label, &n.Layer, &n.Weight, &n.IsPartition, &n.BelongsTo, &attrs, &n.DatasetID); err != nil {
			nodeRows.Close()
			return nil, nil, nil, fmt.Errorf("failed to scan graph node: %w", err)
		}
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &n.Attributes); err != nil {
				nodeRows.Close()
				return nil, nil, nil, fmt.Errorf("failed to unmarshal node attributes: %w", err)
			}
		}
		nodes = append(nodes, &n)
	}
	nodeRows.Close()
	if err := nodeRows.Err(); err != nil {
		return nil, nil, nil, err
	}

	edgeRows, err := s.pool.Query(ctx, `
		SELECT external_id, source, target, label, layer, weight, attributes, dataset_id
		FROM graph_edges WHERE graph_data_id = $1 ORDER BY external_id
	`, graphDataID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load graph edges: %w", err)
	}
	var edges []*model.GraphEdge
	for edgeRows.Next() {
		e := model.GraphEdge{GraphDataID: graphDataID}
		var attrs []byte
		if err := edgeRows.Scan(&e.ExternalID, &e.Source, &e.Target, &e.Label, &e.Layer, &e.Weight, &attrs, &e.DatasetID); err != nil {
			edgeRows.Close()
			return nil, nil, nil, fmt.Errorf("failed to scan graph edge: %w", err)
		}
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &e.Attributes); err != nil {
				edgeRows.Close()
				return nil, nil, nil, fmt.Errorf("failed to unmarshal edge attributes: %w", err)
			}
		}
		edges = append(edges, &e)
	}
	edgeRows.Close()
	if err := edgeRows.Err(); err != nil {
		return nil, nil, nil, err
	}

	layerRows, err := s.pool.Query(ctx, `
		SELECT layer_id, name, background_color, text_color, border_color, alias, properties
		FROM graph_layers WHERE graph_data_id = $1 ORDER BY layer_id
	`, graphDataID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load graph layers: %w", err)
	}
	var layerList []*model.GraphLayer
	for layerRows.Next() {
		l := model.GraphLayer{GraphDataID: graphDataID}
		var props []byte
		if err := layerRows.Scan(&l.LayerID, &l.Name, &l.BackgroundColor, &l.TextColor, &l.BorderColor, &l.Alias, &props); err != nil {
			layerRows.Close()
			return nil, nil, nil, fmt.Errorf("failed to scan graph layer: %w", err)
		}
		if len(props) > 0 {
			if err := json.Unmarshal(props, &l.Properties); err != nil {
				layerRows.Close()
				return nil, nil, nil, fmt.Errorf("failed to unmarshal layer properties: %w", err)
			}
		}
		layerList = append(layerList, &l)
	}
	layerRows.Close()
	if err := layerRows.Err(); err != nil {
		return nil, nil, nil, err
	}

	return nodes, edges, layerList, nil
}

func (s *Store) DownstreamOf(ctx context.Context, datasetOrGraphID string) ([]*model.GraphData, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT `+selectGraphDataColumns+` FROM graph_data g
		WHERE g.source_hash = $1
		   OR EXISTS (SELECT 1 FROM graph_nodes n WHERE n.graph_data_id = g.id AND n.dataset_id = $1)
		ORDER BY id
	`, datasetOrGraphID)
	if err != nil {
		return nil, fmt.Errorf("failed to list downstream graph data: %w", err)
	}
	defer rows.Close()
	var out []*model.GraphData
	for rows.Next() {
		g, err := scanGraphData(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan graph data row: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) UpsertLayerPalette(ctx context.Context, p *model.ProjectLayerPalette) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO project_layer_palettes (project_id, layer_id, background_color, text_color, border_color, alias, source_dataset_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (project_id, layer_id) DO UPDATE SET
			background_color = EXCLUDED.background_color, text_color = EXCLUDED.text_color,
			border_color = EXCLUDED.border_color, alias = EXCLUDED.alias, source_dataset_id = EXCLUDED.source_dataset_id
	`, p.ProjectID, p.LayerID, p.BackgroundColor, p.TextColor, p.BorderColor, p.Alias, p.SourceDatasetID)
	if err != nil {
		return fmt.Errorf("failed to save layer palette: %w", err)
	}
	return nil
}

func (s *Store) GetLayerPalette(ctx context.Context, projectID, layerID string) (*model.ProjectLayerPalette, error) {
	var p model.ProjectLayerPalette
	err := s.pool.QueryRow(ctx, `
		SELECT project_id, layer_id, background_color, text_color, border_color, alias, source_dataset_id
		FROM project_layer_palettes WHERE project_id = $1 AND layer_id = $2
	`, projectID, layerID).Scan(&p.ProjectID, &p.LayerID, &p.BackgroundColor, &p.TextColor, &p.BorderColor, &p.Alias, &p.SourceDatasetID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.Wrap(model.ErrNotFound, "layer palette %s/%s", projectID, layerID)
		}
		return nil, fmt.Errorf("failed to load layer palette: %w", err)
	}
	return &p, nil
}
