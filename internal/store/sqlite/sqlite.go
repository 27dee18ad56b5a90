// Package sqlite implements store.Store against SQLite, modeled on the
// teacher's store/sqlite.SqliteCheckpointStore: database/sql plus
// mattn/go-sqlite3, one file, schema auto-applied from New so a CLI
// invocation against a fresh file "just works" the way the teacher's
// NewSqliteCheckpointStore calls InitSchema itself.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/layercake/layercake/internal/log"
	"github.com/layercake/layercake/internal/model"
	"github.com/layercake/layercake/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store implements store.Store against a SQLite database file.
type Store struct {
	db     *sql.DB
	logger log.Logger
}

// Options configures the SQLite connection.
type Options struct {
	// Path is the database file path, or ":memory:" for an ephemeral store.
	Path string
}

// New opens (creating if necessary) a SQLite database and applies the schema.
func New(opts Options, logger log.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	if logger == nil {
		logger = log.NoOpLogger{}
	}
	s := &Store{db: db, logger: logger}
	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// InitSchema creates every table the Store needs if it does not already exist.
func (s *Store) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY, name TEXT NOT NULL, created_at DATETIME NOT NULL, updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS datasets (
			id TEXT PRIMARY KEY, project_id TEXT NOT NULL, name TEXT NOT NULL, description TEXT,
			filename TEXT, file_format TEXT, data_type TEXT, blob BLOB, status TEXT NOT NULL,
			graph_json TEXT, error_message TEXT, origin TEXT, processed_at DATETIME,
			created_at DATETIME NOT NULL, updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_datasets_project ON datasets (project_id)`,
		`CREATE TABLE IF NOT EXISTS plans (
			id TEXT PRIMARY KEY, project_id TEXT NOT NULL, version INTEGER NOT NULL, status TEXT NOT NULL,
			created_at DATETIME NOT NULL, updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_plans_project ON plans (project_id)`,
		`CREATE TABLE IF NOT EXISTS plan_dag_nodes (
			id TEXT PRIMARY KEY, plan_id TEXT NOT NULL, node_type TEXT NOT NULL,
			position_x REAL, position_y REAL, label TEXT, description TEXT, config TEXT NOT NULL,
			created_at DATETIME NOT NULL, updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_plan ON plan_dag_nodes (plan_id)`,
		`CREATE TABLE IF NOT EXISTS plan_dag_edges (
			id TEXT PRIMARY KEY, plan_id TEXT NOT NULL, source_node_id TEXT NOT NULL, target_node_id TEXT NOT NULL,
			label TEXT, data_type TEXT, created_at DATETIME NOT NULL, updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_plan ON plan_dag_edges (plan_id)`,
		`CREATE TABLE IF NOT EXISTS graph_data (
			id TEXT PRIMARY KEY, project_id TEXT NOT NULL, dag_node_id TEXT, name TEXT,
			source_type TEXT, source_hash TEXT, status TEXT NOT NULL, error_message TEXT,
			node_count INTEGER, edge_count INTEGER, last_edit_sequence INTEGER, has_pending_edits INTEGER,
			annotations TEXT, created_at DATETIME NOT NULL, updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_graph_data_project ON graph_data (project_id)`,
		`CREATE TABLE IF NOT EXISTS graph_nodes (
			graph_data_id TEXT NOT NULL, external_id TEXT NOT NULL, label TEXT, layer TEXT,
			weight REAL, is_partition INTEGER, belongs_to TEXT, attributes TEXT, dataset_id TEXT,
			PRIMARY KEY (graph_data_id, external_id)
		)`,
		`CREATE TABLE IF NOT EXISTS graph_edges (
			graph_data_id TEXT NOT NULL, external_id TEXT NOT NULL, source TEXT NOT NULL, target TEXT NOT NULL,
			label TEXT, layer TEXT, weight REAL, attributes TEXT, dataset_id TEXT,
			PRIMARY KEY (graph_data_id, external_id)
		)`,
		`CREATE TABLE IF NOT EXISTS graph_layers (
			graph_data_id TEXT NOT NULL, layer_id TEXT NOT NULL, name TEXT, background_color TEXT,
			text_color TEXT, border_color TEXT, alias TEXT, properties TEXT,
			PRIMARY KEY (graph_data_id, layer_id)
		)`,
		`CREATE TABLE IF NOT EXISTS project_layer_palettes (
			project_id TEXT NOT NULL, layer_id TEXT NOT NULL, background_color TEXT, text_color TEXT,
			border_color TEXT, alias TEXT, source_dataset_id TEXT,
			PRIMARY KEY (project_id, layer_id)
		)`,
		`CREATE TABLE IF NOT EXISTS graph_edits (
			graph_id TEXT NOT NULL, seq INTEGER NOT NULL, target_type TEXT NOT NULL, target_external_id TEXT NOT NULL,
			op TEXT NOT NULL, field_name TEXT, old_value TEXT, new_value TEXT, applied INTEGER,
			outcome TEXT NOT NULL, failure_reason TEXT, created_at DATETIME NOT NULL,
			PRIMARY KEY (graph_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS stories (
			id TEXT PRIMARY KEY, project_id TEXT NOT NULL, name TEXT NOT NULL,
			enabled_dataset_ids TEXT, layer_config TEXT, tags TEXT,
			created_at DATETIME NOT NULL, updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stories_project ON stories (project_id)`,
		`CREATE TABLE IF NOT EXISTS sequences (
			id TEXT PRIMARY KEY, story_id TEXT NOT NULL, enabled_dataset_ids TEXT, edge_order TEXT,
			created_at DATETIME NOT NULL, updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sequences_story ON sequences (story_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// --- ProjectStore ---

func (s *Store) CreateProject(ctx context.Context, p *model.Project) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at
	`, p.ID, p.Name, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	err := s.db.QueryRowContext(ctx, `SELECT id, name, created_at, updated_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.Wrap(model.ErrNotFound, "project %s", id)
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]*model.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at, updated_at FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()
	var out []*model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// --- DatasetStore ---

func (s *Store) CreateDataset(ctx context.Context, d *model.Dataset) error {
	graphJSON, err := marshalJSON(d.GraphJSON)
	if err != nil {
		return fmt.Errorf("failed to marshal graph json: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO datasets (id, project_id, name, description, filename, file_format, data_type,
			blob, status, graph_json, error_message, origin, processed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, description=excluded.description, filename=excluded.filename,
			file_format=excluded.file_format, data_type=excluded.data_type, blob=excluded.blob,
			status=excluded.status, graph_json=excluded.graph_json, error_message=excluded.error_message,
			origin=excluded.origin, processed_at=excluded.processed_at, updated_at=excluded.updated_at
	`, d.ID, d.ProjectID, d.Name, d.Description, d.Filename, string(d.FileFormat), string(d.DataType),
		d.Blob, string(d.Status), graphJSON, d.ErrorMessage, d.Origin, d.ProcessedAt, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	return nil
}

func scanDatasetRow(scan func(...any) error) (*model.Dataset, error) {
	var d model.Dataset
	var fileFormat, dataType, status, graphJSON string
	err := scan(&d.ID, &d.ProjectID, &d.Name, &d.Description, &d.Filename, &fileFormat, &dataType,
		&d.Blob, &status, &graphJSON, &d.ErrorMessage, &d.Origin, &d.ProcessedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.FileFormat = model.FileFormat(fileFormat)
	d.DataType = model.DataType(dataType)
	d.Status = model.DatasetStatus(status)
	if graphJSON != "" && graphJSON != "null" {
		var nf model.NormalForm
		if err := json.Unmarshal([]byte(graphJSON), &nf); err != nil {
			return nil, fmt.Errorf("failed to unmarshal graph json: %w", err)
		}
		d.GraphJSON = &nf
	}
	return &d, nil
}

const selectDatasetColumns = `id, project_id, name, description, filename, file_format, data_type,
	blob, status, graph_json, error_message, origin, processed_at, created_at, updated_at`

func (s *Store) GetDataset(ctx context.Context, id string) (*model.Dataset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectDatasetColumns+` FROM datasets WHERE id = ?`, id)
	d, err := scanDatasetRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.Wrap(model.ErrNotFound, "dataset %s", id)
		}
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	return d, nil
}

func (s *Store) ListDatasets(ctx context.Context, projectID string) ([]*model.Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectDatasetColumns+` FROM datasets WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()
	var out []*model.Dataset
	for rows.Next() {
		d, err := scanDatasetRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDataset(ctx context.Context, d *model.Dataset) error { return s.CreateDataset(ctx, d) }

func (s *Store) DeleteDataset(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	return nil
}

// --- PlanStore ---

func (s *Store) CreatePlan(ctx context.Context, p *model.Plan) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plans (id, project_id, version, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET version=excluded.version, status=excluded.status, updated_at=excluded.updated_at
	`, p.ID, p.ProjectID, p.Version, string(p.Status), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

func (s *Store) GetPlan(ctx context.Context, id string) (*model.Plan, error) {
	var p model.Plan
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT id, project_id, version, status, created_at, updated_at FROM plans WHERE id = ?`, id).
		Scan(&p.ID, &p.ProjectID, &p.Version, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.Wrap(model.ErrNotFound, "plan %s", id)
		}
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	p.Status = model.PlanStatus(status)
	return &p, nil
}

func (s *Store) ListPlans(ctx context.Context, projectID string) ([]*model.Plan, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, project_id, version, status, created_at, updated_at FROM plans WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()
	var out []*model.Plan
	for rows.Next() {
		var p model.Plan
		var status string
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.Version, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		p.Status = model.PlanStatus(status)
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *Store) UpdatePlan(ctx context.Context, p *model.Plan) error { return s.CreatePlan(ctx, p) }

func (s *Store) DeletePlan(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	return nil
}

func (s *Store) CreateNode(ctx context.Context, n *model.PlanDagNode) error {
	configJSON, err := json.Marshal(n.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal node config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO plan_dag_nodes (id, plan_id, node_type, position_x, position_y, label, description, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			node_type=excluded.node_type, position_x=excluded.position_x, position_y=excluded.position_y,
			label=excluded.label, description=excluded.description, config=excluded.config, updated_at=excluded.updated_at
	`, n.ID, n.PlanID, string(n.NodeType), n.Position.X, n.Position.Y, n.Metadata.Label, n.Metadata.Description,
		string(configJSON), n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save node: %w", err)
	}
	return nil
}

func scanNodeRow(scan func(...any) error) (*model.PlanDagNode, error) {
	var n model.PlanDagNode
	var nodeType, configJSON string
	err := scan(&n.ID, &n.PlanID, &nodeType, &n.Position.X, &n.Position.Y,
		&n.Metadata.Label, &n.Metadata.Description, &configJSON, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	n.NodeType = model.PlanDagNodeType(nodeType)
	if err := json.Unmarshal([]byte(configJSON), &n.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node config: %w", err)
	}
	return &n, nil
}

const selectNodeColumns = `id, plan_id, node_type, position_x, position_y, label, description, config, created_at, updated_at`

func (s *Store) GetNode(ctx context.Context, id string) (*model.PlanDagNode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectNodeColumns+` FROM plan_dag_nodes WHERE id = ?`, id)
	n, err := scanNodeRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.Wrap(model.ErrNotFound, "node %s", id)
		}
		return nil, fmt.Errorf("failed to load node: %w", err)
	}
	return n, nil
}

func (s *Store) ListNodes(ctx context.Context, planID string) ([]*model.PlanDagNode, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectNodeColumns+` FROM plan_dag_nodes WHERE plan_id = ? ORDER BY id`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer rows.Close()
	var out []*model.PlanDagNode
	for rows.Next() {
		n, err := scanNodeRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node row: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) UpdateNode(ctx context.Context, n *model.PlanDagNode) error { return s.CreateNode(ctx, n) }

func (s *Store) DeleteNode(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM plan_dag_nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	return nil
}

func (s *Store) NodesReferencingDataset(ctx context.Context, datasetID string) ([]*model.PlanDagNode, error) {
	// SQLite's json_extract mirrors postgres' ->> operator used in store/postgres.
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectNodeColumns+` FROM plan_dag_nodes
		WHERE node_type = ? AND json_extract(config, '$.data_set.DatasetID') = ?
		ORDER BY id
	`, string(model.NodeTypeDataSet), datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes referencing dataset: %w", err)
	}
	defer rows.Close()
	var out []*model.PlanDagNode
	for rows.Next() {
		n, err := scanNodeRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node row: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CreateEdge(ctx context.Context, e *model.PlanDagEdge) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plan_dag_edges (id, plan_id, source_node_id, target_node_id, label, data_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_node_id=excluded.source_node_id, target_node_id=excluded.target_node_id,
			label=excluded.label, data_type=excluded.data_type, updated_at=excluded.updated_at
	`, e.ID, e.PlanID, e.SourceNodeID, e.TargetNodeID, e.Metadata.Label, string(e.Metadata.DataType), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save edge: %w", err)
	}
	return nil
}

func (s *Store) ListEdges(ctx context.Context, planID string) ([]*model.PlanDagEdge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plan_id, source_node_id, target_node_id, label, data_type, created_at, updated_at
		FROM plan_dag_edges WHERE plan_id = ? ORDER BY id
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	defer rows.Close()
	var out []*model.PlanDagEdge
	for rows.Next() {
		var e model.PlanDagEdge
		var dataType string
		if err := rows.Scan(&e.ID, &e.PlanID, &e.SourceNodeID, &e.TargetNodeID, &e.Metadata.Label, &dataType, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan edge row: %w", err)
		}
		e.Metadata.DataType = model.DataType(dataType)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *Store) DeleteEdge(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM plan_dag_edges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}
	return nil
}

func (s *Store) DeleteIncidentEdges(ctx context.Context, nodeID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM plan_dag_edges WHERE source_node_id = ? OR target_node_id = ?`, nodeID, nodeID)
	if err != nil {
		return fmt.Errorf("failed to delete incident edges: %w", err)
	}
	return nil
}

func (s *Store) ReplacePlanDag(ctx context.Context, planID string, nodes []*model.PlanDagNode, edges []*model.PlanDagEdge) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM plan_dag_edges WHERE plan_id = ?`, planID); err != nil {
		return fmt.Errorf("failed to clear plan edges: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM plan_dag_nodes WHERE plan_id = ?`, planID); err != nil {
		return fmt.Errorf("failed to clear plan nodes: %w", err)
	}
	for _, n := range nodes {
		if err := s.CreateNode(ctx, n); err != nil {
			return err
		}
	}
	for _, e := range edges {
		if err := s.CreateEdge(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// --- GraphDataStore ---

const selectGraphDataColumns = `id, project_id, dag_node_id, name, source_type, source_hash, status, error_message,
	node_count, edge_count, last_edit_sequence, has_pending_edits, annotations, created_at, updated_at`

func (s *Store) CreateGraphData(ctx context.Context, g *model.GraphData) error {
	annotations, err := marshalJSON(g.Annotations)
	if err != nil {
		return fmt.Errorf("failed to marshal annotations: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO graph_data (id, project_id, dag_node_id, name, source_type, source_hash, status, error_message,
			node_count, edge_count, last_edit_sequence, has_pending_edits, annotations, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			dag_node_id=excluded.dag_node_id, name=excluded.name, source_type=excluded.source_type,
			source_hash=excluded.source_hash, status=excluded.status, error_message=excluded.error_message,
			node_count=excluded.node_count, edge_count=excluded.edge_count,
			last_edit_sequence=excluded.last_edit_sequence, has_pending_edits=excluded.has_pending_edits,
			annotations=excluded.annotations, updated_at=excluded.updated_at
	`, g.ID, g.ProjectID, g.DagNodeID, g.Name, string(g.SourceType), g.SourceHash, string(g.Status), g.ErrorMessage,
		g.NodeCount, g.EdgeCount, g.LastEditSequence, g.HasPendingEdits, annotations, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save graph data: %w", err)
	}
	return nil
}

func scanGraphDataRow(scan func(...any) error) (*model.GraphData, error) {
	var g model.GraphData
	var sourceType, status, annotations string
	err := scan(&g.ID, &g.ProjectID, &g.DagNodeID, &g.Name, &sourceType, &g.SourceHash, &status, &g.ErrorMessage,
		&g.NodeCount, &g.EdgeCount, &g.LastEditSequence, &g.HasPendingEdits, &annotations, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.SourceType = model.SourceType(sourceType)
	g.Status = model.GraphDataStatus(status)
	if annotations != "" && annotations != "null" {
		if err := json.Unmarshal([]byte(annotations), &g.Annotations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal annotations: %w", err)
		}
	}
	return &g, nil
}

func (s *Store) GetGraphData(ctx context.Context, id string) (*model.GraphData, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectGraphDataColumns+` FROM graph_data WHERE id = ?`, id)
	g, err := scanGraphDataRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.Wrap(model.ErrNotFound, "graph data %s", id)
		}
		return nil, fmt.Errorf("failed to load graph data: %w", err)
	}
	return g, nil
}

func (s *Store) GetGraphDataByNode(ctx context.Context, dagNodeID string) (*model.GraphData, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectGraphDataColumns+` FROM graph_data WHERE dag_node_id = ?`, dagNodeID)
	g, err := scanGraphDataRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.Wrap(model.ErrNotFound, "graph data for node %s", dagNodeID)
		}
		return nil, fmt.Errorf("failed to load graph data: %w", err)
	}
	return g, nil
}

func (s *Store) ListGraphData(ctx context.Context, projectID string) ([]*model.GraphData, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectGraphDataColumns+` FROM graph_data WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list graph data: %w", err)
	}
	defer rows.Close()
	var out []*model.GraphData
	for rows.Next() {
		g, err := scanGraphDataRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan graph data row: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) UpdateGraphData(ctx context.Context, g *model.GraphData) error { return s.CreateGraphData(ctx, g) }

func (s *Store) DeleteGraphData(ctx context.Context, id string) error {
	stmts := []string{
		`DELETE FROM graph_nodes WHERE graph_data_id = ?`,
		`DELETE FROM graph_edges WHERE graph_data_id = ?`,
		`DELETE FROM graph_layers WHERE graph_data_id = ?`,
		`DELETE FROM graph_data WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to delete graph data: %w", err)
		}
	}
	return nil
}

func (s *Store) ReplaceContents(ctx context.Context, graphDataID string, nodes []*model.GraphNode, edges []*model.GraphEdge, layers []*model.GraphLayer) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM graph_nodes WHERE graph_data_id = ?`, graphDataID); err != nil {
		return fmt.Errorf("failed to clear graph nodes: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM graph_edges WHERE graph_data_id = ?`, graphDataID); err != nil {
		return fmt.Errorf("failed to clear graph edges: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM graph_layers WHERE graph_data_id = ?`, graphDataID); err != nil {
		return fmt.Errorf("failed to clear graph layers: %w", err)
	}
	for _, n := range nodes {
		attrs, err := marshalJSON(n.Attributes)
		if err != nil {
			return fmt.Errorf("failed to marshal node attributes: %w", err)
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO graph_nodes (graph_data_id, external_id, label, layer, weight, is_partition, belongs_to, attributes, dataset_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, graphDataID, n.ExternalID, n.Label, n.Layer, n.Weight, n.IsPartition, n.BelongsTo, attrs, n.DatasetID)
		if err != nil {
			return fmt.Errorf("failed to insert graph node: %w", err)
		}
	}
	for _, e := range edges {
		attrs, err := marshalJSON(e.Attributes)
		if err != nil {
			return fmt.Errorf("failed to marshal edge attributes: %w", err)
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO graph_edges (graph_data_id, external_id, source, target, label, layer, weight, attributes, dataset_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, graphDataID, e.ExternalID, e.Source, e.Target, e.Label, e.Layer, e.Weight, attrs, e.DatasetID)
		if err != nil {
			return fmt.Errorf("failed to insert graph edge: %w", err)
		}
	}
	for _, l := range layers {
		props, err := marshalJSON(l.Properties)
		if err != nil {
			return fmt.Errorf("failed to marshal layer properties: %w", err)
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO graph_layers (graph_data_id, layer_id, name, background_color, text_color, border_color, alias, properties)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, graphDataID, l.LayerID, l.Name, l.BackgroundColor, l.TextColor, l.BorderColor, l.Alias, props)
		if err != nil {
			return fmt.Errorf("failed to insert graph layer: %w", err)
		}
	}
	return nil
}

func (s *Store) LoadContents(ctx context.Context, graphDataID string) ([]*model.GraphNode, []*model.GraphEdge, []*model.GraphLayer, error) {
	nodeRows, err := s.db.QueryContext(ctx, `
		SELECT external_id, label, layer, weight, is_partition, belongs_to, attributes, dataset_id
		FROM graph_nodes WHERE graph_data_id = ? ORDER BY external_id
	`, graphDataID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load graph nodes: %w", err)
	}
	var nodes []*model.GraphNode
	for nodeRows.Next() {
		var n model.GraphNode
		var attrs string
		if err := nodeRows.Scan(&n.ExternalID, &n.Label, &n.Layer, &n.Weight, &n.IsPartition, &n.BelongsTo, &attrs, &n.DatasetID); err != nil {
			nodeRows.Close()
			return nil, nil, nil, fmt.Errorf("failed to scan graph node: %w", err)
		}
		if attrs != "" && attrs != "null" {
			if err := json.Unmarshal([]byte(attrs), &n.Attributes); err != nil {
				nodeRows.Close()
				return nil, nil, nil, fmt.Errorf("failed to unmarshal node attributes: %w", err)
			}
		}
		n.GraphDataID = graphDataID
		nodes = append(nodes, &n)
	}
	nodeRows.Close()
	if err := nodeRows.Err(); err != nil {
		return nil, nil, nil, err
	}

	edgeRows, err := s.db.QueryContext(ctx, `
		SELECT external_id, source, target, label, layer, weight, attributes, dataset_id
		FROM graph_edges WHERE graph_data_id = ? ORDER BY external_id
	`, graphDataID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load graph edges: %w", err)
	}
	var edges []*model.GraphEdge
	for edgeRows.Next() {
		var e model.GraphEdge
		var attrs string
		if err := edgeRows.Scan(&e.ExternalID, &e.Source, &e.Target, &e.Label, &e.Layer, &e.Weight, &attrs, &e.DatasetID); err != nil {
			edgeRows.Close()
			return nil, nil, nil, fmt.Errorf("failed to scan graph edge: %w", err)
		}
		if attrs != "" && attrs != "null" {
			if err := json.Unmarshal([]byte(attrs), &e.Attributes); err != nil {
				edgeRows.Close()
				return nil, nil, nil, fmt.Errorf("failed to unmarshal edge attributes: %w", err)
			}
		}
		e.GraphDataID = graphDataID
		edges = append(edges, &e)
	}
	edgeRows.Close()
	if err := edgeRows.Err(); err != nil {
		return nil, nil, nil, err
	}

	layerRows, err := s.db.QueryContext(ctx, `
		SELECT layer_id, name, background_color, text_color, border_color, alias, properties
		FROM graph_layers WHERE graph_data_id = ? ORDER BY layer_id
	`, graphDataID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load graph layers: %w", err)
	}
	var layers []*model.GraphLayer
	for layerRows.Next() {
		var l model.GraphLayer
		var props string
		if err := layerRows.Scan(&l.LayerID, &l.Name, &l.BackgroundColor, &l.TextColor, &l.BorderColor, &l.Alias, &props); err != nil {
			layerRows.Close()
			return nil, nil, nil, fmt.Errorf("failed to scan graph layer: %w", err)
		}
		if props != "" && props != "null" {
			if err := json.Unmarshal([]byte(props), &l.Properties); err != nil {
				layerRows.Close()
				return nil, nil, nil, fmt.Errorf("failed to unmarshal layer properties: %w", err)
			}
		}
		l.GraphDataID = graphDataID
		layers = append(layers, &l)
	}
	layerRows.Close()
	if err := layerRows.Err(); err != nil {
		return nil, nil, nil, err
	}

	return nodes, edges, layers, nil
}

func (s *Store) DownstreamOf(ctx context.Context, datasetOrGraphID string) ([]*model.GraphData, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectGraphDataColumns+` FROM graph_data g
		WHERE g.source_hash = ?
			OR EXISTS (SELECT 1 FROM graph_nodes n WHERE n.graph_data_id = g.id AND n.dataset_id = ?)
		ORDER BY g.id
	`, datasetOrGraphID, datasetOrGraphID)
	if err != nil {
		return nil, fmt.Errorf("failed to query downstream graph data: %w", err)
	}
	defer rows.Close()
	var out []*model.GraphData
	for rows.Next() {
		g, err := scanGraphDataRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan graph data row: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) UpsertLayerPalette(ctx context.Context, p *model.ProjectLayerPalette) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_layer_palettes (project_id, layer_id, background_color, text_color, border_color, alias, source_dataset_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, layer_id) DO UPDATE SET
			background_color=excluded.background_color, text_color=excluded.text_color,
			border_color=excluded.border_color, alias=excluded.alias, source_dataset_id=excluded.source_dataset_id
	`, p.ProjectID, p.LayerID, p.BackgroundColor, p.TextColor, p.BorderColor, p.Alias, p.SourceDatasetID)
	if err != nil {
		return fmt.Errorf("failed to upsert layer palette: %w", err)
	}
	return nil
}

func (s *Store) GetLayerPalette(ctx context.Context, projectID, layerID string) (*model.ProjectLayerPalette, error) {
	var p model.ProjectLayerPalette
	err := s.db.QueryRowContext(ctx, `
		SELECT project_id, layer_id, background_color, text_color, border_color, alias, source_dataset_id
		FROM project_layer_palettes WHERE project_id = ? AND layer_id = ?
	`, projectID, layerID).Scan(&p.ProjectID, &p.LayerID, &p.BackgroundColor, &p.TextColor, &p.BorderColor, &p.Alias, &p.SourceDatasetID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.Wrap(model.ErrNotFound, "layer palette %s/%s", projectID, layerID)
		}
		return nil, fmt.Errorf("failed to load layer palette: %w", err)
	}
	return &p, nil
}

// --- EditStore ---

func (s *Store) AppendEdit(ctx context.Context, e *model.GraphEdit) error {
	oldValue, err := marshalJSON(e.OldValue)
	if err != nil {
		return fmt.Errorf("failed to marshal old value: %w", err)
	}
	newValue, err := marshalJSON(e.NewValue)
	if err != nil {
		return fmt.Errorf("failed to marshal new value: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO graph_edits (graph_id, seq, target_type, target_external_id, op, field_name,
			old_value, new_value, applied, outcome, failure_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(graph_id, seq) DO NOTHING
	`, e.GraphID, e.Seq, string(e.TargetType), e.TargetExternalID, string(e.Op), e.FieldName,
		oldValue, newValue, e.Applied, string(e.Outcome), e.FailureReason, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append edit: %w", err)
	}
	return nil
}

func (s *Store) ListEdits(ctx context.Context, graphID string) ([]*model.GraphEdit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT graph_id, seq, target_type, target_external_id, op, field_name, old_value, new_value,
			applied, outcome, failure_reason, created_at
		FROM graph_edits WHERE graph_id = ? ORDER BY seq ASC
	`, graphID)
	if err != nil {
		return nil, fmt.Errorf("failed to list edits: %w", err)
	}
	defer rows.Close()
	var out []*model.GraphEdit
	for rows.Next() {
		var e model.GraphEdit
		var targetType, op, outcome, oldValue, newValue string
		err := rows.Scan(&e.GraphID, &e.Seq, &targetType, &e.TargetExternalID, &op, &e.FieldName,
			&oldValue, &newValue, &e.Applied, &outcome, &e.FailureReason, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edit row: %w", err)
		}
		e.TargetType = model.TargetType(targetType)
		e.Op = model.EditOp(op)
		e.Outcome = model.EditOutcome(outcome)
		if oldValue != "" && oldValue != "null" {
			if err := json.Unmarshal([]byte(oldValue), &e.OldValue); err != nil {
				return nil, fmt.Errorf("failed to unmarshal old value: %w", err)
			}
		}
		if newValue != "" && newValue != "null" {
			if err := json.Unmarshal([]byte(newValue), &e.NewValue); err != nil {
				return nil, fmt.Errorf("failed to unmarshal new value: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *Store) MarkOutcome(ctx context.Context, graphID string, seq int64, outcome model.EditOutcome, failureReason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE graph_edits SET outcome = ?, failure_reason = ?, applied = ?
		WHERE graph_id = ? AND seq = ?
	`, string(outcome), failureReason, outcome == model.OutcomeApplied, graphID, seq)
	if err != nil {
		return fmt.Errorf("failed to mark edit outcome: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return model.Wrap(model.ErrNotFound, "edit %s/%d", graphID, seq)
	}
	return nil
}

func (s *Store) ClearEdits(ctx context.Context, graphID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM graph_edits WHERE graph_id = ?`, graphID)
	if err != nil {
		return fmt.Errorf("failed to clear edits: %w", err)
	}
	return nil
}

// --- StoryStore ---

const selectStoryColumns = `id, project_id, name, enabled_dataset_ids, layer_config, tags, created_at, updated_at`

func (s *Store) CreateStory(ctx context.Context, st *model.Story) error {
	datasetIDs, err := marshalJSON(st.EnabledDatasetIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal enabled dataset ids: %w", err)
	}
	layerConfig, err := marshalJSON(st.LayerConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal layer config: %w", err)
	}
	tags, err := marshalJSON(st.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO stories (id, project_id, name, enabled_dataset_ids, layer_config, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, enabled_dataset_ids=excluded.enabled_dataset_ids,
			layer_config=excluded.layer_config, tags=excluded.tags, updated_at=excluded.updated_at
	`, st.ID, st.ProjectID, st.Name, datasetIDs, layerConfig, tags, st.CreatedAt, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save story: %w", err)
	}
	return nil
}

func scanStoryRow(scan func(...any) error) (*model.Story, error) {
	var st model.Story
	var datasetIDs, layerConfig, tags string
	err := scan(&st.ID, &st.ProjectID, &st.Name, &datasetIDs, &layerConfig, &tags, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if datasetIDs != "" && datasetIDs != "null" {
		if err := json.Unmarshal([]byte(datasetIDs), &st.EnabledDatasetIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal enabled dataset ids: %w", err)
		}
	}
	if layerConfig != "" && layerConfig != "null" {
		if err := json.Unmarshal([]byte(layerConfig), &st.LayerConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal layer config: %w", err)
		}
	}
	if tags != "" && tags != "null" {
		if err := json.Unmarshal([]byte(tags), &st.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	return &st, nil
}

func (s *Store) GetStory(ctx context.Context, id string) (*model.Story, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectStoryColumns+` FROM stories WHERE id = ?`, id)
	st, err := scanStoryRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.Wrap(model.ErrNotFound, "story %s", id)
		}
		return nil, fmt.Errorf("failed to load story: %w", err)
	}
	return st, nil
}

func (s *Store) ListStories(ctx context.Context, projectID string) ([]*model.Story, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectStoryColumns+` FROM stories WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	defer rows.Close()
	var out []*model.Story
	for rows.Next() {
		st, err := scanStoryRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story row: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStory(ctx context.Context, st *model.Story) error { return s.CreateStory(ctx, st) }

func (s *Store) DeleteStory(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sequences WHERE story_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete story sequences: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM stories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	return nil
}

const selectSequenceColumns = `id, story_id, enabled_dataset_ids, edge_order, created_at, updated_at`

func (s *Store) CreateSequence(ctx context.Context, sq *model.Sequence) error {
	datasetIDs, err := marshalJSON(sq.EnabledDatasetIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal enabled dataset ids: %w", err)
	}
	edgeOrder, err := marshalJSON(sq.EdgeOrder)
	if err != nil {
		return fmt.Errorf("failed to marshal edge order: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sequences (id, story_id, enabled_dataset_ids, edge_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			enabled_dataset_ids=excluded.enabled_dataset_ids, edge_order=excluded.edge_order, updated_at=excluded.updated_at
	`, sq.ID, sq.StoryID, datasetIDs, edgeOrder, sq.CreatedAt, sq.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save sequence: %w", err)
	}
	return nil
}

func scanSequenceRow(scan func(...any) error) (*model.Sequence, error) {
	var sq model.Sequence
	var datasetIDs, edgeOrder string
	if err := scan(&sq.ID, &sq.StoryID, &datasetIDs, &edgeOrder, &sq.CreatedAt, &sq.UpdatedAt); err != nil {
		return nil, err
	}
	if datasetIDs != "" && datasetIDs != "null" {
		if err := json.Unmarshal([]byte(datasetIDs), &sq.EnabledDatasetIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal enabled dataset ids: %w", err)
		}
	}
	if edgeOrder != "" && edgeOrder != "null" {
		if err := json.Unmarshal([]byte(edgeOrder), &sq.EdgeOrder); err != nil {
			return nil, fmt.Errorf("failed to unmarshal edge order: %w", err)
		}
	}
	return &sq, nil
}

func (s *Store) GetSequence(ctx context.Context, id string) (*model.Sequence, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectSequenceColumns+` FROM sequences WHERE id = ?`, id)
	sq, err := scanSequenceRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.Wrap(model.ErrNotFound, "sequence %s", id)
		}
		return nil, fmt.Errorf("failed to load sequence: %w", err)
	}
	return sq, nil
}

func (s *Store) ListSequences(ctx context.Context, storyID string) ([]*model.Sequence, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectSequenceColumns+` FROM sequences WHERE story_id = ? ORDER BY id`, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}
	defer rows.Close()
	var out []*model.Sequence
	for rows.Next() {
		sq, err := scanSequenceRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sequence row: %w", err)
		}
		out = append(out, sq)
	}
	return out, rows.Err()
}

func (s *Store) UpdateSequence(ctx context.Context, sq *model.Sequence) error { return s.CreateSequence(ctx, sq) }
