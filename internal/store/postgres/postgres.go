// Package postgres implements store.Store against PostgreSQL, modeled on the
// teacher's store/postgres.PostgresCheckpointStore: a DBPool seam so tests can
// inject pgxmock, hand-written SQL (no ORM), and JSON columns for the nested
// model types (NodeConfig, NormalForm, Attributes) the teacher serialises the
// same way for its State/Metadata columns.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/layercake/layercake/internal/log"
	"github.com/layercake/layercake/internal/store"
)

var _ store.Store = (*Store)(nil)

// DBPool is the subset of *pgxpool.Pool the Store uses, narrowed so tests can
// substitute pgxmock.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements store.Store against PostgreSQL.
type Store struct {
	pool   DBPool
	logger log.Logger
}

// Options configures the PostgreSQL connection.
type Options struct {
	ConnString string
}

// New creates a Store backed by a fresh pgxpool connection pool.
func New(ctx context.Context, opts Options, logger log.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if logger == nil {
		logger = log.NoOpLogger{}
	}
	return &Store{pool: pool, logger: logger}, nil
}

// NewWithPool creates a Store over an existing pool, for tests with pgxmock.
func NewWithPool(pool DBPool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NoOpLogger{}
	}
	return &Store{pool: pool, logger: logger}
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// InitSchema creates every table the Store needs if it does not already
// exist, one CREATE TABLE IF NOT EXISTS per entity so re-running it against
// an already-migrated database is a no-op.
func (s *Store) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS datasets (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			filename TEXT,
			file_format TEXT,
			data_type TEXT,
			blob BYTEA,
			status TEXT NOT NULL,
			graph_json JSONB,
			error_message TEXT,
			origin TEXT,
			processed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_datasets_project ON datasets (project_id)`,
		`CREATE TABLE IF NOT EXISTS plans (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			version BIGINT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_plans_project ON plans (project_id)`,
		`CREATE TABLE IF NOT EXISTS plan_dag_nodes (
			id TEXT PRIMARY KEY,
			plan_id TEXT NOT NULL,
			node_type TEXT NOT NULL,
			position_x DOUBLE PRECISION,
			position_y DOUBLE PRECISION,
			label TEXT,
			description TEXT,
			config JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_plan ON plan_dag_nodes (plan_id)`,
		`CREATE TABLE IF NOT EXISTS plan_dag_edges (
			id TEXT PRIMARY KEY,
			plan_id TEXT NOT NULL,
			source_node_id TEXT NOT NULL,
			target_node_id TEXT NOT NULL,
			label TEXT,
			data_type TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_plan ON plan_dag_edges (plan_id)`,
		`CREATE TABLE IF NOT EXISTS graph_data (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			dag_node_id TEXT,
			name TEXT,
			source_type TEXT,
			source_hash TEXT,
			status TEXT NOT NULL,
			error_message TEXT,
			node_count INTEGER,
			edge_count INTEGER,
			last_edit_sequence BIGINT,
			has_pending_edits BOOLEAN,
			annotations JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_graph_data_project ON graph_data (project_id)`,
		`CREATE TABLE IF NOT EXISTS graph_nodes (
			graph_data_id TEXT NOT NULL,
			external_id TEXT NOT NULL,
			label TEXT,
			layer TEXT,
			weight DOUBLE PRECISION,
			is_partition BOOLEAN,
			belongs_to TEXT,
			attributes JSONB,
			dataset_id TEXT,
			PRIMARY KEY (graph_data_id, external_id)
		)`,
		`CREATE TABLE IF NOT EXISTS graph_edges (
			graph_data_id TEXT NOT NULL,
			external_id TEXT NOT NULL,
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			label TEXT,
			layer TEXT,
			weight DOUBLE PRECISION,
			attributes JSONB,
			dataset_id TEXT,
			PRIMARY KEY (graph_data_id, external_id)
		)`,
		`CREATE TABLE IF NOT EXISTS graph_layers (
			graph_data_id TEXT NOT NULL,
			layer_id TEXT NOT NULL,
			name TEXT,
			background_color TEXT,
			text_color TEXT,
			border_color TEXT,
			alias TEXT,
			properties JSONB,
			PRIMARY KEY (graph_data_id, layer_id)
		)`,
		`CREATE TABLE IF NOT EXISTS project_layer_palettes (
			project_id TEXT NOT NULL,
			layer_id TEXT NOT NULL,
			background_color TEXT,
			text_color TEXT,
			border_color TEXT,
			alias TEXT,
			source_dataset_id TEXT,
			PRIMARY KEY (project_id, layer_id)
		)`,
		`CREATE TABLE IF NOT EXISTS graph_edits (
			graph_id TEXT NOT NULL,
			seq BIGINT NOT NULL,
			target_type TEXT NOT NULL,
			target_external_id TEXT NOT NULL,
			op TEXT NOT NULL,
			field_name TEXT,
			old_value JSONB,
			new_value JSONB,
			applied BOOLEAN,
			outcome TEXT NOT NULL,
			failure_reason TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (graph_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS stories (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			name TEXT NOT NULL,
			enabled_dataset_ids JSONB,
			layer_config JSONB,
			tags JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stories_project ON stories (project_id)`,
		`CREATE TABLE IF NOT EXISTS sequences (
			id TEXT PRIMARY KEY,
			story_id TEXT NOT NULL,
			enabled_dataset_ids JSONB,
			edge_order JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sequences_story ON sequences (story_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
