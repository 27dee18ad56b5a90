package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/layercake/layercake/internal/model"
)

func (s *Store) CreatePlan(ctx context.Context, p *model.Plan) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO plans (id, project_id, version, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
	`, p.ID, p.ProjectID, p.Version, string(p.Status), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var p model.Plan
	var status string
	if err := row.Scan(&p.ID, &p.ProjectID, &p.Version, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = model.PlanStatus(status)
	return &p, nil
}

func (s *Store) GetPlan(ctx context.Context, id string) (*model.Plan, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, project_id, version, status, created_at, updated_at FROM plans WHERE id = $1`, id)
	p, err := scanPlan(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.Wrap(model.ErrNotFound, "plan %s", id)
		}
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	return p, nil
}

func (s *Store) ListPlans(ctx context.Context, projectID string) ([]*model.Plan, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, project_id, version, status, created_at, updated_at FROM plans WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()
	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdatePlan(ctx context.Context, p *model.Plan) error {
	return s.CreatePlan(ctx, p)
}

func (s *Store) DeletePlan(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
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
	_, err = s.pool.Exec(ctx, `
		INSERT INTO plan_dag_nodes (id, plan_id, node_type, position_x, position_y, label, description, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			node_type = EXCLUDED.node_type, position_x = EXCLUDED.position_x, position_y = EXCLUDED.position_y,
			label = EXCLUDED.label, description = EXCLUDED.description, config = EXCLUDED.config, updated_at = EXCLUDED.updated_at
	`, n.ID, n.PlanID, string(n.NodeType), n.Position.X, n.Position.Y, n.Metadata.Label, n.Metadata.Description,
		configJSON, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save node: %w", err)
	}
	return nil
}

func scanNode(row pgx.Row) (*model.PlanDagNode, error) {
	var n model.PlanDagNode
	var nodeType string
	var configJSON []byte
	err := row.Scan(&n.ID, &n.PlanID, &nodeType, &n.Position.X, &n.Position.Y,
		&n.Metadata.Label, &n.Metadata.Description, &configJSON, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	n.NodeType = model.PlanDagNodeType(nodeType)
	if err := json.Unmarshal(configJSON, &n.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node config: %w", err)
	}
	return &n, nil
}

const selectNodeColumns = `id, plan_id, node_type, position_x, position_y, label, description, config, created_at, updated_at`

func (s *Store) GetNode(ctx context.Context, id string) (*model.PlanDagNode, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectNodeColumns+` FROM plan_dag_nodes WHERE id = $1`, id)
	n, err := scanNode(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.Wrap(model.ErrNotFound, "node %s", id)
		}
		return nil, fmt.Errorf("failed to load node: %w", err)
	}
	return n, nil
}

func (s *Store) ListNodes(ctx context.Context, planID string) ([]*model.PlanDagNode, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectNodeColumns+` FROM plan_dag_nodes WHERE plan_id = $1 ORDER BY id`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer rows.Close()
	var out []*model.PlanDagNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node row: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) UpdateNode(ctx context.Context, n *model.PlanDagNode) error {
	return s.CreateNode(ctx, n)
}

func (s *Store) DeleteNode(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM plan_dag_nodes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	return nil
}

func (s *Store) NodesReferencingDataset(ctx context.Context, datasetID string) ([]*model.PlanDagNode, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+selectNodeColumns+` FROM plan_dag_nodes
		WHERE node_type = $1 AND config->'data_set'->>'DatasetID' = $2
		ORDER BY id
	`, string(model.NodeTypeDataSet), datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes referencing dataset: %w", err)
	}
	defer rows.Close()
	var out []*model.PlanDagNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node row: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CreateEdge(ctx context.Context, e *model.PlanDagEdge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO plan_dag_edges (id, plan_id, source_node_id, target_node_id, label, data_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			source_node_id = EXCLUDED.source_node_id, target_node_id = EXCLUDED.target_node_id,
			label = EXCLUDED.label, data_type = EXCLUDED.data_type, updated_at = EXCLUDED.updated_at
	`, e.ID, e.PlanID, e.SourceNodeID, e.TargetNodeID, e.Metadata.Label, string(e.Metadata.DataType), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save edge: %w", err)
	}
	return nil
}

func (s *Store) ListEdges(ctx context.Context, planID string) ([]*model.PlanDagEdge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, plan_id, source_node_id, target_node_id, label, data_type, created_at, updated_at
		FROM plan_dag_edges WHERE plan_id = $1 ORDER BY id
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
	_, err := s.pool.Exec(ctx, `DELETE FROM plan_dag_edges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}
	return nil
}

func (s *Store) DeleteIncidentEdges(ctx context.Context, nodeID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM plan_dag_edges WHERE source_node_id = $1 OR target_node_id = $1`, nodeID)
	if err != nil {
		return fmt.Errorf("failed to delete incident edges: %w", err)
	}
	return nil
}

func (s *Store) ReplacePlanDag(ctx context.Context, planID string, nodes []*model.PlanDagNode, edges []*model.PlanDagEdge) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM plan_dag_edges WHERE plan_id = $1`, planID); err != nil {
		return fmt.Errorf("failed to clear plan edges: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM plan_dag_nodes WHERE plan_id = $1`, planID); err != nil {
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
