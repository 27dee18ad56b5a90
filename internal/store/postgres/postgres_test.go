package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layercake/layercake/internal/model"
)

func TestStore_CreateProject_IssuesUpsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, nil)
	p := &model.Project{ID: "p1", Name: "demo", CreatedAt: time.Now(), UpdatedAt: time.Now()}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO projects")).
		WithArgs(p.ID, p.Name, p.CreatedAt, p.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateProject(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetProject_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, created_at, updated_at FROM projects WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "created_at", "updated_at"}))

	_, err = s.GetProject(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateNode_IssuesInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, nil)
	n := &model.PlanDagNode{
		ID: "n1", PlanID: "plan1", NodeType: model.NodeTypeDataSet,
		Config: model.NodeConfig{Kind: model.NodeTypeDataSet, DataSet: &model.DataSetNodeConfig{DatasetID: "d1"}},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO plan_dag_nodes")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateNode(context.Background(), n))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetNode_DecodesPersistedConfig(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, nil)
	now := time.Now()
	configJSON := `{"node_type":"DataSetNode","data_set":{"DatasetID":"d1"}}`

	rows := pgxmock.NewRows([]string{"id", "plan_id", "node_type", "position_x", "position_y", "label", "description", "config", "created_at", "updated_at"}).
		AddRow("n1", "plan1", "DataSetNode", 1.0, 2.0, "Label", "Desc", []byte(configJSON), now, now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM plan_dag_nodes WHERE id = $1")).
		WithArgs("n1").
		WillReturnRows(rows)

	n, err := s.GetNode(context.Background(), "n1")
	require.NoError(t, err)
	require.NotNil(t, n.Config.DataSet)
	assert.Equal(t, "d1", n.Config.DataSet.DatasetID)
}

func TestStore_MarkOutcome_NoRowsAffectedReturnsNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewWithPool(mock, nil)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE graph_edits SET outcome")).
		WithArgs("applied", "", true, "g1", int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = s.MarkOutcome(context.Background(), "g1", 5, model.OutcomeApplied, "")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
