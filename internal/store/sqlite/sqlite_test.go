package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layercake/layercake/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Options{Path: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_ProjectCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	p := &model.Project{ID: "p1", Name: "demo", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateProject(ctx, p))

	got, err := s.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Name)

	p.Name = "renamed"
	require.NoError(t, s.CreateProject(ctx, p))
	got, err = s.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)

	all, err := s.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.DeleteProject(ctx, "p1"))
	_, err = s.GetProject(ctx, "p1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestStore_DatasetRoundTripsGraphJSON(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	w := 2.5
	d := &model.Dataset{
		ID: "d1", ProjectID: "p1", Name: "orders.csv", FileFormat: model.FormatCSV, DataType: model.DataTypeNodes,
		Status: model.DatasetActive,
		GraphJSON: &model.NormalForm{
			Nodes: []model.NormalNode{{ID: "n1", Label: "Order 1", Weight: &w}},
		},
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateDataset(ctx, d))

	got, err := s.GetDataset(ctx, "d1")
	require.NoError(t, err)
	require.NotNil(t, got.GraphJSON)
	require.Len(t, got.GraphJSON.Nodes, 1)
	assert.Equal(t, "Order 1", got.GraphJSON.Nodes[0].Label)
	require.NotNil(t, got.GraphJSON.Nodes[0].Weight)
	assert.Equal(t, 2.5, *got.GraphJSON.Nodes[0].Weight)

	list, err := s.ListDatasets(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteDataset(ctx, "d1"))
	_, err = s.GetDataset(ctx, "d1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestStore_PlanNodesAndEdges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	plan := &model.Plan{ID: "plan1", ProjectID: "p1", Version: 1, Status: model.PlanDraft, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreatePlan(ctx, plan))

	n1 := &model.PlanDagNode{
		ID: "n1", PlanID: "plan1", NodeType: model.NodeTypeDataSet,
		Config:    model.NodeConfig{Kind: model.NodeTypeDataSet, DataSet: &model.DataSetNodeConfig{DatasetID: "d1"}},
		CreatedAt: now, UpdatedAt: now,
	}
	n2 := &model.PlanDagNode{
		ID: "n2", PlanID: "plan1", NodeType: model.NodeTypeGraph,
		Config:    model.NodeConfig{Kind: model.NodeTypeGraph, Graph: &model.GraphNodeConfig{}},
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateNode(ctx, n1))
	require.NoError(t, s.CreateNode(ctx, n2))

	got, err := s.GetNode(ctx, "n1")
	require.NoError(t, err)
	require.NotNil(t, got.Config.DataSet)
	assert.Equal(t, "d1", got.Config.DataSet.DatasetID)

	refs, err := s.NodesReferencingDataset(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "n1", refs[0].ID)

	edge := &model.PlanDagEdge{ID: "e1", PlanID: "plan1", SourceNodeID: "n1", TargetNodeID: "n2", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateEdge(ctx, edge))

	edges, err := s.ListEdges(ctx, "plan1")
	require.NoError(t, err)
	assert.Len(t, edges, 1)

	require.NoError(t, s.DeleteIncidentEdges(ctx, "n1"))
	edges, err = s.ListEdges(ctx, "plan1")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestStore_GraphDataContentsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	g := &model.GraphData{
		ID: "g1", ProjectID: "p1", DagNodeID: "n1", SourceType: model.SourceTypeDataset, SourceHash: "d1",
		Status: model.GraphDataActive, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateGraphData(ctx, g))

	byNode, err := s.GetGraphDataByNode(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "g1", byNode.ID)

	nodes := []*model.GraphNode{{ExternalID: "a", Label: "A", DatasetID: "d1", Attributes: map[string]any{"k": "v"}}}
	edges := []*model.GraphEdge{{ExternalID: "e1", Source: "a", Target: "a", DatasetID: "d1"}}
	layers := []*model.GraphLayer{{LayerID: "l1", Name: "Layer 1"}}
	require.NoError(t, s.ReplaceContents(ctx, "g1", nodes, edges, layers))

	gotNodes, gotEdges, gotLayers, err := s.LoadContents(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, gotNodes, 1)
	assert.Equal(t, "v", gotNodes[0].Attributes["k"])
	require.Len(t, gotEdges, 1)
	require.Len(t, gotLayers, 1)

	down, err := s.DownstreamOf(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, down, 1)
	assert.Equal(t, "g1", down[0].ID)
}

func TestStore_LayerPaletteUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &model.ProjectLayerPalette{ProjectID: "p1", LayerID: "l1", BackgroundColor: "#fff"}
	require.NoError(t, s.UpsertLayerPalette(ctx, p))

	got, err := s.GetLayerPalette(ctx, "p1", "l1")
	require.NoError(t, err)
	assert.Equal(t, "#fff", got.BackgroundColor)

	p.BackgroundColor = "#000"
	require.NoError(t, s.UpsertLayerPalette(ctx, p))
	got, err = s.GetLayerPalette(ctx, "p1", "l1")
	require.NoError(t, err)
	assert.Equal(t, "#000", got.BackgroundColor)
}

func TestStore_EditJournalOrderingAndOutcomes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for i := int64(1); i <= 3; i++ {
		e := &model.GraphEdit{
			Seq: i, GraphID: "g1", TargetType: model.TargetNode, TargetExternalID: "a",
			Op: model.OpUpdate, FieldName: "label", NewValue: "x", Outcome: model.OutcomePending, CreatedAt: now,
		}
		require.NoError(t, s.AppendEdit(ctx, e))
	}

	edits, err := s.ListEdits(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, edits, 3)
	assert.Equal(t, int64(1), edits[0].Seq)
	assert.Equal(t, int64(3), edits[2].Seq)

	require.NoError(t, s.MarkOutcome(ctx, "g1", 2, model.OutcomeApplied, ""))
	edits, err = s.ListEdits(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeApplied, edits[1].Outcome)
	assert.True(t, edits[1].Applied)

	err = s.MarkOutcome(ctx, "g1", 99, model.OutcomeFailed, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, s.ClearEdits(ctx, "g1"))
	edits, err = s.ListEdits(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, edits)
}

func TestStore_StoryAndSequenceLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	st := &model.Story{
		ID: "s1", ProjectID: "p1", Name: "Checkout Flow",
		EnabledDatasetIDs: []string{"d1", "d2"},
		LayerConfig:       []model.StoryLayerOverride{{SourceDatasetID: "d1", Mode: "highlight"}},
		Tags:              []string{"core"},
		CreatedAt:         now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateStory(ctx, st))

	got, err := s.GetStory(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2"}, got.EnabledDatasetIDs)
	assert.Equal(t, "highlight", got.LayerConfig[0].Mode)

	sq1 := &model.Sequence{ID: "sq2", StoryID: "s1", CreatedAt: now, UpdatedAt: now}
	sq2 := &model.Sequence{ID: "sq1", StoryID: "s1", EdgeOrder: []model.SequenceEdgeRef{{DatasetID: "d1", EdgeID: "e1"}}, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateSequence(ctx, sq1))
	require.NoError(t, s.CreateSequence(ctx, sq2))

	seqs, err := s.ListSequences(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, seqs, 2)
	assert.Equal(t, "sq1", seqs[0].ID)
	assert.Equal(t, "sq2", seqs[1].ID)
	assert.Equal(t, "e1", seqs[0].EdgeOrder[0].EdgeID)

	require.NoError(t, s.DeleteStory(ctx, "s1"))
	_, err = s.GetStory(ctx, "s1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
