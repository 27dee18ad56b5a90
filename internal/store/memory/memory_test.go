package memory

import (
	"context"
	"testing"

	"github.com/layercake/layercake/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ProjectCRUD(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	require.NoError(t, s.CreateProject(ctx, &model.Project{ID: "p1", Name: "demo"}))

	got, err := s.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Name)

	_, err = s.GetProject(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, s.CreateProject(ctx, &model.Project{ID: "p2", Name: "other"}))
	list, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p1", list[0].ID)

	require.NoError(t, s.DeleteProject(ctx, "p1"))
	_, err = s.GetProject(ctx, "p1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestStore_DatasetCRUD(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	d := &model.Dataset{ID: "d1", ProjectID: "p1", Name: "people.csv"}
	require.NoError(t, s.CreateDataset(ctx, d))

	d.Status = model.DatasetActive
	require.NoError(t, s.UpdateDataset(ctx, d))

	got, err := s.GetDataset(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, model.DatasetActive, got.Status)

	// Mutating the returned pointer must not mutate store state.
	got.Status = model.DatasetError
	again, err := s.GetDataset(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, model.DatasetActive, again.Status)

	list, err := s.ListDatasets(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteDataset(ctx, "d1"))
	_, err = s.GetDataset(ctx, "d1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestStore_PlanNodesAndEdges(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	require.NoError(t, s.CreatePlan(ctx, &model.Plan{ID: "plan1", ProjectID: "p1"}))

	n1 := &model.PlanDagNode{ID: "n1", PlanID: "plan1", NodeType: model.NodeTypeDataSet,
		Config: model.NodeConfig{Kind: model.NodeTypeDataSet, DataSet: &model.DataSetNodeConfig{DatasetID: "d1"}}}
	n2 := &model.PlanDagNode{ID: "n2", PlanID: "plan1", NodeType: model.NodeTypeGraph,
		Config: model.NodeConfig{Kind: model.NodeTypeGraph, Graph: &model.GraphNodeConfig{}}}
	require.NoError(t, s.CreateNode(ctx, n1))
	require.NoError(t, s.CreateNode(ctx, n2))

	require.NoError(t, s.CreateEdge(ctx, &model.PlanDagEdge{ID: "e1", PlanID: "plan1", SourceNodeID: "n1", TargetNodeID: "n2"}))

	nodes, err := s.ListNodes(ctx, "plan1")
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	refs, err := s.NodesReferencingDataset(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "n1", refs[0].ID)

	require.NoError(t, s.DeleteIncidentEdges(ctx, "n1"))
	edges, err := s.ListEdges(ctx, "plan1")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestStore_GraphDataContentsRoundTrip(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	require.NoError(t, s.CreateGraphData(ctx, &model.GraphData{ID: "g1", ProjectID: "p1", DagNodeID: "n1"}))

	nodes := []*model.GraphNode{{ExternalID: "a", GraphDataID: "g1", Label: "A", DatasetID: "d1"}}
	edges := []*model.GraphEdge{{ExternalID: "e1", GraphDataID: "g1", Source: "a", Target: "a"}}
	layers := []*model.GraphLayer{{LayerID: "l1", GraphDataID: "g1", Name: "people"}}
	require.NoError(t, s.ReplaceContents(ctx, "g1", nodes, edges, layers))

	gotNodes, gotEdges, gotLayers, err := s.LoadContents(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, gotNodes, 1)
	require.Len(t, gotEdges, 1)
	require.Len(t, gotLayers, 1)
	assert.Equal(t, "A", gotNodes[0].Label)

	found, err := s.GetGraphDataByNode(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "g1", found.ID)

	downstream, err := s.DownstreamOf(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, downstream, 1)
	assert.Equal(t, "g1", downstream[0].ID)
}

func TestStore_LayerPaletteUpsert(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	require.NoError(t, s.UpsertLayerPalette(ctx, &model.ProjectLayerPalette{ProjectID: "p1", LayerID: "people", BackgroundColor: "#FF0000"}))
	got, err := s.GetLayerPalette(ctx, "p1", "people")
	require.NoError(t, err)
	assert.Equal(t, "#FF0000", got.BackgroundColor)

	require.NoError(t, s.UpsertLayerPalette(ctx, &model.ProjectLayerPalette{ProjectID: "p1", LayerID: "people", BackgroundColor: "#00FF00"}))
	got, err = s.GetLayerPalette(ctx, "p1", "people")
	require.NoError(t, err)
	assert.Equal(t, "#00FF00", got.BackgroundColor)
}

func TestStore_EditJournalOrderingAndOutcomes(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	require.NoError(t, s.AppendEdit(ctx, &model.GraphEdit{Seq: 2, GraphID: "g1", Op: model.OpUpdate}))
	require.NoError(t, s.AppendEdit(ctx, &model.GraphEdit{Seq: 1, GraphID: "g1", Op: model.OpCreate}))

	list, err := s.ListEdits(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].Seq)

	require.NoError(t, s.MarkOutcome(ctx, "g1", 1, model.OutcomeApplied, ""))
	list, err = s.ListEdits(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeApplied, list[0].Outcome)
	assert.True(t, list[0].Applied)

	err = s.MarkOutcome(ctx, "g1", 99, model.OutcomeFailed, "no such seq")
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, s.ClearEdits(ctx, "g1"))
	list, err = s.ListEdits(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_StoryAndSequenceLifecycle(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	require.NoError(t, s.CreateStory(ctx, &model.Story{ID: "st1", ProjectID: "p1", Name: "onboarding"}))
	require.NoError(t, s.CreateSequence(ctx, &model.Sequence{ID: "sq2", StoryID: "st1"}))
	require.NoError(t, s.CreateSequence(ctx, &model.Sequence{ID: "sq1", StoryID: "st1"}))

	seqs, err := s.ListSequences(ctx, "st1")
	require.NoError(t, err)
	require.Len(t, seqs, 2)
	assert.Equal(t, "sq1", seqs[0].ID)

	st, err := s.GetStory(ctx, "st1")
	require.NoError(t, err)
	st.Tags = []string{"demo"}
	require.NoError(t, s.UpdateStory(ctx, st))

	got, err := s.GetStory(ctx, "st1")
	require.NoError(t, err)
	assert.Equal(t, []string{"demo"}, got.Tags)

	require.NoError(t, s.DeleteStory(ctx, "st1"))
	_, err = s.GetStory(ctx, "st1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
