package edits

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layercake/layercake/internal/model"
)

type fakeEditStore struct {
	byGraph map[string][]*model.GraphEdit
}

func newFakeEditStore() *fakeEditStore {
	return &fakeEditStore{byGraph: map[string][]*model.GraphEdit{}}
}

func (f *fakeEditStore) AppendEdit(_ context.Context, e *model.GraphEdit) error {
	f.byGraph[e.GraphID] = append(f.byGraph[e.GraphID], e)
	return nil
}
func (f *fakeEditStore) ListEdits(_ context.Context, graphID string) ([]*model.GraphEdit, error) {
	return f.byGraph[graphID], nil
}
func (f *fakeEditStore) MarkOutcome(_ context.Context, graphID string, seq int64, outcome model.EditOutcome, reason string) error {
	for _, e := range f.byGraph[graphID] {
		if e.Seq == seq {
			e.Outcome = outcome
			e.FailureReason = reason
		}
	}
	return nil
}
func (f *fakeEditStore) ClearEdits(_ context.Context, graphID string) error {
	delete(f.byGraph, graphID)
	return nil
}

type fakeGraphStore struct {
	gd     *model.GraphData
	nodes  []*model.GraphNode
	edges  []*model.GraphEdge
	layers []*model.GraphLayer
}

func (f *fakeGraphStore) CreateGraphData(context.Context, *model.GraphData) error { return nil }
func (f *fakeGraphStore) GetGraphData(_ context.Context, id string) (*model.GraphData, error) {
	if f.gd == nil || f.gd.ID != id {
		return nil, model.Wrap(model.ErrNotFound, "graph %s", id)
	}
	return f.gd, nil
}
func (f *fakeGraphStore) GetGraphDataByNode(context.Context, string) (*model.GraphData, error) {
	return nil, model.Wrap(model.ErrNotFound, "n/a")
}
func (f *fakeGraphStore) ListGraphData(context.Context, string) ([]*model.GraphData, error) {
	return nil, nil
}
func (f *fakeGraphStore) UpdateGraphData(_ context.Context, g *model.GraphData) error {
	f.gd = g
	return nil
}
func (f *fakeGraphStore) DeleteGraphData(context.Context, string) error { return nil }
func (f *fakeGraphStore) ReplaceContents(_ context.Context, _ string, nodes []*model.GraphNode, edges []*model.GraphEdge, layers []*model.GraphLayer) error {
	f.nodes, f.edges, f.layers = nodes, edges, layers
	return nil
}
func (f *fakeGraphStore) LoadContents(context.Context, string) ([]*model.GraphNode, []*model.GraphEdge, []*model.GraphLayer, error) {
	return f.nodes, f.edges, f.layers, nil
}
func (f *fakeGraphStore) DownstreamOf(context.Context, string) ([]*model.GraphData, error) {
	return nil, nil
}
func (f *fakeGraphStore) UpsertLayerPalette(context.Context, *model.ProjectLayerPalette) error {
	return nil
}
func (f *fakeGraphStore) GetLayerPalette(context.Context, string, string) (*model.ProjectLayerPalette, error) {
	return nil, model.Wrap(model.ErrNotFound, "no palette")
}

func newTestService() (*Service, *fakeEditStore, *fakeGraphStore) {
	es := newFakeEditStore()
	gs := &fakeGraphStore{gd: &model.GraphData{ID: "g1", Status: model.GraphDataActive}}
	return NewService(es, gs, nil), es, gs
}

func TestRecordEdit_MarksPendingAndAssignsSeq(t *testing.T) {
	svc, _, gs := newTestService()
	e1, err := svc.RecordEdit(context.Background(), "g1", model.TargetNode, "A", model.OpCreate, "", nil, map[string]any{"label": "Alpha"}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), e1.Seq)

	e2, err := svc.RecordEdit(context.Background(), "g1", model.TargetNode, "B", model.OpCreate, "", nil, map[string]any{"label": "Beta"}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), e2.Seq)
	assert.True(t, gs.gd.HasPendingEdits)
}

func TestReplay_NodeCreateThenSkipOnSecondReplay(t *testing.T) {
	svc, _, gs := newTestService()
	_, err := svc.RecordEdit(context.Background(), "g1", model.TargetNode, "A", model.OpCreate, "", nil, map[string]any{"label": "Alpha"}, false)
	require.NoError(t, err)

	summary, err := svc.Replay(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Applied)
	require.Len(t, gs.nodes, 1)
	assert.Equal(t, "Alpha", gs.nodes[0].Label)

	// A second replay without rebuilding in between finds the node already
	// present and skips the create (idempotent no-op).
	summary, err = svc.Replay(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Applied)
}

func TestReplay_EdgeCreateFailsOnMissingEndpoint(t *testing.T) {
	svc, _, gs := newTestService()
	_, err := svc.RecordEdit(context.Background(), "g1", model.TargetEdge, "e1", model.OpCreate, "", nil,
		map[string]any{"source": "A", "target": "B"}, false)
	require.NoError(t, err)

	summary, err := svc.Replay(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Empty(t, gs.edges)
}

func TestReplay_NodeDeleteCascadesIncidentEdges(t *testing.T) {
	svc, _, gs := newTestService()
	gs.nodes = []*model.GraphNode{{ExternalID: "A"}, {ExternalID: "B"}}
	gs.edges = []*model.GraphEdge{{ExternalID: "e1", Source: "A", Target: "B"}}

	_, err := svc.RecordEdit(context.Background(), "g1", model.TargetNode, "A", model.OpDelete, "", nil, nil, false)
	require.NoError(t, err)

	summary, err := svc.Replay(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Applied)
	assert.Empty(t, gs.edges)
	require.Len(t, gs.nodes, 1)
	assert.Equal(t, "B", gs.nodes[0].ExternalID)
}

func TestReplay_GraphUpdateRenamesGraph(t *testing.T) {
	svc, _, gs := newTestService()
	_, err := svc.RecordEdit(context.Background(), "g1", model.TargetGraph, "", model.OpUpdate, "name", "old", "New Name", false)
	require.NoError(t, err)

	_, err = svc.Replay(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "New Name", gs.gd.Name)
}

func TestReplay_NullUpdateOnRequiredFieldSkipsRatherThanFails(t *testing.T) {
	svc, _, gs := newTestService()
	gs.nodes = []*model.GraphNode{{ExternalID: "A", Label: "Alpha"}}

	_, err := svc.RecordEdit(context.Background(), "g1", model.TargetNode, "A", model.OpUpdate, "label", "Alpha", nil, false)
	require.NoError(t, err)

	summary, err := svc.Replay(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, "Alpha", gs.nodes[0].Label)
}

func TestClearEdits_WipesJournalAndClearsPendingFlag(t *testing.T) {
	svc, es, gs := newTestService()
	_, err := svc.RecordEdit(context.Background(), "g1", model.TargetNode, "A", model.OpCreate, "", nil, map[string]any{}, false)
	require.NoError(t, err)
	require.True(t, gs.gd.HasPendingEdits)

	require.NoError(t, svc.ClearEdits(context.Background(), "g1"))
	entries, _ := es.ListEdits(context.Background(), "g1")
	assert.Empty(t, entries)
	assert.False(t, gs.gd.HasPendingEdits)
}
