package dag

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layercake/layercake/internal/model"
	"github.com/layercake/layercake/internal/store/memory"
)

type fakeDatasetStore struct {
	byID map[string]*model.Dataset
}

func (f *fakeDatasetStore) CreateDataset(context.Context, *model.Dataset) error { return nil }
func (f *fakeDatasetStore) GetDataset(_ context.Context, id string) (*model.Dataset, error) {
	ds, ok := f.byID[id]
	if !ok {
		return nil, model.Wrap(model.ErrNotFound, "dataset %s", id)
	}
	return ds, nil
}
func (f *fakeDatasetStore) ListDatasets(context.Context, string) ([]*model.Dataset, error) {
	return nil, nil
}
func (f *fakeDatasetStore) UpdateDataset(_ context.Context, d *model.Dataset) error {
	f.byID[d.ID] = d
	return nil
}
func (f *fakeDatasetStore) DeleteDataset(_ context.Context, id string) error {
	delete(f.byID, id)
	return nil
}

type fakeGraphStore struct {
	byID   map[string]*model.GraphData
	byNode map[string]string
	nodes  map[string][]*model.GraphNode
	edges  map[string][]*model.GraphEdge
	layers map[string][]*model.GraphLayer
}

func newFakeGraphStore() *fakeGraphStore {
	return &fakeGraphStore{
		byID:   map[string]*model.GraphData{},
		byNode: map[string]string{},
		nodes:  map[string][]*model.GraphNode{},
		edges:  map[string][]*model.GraphEdge{},
		layers: map[string][]*model.GraphLayer{},
	}
}

func (f *fakeGraphStore) CreateGraphData(_ context.Context, g *model.GraphData) error {
	f.byID[g.ID] = g
	f.byNode[g.DagNodeID] = g.ID
	return nil
}
func (f *fakeGraphStore) GetGraphData(_ context.Context, id string) (*model.GraphData, error) {
	g, ok := f.byID[id]
	if !ok {
		return nil, model.Wrap(model.ErrNotFound, "graph data %s", id)
	}
	return g, nil
}
func (f *fakeGraphStore) GetGraphDataByNode(_ context.Context, dagNodeID string) (*model.GraphData, error) {
	id, ok := f.byNode[dagNodeID]
	if !ok {
		return nil, model.Wrap(model.ErrNotFound, "graph data for node %s", dagNodeID)
	}
	return f.byID[id], nil
}
func (f *fakeGraphStore) ListGraphData(_ context.Context, projectID string) ([]*model.GraphData, error) {
	var out []*model.GraphData
	for _, g := range f.byID {
		if g.ProjectID == projectID {
			out = append(out, g)
		}
	}
	return out, nil
}
func (f *fakeGraphStore) UpdateGraphData(_ context.Context, g *model.GraphData) error {
	f.byID[g.ID] = g
	f.byNode[g.DagNodeID] = g.ID
	return nil
}
func (f *fakeGraphStore) DeleteGraphData(_ context.Context, id string) error {
	delete(f.byID, id)
	return nil
}
func (f *fakeGraphStore) ReplaceContents(_ context.Context, graphDataID string, nodes []*model.GraphNode, edges []*model.GraphEdge, layers []*model.GraphLayer) error {
	f.nodes[graphDataID] = nodes
	f.edges[graphDataID] = edges
	f.layers[graphDataID] = layers
	return nil
}
func (f *fakeGraphStore) LoadContents(_ context.Context, graphDataID string) ([]*model.GraphNode, []*model.GraphEdge, []*model.GraphLayer, error) {
	return f.nodes[graphDataID], f.edges[graphDataID], f.layers[graphDataID], nil
}
func (f *fakeGraphStore) DownstreamOf(context.Context, string) ([]*model.GraphData, error) { return nil, nil }
func (f *fakeGraphStore) UpsertLayerPalette(context.Context, *model.ProjectLayerPalette) error {
	return nil
}
func (f *fakeGraphStore) GetLayerPalette(context.Context, string, string) (*model.ProjectLayerPalette, error) {
	return nil, model.Wrap(model.ErrNotFound, "no palette entry")
}

func weightPtr(f float64) *float64 { return &f }

func datasetNode(id, datasetID string) *model.PlanDagNode {
	return &model.PlanDagNode{
		ID:       id,
		NodeType: model.NodeTypeDataSet,
		Metadata: model.NodeMetadata{Label: id},
		Config:   model.NodeConfig{Kind: model.NodeTypeDataSet, DataSet: &model.DataSetNodeConfig{DatasetID: datasetID}},
	}
}

func graphNode(id string) *model.PlanDagNode {
	return &model.PlanDagNode{
		ID:       id,
		NodeType: model.NodeTypeGraph,
		Metadata: model.NodeMetadata{Label: id},
		Config:   model.NodeConfig{Kind: model.NodeTypeGraph},
	}
}

func edge(id, from, to string) *model.PlanDagEdge {
	return &model.PlanDagEdge{ID: id, SourceNodeID: from, TargetNodeID: to}
}

func TestExecuteDAG_DataSetThenGraphNode(t *testing.T) {
	datasets := &fakeDatasetStore{byID: map[string]*model.Dataset{
		"ds-1": {
			ID: "ds-1", Status: model.DatasetActive, Filename: "nodes.csv",
			DataType: model.DataTypeNodes, ProcessedAt: time.Unix(1, 0),
			GraphJSON: &model.NormalForm{Nodes: []model.NormalNode{{ID: "A", Label: "Alpha", Weight: weightPtr(1)}}},
		},
	}}
	graphs := newFakeGraphStore()
	exec := NewExecutor(datasets, graphs, nil, nil, nil, nil, nil, nil)

	nodes := []*model.PlanDagNode{datasetNode("n-ds", "ds-1"), graphNode("n-graph")}
	edges := []*model.PlanDagEdge{edge("e1", "n-ds", "n-graph")}

	err := exec.ExecuteDAG(context.Background(), "proj-1", "plan-1", nodes, edges)
	require.NoError(t, err)

	gd, err := graphs.GetGraphDataByNode(context.Background(), "n-graph")
	require.NoError(t, err)
	assert.Equal(t, model.GraphDataActive, gd.Status)
	assert.Equal(t, 1, gd.NodeCount)
}

func TestExecuteDAG_CyclicPlanFails(t *testing.T) {
	datasets := &fakeDatasetStore{byID: map[string]*model.Dataset{}}
	graphs := newFakeGraphStore()
	exec := NewExecutor(datasets, graphs, nil, nil, nil, nil, nil, nil)

	nodes := []*model.PlanDagNode{graphNode("a"), graphNode("b")}
	edges := []*model.PlanDagEdge{edge("e1", "a", "b"), edge("e2", "b", "a")}

	err := exec.ExecuteDAG(context.Background(), "proj-1", "plan-1", nodes, edges)
	assert.ErrorIs(t, err, model.ErrCyclicPlan)
}

func TestExecuteDAG_UpstreamNotReadyDoesNotAbortSiblings(t *testing.T) {
	datasets := &fakeDatasetStore{byID: map[string]*model.Dataset{
		"ds-bad": {ID: "ds-bad", Status: model.DatasetError, DataType: model.DataTypeNodes},
	}}
	graphs := newFakeGraphStore()
	exec := NewExecutor(datasets, graphs, nil, nil, nil, nil, nil, nil)

	nodes := []*model.PlanDagNode{
		datasetNode("n-bad", "ds-bad"),
		graphNode("n-downstream"),
		graphNode("n-independent"),
	}
	edges := []*model.PlanDagEdge{edge("e1", "n-bad", "n-downstream")}

	err := exec.ExecuteDAG(context.Background(), "proj-1", "plan-1", nodes, edges)
	require.NoError(t, err)

	downstream, err := graphs.GetGraphDataByNode(context.Background(), "n-downstream")
	require.NoError(t, err)
	assert.Equal(t, model.GraphDataError, downstream.Status)
	assert.NotEmpty(t, downstream.ErrorMessage)

	gd, err := graphs.GetGraphDataByNode(context.Background(), "n-independent")
	require.NoError(t, err)
	assert.Equal(t, model.GraphDataActive, gd.Status)
}

func TestExecuteWithDependencies_RestrictsToAncestors(t *testing.T) {
	datasets := &fakeDatasetStore{byID: map[string]*model.Dataset{
		"ds-1": {
			ID: "ds-1", Status: model.DatasetActive, DataType: model.DataTypeNodes, ProcessedAt: time.Unix(1, 0),
			GraphJSON: &model.NormalForm{Nodes: []model.NormalNode{{ID: "A"}}},
		},
	}}
	graphs := newFakeGraphStore()
	exec := NewExecutor(datasets, graphs, nil, nil, nil, nil, nil, nil)

	nodes := []*model.PlanDagNode{
		datasetNode("n-ds", "ds-1"),
		graphNode("n-target"),
		graphNode("n-unrelated"),
	}
	edges := []*model.PlanDagEdge{edge("e1", "n-ds", "n-target")}

	err := exec.ExecuteWithDependencies(context.Background(), "proj-1", "plan-1", "n-target", nodes, edges)
	require.NoError(t, err)

	_, err = graphs.GetGraphDataByNode(context.Background(), "n-target")
	assert.NoError(t, err)
	_, err = graphs.GetGraphDataByNode(context.Background(), "n-unrelated")
	assert.Error(t, err)
}

func TestExecuteAffectedNodes_RestrictsToDescendants(t *testing.T) {
	datasets := &fakeDatasetStore{byID: map[string]*model.Dataset{
		"ds-1": {
			ID: "ds-1", Status: model.DatasetActive, DataType: model.DataTypeNodes, ProcessedAt: time.Unix(1, 0),
			GraphJSON: &model.NormalForm{Nodes: []model.NormalNode{{ID: "A"}}},
		},
	}}
	graphs := newFakeGraphStore()
	exec := NewExecutor(datasets, graphs, nil, nil, nil, nil, nil, nil)

	nodes := []*model.PlanDagNode{
		datasetNode("n-ds", "ds-1"),
		graphNode("n-downstream"),
		graphNode("n-unrelated"),
	}
	edges := []*model.PlanDagEdge{edge("e1", "n-ds", "n-downstream")}

	err := exec.ExecuteAffectedNodes(context.Background(), "proj-1", "plan-1", "n-ds", nodes, edges)
	require.NoError(t, err)

	_, err = graphs.GetGraphDataByNode(context.Background(), "n-downstream")
	assert.NoError(t, err)
	_, err = graphs.GetGraphDataByNode(context.Background(), "n-unrelated")
	assert.Error(t, err)
}

func TestExecuteDAG_CancelledBeforeStartHalts(t *testing.T) {
	datasets := &fakeDatasetStore{byID: map[string]*model.Dataset{}}
	graphs := newFakeGraphStore()
	canceller := NewCanceller()
	canceller.Stop("proj-1", "plan-1")
	exec := NewExecutor(datasets, graphs, nil, nil, nil, nil, canceller, nil)

	nodes := []*model.PlanDagNode{graphNode("n-graph")}

	err := exec.ExecuteDAG(context.Background(), "proj-1", "plan-1", nodes, nil)
	assert.ErrorIs(t, err, model.ErrCancelled)
}

func TestExecuteDAG_PersistsPlanStatus(t *testing.T) {
	plans := memory.New(nil)
	require.NoError(t, plans.CreatePlan(context.Background(), &model.Plan{ID: "plan-1", ProjectID: "proj-1", Status: model.PlanDraft}))

	datasets := &fakeDatasetStore{byID: map[string]*model.Dataset{
		"ds-1": {
			ID: "ds-1", Status: model.DatasetActive, DataType: model.DataTypeNodes, ProcessedAt: time.Unix(1, 0),
			GraphJSON: &model.NormalForm{Nodes: []model.NormalNode{{ID: "A"}}},
		},
	}}
	graphs := newFakeGraphStore()
	exec := NewExecutor(datasets, graphs, plans, nil, nil, nil, nil, nil)

	nodes := []*model.PlanDagNode{datasetNode("n-ds", "ds-1"), graphNode("n-graph")}
	edges := []*model.PlanDagEdge{edge("e1", "n-ds", "n-graph")}

	require.NoError(t, exec.ExecuteDAG(context.Background(), "proj-1", "plan-1", nodes, edges))

	p, err := plans.GetPlan(context.Background(), "plan-1")
	require.NoError(t, err)
	assert.Equal(t, model.PlanExecuted, p.Status)
}

func TestExecuteDAG_PersistsPlanErrorOnNodeFailure(t *testing.T) {
	plans := memory.New(nil)
	require.NoError(t, plans.CreatePlan(context.Background(), &model.Plan{ID: "plan-1", ProjectID: "proj-1", Status: model.PlanDraft}))

	datasets := &fakeDatasetStore{byID: map[string]*model.Dataset{
		"ds-bad": {ID: "ds-bad", Status: model.DatasetError, DataType: model.DataTypeNodes},
	}}
	graphs := newFakeGraphStore()
	exec := NewExecutor(datasets, graphs, plans, nil, nil, nil, nil, nil)

	nodes := []*model.PlanDagNode{datasetNode("n-bad", "ds-bad")}

	require.NoError(t, exec.ExecuteDAG(context.Background(), "proj-1", "plan-1", nodes, nil))

	p, err := plans.GetPlan(context.Background(), "plan-1")
	require.NoError(t, err)
	assert.Equal(t, model.PlanError, p.Status)
}
