package build

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layercake/layercake/internal/model"
)

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

type fakeResolver struct {
	sources map[string]UpstreamSource
}

func (f *fakeResolver) ResolveUpstream(_ context.Context, id string) (UpstreamSource, error) {
	src, ok := f.sources[id]
	if !ok {
		return UpstreamSource{}, model.Wrap(model.ErrUpstreamNotReady, "no such upstream %s", id)
	}
	return src, nil
}

func weightPtr(f float64) *float64 { return &f }

func TestBuildGraph_MergesNodesAndEdges(t *testing.T) {
	graphs := newFakeGraphStore()
	resolver := &fakeResolver{sources: map[string]UpstreamSource{
		"ds-nodes": {
			ID: "ds-nodes", Filename: "nodes.csv", ProcessedAt: time.Unix(100, 0), DataType: model.DataTypeNodes,
			NormalForm: &model.NormalForm{Nodes: []model.NormalNode{{ID: "A", Label: "Alpha", Weight: weightPtr(1)}}},
		},
		"ds-edges": {
			ID: "ds-edges", Filename: "edges.csv", ProcessedAt: time.Unix(200, 0), DataType: model.DataTypeEdges,
			NormalForm: &model.NormalForm{Edges: []model.NormalEdge{{ID: "e1", Source: "A", Target: "A", Weight: weightPtr(1)}}},
		},
	}}
	engine := NewEngine(graphs, resolver, nil, nil, nil)

	gd, err := engine.BuildGraph(context.Background(), "proj-1", "node-1", "Graph 1", []string{"ds-nodes", "ds-edges"})
	require.NoError(t, err)
	assert.Equal(t, model.GraphDataActive, gd.Status)
	assert.Equal(t, 1, gd.NodeCount)
	assert.Equal(t, 1, gd.EdgeCount)
	assert.NotEmpty(t, gd.SourceHash)
}

func TestBuildGraph_CacheHitSkipsRebuild(t *testing.T) {
	graphs := newFakeGraphStore()
	source := UpstreamSource{
		ID: "ds-1", Filename: "nodes.csv", ProcessedAt: time.Unix(100, 0), DataType: model.DataTypeNodes,
		NormalForm: &model.NormalForm{Nodes: []model.NormalNode{{ID: "A"}}},
	}
	resolver := &fakeResolver{sources: map[string]UpstreamSource{"ds-1": source}}
	engine := NewEngine(graphs, resolver, nil, nil, nil)

	first, err := engine.BuildGraph(context.Background(), "proj-1", "node-1", "Graph 1", []string{"ds-1"})
	require.NoError(t, err)

	second, err := engine.BuildGraph(context.Background(), "proj-1", "node-1", "Graph 1", []string{"ds-1"})
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestBuildGraph_DanglingEdgeFails(t *testing.T) {
	graphs := newFakeGraphStore()
	resolver := &fakeResolver{sources: map[string]UpstreamSource{
		"ds-1": {
			ID: "ds-1", Filename: "g.json", ProcessedAt: time.Unix(1, 0), DataType: model.DataTypeGraph,
			NormalForm: &model.NormalForm{
				Nodes: []model.NormalNode{{ID: "A"}},
				Edges: []model.NormalEdge{{ID: "e1", Source: "A", Target: "missing"}},
			},
		},
	}}
	engine := NewEngine(graphs, resolver, nil, nil, nil)

	_, err := engine.BuildGraph(context.Background(), "proj-1", "node-1", "Graph 1", []string{"ds-1"})
	assert.ErrorIs(t, err, model.ErrDanglingEdge)
}

func TestBuildGraph_UpstreamNotReady(t *testing.T) {
	graphs := newFakeGraphStore()
	resolver := &fakeResolver{sources: map[string]UpstreamSource{}}
	engine := NewEngine(graphs, resolver, nil, nil, nil)

	_, err := engine.BuildGraph(context.Background(), "proj-1", "node-1", "Graph 1", []string{"missing"})
	assert.ErrorIs(t, err, model.ErrUpstreamNotReady)

	gd, getErr := graphs.GetGraphDataByNode(context.Background(), "node-1")
	require.NoError(t, getErr)
	assert.Equal(t, model.GraphDataError, gd.Status)
	assert.NotEmpty(t, gd.ErrorMessage)
}

func TestBuildGraph_UpstreamGoesNotReadyOnRebuildMarksExistingGraphDataError(t *testing.T) {
	graphs := newFakeGraphStore()
	source := UpstreamSource{
		ID: "ds-1", Filename: "nodes.csv", ProcessedAt: time.Unix(100, 0), DataType: model.DataTypeNodes,
		NormalForm: &model.NormalForm{Nodes: []model.NormalNode{{ID: "A"}}},
	}
	resolver := &fakeResolver{sources: map[string]UpstreamSource{"ds-1": source}}
	engine := NewEngine(graphs, resolver, nil, nil, nil)

	first, err := engine.BuildGraph(context.Background(), "proj-1", "node-1", "Graph 1", []string{"ds-1"})
	require.NoError(t, err)
	require.Equal(t, model.GraphDataActive, first.Status)

	delete(resolver.sources, "ds-1")
	_, err = engine.BuildGraph(context.Background(), "proj-1", "node-1", "Graph 1", []string{"ds-1"})
	assert.ErrorIs(t, err, model.ErrUpstreamNotReady)

	gd, getErr := graphs.GetGraphDataByNode(context.Background(), "node-1")
	require.NoError(t, getErr)
	assert.Equal(t, model.GraphDataError, gd.Status)
	assert.Equal(t, first.ID, gd.ID)
}
