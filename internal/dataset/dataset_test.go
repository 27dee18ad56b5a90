package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layercake/layercake/internal/model"
)

// fakeDatasetStore is a minimal in-memory store.DatasetStore/PlanStore/
// GraphDataStore for exercising Service without a real backend.
type fakeDatasetStore struct {
	datasets map[string]*model.Dataset
}

func newFakeDatasetStore() *fakeDatasetStore {
	return &fakeDatasetStore{datasets: map[string]*model.Dataset{}}
}

func (f *fakeDatasetStore) CreateDataset(_ context.Context, d *model.Dataset) error {
	f.datasets[d.ID] = d
	return nil
}
func (f *fakeDatasetStore) GetDataset(_ context.Context, id string) (*model.Dataset, error) {
	d, ok := f.datasets[id]
	if !ok {
		return nil, model.Wrap(model.ErrNotFound, "dataset %s", id)
	}
	return d, nil
}
func (f *fakeDatasetStore) ListDatasets(_ context.Context, projectID string) ([]*model.Dataset, error) {
	var out []*model.Dataset
	for _, d := range f.datasets {
		if d.ProjectID == projectID {
			out = append(out, d)
		}
	}
	return out, nil
}
func (f *fakeDatasetStore) UpdateDataset(_ context.Context, d *model.Dataset) error {
	f.datasets[d.ID] = d
	return nil
}
func (f *fakeDatasetStore) DeleteDataset(_ context.Context, id string) error {
	delete(f.datasets, id)
	return nil
}

func newService() (*Service, *fakeDatasetStore) {
	fs := newFakeDatasetStore()
	return NewService(fs, nil, nil, nil, nil), fs
}

func TestCreateFromFile_CSVNodesInferred(t *testing.T) {
	svc, _ := newService()
	blob := []byte("id,label,weight\nA,Alpha,2\nB,,\n")

	ds, err := svc.CreateFromFile(context.Background(), "proj-1", "nodes", "", "nodes.csv", model.FormatCSV, blob, nil)
	require.NoError(t, err)
	assert.Equal(t, model.DataTypeNodes, ds.DataType)
	assert.Equal(t, model.DatasetActive, ds.Status)
	require.Len(t, ds.GraphJSON.Nodes, 2)
	assert.Equal(t, "Alpha", ds.GraphJSON.Nodes[0].Label)
	assert.Equal(t, "B", ds.GraphJSON.Nodes[1].Label) // missing label defaults to id
	assert.Equal(t, 2.0, *ds.GraphJSON.Nodes[0].Weight)
	assert.Equal(t, 1.0, *ds.GraphJSON.Nodes[1].Weight) // missing weight defaults to 1
}

func TestCreateFromFile_CSVEdgesInferred(t *testing.T) {
	svc, _ := newService()
	blob := []byte("id,source,target\ne1,A,B\n")

	ds, err := svc.CreateFromFile(context.Background(), "proj-1", "edges", "", "edges.csv", model.FormatCSV, blob, nil)
	require.NoError(t, err)
	assert.Equal(t, model.DataTypeEdges, ds.DataType)
	require.Len(t, ds.GraphJSON.Edges, 1)
	assert.Equal(t, "A", ds.GraphJSON.Edges[0].Source)
	assert.Equal(t, "B", ds.GraphJSON.Edges[0].Target)
}

func TestCreateFromFile_CSVLayersInferred(t *testing.T) {
	svc, _ := newService()
	blob := []byte("id,name,color\nL1,Core,#ff0000\n")

	ds, err := svc.CreateFromFile(context.Background(), "proj-1", "layers", "", "layers.csv", model.FormatCSV, blob, nil)
	require.NoError(t, err)
	assert.Equal(t, model.DataTypeLayers, ds.DataType)
	require.Len(t, ds.GraphJSON.Layers, 1)
	assert.Equal(t, "l1", ds.GraphJSON.Layers[0].ID) // normalized to lowercase
}

func TestCreateFromFile_ExtensionMismatch(t *testing.T) {
	svc, _ := newService()
	_, err := svc.CreateFromFile(context.Background(), "proj-1", "x", "", "nodes.csv", model.FormatJSON, []byte("{}"), nil)
	assert.ErrorIs(t, err, model.ErrUnsupportedFormat)
}

func TestCreateFromFile_DeclaredDataTypeIncompatible(t *testing.T) {
	svc, _ := newService()
	graphType := model.DataTypeGraph
	_, err := svc.CreateFromFile(context.Background(), "proj-1", "x", "", "nodes.csv", model.FormatCSV, []byte("id\nA\n"), &graphType)
	assert.ErrorIs(t, err, model.ErrUnsupportedFormat)
}

func TestCreateFromFile_JSONGraphForm(t *testing.T) {
	svc, _ := newService()
	blob := []byte(`{"nodes":[{"id":"A"}],"edges":[{"id":"e1","source":"A","target":"A"}]}`)
	ds, err := svc.CreateFromFile(context.Background(), "proj-1", "g", "", "g.json", model.FormatJSON, blob, nil)
	require.NoError(t, err)
	assert.Equal(t, model.DataTypeGraph, ds.DataType)
	require.Len(t, ds.GraphJSON.Nodes, 1)
	require.Len(t, ds.GraphJSON.Edges, 1)
}

func TestCreateFromFile_JSONAmbiguous(t *testing.T) {
	svc, _ := newService()
	blob := []byte(`{"foo":"bar"}`)
	_, err := svc.CreateFromFile(context.Background(), "proj-1", "g", "", "g.json", model.FormatJSON, blob, nil)
	assert.ErrorIs(t, err, model.ErrAmbiguousDataType)
}

func TestCreateEmpty(t *testing.T) {
	svc, _ := newService()
	ds, err := svc.CreateEmpty(context.Background(), "proj-1", "manual", "")
	require.NoError(t, err)
	assert.Equal(t, model.DatasetActive, ds.Status)
	assert.Equal(t, model.DataTypeGraph, ds.DataType)
	assert.Equal(t, "manual_edit", ds.Origin)
	assert.NotNil(t, ds.GraphJSON)
	assert.Empty(t, ds.GraphJSON.Nodes)
}

func TestUpdateGraphData(t *testing.T) {
	svc, store := newService()
	ds, err := svc.CreateEmpty(context.Background(), "proj-1", "manual", "")
	require.NoError(t, err)

	nf := &model.NormalForm{Nodes: []model.NormalNode{{ID: "A"}}}
	updated, err := svc.UpdateGraphData(context.Background(), ds.ID, nf)
	require.NoError(t, err)
	require.Len(t, updated.GraphJSON.Nodes, 1)
	assert.Equal(t, 1.0, *updated.GraphJSON.Nodes[0].Weight)
	assert.Same(t, updated, store.datasets[ds.ID])
}

func TestValidate_DanglingEdge(t *testing.T) {
	svc, _ := newService()
	blob := []byte(`{"nodes":[{"id":"A"}],"edges":[{"id":"e1","source":"A","target":"missing"}]}`)
	ds, err := svc.CreateFromFile(context.Background(), "proj-1", "g", "", "g.json", model.FormatJSON, blob, nil)
	require.NoError(t, err)

	result, err := svc.Validate(context.Background(), ds.ID)
	require.NoError(t, err)
	assert.False(t, result.OK())
	assert.NotEmpty(t, result.Errors)
}

func TestDelete_NoPlanStore(t *testing.T) {
	svc, store := newService()
	ds, err := svc.CreateEmpty(context.Background(), "proj-1", "manual", "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), ds.ID))
	_, ok := store.datasets[ds.ID]
	assert.False(t, ok)
}
