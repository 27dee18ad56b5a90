package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layercake/layercake/internal/graphmodel"
	"github.com/layercake/layercake/internal/model"
)

func sampleGraph() *graphmodel.Graph {
	g := graphmodel.New("g1")
	g.UpsertLayer(&model.GraphLayer{LayerID: "team", Name: "Team", BackgroundColor: "#111"})
	g.UpsertLayer(&model.GraphLayer{LayerID: "person", Name: "Person"})
	g.UpsertNode(&model.GraphNode{ExternalID: "team-a", Label: "Team A", Layer: "team", IsPartition: true})
	g.UpsertNode(&model.GraphNode{ExternalID: "alice", Label: "Alice", Layer: "person", BelongsTo: "team-a", Weight: 2})
	g.UpsertNode(&model.GraphNode{ExternalID: "bob", Label: "Bob", Layer: "person", Weight: 1})
	g.AppendEdge(&model.GraphEdge{ExternalID: "e1", Source: "alice", Target: "bob", Label: "knows", Weight: 3})
	return g
}

func TestForTarget_UnsupportedSequenceTarget(t *testing.T) {
	_, err := ForTarget(model.TargetMermaidSequence)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnsupportedFormat)
}

func TestRenderGML_Deterministic(t *testing.T) {
	g := sampleGraph()
	out1, err := RenderGML(g, model.RenderConfig{UseNodeWeight: true, UseEdgeWeight: true})
	require.NoError(t, err)
	out2, err := RenderGML(g, model.RenderConfig{UseNodeWeight: true, UseEdgeWeight: true})
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
	assert.Contains(t, out1, "directed 1")
	assert.Contains(t, out1, `label "Alice"`)
}

func TestRenderJSON_RoundTripsNormalForm(t *testing.T) {
	g := sampleGraph()
	out, err := RenderJSON(g, model.RenderConfig{})
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "alice"`)
	assert.Contains(t, out, `"id": "e1"`)
}

func TestRenderCSVNodes_TruncatesToHeaderPlusMaxRows(t *testing.T) {
	g := sampleGraph()
	zero := 0
	out, err := RenderCSVNodes(g, model.RenderConfig{MaxRows: &zero})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 1) // header only

	one := 1
	out, err = RenderCSVNodes(g, model.RenderConfig{MaxRows: &one})
	require.NoError(t, err)
	lines = strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 2) // header + 1 data row
}

func TestRenderCSVMatrix_IgnoresMaxRows(t *testing.T) {
	g := sampleGraph()
	zero := 0
	out, err := RenderCSVMatrix(g, model.RenderConfig{MaxRows: &zero, UseEdgeWeight: true})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// header + one row per non-partition node, unaffected by max_rows=0
	assert.Len(t, lines, 3)
}

func TestRenderMermaid_AppliesLayerStyles(t *testing.T) {
	g := sampleGraph()
	out, err := RenderMermaid(g, model.RenderConfig{ApplyLayers: true, BuiltInStyles: model.StyleLight})
	require.NoError(t, err)
	assert.Contains(t, out, "flowchart TB")
	assert.Contains(t, out, "style alice")
}

func TestRenderDOT_ContainNodesNestsClusters(t *testing.T) {
	g := sampleGraph()
	out, err := RenderDOT(g, model.RenderConfig{ContainNodes: true})
	require.NoError(t, err)
	assert.Contains(t, out, "subgraph cluster_team-a")
	assert.Contains(t, out, "alice -> bob")
}

func TestRenderDOTHierarchy_OnlyPartitionTree(t *testing.T) {
	g := sampleGraph()
	out, err := RenderDOTHierarchy(g, model.RenderConfig{})
	require.NoError(t, err)
	assert.Contains(t, out, "cluster_team-a")
}

func TestRenderPlantUML_Basic(t *testing.T) {
	g := sampleGraph()
	out, err := RenderPlantUML(g, model.RenderConfig{})
	require.NoError(t, err)
	assert.Contains(t, out, "@startuml")
	assert.Contains(t, out, "@enduml")
}

func TestRenderMermaidMindmap_WalksPartitionTree(t *testing.T) {
	g := sampleGraph()
	out, err := RenderMermaidMindmap(g, model.RenderConfig{})
	require.NoError(t, err)
	assert.Contains(t, out, "mindmap")
	assert.Contains(t, out, "Team A")
}

func TestRenderCustom_ExecutesUserTemplateWithPartial(t *testing.T) {
	g := sampleGraph()
	cfg := model.RenderConfig{
		CustomTemplate: "{{#each Nodes}}{{> nodeLine this}}{{/each}}",
		CustomPartials: map[string]string{"nodeLine": "{{this.Label}};"},
	}
	out, err := RenderCustom(g, cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Alice;")
	assert.NotContains(t, out, "Team A;") // partition filtered out of Nodes
}

func TestRenderCustom_RequiresTemplate(t *testing.T) {
	g := sampleGraph()
	_, err := RenderCustom(g, model.RenderConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}
