// Package memory implements store.Store entirely in process memory, modeled
// on the teacher's store/memory in-memory CheckpointStore: no schema, no
// driver, just mutex-guarded maps. Useful for tests and local CLI runs with
// --store memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/layercake/layercake/internal/log"
	"github.com/layercake/layercake/internal/model"
	"github.com/layercake/layercake/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store. All methods are
// safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	projects map[string]*model.Project
	datasets map[string]*model.Dataset
	plans    map[string]*model.Plan
	nodes    map[string]*model.PlanDagNode
	edges    map[string]*model.PlanDagEdge

	graphData    map[string]*model.GraphData
	graphNodes   map[string]map[string]*model.GraphNode
	graphEdges   map[string]map[string]*model.GraphEdge
	graphLayers  map[string]map[string]*model.GraphLayer
	layerPalette map[string]*model.ProjectLayerPalette

	edits map[string][]*model.GraphEdit

	stories   map[string]*model.Story
	sequences map[string]*model.Sequence

	logger log.Logger
}

// New creates an empty in-memory Store.
func New(logger log.Logger) *Store {
	if logger == nil {
		logger = log.NoOpLogger{}
	}
	return &Store{
		projects:     make(map[string]*model.Project),
		datasets:     make(map[string]*model.Dataset),
		plans:        make(map[string]*model.Plan),
		nodes:        make(map[string]*model.PlanDagNode),
		edges:        make(map[string]*model.PlanDagEdge),
		graphData:    make(map[string]*model.GraphData),
		graphNodes:   make(map[string]map[string]*model.GraphNode),
		graphEdges:   make(map[string]map[string]*model.GraphEdge),
		graphLayers:  make(map[string]map[string]*model.GraphLayer),
		layerPalette: make(map[string]*model.ProjectLayerPalette),
		edits:        make(map[string][]*model.GraphEdit),
		stories:      make(map[string]*model.Story),
		sequences:    make(map[string]*model.Sequence),
		logger:       logger,
	}
}

// --- ProjectStore ---

func (s *Store) CreateProject(_ context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *Store) GetProject(_ context.Context, id string) (*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, model.Wrap(model.ErrNotFound, "project %s", id)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListProjects(_ context.Context) ([]*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Project, 0, len(s.projects))
	for _, p := range s.projects {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteProject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects, id)
	return nil
}

// --- DatasetStore ---

func (s *Store) CreateDataset(_ context.Context, d *model.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.datasets[d.ID] = &cp
	return nil
}

func (s *Store) GetDataset(_ context.Context, id string) (*model.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.datasets[id]
	if !ok {
		return nil, model.Wrap(model.ErrNotFound, "dataset %s", id)
	}
	cp := *d
	return &cp, nil
}

func (s *Store) ListDatasets(_ context.Context, projectID string) ([]*model.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Dataset
	for _, d := range s.datasets {
		if d.ProjectID == projectID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateDataset(_ context.Context, d *model.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[d.ID]; !ok {
		return model.Wrap(model.ErrNotFound, "dataset %s", d.ID)
	}
	cp := *d
	s.datasets[d.ID] = &cp
	return nil
}

func (s *Store) DeleteDataset(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.datasets, id)
	return nil
}

// --- PlanStore ---

func (s *Store) CreatePlan(_ context.Context, p *model.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.plans[p.ID] = &cp
	return nil
}

func (s *Store) GetPlan(_ context.Context, id string) (*model.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, model.Wrap(model.ErrNotFound, "plan %s", id)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListPlans(_ context.Context, projectID string) ([]*model.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Plan
	for _, p := range s.plans {
		if p.ProjectID == projectID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdatePlan(_ context.Context, p *model.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[p.ID]; !ok {
		return model.Wrap(model.ErrNotFound, "plan %s", p.ID)
	}
	cp := *p
	s.plans[p.ID] = &cp
	return nil
}

func (s *Store) DeletePlan(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.plans, id)
	return nil
}

func (s *Store) CreateNode(_ context.Context, n *model.PlanDagNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.nodes[n.ID] = &cp
	return nil
}

func (s *Store) GetNode(_ context.Context, id string) (*model.PlanDagNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, model.Wrap(model.ErrNotFound, "node %s", id)
	}
	cp := *n
	return &cp, nil
}

func (s *Store) ListNodes(_ context.Context, planID string) ([]*model.PlanDagNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.PlanDagNode
	for _, n := range s.nodes {
		if n.PlanID == planID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateNode(_ context.Context, n *model.PlanDagNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[n.ID]; !ok {
		return model.Wrap(model.ErrNotFound, "node %s", n.ID)
	}
	cp := *n
	s.nodes[n.ID] = &cp
	return nil
}

func (s *Store) DeleteNode(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, id)
	return nil
}

func (s *Store) NodesReferencingDataset(_ context.Context, datasetID string) ([]*model.PlanDagNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.PlanDagNode
	for _, n := range s.nodes {
		if n.NodeType == model.NodeTypeDataSet && n.Config.DataSet != nil && n.Config.DataSet.DatasetID == datasetID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateEdge(_ context.Context, e *model.PlanDagEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.edges[e.ID] = &cp
	return nil
}

func (s *Store) ListEdges(_ context.Context, planID string) ([]*model.PlanDagEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.PlanDagEdge
	for _, e := range s.edges {
		if e.PlanID == planID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteEdge(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.edges, id)
	return nil
}

func (s *Store) DeleteIncidentEdges(_ context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.edges {
		if e.SourceNodeID == nodeID || e.TargetNodeID == nodeID {
			delete(s.edges, id)
		}
	}
	return nil
}

func (s *Store) ReplacePlanDag(_ context.Context, planID string, nodes []*model.PlanDagNode, edges []*model.PlanDagEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, n := range s.nodes {
		if n.PlanID == planID {
			delete(s.nodes, id)
		}
	}
	for id, e := range s.edges {
		if e.PlanID == planID {
			delete(s.edges, id)
		}
	}
	for _, n := range nodes {
		cp := *n
		s.nodes[n.ID] = &cp
	}
	for _, e := range edges {
		cp := *e
		s.edges[e.ID] = &cp
	}
	return nil
}

// --- GraphDataStore ---

func (s *Store) CreateGraphData(_ context.Context, g *model.GraphData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	s.graphData[g.ID] = &cp
	return nil
}

func (s *Store) GetGraphData(_ context.Context, id string) (*model.GraphData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphData[id]
	if !ok {
		return nil, model.Wrap(model.ErrNotFound, "graph data %s", id)
	}
	cp := *g
	return &cp, nil
}

func (s *Store) GetGraphDataByNode(_ context.Context, dagNodeID string) (*model.GraphData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.graphData {
		if g.DagNodeID == dagNodeID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, model.Wrap(model.ErrNotFound, "graph data for node %s", dagNodeID)
}

func (s *Store) ListGraphData(_ context.Context, projectID string) ([]*model.GraphData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.GraphData
	for _, g := range s.graphData {
		if g.ProjectID == projectID {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateGraphData(_ context.Context, g *model.GraphData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.graphData[g.ID]; !ok {
		return model.Wrap(model.ErrNotFound, "graph data %s", g.ID)
	}
	cp := *g
	s.graphData[g.ID] = &cp
	return nil
}

func (s *Store) DeleteGraphData(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.graphData, id)
	delete(s.graphNodes, id)
	delete(s.graphEdges, id)
	delete(s.graphLayers, id)
	return nil
}

func (s *Store) ReplaceContents(_ context.Context, graphDataID string, nodes []*model.GraphNode, edges []*model.GraphEdge, layers []*model.GraphLayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodeMap := make(map[string]*model.GraphNode, len(nodes))
	for _, n := range nodes {
		cp := *n
		nodeMap[n.ExternalID] = &cp
	}
	edgeMap := make(map[string]*model.GraphEdge, len(edges))
	for _, e := range edges {
		cp := *e
		edgeMap[e.ExternalID] = &cp
	}
	layerMap := make(map[string]*model.GraphLayer, len(layers))
	for _, l := range layers {
		cp := *l
		layerMap[l.LayerID] = &cp
	}

	s.graphNodes[graphDataID] = nodeMap
	s.graphEdges[graphDataID] = edgeMap
	s.graphLayers[graphDataID] = layerMap
	return nil
}

func (s *Store) LoadContents(_ context.Context, graphDataID string) ([]*model.GraphNode, []*model.GraphEdge, []*model.GraphLayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var nodes []*model.GraphNode
	for _, n := range s.graphNodes[graphDataID] {
		cp := *n
		nodes = append(nodes, &cp)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ExternalID < nodes[j].ExternalID })

	var edges []*model.GraphEdge
	for _, e := range s.graphEdges[graphDataID] {
		cp := *e
		edges = append(edges, &cp)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ExternalID < edges[j].ExternalID })

	var layers []*model.GraphLayer
	for _, l := range s.graphLayers[graphDataID] {
		cp := *l
		layers = append(layers, &cp)
	}
	sort.Slice(layers, func(i, j int) bool { return layers[i].LayerID < layers[j].LayerID })

	return nodes, edges, layers, nil
}

func (s *Store) DownstreamOf(_ context.Context, datasetOrGraphID string) ([]*model.GraphData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.GraphData
	for _, g := range s.graphData {
		if g.SourceHash == datasetOrGraphID {
			cp := *g
			out = append(out, &cp)
			continue
		}
		for _, n := range s.graphNodes[g.ID] {
			if n.DatasetID == datasetOrGraphID {
				cp := *g
				out = append(out, &cp)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpsertLayerPalette(_ context.Context, p *model.ProjectLayerPalette) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.layerPalette[paletteKey(p.ProjectID, p.LayerID)] = &cp
	return nil
}

func (s *Store) GetLayerPalette(_ context.Context, projectID, layerID string) (*model.ProjectLayerPalette, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.layerPalette[paletteKey(projectID, layerID)]
	if !ok {
		return nil, model.Wrap(model.ErrNotFound, "layer palette %s/%s", projectID, layerID)
	}
	cp := *p
	return &cp, nil
}

func paletteKey(projectID, layerID string) string {
	return projectID + "\x00" + layerID
}

// --- EditStore ---

func (s *Store) AppendEdit(_ context.Context, e *model.GraphEdit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.edits[e.GraphID] = append(s.edits[e.GraphID], &cp)
	return nil
}

func (s *Store) ListEdits(_ context.Context, graphID string) ([]*model.GraphEdit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.edits[graphID]
	out := make([]*model.GraphEdit, len(src))
	for i, e := range src {
		cp := *e
		out[i] = &cp
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (s *Store) MarkOutcome(_ context.Context, graphID string, seq int64, outcome model.EditOutcome, failureReason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.edits[graphID] {
		if e.Seq == seq {
			e.Outcome = outcome
			e.FailureReason = failureReason
			e.Applied = outcome == model.OutcomeApplied
			return nil
		}
	}
	return model.Wrap(model.ErrNotFound, "edit %s/%d", graphID, seq)
}

func (s *Store) ClearEdits(_ context.Context, graphID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.edits, graphID)
	return nil
}

// --- StoryStore ---

func (s *Store) CreateStory(_ context.Context, st *model.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.stories[st.ID] = &cp
	return nil
}

func (s *Store) GetStory(_ context.Context, id string) (*model.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stories[id]
	if !ok {
		return nil, model.Wrap(model.ErrNotFound, "story %s", id)
	}
	cp := *st
	return &cp, nil
}

func (s *Store) ListStories(_ context.Context, projectID string) ([]*model.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Story
	for _, st := range s.stories {
		if st.ProjectID == projectID {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateStory(_ context.Context, st *model.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stories[st.ID]; !ok {
		return model.Wrap(model.ErrNotFound, "story %s", st.ID)
	}
	cp := *st
	s.stories[st.ID] = &cp
	return nil
}

func (s *Store) DeleteStory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stories, id)
	return nil
}

func (s *Store) CreateSequence(_ context.Context, sq *model.Sequence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sq
	s.sequences[sq.ID] = &cp
	return nil
}

func (s *Store) GetSequence(_ context.Context, id string) (*model.Sequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sq, ok := s.sequences[id]
	if !ok {
		return nil, model.Wrap(model.ErrNotFound, "sequence %s", id)
	}
	cp := *sq
	return &cp, nil
}

func (s *Store) ListSequences(_ context.Context, storyID string) ([]*model.Sequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Sequence
	for _, sq := range s.sequences {
		if sq.StoryID == storyID {
			cp := *sq
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateSequence(_ context.Context, sq *model.Sequence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sequences[sq.ID]; !ok {
		return model.Wrap(model.ErrNotFound, "sequence %s", sq.ID)
	}
	cp := *sq
	s.sequences[sq.ID] = &cp
	return nil
}
