// Package store defines the persistence ports every service package
// consumes (Dataset Store, Graph Build Engine, Edit Journal, DAG Executor,
// Story/Sequence context) plus the concrete backends that implement them:
// store/postgres, store/sqlite and store/memory. Modeled on the teacher's
// store.CheckpointStore port/backend split.
package store

import (
	"context"

	"github.com/layercake/layercake/internal/model"
)

// ProjectStore persists Project records.
type ProjectStore interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context) ([]*model.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// DatasetStore persists Dataset records.
type DatasetStore interface {
	CreateDataset(ctx context.Context, d *model.Dataset) error
	GetDataset(ctx context.Context, id string) (*model.Dataset, error)
	ListDatasets(ctx context.Context, projectID string) ([]*model.Dataset, error)
	UpdateDataset(ctx context.Context, d *model.Dataset) error
	DeleteDataset(ctx context.Context, id string) error
}

// PlanStore persists Plan, PlanDagNode and PlanDagEdge records.
type PlanStore interface {
	CreatePlan(ctx context.Context, p *model.Plan) error
	GetPlan(ctx context.Context, id string) (*model.Plan, error)
	ListPlans(ctx context.Context, projectID string) ([]*model.Plan, error)
	UpdatePlan(ctx context.Context, p *model.Plan) error
	DeletePlan(ctx context.Context, id string) error

	CreateNode(ctx context.Context, n *model.PlanDagNode) error
	GetNode(ctx context.Context, id string) (*model.PlanDagNode, error)
	ListNodes(ctx context.Context, planID string) ([]*model.PlanDagNode, error)
	UpdateNode(ctx context.Context, n *model.PlanDagNode) error
	DeleteNode(ctx context.Context, id string) error

	// NodesReferencingDataset returns every DataSetNode whose config points
	// at datasetID, for Dataset.delete's cascade.
	NodesReferencingDataset(ctx context.Context, datasetID string) ([]*model.PlanDagNode, error)

	CreateEdge(ctx context.Context, e *model.PlanDagEdge) error
	ListEdges(ctx context.Context, planID string) ([]*model.PlanDagEdge, error)
	DeleteEdge(ctx context.Context, id string) error
	// DeleteIncidentEdges removes every edge touching nodeID, used when a
	// node is deleted (directly or via cascade).
	DeleteIncidentEdges(ctx context.Context, nodeID string) error

	// ReplacePlanDag atomically swaps planID's entire node and edge set for
	// nodes and edges: the previous set is deleted and the new set
	// inserted under the same plan, used by update_plan_dag.
	ReplacePlanDag(ctx context.Context, planID string, nodes []*model.PlanDagNode, edges []*model.PlanDagEdge) error
}

// GraphDataStore persists GraphData and its materialised nodes/edges/layers.
type GraphDataStore interface {
	CreateGraphData(ctx context.Context, g *model.GraphData) error
	GetGraphData(ctx context.Context, id string) (*model.GraphData, error)
	GetGraphDataByNode(ctx context.Context, dagNodeID string) (*model.GraphData, error)
	ListGraphData(ctx context.Context, projectID string) ([]*model.GraphData, error)
	UpdateGraphData(ctx context.Context, g *model.GraphData) error
	DeleteGraphData(ctx context.Context, id string) error

	// ReplaceContents atomically swaps a GraphData's nodes/edges/layers for
	// a freshly built or merged set, used by the Graph Build Engine.
	ReplaceContents(ctx context.Context, graphDataID string, nodes []*model.GraphNode, edges []*model.GraphEdge, layers []*model.GraphLayer) error
	LoadContents(ctx context.Context, graphDataID string) ([]*model.GraphNode, []*model.GraphEdge, []*model.GraphLayer, error)

	// DownstreamOf returns every GraphData whose SourceHash was computed
	// over datasetOrGraphID, for cache invalidation.
	DownstreamOf(ctx context.Context, datasetOrGraphID string) ([]*model.GraphData, error)

	UpsertLayerPalette(ctx context.Context, p *model.ProjectLayerPalette) error
	GetLayerPalette(ctx context.Context, projectID, layerID string) (*model.ProjectLayerPalette, error)
}

// EditStore persists the append-only GraphEdit journal.
type EditStore interface {
	AppendEdit(ctx context.Context, e *model.GraphEdit) error
	ListEdits(ctx context.Context, graphID string) ([]*model.GraphEdit, error)
	MarkOutcome(ctx context.Context, graphID string, seq int64, outcome model.EditOutcome, failureReason string) error
	ClearEdits(ctx context.Context, graphID string) error
}

// StoryStore persists Story and Sequence records.
type StoryStore interface {
	CreateStory(ctx context.Context, s *model.Story) error
	GetStory(ctx context.Context, id string) (*model.Story, error)
	ListStories(ctx context.Context, projectID string) ([]*model.Story, error)
	UpdateStory(ctx context.Context, s *model.Story) error
	DeleteStory(ctx context.Context, id string) error

	CreateSequence(ctx context.Context, s *model.Sequence) error
	GetSequence(ctx context.Context, id string) (*model.Sequence, error)
	// ListSequences returns a Story's Sequences ordered by id ascending
	// (spec.md §4.7 step 1).
	ListSequences(ctx context.Context, storyID string) ([]*model.Sequence, error)
	UpdateSequence(ctx context.Context, s *model.Sequence) error
}

// Store bundles every port a fully wired backend implements. Backends are
// free to implement a subset during incremental rollout; cmd/layercake
// wires the full Store.
type Store interface {
	ProjectStore
	DatasetStore
	PlanStore
	GraphDataStore
	EditStore
	StoryStore
}
