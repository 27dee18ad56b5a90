package model

import "time"

// FileFormat is the declared or detected shape of an uploaded Dataset blob.
type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatTSV  FileFormat = "tsv"
	FormatJSON FileFormat = "json"
	FormatXLSX FileFormat = "xlsx"
	FormatODS  FileFormat = "ods"
	FormatPDF  FileFormat = "pdf"
	FormatXML  FileFormat = "xml"
)

// DataType is what a Dataset's rows represent once parsed to normal form.
type DataType string

const (
	DataTypeNodes  DataType = "nodes"
	DataTypeEdges  DataType = "edges"
	DataTypeLayers DataType = "layers"
	DataTypeGraph  DataType = "graph"
)

// DatasetStatus is the lifecycle state of a Dataset (spec.md §3 Lifecycles).
type DatasetStatus string

const (
	DatasetProcessing DatasetStatus = "processing"
	DatasetActive     DatasetStatus = "active"
	DatasetError      DatasetStatus = "error"
)

// GraphDataStatus is the lifecycle state of a GraphData record.
type GraphDataStatus string

const (
	GraphDataProcessing GraphDataStatus = "processing"
	GraphDataActive     GraphDataStatus = "active"
	GraphDataError      GraphDataStatus = "error"
)

// SourceType distinguishes a GraphData built straight from a Dataset from
// one computed by merging other GraphData records (Merge/Transform/Filter).
type SourceType string

const (
	SourceTypeDataset  SourceType = "dataset"
	SourceTypeComputed SourceType = "computed"
)

// PlanStatus tracks the overall state of a Plan (not per-node execution,
// which lives on the corresponding Dataset/GraphData records).
type PlanStatus string

const (
	PlanDraft    PlanStatus = "draft"
	PlanExecuted PlanStatus = "executed"
	PlanError    PlanStatus = "error"
)

// PlanDagNodeType tags the kind of work a PlanDagNode performs. Modeled as a
// Go-native tagged variant (see NodeConfig) rather than the source's opaque
// per-type JSON string downcast at read time.
type PlanDagNodeType string

const (
	NodeTypeDataSet          PlanDagNodeType = "DataSetNode"
	NodeTypeGraph            PlanDagNodeType = "GraphNode"
	NodeTypeMerge            PlanDagNodeType = "MergeNode"
	NodeTypeTransform        PlanDagNodeType = "TransformNode"
	NodeTypeFilter           PlanDagNodeType = "FilterNode"
	NodeTypeGraphArtefact    PlanDagNodeType = "GraphArtefactNode"
	NodeTypeTreeArtefact     PlanDagNodeType = "TreeArtefactNode"
	NodeTypeStory            PlanDagNodeType = "StoryNode"
	NodeTypeSequenceArtefact PlanDagNodeType = "SequenceArtefactNode"
	NodeTypeProjection       PlanDagNodeType = "ProjectionNode"
)

// TargetType identifies what a GraphEdit entry mutates.
type TargetType string

const (
	TargetNode  TargetType = "node"
	TargetEdge  TargetType = "edge"
	TargetLayer TargetType = "layer"
	TargetGraph TargetType = "graph"
)

// EditOp is the mutation kind of a GraphEdit journal entry.
type EditOp string

const (
	OpCreate EditOp = "create"
	OpUpdate EditOp = "update"
	OpDelete EditOp = "delete"
)

// EditOutcome is the result of replaying a single GraphEdit entry.
type EditOutcome string

const (
	OutcomePending EditOutcome = "pending"
	OutcomeApplied EditOutcome = "applied"
	OutcomeSkipped EditOutcome = "skipped"
	OutcomeFailed  EditOutcome = "failed"
)

// Project is the tenant container; everything else is scoped beneath it.
type Project struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Plan is a versioned DAG definition belonging to a Project.
type Plan struct {
	ID        string
	ProjectID string
	Version   int64
	Status    PlanStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Position is the visual (x, y) placement of a node on the plan canvas.
type Position struct {
	X float64
	Y float64
}

// NodeMetadata carries the user-facing label/description for a PlanDagNode.
type NodeMetadata struct {
	Label       string
	Description string
}

// PlanDagNode is one step of a Plan's DAG.
type PlanDagNode struct {
	ID        string
	PlanID    string
	NodeType  PlanDagNodeType
	Position  Position
	Metadata  NodeMetadata
	Config    NodeConfig
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EdgeMetadata tags a PlanDagEdge with the data-type flowing across it, used
// purely for UI/validation hinting; the executor does not branch on it.
type EdgeMetadata struct {
	Label    string
	DataType DataType
}

// PlanDagEdge is a dependency between two PlanDagNodes within the same Plan.
type PlanDagEdge struct {
	ID             string
	PlanID         string
	SourceNodeID   string
	TargetNodeID   string
	Metadata       EdgeMetadata
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Dataset is an ingested source: a blob plus its derived normal-form graph JSON.
type Dataset struct {
	ID           string
	ProjectID    string
	Name         string
	Description  string
	Filename     string
	FileFormat   FileFormat
	DataType     DataType
	Blob         []byte
	Status       DatasetStatus
	GraphJSON    *NormalForm
	ErrorMessage string
	Origin       string
	ProcessedAt  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalForm is the {nodes,edges,layers} JSON schema every parser produces
// and the Graph Build Engine consumes (spec.md §6).
type NormalForm struct {
	Nodes  []NormalNode  `json:"nodes,omitempty"`
	Edges  []NormalEdge  `json:"edges,omitempty"`
	Layers []NormalLayer `json:"layers,omitempty"`
}

// NormalNode is a node as it appears in normal-form JSON, before it is
// materialised into a GraphNode row.
type NormalNode struct {
	ID          string         `json:"id"`
	Label       string         `json:"label,omitempty"`
	Layer       string         `json:"layer,omitempty"`
	Weight      *float64       `json:"weight,omitempty"`
	IsPartition bool           `json:"is_partition,omitempty"`
	BelongsTo   string         `json:"belongs_to,omitempty"`
	Attrs       map[string]any `json:"attrs,omitempty"`
}

// NormalEdge is an edge as it appears in normal-form JSON.
type NormalEdge struct {
	ID     string         `json:"id"`
	Source string         `json:"source"`
	Target string         `json:"target"`
	Label  string         `json:"label,omitempty"`
	Layer  string         `json:"layer,omitempty"`
	Weight *float64       `json:"weight,omitempty"`
	Attrs  map[string]any `json:"attrs,omitempty"`
}

// NormalLayer is a layer/style record as it appears in normal-form JSON.
type NormalLayer struct {
	ID              string `json:"id"`
	Label           string `json:"label"`
	BackgroundColor string `json:"background_color,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
	BorderColor     string `json:"border_color,omitempty"`
	Alias           string `json:"alias,omitempty"`
	Comment         string `json:"comment,omitempty"`
}

// GraphData is a computed or materialised graph belonging to a Project,
// optionally owned by a PlanDagNode.
type GraphData struct {
	ID                string
	ProjectID         string
	DagNodeID         string
	Name              string
	SourceType        SourceType
	SourceHash        string
	Status            GraphDataStatus
	ErrorMessage      string
	NodeCount         int
	EdgeCount         int
	LastEditSequence  int64
	HasPendingEdits   bool
	Annotations       map[string]any
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// GraphNode is a vertex materialised within a GraphData.
type GraphNode struct {
	ExternalID  string
	GraphDataID string
	Label       string
	Layer       string
	Weight      float64
	IsPartition bool
	BelongsTo   string
	Attributes  map[string]any
	DatasetID   string
}

// GraphEdge is an edge materialised within a GraphData.
type GraphEdge struct {
	ExternalID  string
	GraphDataID string
	Source      string
	Target      string
	Label       string
	Layer       string
	Weight      float64
	Attributes  map[string]any
	DatasetID   string
}

// GraphLayer is a style record scoped to one GraphData (or, via
// ProjectLayerPalette, to a whole Project).
type GraphLayer struct {
	LayerID         string
	GraphDataID     string
	Name            string
	BackgroundColor string
	TextColor       string
	BorderColor     string
	Alias           string
	Properties      map[string]any
}

// ProjectLayerPalette is the project-scoped shared styling a GraphLayer may
// fall back to when a Graph's own layer record carries no colours.
type ProjectLayerPalette struct {
	ProjectID       string
	LayerID         string
	BackgroundColor string
	TextColor       string
	BorderColor     string
	Alias           string
	SourceDatasetID string
}

// GraphEdit is one append-only journal entry recording a manual edit against
// a GraphData, replayed on top of every rebuild.
type GraphEdit struct {
	Seq            int64
	GraphID        string
	TargetType     TargetType
	TargetExternalID string
	Op             EditOp
	FieldName      string
	OldValue       any
	NewValue       any
	Applied        bool
	Outcome        EditOutcome
	FailureReason  string
	CreatedAt      time.Time
}

// Story is a named view over a subset of Datasets, used to drive
// sequence-diagram rendering.
type Story struct {
	ID                string
	ProjectID         string
	Name              string
	EnabledDatasetIDs []string
	LayerConfig       []StoryLayerOverride
	Tags              []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// StoryLayerOverride lets a Story pin a built-in style mode for a given
// source dataset (or for layers with no declared source, when
// SourceDatasetID is empty).
type StoryLayerOverride struct {
	SourceDatasetID string
	Mode            string
}

// SequenceEdgeRef is one entry of a Sequence's ordered edge walk.
type SequenceEdgeRef struct {
	DatasetID    string
	EdgeID       string
	Note         string
	NotePosition string
}

// Sequence is an ordered list of edge references within a Story.
type Sequence struct {
	ID                string
	StoryID           string
	EnabledDatasetIDs []string
	EdgeOrder         []SequenceEdgeRef
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
