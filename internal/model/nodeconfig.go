package model

import (
	"encoding/json"
	"fmt"
)

// TransformType selects the deterministic rewrite a TransformNode applies to
// the merged Graph in-memory (spec.md §4.5).
type TransformType string

const (
	TransformPartitionDepthLimit TransformType = "PartitionDepthLimit"
	TransformInvertGraph         TransformType = "InvertGraph"
	TransformFilterNodes         TransformType = "FilterNodes"
	TransformFilterEdges         TransformType = "FilterEdges"
)

// FilterKind selects whether a FilterNode removes nodes or edges.
type FilterKind string

const (
	FilterKindNodes FilterKind = "FilterNodes"
	FilterKindEdges FilterKind = "FilterEdges"
)

// RenderTarget is one of the supported output formats (spec.md §4.6).
type RenderTarget string

const (
	TargetGML              RenderTarget = "GML"
	TargetDOT              RenderTarget = "DOT"
	TargetDOTHierarchy     RenderTarget = "DOT-hierarchy"
	TargetJSON             RenderTarget = "JSON"
	TargetCSVNodes         RenderTarget = "CSV-nodes"
	TargetCSVEdges         RenderTarget = "CSV-edges"
	TargetCSVMatrix        RenderTarget = "CSV-matrix"
	TargetMermaid          RenderTarget = "Mermaid"
	TargetPlantUML         RenderTarget = "PlantUML"
	TargetMermaidMindmap   RenderTarget = "Mermaid-mindmap"
	TargetMermaidTreemap   RenderTarget = "Mermaid-treemap"
	TargetPlantUMLMindmap  RenderTarget = "PlantUML-mindmap"
	TargetPlantUMLWBS      RenderTarget = "PlantUML-wbs"
	TargetMermaidSequence  RenderTarget = "Mermaid-sequence"
	TargetPlantUMLSequence RenderTarget = "PlantUML-sequence"
	TargetCustom           RenderTarget = "Custom"
)

// Orientation is the layout direction for graph-shaped render targets.
type Orientation string

const (
	OrientationTB Orientation = "TB"
	OrientationLR Orientation = "LR"
)

// BuiltInStyle is the fallback palette used when a layer has no colour set.
type BuiltInStyle string

const (
	StyleNone  BuiltInStyle = "None"
	StyleLight BuiltInStyle = "Light"
	StyleDark  BuiltInStyle = "Dark"
)

// NotePosition places a sequence-diagram annotation relative to its message.
type NotePosition string

const (
	NoteLeft   NotePosition = "Left"
	NoteRight  NotePosition = "Right"
	NoteTop    NotePosition = "Top"
	NoteBottom NotePosition = "Bottom"
)

// LayerSourceStyle overrides the palette mode for layers originating from a
// particular source dataset; SourceDatasetID == "" applies when a layer
// declares no source.
type LayerSourceStyle struct {
	SourceDatasetID string
	Mode            string
}

// GraphvizOptions configures the DOT/DOT-hierarchy targets.
type GraphvizOptions struct {
	Layout      string // dot|neato|fdp|circo
	Overlap     string
	Splines     string
	NodeSep     string
	RankSep     string
	CommentStyle string // tooltip|label
}

// MermaidRenderOptions configures Mermaid targets.
type MermaidRenderOptions struct {
	Look    string // default|handDrawn
	Display string // full|compact
	Theme   string
}

// RenderConfig controls how a Graph is lowered to a textual artefact
// (spec.md §4.6).
type RenderConfig struct {
	ContainNodes            bool
	Orientation             Orientation
	ApplyLayers             bool
	BuiltInStyles           BuiltInStyle
	AddNodeCommentsAsNotes  bool
	NotePosition            NotePosition
	UseNodeWeight           bool
	UseEdgeWeight           bool
	LayerSourceStyles       []LayerSourceStyle
	GraphvizOptions         GraphvizOptions
	MermaidOptions          MermaidRenderOptions
	MaxRows                 *int // preview-row truncation for CSV targets; nil = unbounded
	CustomTemplate          string
	CustomPartials          map[string]string
}

// DataSetNodeConfig references the Dataset a DataSetNode surfaces.
type DataSetNodeConfig struct {
	DatasetID string
}

// GraphNodeConfig carries no operation-specific fields: a GraphNode/MergeNode
// simply merges its upstreams. Kept as a distinct type for exhaustiveness;
// its only field is an optional Name.
type GraphNodeConfig struct {
	Name string
}

// TransformNodeConfig selects and parameterises a TransformNode's rewrite.
type TransformNodeConfig struct {
	TransformType TransformType
	MaxDepth      int    // PartitionDepthLimit
	Predicate     string // FilterNodes / FilterEdges
}

// FilterNodeConfig selects and parameterises a FilterNode's rewrite.
type FilterNodeConfig struct {
	FilterKind FilterKind
	Predicate  string
}

// ArtefactNodeConfig is shared by GraphArtefactNode and TreeArtefactNode.
type ArtefactNodeConfig struct {
	Target       RenderTarget
	RenderConfig RenderConfig
}

// StoryNodeConfig references the Story a StoryNode snapshots.
type StoryNodeConfig struct {
	StoryID string
}

// SequenceArtefactNodeConfig references the Sequence and render target for a
// SequenceArtefactNode.
type SequenceArtefactNodeConfig struct {
	SequenceID   string
	Target       RenderTarget
	RenderConfig RenderConfig
}

// NodeConfig is the tagged-variant config every PlanDagNode carries,
// dispatched exhaustively by node type rather than downcast from an opaque
// JSON string at read time (spec.md §9 DESIGN NOTES).
type NodeConfig struct {
	Kind             PlanDagNodeType
	DataSet          *DataSetNodeConfig
	Graph            *GraphNodeConfig
	Merge            *GraphNodeConfig
	Transform        *TransformNodeConfig
	Filter           *FilterNodeConfig
	GraphArtefact    *ArtefactNodeConfig
	TreeArtefact     *ArtefactNodeConfig
	Story            *StoryNodeConfig
	SequenceArtefact *SequenceArtefactNodeConfig
	// Projection is opaque by design: ProjectionNode is out of scope for
	// this spec (spec.md §4.4 step 4) and is never dispatched.
	Projection json.RawMessage
}

// Validate checks that exactly the variant matching Kind is populated, and
// that the corresponding config satisfies its own preconditions.
func (c NodeConfig) Validate() error {
	switch c.Kind {
	case NodeTypeDataSet:
		if c.DataSet == nil || c.DataSet.DatasetID == "" {
			return Wrap(ErrInvalidConfig, "DataSetNode requires a dataset id")
		}
	case NodeTypeGraph:
		if c.Graph == nil {
			return Wrap(ErrInvalidConfig, "GraphNode requires config")
		}
	case NodeTypeMerge:
		if c.Merge == nil {
			return Wrap(ErrInvalidConfig, "MergeNode requires config")
		}
	case NodeTypeTransform:
		if c.Transform == nil {
			return Wrap(ErrInvalidConfig, "TransformNode requires config")
		}
		switch c.Transform.TransformType {
		case TransformPartitionDepthLimit:
			if c.Transform.MaxDepth <= 0 {
				return Wrap(ErrInvalidConfig, "PartitionDepthLimit requires max_depth > 0")
			}
		case TransformInvertGraph:
			// no parameters required
		case TransformFilterNodes, TransformFilterEdges:
			if c.Transform.Predicate == "" {
				return Wrap(ErrInvalidConfig, "%s requires a predicate", c.Transform.TransformType)
			}
		default:
			return Wrap(ErrInvalidConfig, "unknown transform_type %q", c.Transform.TransformType)
		}
	case NodeTypeFilter:
		if c.Filter == nil {
			return Wrap(ErrInvalidConfig, "FilterNode requires config")
		}
		if c.Filter.Predicate == "" {
			return Wrap(ErrInvalidConfig, "FilterNode requires a predicate")
		}
		if c.Filter.FilterKind != FilterKindNodes && c.Filter.FilterKind != FilterKindEdges {
			return Wrap(ErrInvalidConfig, "unknown filter_kind %q", c.Filter.FilterKind)
		}
	case NodeTypeGraphArtefact:
		if c.GraphArtefact == nil || c.GraphArtefact.Target == "" {
			return Wrap(ErrInvalidConfig, "GraphArtefactNode requires a render target")
		}
	case NodeTypeTreeArtefact:
		if c.TreeArtefact == nil || c.TreeArtefact.Target == "" {
			return Wrap(ErrInvalidConfig, "TreeArtefactNode requires a render target")
		}
	case NodeTypeStory:
		if c.Story == nil || c.Story.StoryID == "" {
			return Wrap(ErrInvalidConfig, "StoryNode requires a story id")
		}
	case NodeTypeSequenceArtefact:
		if c.SequenceArtefact == nil || c.SequenceArtefact.SequenceID == "" || c.SequenceArtefact.Target == "" {
			return Wrap(ErrInvalidConfig, "SequenceArtefactNode requires a sequence id and render target")
		}
	case NodeTypeProjection:
		// opaque, never validated further; out of scope.
	default:
		return Wrap(ErrInvalidConfig, "unknown node type %q", c.Kind)
	}
	return nil
}

// jsonNodeConfig is the on-the-wire shape of NodeConfig: a discriminator
// plus one populated payload field, matching how it is stored as a single
// opaque JSON column (model.PlanDagNode.Config) while still decoding to the
// Go tagged variant above.
type jsonNodeConfig struct {
	Kind             PlanDagNodeType             `json:"node_type"`
	DataSet          *DataSetNodeConfig          `json:"data_set,omitempty"`
	Graph            *GraphNodeConfig            `json:"graph,omitempty"`
	Merge            *GraphNodeConfig            `json:"merge,omitempty"`
	Transform        *TransformNodeConfig        `json:"transform,omitempty"`
	Filter           *FilterNodeConfig           `json:"filter,omitempty"`
	GraphArtefact    *ArtefactNodeConfig         `json:"graph_artefact,omitempty"`
	TreeArtefact     *ArtefactNodeConfig         `json:"tree_artefact,omitempty"`
	Story            *StoryNodeConfig            `json:"story,omitempty"`
	SequenceArtefact *SequenceArtefactNodeConfig `json:"sequence_artefact,omitempty"`
	Projection       json.RawMessage             `json:"projection,omitempty"`
}

// MarshalJSON serialises the NodeConfig for persistence as an opaque config
// column (model.PlanDagNode.Config).
func (c NodeConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonNodeConfig(c))
}

// UnmarshalJSON restores a NodeConfig from its persisted form.
func (c *NodeConfig) UnmarshalJSON(data []byte) error {
	var j jsonNodeConfig
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("decode node config: %w", err)
	}
	*c = NodeConfig(j)
	return nil
}
