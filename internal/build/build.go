// Package build implements the Graph Build Engine (spec.md §4.2): merging a
// Graph-kind DAG node's upstream sources into one GraphData, with
// content-hash caching and edit replay triggering. Grounded on
// original_source's graph_builder.rs merge/hash algorithm and the teacher's
// transactional-write shape in store/postgres/postgres.go.
package build

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/layercake/layercake/internal/edits"
	"github.com/layercake/layercake/internal/graphmodel"
	"github.com/layercake/layercake/internal/log"
	"github.com/layercake/layercake/internal/model"
	"github.com/layercake/layercake/internal/store"
)

// Resolver turns an upstream DAG node id into its current source view,
// whether that node is a DataSetNode (straight off the Dataset row) or a
// computed Graph/Merge/Transform/Filter node (virtualised into the same
// normal-form shape). Implemented by the dag package, which knows how to
// walk a PlanDagNode's config; build stays agnostic of node types.
type Resolver interface {
	ResolveUpstream(ctx context.Context, upstreamNodeID string) (UpstreamSource, error)
}

// Replayer applies the pending edit journal on top of a freshly rebuilt
// GraphData, implemented by *edits.Service.
type Replayer interface {
	Replay(ctx context.Context, graphDataID string) (edits.Summary, error)
}

// StatusPublisher emits node execution status events during a build.
// Implemented by internal/eventbus.
type StatusPublisher interface {
	PublishNodeStatus(ctx context.Context, projectID, dagNodeID, status, message string)
}

type noopPublisher struct{}

func (noopPublisher) PublishNodeStatus(context.Context, string, string, string, string) {}

// Engine runs build_graph for Graph-kind DAG nodes.
type Engine struct {
	graphs    store.GraphDataStore
	resolver  Resolver
	replayer  Replayer
	publisher StatusPublisher
	logger    log.Logger
	now       func() time.Time
}

// NewEngine wires a Graph Build Engine. replayer and publisher may be nil.
func NewEngine(graphs store.GraphDataStore, resolver Resolver, replayer Replayer, publisher StatusPublisher, logger log.Logger) *Engine {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if logger == nil {
		logger = log.NoOpLogger{}
	}
	return &Engine{
		graphs:    graphs,
		resolver:  resolver,
		replayer:  replayer,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// BuildGraph implements spec.md §4.2's algorithm end to end.
func (e *Engine) BuildGraph(ctx context.Context, projectID, dagNodeID, nodeName string, upstreamNodeIDs []string) (*model.GraphData, error) {
	return e.BuildGraphWithRewrite(ctx, projectID, dagNodeID, nodeName, upstreamNodeIDs, nil)
}

// BuildGraphWithRewrite runs the same algorithm as BuildGraph but, when
// rewrite is non-nil, applies it to the merged in-memory Graph after
// merging and before validation/persistence. TransformNode and FilterNode
// DAG nodes use this to apply their declared operation (spec.md §4.4 step
// 4: "Transform/Filter nodes apply their declared operation after the
// merge, as a deterministic rewrite on the in-memory Graph before
// persistence").
func (e *Engine) BuildGraphWithRewrite(ctx context.Context, projectID, dagNodeID, nodeName string, upstreamNodeIDs []string, rewrite func(*graphmodel.Graph) error) (*model.GraphData, error) {
	existing, err := e.graphs.GetGraphDataByNode(ctx, dagNodeID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	upstreams := make([]UpstreamSource, 0, len(upstreamNodeIDs))
	for _, id := range upstreamNodeIDs {
		src, resolveErr := e.resolver.ResolveUpstream(ctx, id)
		if resolveErr != nil {
			wrapped := model.Wrap(model.ErrUpstreamNotReady, "resolve upstream %s: %v", id, resolveErr)
			if failErr := e.failGraphData(ctx, projectID, dagNodeID, nodeName, existing, wrapped); failErr != nil {
				return nil, failErr
			}
			return nil, wrapped
		}
		upstreams = append(upstreams, src)
	}

	newHash := ComputeSourceHash(upstreams)

	if existing != nil && existing.SourceHash == newHash && existing.Status == model.GraphDataActive {
		e.logger.Debug("build %s: cache hit on source_hash %s", dagNodeID, newHash)
		return existing, nil
	}

	gd := existing
	if gd == nil {
		gd = e.newGraphData(projectID, dagNodeID, nodeName)
	}
	gd.Status = model.GraphDataProcessing
	gd.ErrorMessage = ""
	gd.UpdatedAt = e.now()
	if err := e.persistGraphData(ctx, existing == nil, gd); err != nil {
		return nil, err
	}
	e.publisher.PublishNodeStatus(ctx, projectID, dagNodeID, "processing", "")

	g := graphmodel.New(gd.ID)
	for _, u := range upstreams {
		MergeInto(g, u)
	}

	if rewrite != nil {
		if err := rewrite(g); err != nil {
			gd.Status = model.GraphDataError
			gd.ErrorMessage = err.Error()
			gd.UpdatedAt = e.now()
			_ = e.graphs.UpdateGraphData(ctx, gd)
			e.publisher.PublishNodeStatus(ctx, projectID, dagNodeID, "error", err.Error())
			return nil, err
		}
	}

	if err := g.ValidateOrError(); err != nil {
		gd.Status = model.GraphDataError
		gd.ErrorMessage = err.Error()
		gd.UpdatedAt = e.now()
		_ = e.graphs.UpdateGraphData(ctx, gd)
		e.publisher.PublishNodeStatus(ctx, projectID, dagNodeID, "error", err.Error())
		return nil, err
	}

	if err := e.graphs.ReplaceContents(ctx, gd.ID, nodesOf(g), edgesOf(g), layersOf(g)); err != nil {
		return nil, err
	}

	gd.Status = model.GraphDataActive
	gd.SourceHash = newHash
	gd.NodeCount = len(g.Nodes)
	gd.EdgeCount = len(g.OrderedEdges())
	gd.UpdatedAt = e.now()
	if err := e.graphs.UpdateGraphData(ctx, gd); err != nil {
		return nil, err
	}

	if gd.HasPendingEdits && e.replayer != nil {
		summary, err := e.replayer.Replay(ctx, gd.ID)
		if err != nil {
			e.logger.Warn("build %s: edit replay failed, not failing build: %v", dagNodeID, err)
		} else {
			e.logger.Info("build %s: replayed edits applied=%d skipped=%d failed=%d", dagNodeID, summary.Applied, summary.Skipped, summary.Failed)
		}
	}

	e.publisher.PublishNodeStatus(ctx, projectID, dagNodeID, "active", "")
	return gd, nil
}

func (e *Engine) persistGraphData(ctx context.Context, isNew bool, gd *model.GraphData) error {
	if isNew {
		return e.graphs.CreateGraphData(ctx, gd)
	}
	return e.graphs.UpdateGraphData(ctx, gd)
}

func (e *Engine) newGraphData(projectID, dagNodeID, nodeName string) *model.GraphData {
	return &model.GraphData{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		DagNodeID:  dagNodeID,
		Name:       nodeName,
		SourceType: model.SourceTypeComputed,
		CreatedAt:  e.now(),
	}
}

// failGraphData persists buildErr against the node's GraphData so a failure
// that happens before the merge even starts (an upstream that isn't ready
// yet) is still visible to dag status/Event-Bus consumers, spec.md §4.4
// step 6 / §7: every failed node surfaces its error on a persisted record,
// not just as a returned Go error. existing is nil on a node's first-ever
// build, in which case a new errored GraphData row is created instead of
// updated.
func (e *Engine) failGraphData(ctx context.Context, projectID, dagNodeID, nodeName string, existing *model.GraphData, buildErr error) error {
	gd := existing
	isNew := gd == nil
	if isNew {
		gd = e.newGraphData(projectID, dagNodeID, nodeName)
	}
	gd.Status = model.GraphDataError
	gd.ErrorMessage = buildErr.Error()
	gd.UpdatedAt = e.now()
	if err := e.persistGraphData(ctx, isNew, gd); err != nil {
		return err
	}
	e.publisher.PublishNodeStatus(ctx, projectID, dagNodeID, "error", buildErr.Error())
	return nil
}

func nodesOf(g *graphmodel.Graph) []*model.GraphNode {
	return g.OrderedNodes()
}

func edgesOf(g *graphmodel.Graph) []*model.GraphEdge {
	return g.OrderedEdges()
}

func layersOf(g *graphmodel.Graph) []*model.GraphLayer {
	return g.OrderedLayers()
}
