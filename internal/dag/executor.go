package dag

import (
	"context"
	"sort"

	"github.com/layercake/layercake/internal/build"
	"github.com/layercake/layercake/internal/graphmodel"
	"github.com/layercake/layercake/internal/log"
	"github.com/layercake/layercake/internal/model"
	"github.com/layercake/layercake/internal/store"
)

// StoryRecomputer is called for each StoryNode the executor reaches.
// Implemented by internal/story, whose RecomputeIfChanged persists no
// Story context snapshot: it only confirms that the Story still exists.
type StoryRecomputer interface {
	RecomputeIfChanged(ctx context.Context, storyID string) error
}

// Executor runs a Plan DAG (spec.md §4.4), dispatching each reachable node
// by type and honouring cooperative cancellation at node/layer boundaries.
type Executor struct {
	datasets  store.DatasetStore
	graphs    store.GraphDataStore
	plans     store.PlanStore
	replayer  build.Replayer
	publisher build.StatusPublisher
	story     StoryRecomputer
	canceller *Canceller
	logger    log.Logger
}

// NewExecutor wires a DAG Executor. replayer, publisher, story and plans may
// be nil; when plans is nil the Plan's persisted Status field is left alone
// (the "dag status" CLI command then has nothing to read but live node logs).
func NewExecutor(datasets store.DatasetStore, graphs store.GraphDataStore, plans store.PlanStore, replayer build.Replayer, publisher build.StatusPublisher, story StoryRecomputer, canceller *Canceller, logger log.Logger) *Executor {
	if canceller == nil {
		canceller = NewCanceller()
	}
	if logger == nil {
		logger = log.NoOpLogger{}
	}
	return &Executor{
		datasets:  datasets,
		graphs:    graphs,
		plans:     plans,
		replayer:  replayer,
		publisher: publisher,
		story:     story,
		canceller: canceller,
		logger:    logger,
	}
}

// ExecuteDAG runs every reachable node of the plan, in topological order.
func (ex *Executor) ExecuteDAG(ctx context.Context, projectID, planID string, nodes []*model.PlanDagNode, edges []*model.PlanDagEdge) error {
	pg := BuildPlanGraph(nodes, edges)
	order, err := pg.TopoOrder()
	if err != nil {
		return err
	}
	return ex.run(ctx, projectID, planID, pg, order)
}

// ExecuteWithDependencies runs only target and its ancestors.
func (ex *Executor) ExecuteWithDependencies(ctx context.Context, projectID, planID, targetNodeID string, nodes []*model.PlanDagNode, edges []*model.PlanDagEdge) error {
	pg := BuildPlanGraph(nodes, edges)
	order, err := pg.TopoOrder()
	if err != nil {
		return err
	}
	restricted := Restrict(order, pg.Ancestors(targetNodeID))
	return ex.run(ctx, projectID, planID, pg, restricted)
}

// ExecuteAffectedNodes runs changedNodeID and everything downstream of it.
func (ex *Executor) ExecuteAffectedNodes(ctx context.Context, projectID, planID, changedNodeID string, nodes []*model.PlanDagNode, edges []*model.PlanDagEdge) error {
	pg := BuildPlanGraph(nodes, edges)
	order, err := pg.TopoOrder()
	if err != nil {
		return err
	}
	restricted := Restrict(order, pg.Descendants(changedNodeID))
	return ex.run(ctx, projectID, planID, pg, restricted)
}

// run executes order in dependency-respecting layers, running every node
// within a layer concurrently (spec.md §5: "independent DAG branches may
// execute concurrently within one execute_dag call"), and checks the
// cooperative cancel flag at each layer boundary.
func (ex *Executor) run(ctx context.Context, projectID, planID string, pg *PlanGraph, order []string) error {
	allowed := make(map[string]bool, len(order))
	for _, id := range order {
		allowed[id] = true
	}

	engine := build.NewEngine(ex.graphs, &NodeResolver{Plan: pg, Datasets: ex.datasets, Graphs: ex.graphs}, ex.replayer, ex.publisher, ex.logger)

	var failed bool
	for _, layer := range layersOf(pg, allowed) {
		if ex.canceller.Cancelled(projectID, planID) {
			ex.logger.Info("plan %s/%s: execution stopped by user before layer %v", projectID, planID, layer)
			ex.setPlanStatus(ctx, planID, model.PlanError)
			return model.ErrCancelled
		}

		results := runParallel(layer, func(nodeID string) error {
			node := pg.Nodes[nodeID]
			return ex.executeNode(ctx, projectID, engine, pg, node)
		})

		for _, nodeID := range layer {
			if err := results[nodeID]; err != nil {
				failed = true
				ex.logger.Warn("plan %s/%s: node %s failed: %v", projectID, planID, nodeID, err)
			}
		}
	}

	if failed {
		ex.setPlanStatus(ctx, planID, model.PlanError)
	} else {
		ex.setPlanStatus(ctx, planID, model.PlanExecuted)
	}
	return nil
}

// setPlanStatus persists the Plan's overall status so that a later, separate
// CLI invocation (e.g. "dag status") can observe the outcome of a run that
// happened in a different process — the Event Bus itself is publish-only
// and fire-and-forget, so it is not a place to durably park this.
func (ex *Executor) setPlanStatus(ctx context.Context, planID string, status model.PlanStatus) {
	if ex.plans == nil {
		return
	}
	p, err := ex.plans.GetPlan(ctx, planID)
	if err != nil {
		ex.logger.Warn("plan %s: could not load plan to record status %s: %v", planID, status, err)
		return
	}
	p.Status = status
	if err := ex.plans.UpdatePlan(ctx, p); err != nil {
		ex.logger.Warn("plan %s: could not persist status %s: %v", planID, status, err)
	}
}

func (ex *Executor) executeNode(ctx context.Context, projectID string, engine *build.Engine, pg *PlanGraph, node *model.PlanDagNode) error {
	switch node.NodeType {
	case model.NodeTypeDataSet:
		return ex.executeDataSetNode(ctx, node)
	case model.NodeTypeGraph, model.NodeTypeMerge:
		_, err := engine.BuildGraph(ctx, projectID, node.ID, node.Metadata.Label, pg.InEdges(node.ID))
		return err
	case model.NodeTypeTransform:
		cfg := node.Config.Transform
		_, err := engine.BuildGraphWithRewrite(ctx, projectID, node.ID, node.Metadata.Label, pg.InEdges(node.ID), func(g *graphmodel.Graph) error {
			return ApplyTransform(g, cfg)
		})
		return err
	case model.NodeTypeFilter:
		cfg := node.Config.Filter
		_, err := engine.BuildGraphWithRewrite(ctx, projectID, node.ID, node.Metadata.Label, pg.InEdges(node.ID), func(g *graphmodel.Graph) error {
			return ApplyFilter(g, cfg)
		})
		return err
	case model.NodeTypeGraphArtefact, model.NodeTypeTreeArtefact, model.NodeTypeSequenceArtefact:
		return nil
	case model.NodeTypeStory:
		return ex.executeStoryNode(ctx, node)
	case model.NodeTypeProjection:
		return nil
	default:
		return model.Wrap(model.ErrInvalidConfig, "unknown node type %q", node.NodeType)
	}
}

func (ex *Executor) executeDataSetNode(ctx context.Context, node *model.PlanDagNode) error {
	if node.Config.DataSet == nil {
		return model.Wrap(model.ErrInvalidConfig, "DataSetNode %s missing config", node.ID)
	}
	ds, err := ex.datasets.GetDataset(ctx, node.Config.DataSet.DatasetID)
	if err != nil {
		return err
	}
	if ds.Status != model.DatasetActive {
		return model.Wrap(model.ErrUpstreamNotReady, "dataset %s is not active (status=%s)", ds.ID, ds.Status)
	}
	return nil
}

func (ex *Executor) executeStoryNode(ctx context.Context, node *model.PlanDagNode) error {
	if ex.story == nil {
		return nil
	}
	if node.Config.Story == nil {
		return model.Wrap(model.ErrInvalidConfig, "StoryNode %s missing config", node.ID)
	}
	return ex.story.RecomputeIfChanged(ctx, node.Config.Story.StoryID)
}

// layersOf groups allowed nodes into dependency-respecting waves: every
// node in wave N has all of its in-plan dependencies resolved by wave N-1.
func layersOf(pg *PlanGraph, allowed map[string]bool) [][]string {
	inDegree := make(map[string]int, len(allowed))
	for id := range allowed {
		for _, parent := range pg.inEdges[id] {
			if allowed[parent] {
				inDegree[id]++
			}
		}
	}

	remaining := make(map[string]bool, len(allowed))
	for id := range allowed {
		remaining[id] = true
	}

	var layers [][]string
	for len(remaining) > 0 {
		var layer []string
		for id := range remaining {
			if inDegree[id] == 0 {
				layer = append(layer, id)
			}
		}
		sort.Strings(layer)
		for _, id := range layer {
			delete(remaining, id)
			for _, child := range pg.outEdges[id] {
				if allowed[child] {
					inDegree[child]--
				}
			}
		}
		layers = append(layers, layer)
	}
	return layers
}
