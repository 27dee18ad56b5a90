// Package dag implements the Plan DAG Executor (spec.md §4.4) and the
// Transform & Filter rewrites it applies to merged graphs (spec.md §4.5).
// Grounded directly on the teacher's graph/state_graph.go node-dispatch and
// parallel-fan-out shape, adapted from LLM-chain execution to build-graph
// DAG execution.
package dag

import (
	"sort"

	"github.com/layercake/layercake/internal/model"
)

// PlanGraph is the in-memory adjacency view of one Plan's nodes and edges,
// built fresh for each execute_* call from the caller-supplied slices
// (spec.md §4.4's contract takes nodes[]/edges[] directly rather than
// re-reading them from the store mid-execution).
type PlanGraph struct {
	Nodes    map[string]*model.PlanDagNode
	inEdges  map[string][]string // nodeID -> ids of nodes with an edge into it
	outEdges map[string][]string // nodeID -> ids of nodes it has an edge into
}

// BuildPlanGraph indexes nodes and edges for traversal.
func BuildPlanGraph(nodes []*model.PlanDagNode, edges []*model.PlanDagEdge) *PlanGraph {
	pg := &PlanGraph{
		Nodes:    make(map[string]*model.PlanDagNode, len(nodes)),
		inEdges:  make(map[string][]string),
		outEdges: make(map[string][]string),
	}
	for _, n := range nodes {
		pg.Nodes[n.ID] = n
	}
	for _, e := range edges {
		pg.inEdges[e.TargetNodeID] = append(pg.inEdges[e.TargetNodeID], e.SourceNodeID)
		pg.outEdges[e.SourceNodeID] = append(pg.outEdges[e.SourceNodeID], e.TargetNodeID)
	}
	for _, ids := range pg.inEdges {
		sort.Strings(ids)
	}
	for _, ids := range pg.outEdges {
		sort.Strings(ids)
	}
	return pg
}

// InEdges returns the ids of nodes with an edge into nodeID, sorted.
func (pg *PlanGraph) InEdges(nodeID string) []string { return pg.inEdges[nodeID] }

// OutEdges returns the ids of nodes nodeID has an edge into, sorted.
func (pg *PlanGraph) OutEdges(nodeID string) []string { return pg.outEdges[nodeID] }

// TopoOrder runs Kahn's algorithm over the whole graph, returning nodes in
// dependency order. If a cycle exists, it fails CyclicPlan naming every node
// with residual in-degree (spec.md §4.4 step 2).
func (pg *PlanGraph) TopoOrder() ([]string, error) {
	inDegree := make(map[string]int, len(pg.Nodes))
	for id := range pg.Nodes {
		inDegree[id] = len(pg.inEdges[id])
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		var freed []string
		for _, next := range pg.outEdges[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				freed = append(freed, next)
			}
		}
		sort.Strings(freed)
		queue = append(queue, freed...)
		sort.Strings(queue)
	}

	if len(order) != len(pg.Nodes) {
		var residual []string
		for id, deg := range inDegree {
			if deg > 0 {
				residual = append(residual, id)
			}
		}
		sort.Strings(residual)
		return nil, model.Wrap(model.ErrCyclicPlan, "cycle detected among nodes: %v", residual)
	}
	return order, nil
}

// Ancestors returns target plus every node that can reach it, for
// execute_with_dependencies.
func (pg *PlanGraph) Ancestors(target string) map[string]bool {
	seen := map[string]bool{target: true}
	var visit func(string)
	visit = func(id string) {
		for _, parent := range pg.inEdges[id] {
			if !seen[parent] {
				seen[parent] = true
				visit(parent)
			}
		}
	}
	visit(target)
	return seen
}

// Descendants returns changed plus every node reachable from it, for
// execute_affected_nodes.
func (pg *PlanGraph) Descendants(changed string) map[string]bool {
	seen := map[string]bool{changed: true}
	var visit func(string)
	visit = func(id string) {
		for _, child := range pg.outEdges[id] {
			if !seen[child] {
				seen[child] = true
				visit(child)
			}
		}
	}
	visit(changed)
	return seen
}

// Restrict filters a topological order down to the given allowed set,
// preserving relative order.
func Restrict(order []string, allowed map[string]bool) []string {
	out := make([]string, 0, len(allowed))
	for _, id := range order {
		if allowed[id] {
			out = append(out, id)
		}
	}
	return out
}
