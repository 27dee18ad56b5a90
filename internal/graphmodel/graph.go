// Package graphmodel holds the in-memory typed representation of a computed
// graph (nodes, edges, layers, partition hierarchy) and enforces the
// cross-cutting invariants of spec.md §3: edge endpoints must resolve,
// partitions may not be edge endpoints, and the belongs_to relation over
// partitions must be a forest.
package graphmodel

import (
	"sort"

	"github.com/layercake/layercake/internal/model"
)

// Graph is the canonical in-memory form of a GraphData: keyed maps for O(1)
// lookups during build/replay, with Ordered* accessors for deterministic
// iteration at render time (spec.md §4.6: "nodes by external_id ascending;
// edges by (source, target, external_id); layers by layer_id").
type Graph struct {
	GraphDataID string
	Name        string
	Annotations map[string]any

	Nodes  map[string]*model.GraphNode
	Edges  map[string]*model.GraphEdge // keyed by external_id; duplicates overwrite by design choice of the caller, see build.Merge for the no-dedup policy
	Layers map[string]*model.GraphLayer

	// edgeOrder preserves insertion order for targets (e.g. CSV-matrix,
	// sequence walks) where the merge's "no dedup, order preserved" policy
	// (spec.md §4.2) must survive into rendering. Edges is authoritative for
	// lookup; edgeList is authoritative for order and may contain duplicate
	// external ids.
	edgeList []*model.GraphEdge
}

// New returns an empty Graph ready for incremental population during a build.
func New(graphDataID string) *Graph {
	return &Graph{
		GraphDataID: graphDataID,
		Nodes:       make(map[string]*model.GraphNode),
		Edges:       make(map[string]*model.GraphEdge),
		Layers:      make(map[string]*model.GraphLayer),
	}
}

// UpsertNode inserts or overwrites a node by external id (last-writer-wins,
// spec.md §4.2 merge tie-breaks).
func (g *Graph) UpsertNode(n *model.GraphNode) {
	n.GraphDataID = g.GraphDataID
	g.Nodes[n.ExternalID] = n
}

// AppendEdge adds an edge without deduplication (spec.md §4.2: "do not
// deduplicate; edge semantic identity includes id").
func (g *Graph) AppendEdge(e *model.GraphEdge) {
	e.GraphDataID = g.GraphDataID
	g.Edges[e.ExternalID] = e
	g.edgeList = append(g.edgeList, e)
}

// UpsertLayer inserts or overwrites a layer by id, skipping empty ids
// (spec.md §4.2 step 4: "upsert into a keyed map by layer_id, skipping
// empty ids").
func (g *Graph) UpsertLayer(l *model.GraphLayer) {
	if l.LayerID == "" {
		return
	}
	l.GraphDataID = g.GraphDataID
	g.Layers[l.LayerID] = l
}

// DeleteNode removes a node and cascade-deletes every incident edge
// (spec.md §4.3: "node, op=delete ... cascade-delete incident edges").
func (g *Graph) DeleteNode(externalID string) {
	delete(g.Nodes, externalID)
	kept := g.edgeList[:0]
	for _, e := range g.edgeList {
		if e.Source == externalID || e.Target == externalID {
			delete(g.Edges, e.ExternalID)
			continue
		}
		kept = append(kept, e)
	}
	g.edgeList = kept
}

// DeleteEdge removes the first edge matching external id. Because edges are
// not deduplicated, only the map entry (used for existence checks) and the
// first list occurrence are removed; in practice the journal addresses
// edges by external id and expects a single logical edge per id once
// replay converges.
func (g *Graph) DeleteEdge(externalID string) {
	delete(g.Edges, externalID)
	for i, e := range g.edgeList {
		if e.ExternalID == externalID {
			g.edgeList = append(g.edgeList[:i], g.edgeList[i+1:]...)
			break
		}
	}
}

// DeleteLayer removes a layer by id.
func (g *Graph) DeleteLayer(id string) {
	delete(g.Layers, id)
}

// OrderedNodes returns nodes sorted by external_id ascending.
func (g *Graph) OrderedNodes() []*model.GraphNode {
	out := make([]*model.GraphNode, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out
}

// OrderedEdges returns edges sorted by (source, target, external_id).
func (g *Graph) OrderedEdges() []*model.GraphEdge {
	out := make([]*model.GraphEdge, len(g.edgeList))
	copy(out, g.edgeList)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.ExternalID < b.ExternalID
	})
	return out
}

// OrderedLayers returns layers sorted by layer_id.
func (g *Graph) OrderedLayers() []*model.GraphLayer {
	out := make([]*model.GraphLayer, 0, len(g.Layers))
	for _, l := range g.Layers {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LayerID < out[j].LayerID })
	return out
}

// NonPartitionNodes returns OrderedNodes filtered to IsPartition == false,
// the view every flow-oriented renderer consumes (grounded on
// original_source's Graph::get_non_partition_nodes).
func (g *Graph) NonPartitionNodes() []*model.GraphNode {
	all := g.OrderedNodes()
	out := make([]*model.GraphNode, 0, len(all))
	for _, n := range all {
		if !n.IsPartition {
			out = append(out, n)
		}
	}
	return out
}

// NonPartitionEdges returns OrderedEdges whose endpoints are not partitions.
// Edge-on-partition is rejected at build time (see Validate), so this is
// normally equivalent to OrderedEdges once a Graph has passed validation;
// it remains useful for in-progress graphs mid-transform.
func (g *Graph) NonPartitionEdges() []*model.GraphEdge {
	all := g.OrderedEdges()
	out := make([]*model.GraphEdge, 0, len(all))
	for _, e := range all {
		src, srcOK := g.Nodes[e.Source]
		dst, dstOK := g.Nodes[e.Target]
		if srcOK && dstOK && !src.IsPartition && !dst.IsPartition {
			out = append(out, e)
		}
	}
	return out
}

// HierarchyEdges returns a synthetic edge list for the belongs_to relation
// (child -> parent partition), used by the DOT-hierarchy / tree renderers.
func (g *Graph) HierarchyEdges() []model.GraphEdge {
	var out []model.GraphEdge
	for _, n := range g.OrderedNodes() {
		if n.BelongsTo == "" {
			continue
		}
		out = append(out, model.GraphEdge{
			ExternalID:  n.ExternalID + "->" + n.BelongsTo,
			GraphDataID: g.GraphDataID,
			Source:      n.ExternalID,
			Target:      n.BelongsTo,
		})
	}
	return out
}

// LayerMap returns OrderedLayers keyed by id, the shape renderers that build
// a Handlebars context ("layers": graph.get_layer_map()) expect.
func (g *Graph) LayerMap() map[string]*model.GraphLayer {
	out := make(map[string]*model.GraphLayer, len(g.Layers))
	for id, l := range g.Layers {
		out[id] = l
	}
	return out
}
