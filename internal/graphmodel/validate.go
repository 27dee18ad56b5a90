package graphmodel

import (
	"fmt"

	"github.com/layercake/layercake/internal/model"
)

// ValidationResult is the structured outcome of Validate, matching spec.md
// §7's "validate-and-migrate operation reports per-node migration details +
// warnings + errors as structured output without mutating anything".
type ValidationResult struct {
	NodeCount  int
	EdgeCount  int
	LayerCount int
	Warnings   []string
	Errors     []string
}

// OK reports whether the graph passed validation with no errors (warnings
// are informational and do not block a build).
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Validate checks every invariant from spec.md §3:
//   - every edge endpoint resolves to a node in this graph (DanglingEdge)
//   - no edge endpoint is a partition node (EdgeOnPartition)
//   - belongs_to targets exist and are partitions (BelongsToMissing)
//   - the belongs_to relation over partitions is acyclic (PartitionCycle)
//
// It never mutates the graph; callers decide whether to fail the build or
// merely report warnings for non-fatal findings.
func (g *Graph) Validate() ValidationResult {
	res := ValidationResult{
		NodeCount:  len(g.Nodes),
		EdgeCount:  len(g.edgeList),
		LayerCount: len(g.Layers),
	}

	for _, e := range g.edgeList {
		src, srcOK := g.Nodes[e.Source]
		dst, dstOK := g.Nodes[e.Target]
		if !srcOK {
			res.Errors = append(res.Errors, fmt.Sprintf("edge %s references non-existent source node: %s", e.ExternalID, e.Source))
			continue
		}
		if !dstOK {
			res.Errors = append(res.Errors, fmt.Sprintf("edge %s references non-existent target node: %s", e.ExternalID, e.Target))
			continue
		}
		if src.IsPartition || dst.IsPartition {
			res.Errors = append(res.Errors, fmt.Sprintf("edge %s touches a partition (subflow) node: %s -> %s", e.ExternalID, e.Source, e.Target))
		}
	}

	for _, n := range g.Nodes {
		if n.BelongsTo == "" {
			continue
		}
		parent, ok := g.Nodes[n.BelongsTo]
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("node %s belongs_to missing partition: %s", n.ExternalID, n.BelongsTo))
			continue
		}
		if !parent.IsPartition {
			res.Errors = append(res.Errors, fmt.Sprintf("node %s belongs_to non-partition node: %s", n.ExternalID, n.BelongsTo))
		}
	}

	if cyclic := g.findPartitionCycle(); len(cyclic) > 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("partition cycle detected: %v", cyclic))
	}

	return res
}

// ValidateOrError runs Validate and converts the first structural error
// category into the matching sentinel, for callers (Graph Build Engine)
// that need to fail fast with a specific taxonomy error rather than a
// generic report.
func (g *Graph) ValidateOrError() error {
	for _, e := range g.edgeList {
		src, srcOK := g.Nodes[e.Source]
		dst, dstOK := g.Nodes[e.Target]
		if !srcOK {
			return model.Wrap(model.ErrDanglingEdge, "edge %s references non-existent source node: %s", e.ExternalID, e.Source)
		}
		if !dstOK {
			return model.Wrap(model.ErrDanglingEdge, "edge %s references non-existent target node: %s", e.ExternalID, e.Target)
		}
		if src.IsPartition || dst.IsPartition {
			return model.Wrap(model.ErrEdgeOnPartition, "edge %s touches a partition (subflow) node: %s -> %s", e.ExternalID, e.Source, e.Target)
		}
	}
	for _, n := range g.Nodes {
		if n.BelongsTo == "" {
			continue
		}
		parent, ok := g.Nodes[n.BelongsTo]
		if !ok {
			return model.Wrap(model.ErrBelongsToMissing, "node %s belongs_to missing partition: %s", n.ExternalID, n.BelongsTo)
		}
		if !parent.IsPartition {
			return model.Wrap(model.ErrBelongsToMissing, "node %s belongs_to non-partition node: %s", n.ExternalID, n.BelongsTo)
		}
	}
	if cyclic := g.findPartitionCycle(); len(cyclic) > 0 {
		return model.Wrap(model.ErrPartitionCycle, "partition cycle detected: %v", cyclic)
	}
	return nil
}

// findPartitionCycle walks the belongs_to relation from every partition node
// and returns the first cycle found as an ordered list of external ids, or
// nil if the relation is a forest (spec.md P4: "the belongs_to relation
// over partition nodes is a forest").
func (g *Graph) findPartitionCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.Nodes))

	var path []string
	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = gray
		path = append(path, id)

		n, ok := g.Nodes[id]
		if ok && n.BelongsTo != "" {
			parent := n.BelongsTo
			switch color[parent] {
			case gray:
				// found the cycle: slice path from the first occurrence of parent
				for i, p := range path {
					if p == parent {
						cyc := append([]string{}, path[i:]...)
						return append(cyc, parent)
					}
				}
			case white:
				if cyc := visit(parent); cyc != nil {
					return cyc
				}
			}
		}

		path = path[:len(path)-1]
		color[id] = black
		return nil
	}

	for _, n := range g.Nodes {
		if !n.IsPartition {
			continue
		}
		if color[n.ExternalID] == white {
			if cyc := visit(n.ExternalID); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}
