package dag

import (
	"github.com/layercake/layercake/internal/graphmodel"
	"github.com/layercake/layercake/internal/model"
)

// ApplyTransform mutates g in place per the TransformNode's declared
// operation (spec.md §4.5), applied after the merge and before validation
// and persistence.
func ApplyTransform(g *graphmodel.Graph, cfg *model.TransformNodeConfig) error {
	if cfg == nil {
		return model.Wrap(model.ErrInvalidConfig, "transform node requires config")
	}
	switch cfg.TransformType {
	case model.TransformPartitionDepthLimit:
		return partitionDepthLimit(g, cfg.MaxDepth)
	case model.TransformInvertGraph:
		invertGraph(g)
		return nil
	case model.TransformFilterNodes:
		return filterNodes(g, cfg.Predicate)
	case model.TransformFilterEdges:
		return filterEdges(g, cfg.Predicate)
	default:
		return model.Wrap(model.ErrInvalidConfig, "unknown transform_type %q", cfg.TransformType)
	}
}

// ApplyFilter mutates g in place per a FilterNode's declared operation,
// semantically identical to the matching Transform*Filter* case but kept as
// its own entry point for UX clarity (spec.md §4.5).
func ApplyFilter(g *graphmodel.Graph, cfg *model.FilterNodeConfig) error {
	if cfg == nil {
		return model.Wrap(model.ErrInvalidConfig, "filter node requires config")
	}
	switch cfg.FilterKind {
	case model.FilterKindNodes:
		return filterNodes(g, cfg.Predicate)
	case model.FilterKindEdges:
		return filterEdges(g, cfg.Predicate)
	default:
		return model.Wrap(model.ErrInvalidConfig, "unknown filter_kind %q", cfg.FilterKind)
	}
}

// partitionDepthLimit implements spec.md §4.5's PartitionDepthLimit: every
// partition deeper than maxDepth is dropped, its children (and any edges
// touching it) re-target to its ancestor at maxDepth. Ancestors are
// resolved against the graph's original belongs_to chains before any
// mutation, since lifting one partition must not disturb the chain another
// still-to-be-processed partition needs to walk.
func partitionDepthLimit(g *graphmodel.Graph, maxDepth int) error {
	if maxDepth <= 0 {
		return model.Wrap(model.ErrInvalidConfig, "PartitionDepthLimit requires max_depth > 0")
	}

	type lift struct {
		partitionID string
		ancestorID  string
	}
	var lifts []lift
	for _, n := range g.OrderedNodes() {
		if !n.IsPartition {
			continue
		}
		if g.Depth(n.ExternalID) > maxDepth {
			lifts = append(lifts, lift{partitionID: n.ExternalID, ancestorID: g.AncestorAtDepth(n.ExternalID, maxDepth)})
		}
	}

	retarget := make(map[string]string, len(lifts))
	for _, l := range lifts {
		retarget[l.partitionID] = l.ancestorID
	}

	for _, n := range g.OrderedNodes() {
		if n.BelongsTo != "" {
			if ancestor, ok := retarget[n.BelongsTo]; ok {
				n.BelongsTo = ancestor
			}
		}
	}
	for _, e := range g.OrderedEdges() {
		if ancestor, ok := retarget[e.Source]; ok {
			e.Source = ancestor
		}
		if ancestor, ok := retarget[e.Target]; ok {
			e.Target = ancestor
		}
	}
	for _, l := range lifts {
		delete(g.Nodes, l.partitionID)
	}
	return nil
}

// invertGraph swaps source/target on every edge.
func invertGraph(g *graphmodel.Graph) {
	for _, e := range g.OrderedEdges() {
		e.Source, e.Target = e.Target, e.Source
	}
}

// filterNodes keeps only nodes for which predicate evaluates truthy,
// cascade-deleting incident edges for everything removed.
func filterNodes(g *graphmodel.Graph, predicate string) error {
	if predicate == "" {
		return model.Wrap(model.ErrInvalidConfig, "FilterNodes requires a predicate")
	}
	for _, n := range g.OrderedNodes() {
		keep, err := EvaluatePredicate(predicate, nodePredicateVars(n))
		if err != nil {
			return err
		}
		if !keep {
			g.DeleteNode(n.ExternalID)
		}
	}
	return nil
}

// filterEdges keeps only edges for which predicate evaluates truthy.
func filterEdges(g *graphmodel.Graph, predicate string) error {
	if predicate == "" {
		return model.Wrap(model.ErrInvalidConfig, "FilterEdges requires a predicate")
	}
	for _, e := range g.OrderedEdges() {
		keep, err := EvaluatePredicate(predicate, edgePredicateVars(e))
		if err != nil {
			return err
		}
		if !keep {
			g.DeleteEdge(e.ExternalID)
		}
	}
	return nil
}
