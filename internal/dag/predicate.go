package dag

import (
	"go.starlark.net/starlark"

	"github.com/layercake/layercake/internal/model"
)

// EvaluatePredicate runs a FilterNodes/FilterEdges predicate expression
// (spec.md §4.5: "opaque string expressions consumed by an evaluator the
// renderer provides") as a single Starlark boolean expression against vars,
// and reports its truthiness.
func EvaluatePredicate(expr string, vars map[string]any) (bool, error) {
	predefined := make(starlark.StringDict, len(vars))
	for k, v := range vars {
		sv, err := toStarlarkValue(v)
		if err != nil {
			return false, model.Wrap(model.ErrInvalidConfig, "predicate variable %q: %v", k, err)
		}
		predefined[k] = sv
	}

	thread := &starlark.Thread{Name: "predicate"}
	val, err := starlark.Eval(thread, "<predicate>", expr, predefined)
	if err != nil {
		return false, model.Wrap(model.ErrInvalidConfig, "evaluate predicate %q: %v", expr, err)
	}
	return bool(val.Truth()), nil
}

func toStarlarkValue(v any) (starlark.Value, error) {
	switch t := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(t), nil
	case string:
		return starlark.String(t), nil
	case int:
		return starlark.MakeInt(t), nil
	case float64:
		return starlark.Float(t), nil
	case map[string]any:
		dict := starlark.NewDict(len(t))
		for k, val := range t {
			sv, err := toStarlarkValue(val)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return starlark.None, nil
	}
}

// nodePredicateVars builds the variable dict FilterNodes predicates see for
// one node.
func nodePredicateVars(n *model.GraphNode) map[string]any {
	return map[string]any{
		"id":           n.ExternalID,
		"label":        n.Label,
		"layer":        n.Layer,
		"weight":       n.Weight,
		"is_partition": n.IsPartition,
		"belongs_to":   n.BelongsTo,
		"attrs":        n.Attributes,
	}
}

// edgePredicateVars builds the variable dict FilterEdges predicates see for
// one edge.
func edgePredicateVars(e *model.GraphEdge) map[string]any {
	return map[string]any{
		"id":     e.ExternalID,
		"source": e.Source,
		"target": e.Target,
		"label":  e.Label,
		"layer":  e.Layer,
		"weight": e.Weight,
		"attrs":  e.Attributes,
	}
}
