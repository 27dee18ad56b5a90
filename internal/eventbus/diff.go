package eventbus

import (
	"fmt"
	"reflect"
	"sort"
)

// DiffSnapshots computes a minimal RFC 6902-shaped JSON Patch from oldSnap
// to newSnap, both a map of stable id -> arbitrary JSON-marshalable value
// (e.g. dag_node_id -> *model.PlanDagNode), satisfying spec.md P10: applying
// the emitted operations to oldSnap reproduces newSnap.
//
// None of the retrieved examples import an RFC 6902 diff library (only
// evanphx/json-patch appears, transitively, and it generates RFC 7396
// merge patches — a different wire format from the "operations" array
// spec.md §4.9 names) so this is a deliberate standard-library
// implementation: a shallow keyed-map diff is sufficient because every
// PlanDagDeltaEvent snapshot is keyed by node/edge id, never nested
// documents that need a path-walking diff.
func DiffSnapshots(basePath string, oldSnap, newSnap map[string]any) []PatchOp {
	var ops []PatchOp

	ids := make(map[string]bool, len(oldSnap)+len(newSnap))
	for id := range oldSnap {
		ids[id] = true
	}
	for id := range newSnap {
		ids[id] = true
	}
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	for _, id := range sorted {
		oldVal, hadOld := oldSnap[id]
		newVal, hasNew := newSnap[id]
		path := fmt.Sprintf("%s/%s", basePath, id)
		switch {
		case hadOld && !hasNew:
			ops = append(ops, PatchOp{Op: "remove", Path: path})
		case !hadOld && hasNew:
			ops = append(ops, PatchOp{Op: "add", Path: path, Value: newVal})
		case hadOld && hasNew && !reflect.DeepEqual(oldVal, newVal):
			ops = append(ops, PatchOp{Op: "replace", Path: path, Value: newVal})
		}
	}
	return ops
}
