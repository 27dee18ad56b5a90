package dag

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// runParallel executes fn once per id in ids, concurrency-gated by an
// errgroup semaphore sized to GOMAXPROCS (spec.md §5), mirroring the
// teacher's executeNodesParallel wait-group fan-out in graph/state_graph.go.
// Each branch's outcome is captured independently rather than returned to
// the group, since spec.md §4.4 step 6 requires one node's failure not to
// abort sibling or descendant execution — returning it to errgroup would
// trigger its fail-fast cancellation of the remaining branches. A panic in
// one branch is recovered and reported as that branch's error.
func runParallel(ids []string, fn func(id string) error) map[string]error {
	results := make(map[string]error, len(ids))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, id := range ids {
		nodeID := id
		g.Go(func() error {
			err := safeCall(nodeID, fn)
			mu.Lock()
			results[nodeID] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// safeCall recovers a panic from fn and reports it as nodeID's error,
// reimplementing the behavior the teacher's missing SafeGo helper implies
// at its call sites (graph/state_graph.go) — that helper's own definition
// is absent from the retrieved source tree.
func safeCall(nodeID string, fn func(id string) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic executing node %s: %v", nodeID, r)
		}
	}()
	return fn(nodeID)
}
