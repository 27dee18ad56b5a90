package dag

import "sync"

// Canceller holds the process-wide cooperative cancel flags keyed by
// (project_id, plan_id), per spec.md §5's cancellation model. It is the one
// piece of global mutable state the executor is allowed, alongside the
// Event Bus subscriber registry.
type Canceller struct {
	mu   sync.Mutex
	flag map[string]bool
}

// NewCanceller returns an empty cancel-flag set.
func NewCanceller() *Canceller {
	return &Canceller{flag: make(map[string]bool)}
}

func key(projectID, planID string) string { return projectID + "/" + planID }

// Stop sets the cancel flag for (projectID, planID). The executor checks it
// before starting each topological layer of nodes; edit replay does not
// check it.
func (c *Canceller) Stop(projectID, planID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flag[key(projectID, planID)] = true
}

// Reset clears the cancel flag, e.g. when a new execution begins.
func (c *Canceller) Reset(projectID, planID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.flag, key(projectID, planID))
}

// Cancelled reports whether (projectID, planID) has been asked to stop.
func (c *Canceller) Cancelled(projectID, planID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flag[key(projectID, planID)]
}
