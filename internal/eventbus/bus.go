// Package eventbus implements the Event Bus (spec.md §4.9): a
// publish-only, best-effort, at-most-once sink for NodeExecutionStatusEvent
// and PlanDagDeltaEvent, with no subscriber-durability guarantee ("events
// are fire-and-forget relative to the mutation that caused them"). Mirrors
// the teacher's pluggable CheckpointStore shape (store/checkpoint.go's
// port, store/redis/redis.go's concrete backend): one narrow interface,
// an in-memory implementation for tests/single-process use, and a Redis
// implementation for multi-process deployments.
package eventbus

import "context"

// Publisher is the Event Bus's two-topic publish surface. PublishNodeStatus
// intentionally matches build.StatusPublisher's signature so any Publisher
// also satisfies that narrower port without an adapter.
type Publisher interface {
	PublishNodeStatus(ctx context.Context, projectID, dagNodeID, status, message string)
	PublishPlanDelta(ctx context.Context, event PlanDagDeltaEvent)
}

// WithNodeType lets a caller that knows the DAG node's type (the DAG
// Executor does, the lower-level build.Engine does not) attach it and the
// dataset/graph execution sub-status before publishing, without widening
// the narrow build.StatusPublisher contract every Engine already depends
// on.
type WithNodeType interface {
	PublishNodeStatusTyped(ctx context.Context, event NodeExecutionStatusEvent)
}
