package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/layercake/layercake/internal/build"
	"github.com/layercake/layercake/internal/log"
)

// MemoryBus fans NodeExecutionStatusEvent/PlanDagDeltaEvent out to
// in-process subscriber channels, for tests and single-process
// deployments. Publishing never blocks the caller: a subscriber whose
// channel is full simply misses the event, matching spec.md §4.9's
// "subscribers MUST tolerate gaps" delivery contract.
type MemoryBus struct {
	mu         sync.Mutex
	statusSubs []chan NodeExecutionStatusEvent
	deltaSubs  []chan PlanDagDeltaEvent
	logger     log.Logger
	now        func() time.Time
}

var (
	_ Publisher             = (*MemoryBus)(nil)
	_ WithNodeType          = (*MemoryBus)(nil)
	_ build.StatusPublisher = (*MemoryBus)(nil)
)

// NewMemoryBus constructs an empty MemoryBus.
func NewMemoryBus(logger log.Logger) *MemoryBus {
	if logger == nil {
		logger = log.NoOpLogger{}
	}
	return &MemoryBus{logger: logger, now: time.Now}
}

// SubscribeStatus registers a buffered channel that receives every
// published NodeExecutionStatusEvent until ctx is cancelled.
func (b *MemoryBus) SubscribeStatus(ctx context.Context, buffer int) <-chan NodeExecutionStatusEvent {
	ch := make(chan NodeExecutionStatusEvent, buffer)
	b.mu.Lock()
	b.statusSubs = append(b.statusSubs, ch)
	b.mu.Unlock()
	go b.unsubscribeStatusOnDone(ctx, ch)
	return ch
}

// SubscribeDelta registers a buffered channel that receives every
// published PlanDagDeltaEvent until ctx is cancelled.
func (b *MemoryBus) SubscribeDelta(ctx context.Context, buffer int) <-chan PlanDagDeltaEvent {
	ch := make(chan PlanDagDeltaEvent, buffer)
	b.mu.Lock()
	b.deltaSubs = append(b.deltaSubs, ch)
	b.mu.Unlock()
	go b.unsubscribeDeltaOnDone(ctx, ch)
	return ch
}

func (b *MemoryBus) unsubscribeStatusOnDone(ctx context.Context, ch chan NodeExecutionStatusEvent) {
	<-ctx.Done()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.statusSubs {
		if s == ch {
			b.statusSubs = append(b.statusSubs[:i], b.statusSubs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (b *MemoryBus) unsubscribeDeltaOnDone(ctx context.Context, ch chan PlanDagDeltaEvent) {
	<-ctx.Done()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.deltaSubs {
		if s == ch {
			b.deltaSubs = append(b.deltaSubs[:i], b.deltaSubs[i+1:]...)
			close(ch)
			return
		}
	}
}

// PublishNodeStatus implements build.StatusPublisher and Publisher. The
// narrower build.Engine/dag.Executor call sites only ever report a
// GraphData's status, so status lands in GraphExecution; a caller that also
// knows the DAG node's type and wants DatasetExecution populated should use
// PublishNodeStatusTyped directly (see WithNodeType).
func (b *MemoryBus) PublishNodeStatus(ctx context.Context, projectID, dagNodeID, status, message string) {
	b.PublishNodeStatusTyped(ctx, NodeExecutionStatusEvent{
		ProjectID:      projectID,
		NodeID:         dagNodeID,
		GraphExecution: status,
		Message:        message,
	})
}

// PublishNodeStatusTyped implements WithNodeType.
func (b *MemoryBus) PublishNodeStatusTyped(_ context.Context, event NodeExecutionStatusEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = b.now()
	}
	b.mu.Lock()
	subs := append([]chan NodeExecutionStatusEvent(nil), b.statusSubs...)
	b.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			b.logger.Debug("eventbus: dropped node status event for project %s, subscriber buffer full", event.ProjectID)
		}
	}
}

// PublishPlanDelta implements Publisher.
func (b *MemoryBus) PublishPlanDelta(_ context.Context, event PlanDagDeltaEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = b.now()
	}
	b.mu.Lock()
	subs := append([]chan PlanDagDeltaEvent(nil), b.deltaSubs...)
	b.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			b.logger.Debug("eventbus: dropped plan delta event for plan %s version %d, subscriber buffer full", event.PlanID, event.Version)
		}
	}
}
