package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryBus_PublishNodeStatus_DeliversToSubscriber(t *testing.T) {
	bus := NewMemoryBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := bus.SubscribeStatus(ctx, 4)
	bus.PublishNodeStatus(context.Background(), "proj1", "node1", "active", "")

	select {
	case ev := <-ch:
		assert.Equal(t, "proj1", ev.ProjectID)
		assert.Equal(t, "node1", ev.NodeID)
		assert.Equal(t, "active", ev.GraphExecution)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestMemoryBus_PublishWithNoSubscribers_DoesNotBlock(t *testing.T) {
	bus := NewMemoryBus(nil)
	done := make(chan struct{})
	go func() {
		bus.PublishNodeStatus(context.Background(), "proj1", "node1", "active", "")
		bus.PublishPlanDelta(context.Background(), PlanDagDeltaEvent{ProjectID: "proj1"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked with no subscribers")
	}
}

func TestMemoryBus_FullSubscriberBufferDropsEvent(t *testing.T) {
	bus := NewMemoryBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := bus.SubscribeStatus(ctx, 1)
	bus.PublishNodeStatus(context.Background(), "proj1", "node1", "processing", "")
	bus.PublishNodeStatus(context.Background(), "proj1", "node1", "active", "") // dropped, buffer full

	ev := <-ch
	assert.Equal(t, "processing", ev.GraphExecution)
	select {
	case <-ch:
		t.Fatal("expected second event to be dropped, not delivered")
	default:
	}
}

func TestMemoryBus_UnsubscribeOnContextDone(t *testing.T) {
	bus := NewMemoryBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	ch := bus.SubscribeDelta(ctx, 1)
	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("subscriber channel was not closed after context cancellation")
	}
}
