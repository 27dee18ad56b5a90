package eventbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisBus_PublishNodeStatus_DeliveredOnChannel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bus := NewRedisBusWithClient(client, "test:", nil)

	sub := client.Subscribe(context.Background(), "test:status:proj1")
	defer sub.Close()
	_, err = sub.Receive(context.Background())
	require.NoError(t, err)

	bus.PublishNodeStatus(context.Background(), "proj1", "node1", "active", "")

	select {
	case msg := <-sub.Channel():
		var ev NodeExecutionStatusEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, "proj1", ev.ProjectID)
		assert.Equal(t, "active", ev.GraphExecution)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestRedisBus_PublishPlanDelta_DeliveredOnChannel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bus := NewRedisBusWithClient(client, "test:", nil)

	sub := client.Subscribe(context.Background(), "test:delta:proj1")
	defer sub.Close()
	_, err = sub.Receive(context.Background())
	require.NoError(t, err)

	bus.PublishPlanDelta(context.Background(), PlanDagDeltaEvent{
		ProjectID:  "proj1",
		PlanID:     "plan1",
		Version:    2,
		Operations: []PatchOp{{Op: "add", Path: "/nodes/n1", Value: "x"}},
	})

	select {
	case msg := <-sub.Channel():
		var ev PlanDagDeltaEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, int64(2), ev.Version)
		require.Len(t, ev.Operations, 1)
		assert.Equal(t, "add", ev.Operations[0].Op)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestRedisBus_PublishOnUnreachableServer_DoesNotPanic(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	bus := NewRedisBusWithClient(client, "", nil)
	assert.NotPanics(t, func() {
		bus.PublishNodeStatus(context.Background(), "proj1", "node1", "error", "boom")
	})
}
