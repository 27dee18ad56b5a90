package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layercake/layercake/internal/build"
	"github.com/layercake/layercake/internal/log"
)

// RedisBus PUBLISHes events to per-project Redis channels, for multi-process
// deployments where subscribers may live in other processes. Grounded on
// the teacher's store/redis/redis.go RedisCheckpointStore: a thin wrapper
// around a *redis.Client with a configurable key/channel prefix, the same
// json.Marshal-then-Set/Publish shape.
type RedisBus struct {
	client *redis.Client
	prefix string
	logger log.Logger
	now    func() time.Time
}

// RedisBusOptions configures a RedisBus, mirroring RedisOptions in
// store/redis/redis.go.
type RedisBusOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // channel key prefix, default "layercake:"
}

var (
	_ Publisher             = (*RedisBus)(nil)
	_ WithNodeType          = (*RedisBus)(nil)
	_ build.StatusPublisher = (*RedisBus)(nil)
)

// NewRedisBus dials a Redis client and wraps it as a Publisher.
func NewRedisBus(opts RedisBusOptions, logger log.Logger) *RedisBus {
	if logger == nil {
		logger = log.NoOpLogger{}
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "layercake:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisBus{client: client, prefix: prefix, logger: logger, now: time.Now}
}

// NewRedisBusWithClient wraps an already-constructed client, used by tests
// against a miniredis instance.
func NewRedisBusWithClient(client *redis.Client, prefix string, logger log.Logger) *RedisBus {
	if logger == nil {
		logger = log.NoOpLogger{}
	}
	if prefix == "" {
		prefix = "layercake:"
	}
	return &RedisBus{client: client, prefix: prefix, logger: logger, now: time.Now}
}

func (b *RedisBus) statusChannel(projectID string) string {
	return fmt.Sprintf("%sstatus:%s", b.prefix, projectID)
}

func (b *RedisBus) deltaChannel(projectID string) string {
	return fmt.Sprintf("%sdelta:%s", b.prefix, projectID)
}

// PublishNodeStatus implements build.StatusPublisher and Publisher.
func (b *RedisBus) PublishNodeStatus(ctx context.Context, projectID, dagNodeID, status, message string) {
	b.PublishNodeStatusTyped(ctx, NodeExecutionStatusEvent{
		ProjectID:      projectID,
		NodeID:         dagNodeID,
		GraphExecution: status,
		Message:        message,
	})
}

// PublishNodeStatusTyped implements WithNodeType. Publish failures are
// swallowed with a debug log per spec.md §5's "event publish failures are
// swallowed" propagation policy — the mutation that triggered the event
// must never fail because of this.
func (b *RedisBus) PublishNodeStatusTyped(ctx context.Context, event NodeExecutionStatusEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = b.now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Debug("eventbus: marshal node status event: %v", err)
		return
	}
	if err := b.client.Publish(ctx, b.statusChannel(event.ProjectID), data).Err(); err != nil {
		b.logger.Debug("eventbus: publish node status event: %v", err)
	}
}

// PublishPlanDelta implements Publisher. Same best-effort failure policy as
// PublishNodeStatusTyped.
func (b *RedisBus) PublishPlanDelta(ctx context.Context, event PlanDagDeltaEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = b.now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Debug("eventbus: marshal plan delta event: %v", err)
		return
	}
	if err := b.client.Publish(ctx, b.deltaChannel(event.ProjectID), data).Err(); err != nil {
		b.logger.Debug("eventbus: publish plan delta event: %v", err)
	}
}

// Close releases the underlying Redis client.
func (b *RedisBus) Close() error {
	return b.client.Close()
}
