// Package notify publishes claim lifecycle events for downstream delivery.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/claimcheck/pkg/apperrors"
	"github.com/ekaya-inc/claimcheck/pkg/metrics"
)

// EventType names a claim lifecycle event.
type EventType string

const (
	EventClaimSubmitted EventType = "claim_submitted"
	EventClaimApproved  EventType = "claim_approved"
	EventClaimRejected  EventType = "claim_rejected"
	EventClaimFlagged   EventType = "claim_flagged"
)

// Event is addressed to RecipientID, usually the claim author.
type Event struct {
	Type        EventType `json:"type"`
	ClaimID     uuid.UUID `json:"claim_id"`
	RecipientID string    `json:"recipient_id"`
	ActorID     string    `json:"actor_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// publisher is the subset of *redis.Client used for publishing.
type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisNotifier publishes events as JSON on a Redis pub/sub channel.
type RedisNotifier struct {
	rdb     publisher
	channel string
}

// NewRedisNotifier creates a notifier publishing to channel.
func NewRedisNotifier(rdb publisher, channel string) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, channel: channel}
}

func (n *RedisNotifier) Notify(ctx context.Context, event Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := n.rdb.Publish(ctx, n.channel, raw).Err(); err != nil {
		return &apperrors.DependencyError{Dependency: "redis", Err: err}
	}
	return nil
}

// LogNotifier logs events instead of publishing them. Used when Redis is not configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify")}
}

func (n *LogNotifier) Notify(_ context.Context, event Event) error {
	n.logger.Info("Notification",
		zap.String("type", string(event.Type)),
		zap.String("claim_id", event.ClaimID.String()),
		zap.String("recipient_id", event.RecipientID))
	return nil
}

// AsyncNotifier hands events to an inner Notifier on a background goroutine.
// Notify never blocks the caller and never returns an error; failures are logged.
type AsyncNotifier struct {
	inner   Notifier
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewAsyncNotifier wraps inner. Each delivery gets its own timeout.
func NewAsyncNotifier(inner Notifier, timeout time.Duration, logger *zap.Logger) *AsyncNotifier {
	return &AsyncNotifier{
		inner:   inner,
		timeout: timeout,
		logger:  logger.Named("notify"),
	}
}

func (n *AsyncNotifier) Notify(_ context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		// Detached from the request context: the request may finish first.
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.inner.Notify(ctx, event); err != nil {
			metrics.NotificationFailures.Inc()
			n.logger.Warn("Failed to deliver notification",
				zap.String("type", string(event.Type)),
				zap.String("claim_id", event.ClaimID.String()),
				zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until in-flight deliveries finish. Call during shutdown.
func (n *AsyncNotifier) Wait() {
	n.wg.Wait()
}

var (
	_ Notifier = (*RedisNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*AsyncNotifier)(nil)
)
