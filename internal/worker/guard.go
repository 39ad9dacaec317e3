package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/billingd/internal/messaging"
	"github.com/ignite/billingd/internal/pkg/logger"
)

const guardKeyPrefix = "billingd:events:processed:"

// Guard deduplicates event processing across redeliveries and worker
// replicas by claiming the event id in redis before the handler runs. The
// domain handlers are idempotent on their own; the guard just saves the
// duplicate work. With no redis configured it passes everything through.
type Guard struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

// NewGuard builds a guard. rdb may be nil to disable deduplication.
func NewGuard(rdb *redis.Client, ttl time.Duration, log *logger.Logger) *Guard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Guard{rdb: rdb, ttl: ttl, log: log}
}

// Wrap returns a handler that claims the event id before delegating. A
// failed delegate releases the claim so redelivery can retry. Redis being
// unreachable fails open: processing proceeds without deduplication.
func (g *Guard) Wrap(h messaging.Handler) messaging.Handler {
	if g.rdb == nil {
		return h
	}
	return messaging.HandlerFunc(func(ctx context.Context, evt *messaging.Event) error {
		key := guardKeyPrefix + evt.EventID

		claimed, err := g.rdb.SetNX(ctx, key, 1, g.ttl).Result()
		if err != nil {
			g.log.Warn("idempotency claim failed, processing without guard", "error", err)
			return h.Handle(ctx, evt)
		}
		if !claimed {
			g.log.Info("event already processed, skipping", "event_id", evt.EventID, "event_type", evt.EventType)
			return nil
		}

		if err := h.Handle(ctx, evt); err != nil {
			if delErr := g.rdb.Del(ctx, key).Err(); delErr != nil {
				g.log.Warn("failed to release idempotency claim", "event_id", evt.EventID, "error", delErr)
			}
			return err
		}
		return nil
	})
}
