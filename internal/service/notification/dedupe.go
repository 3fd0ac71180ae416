package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

const defaultDedupeTTL = 24 * time.Hour

// DedupeCache is the subset of *redis.Client the dedupe guard needs.
type DedupeCache interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// DedupePublisher skips notifications already delivered within the TTL. The
// marker is written only after the wrapped publisher succeeds, so a crash
// between the two yields a duplicate rather than a lost notification.
type DedupePublisher struct {
	next   domain.Publisher
	cache  DedupeCache
	ttl    time.Duration
	logger *slog.Logger
}

func NewDedupePublisher(next domain.Publisher, cache DedupeCache, ttl time.Duration, logger *slog.Logger) *DedupePublisher {
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	return &DedupePublisher{next: next, cache: cache, ttl: ttl, logger: logger.With("component", "notification-dedupe")}
}

func dedupeCacheKey(n domain.Notification) string {
	return "membership:notified:" + n.DedupeKey + ":" + n.RecipientID
}

func (p *DedupePublisher) Publish(ctx context.Context, n domain.Notification) error {
	key := dedupeCacheKey(n)

	seen, err := p.cache.Exists(ctx, key).Result()
	switch {
	case err != nil:
		// Fail open: a duplicate is acceptable, a dropped notification is not.
		p.logger.Warn("dedupe lookup failed", "key", key, "error", err)
	case seen > 0:
		p.logger.Debug("duplicate notification suppressed", "key", key)
		return nil
	}

	if err := p.next.Publish(ctx, n); err != nil {
		return err
	}

	if err := p.cache.Set(ctx, key, 1, p.ttl).Err(); err != nil {
		p.logger.Warn("dedupe marker not recorded", "key", key, "error", err)
	}
	return nil
}
