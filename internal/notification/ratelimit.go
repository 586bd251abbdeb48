package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	platformredis "immersion/internal/platform/redis"
)

// RateLimiter bounds outbound sends per channel with a fixed window counter
// in Redis. Without Redis (nil client) or on Redis errors it fails open:
// losing the bound is better than losing the notification.
type RateLimiter struct {
	client *platformredis.Client
	logger *slog.Logger
}

// NewRateLimiter builds the limiter; client may be nil.
func NewRateLimiter(client *platformredis.Client, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{client: client, logger: logger}
}

// Allow reports whether one more send fits the channel's window.
func (l *RateLimiter) Allow(ctx context.Context, channel string, limit int, window time.Duration) bool {
	if l.client == nil || limit <= 0 {
		return true
	}

	key := fmt.Sprintf("notification:%s:%d", channel, time.Now().Unix()/int64(window.Seconds()))
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.WarnContext(ctx, "rate limiter unavailable, failing open", "channel", channel, "error", err)
		return true
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, window).Err(); err != nil {
			l.logger.WarnContext(ctx, "rate limiter expire failed", "channel", channel, "error", err)
		}
	}
	return count <= int64(limit)
}
