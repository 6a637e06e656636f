package goMFA

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// issuanceLimiter throttles challenge issuance per principal with a
// fixed-window Redis counter. Verification attempts are budgeted on the
// session record itself, this limiter only guards session creation.
type issuanceLimiter struct {
	redis        *redis.Client
	maxPerWindow int
	window       time.Duration
}

func newIssuanceLimiter(redisClient *redis.Client, maxPerWindow int, window time.Duration) *issuanceLimiter {
	return &issuanceLimiter{
		redis:        redisClient,
		maxPerWindow: maxPerWindow,
		window:       window,
	}
}

func (l *issuanceLimiter) key(tenantID, principalID string) string {
	return "ail:" + tenantID + ":" + principalID
}

func (l *issuanceLimiter) Check(ctx context.Context, tenantID, principalID string) error {
	count, err := l.redis.Get(ctx, l.key(tenantID, principalID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	if count >= int64(l.maxPerWindow) {
		return ErrIssuanceRateLimited
	}
	return nil
}

func (l *issuanceLimiter) Record(ctx context.Context, tenantID, principalID string) error {
	key := l.key(tenantID, principalID)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
		}
	}
	if count > int64(l.maxPerWindow) {
		return ErrIssuanceRateLimited
	}
	return nil
}

func (l *issuanceLimiter) Reset(ctx context.Context, tenantID, principalID string) error {
	if err := l.redis.Del(ctx, l.key(tenantID, principalID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	return nil
}
