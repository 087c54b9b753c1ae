package paygate

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/tachi-labs/paygate/rawdb"
	"github.com/tachi-labs/paygate/schema"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const limiterPrefix = "paygate_limiter"

// RateLimiter counts one request for key and reports whether it fits in limit per window.
type RateLimiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (schema.RateLimitResult, error)
}

// UluleLimiter is a fixed window counter on a ulule store, shared between instances when the store is redis.
type UluleLimiter struct {
	store limiter.Store
}

func NewUluleMemoryLimiter() *UluleLimiter {
	return &UluleLimiter{store: memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          limiterPrefix,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	})}
}

func NewUluleRedisLimiter(client *redis.Client) (*UluleLimiter, error) {
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   limiterPrefix,
		MaxRetry: 3,
	})
	if err != nil {
		return nil, err
	}
	return &UluleLimiter{store: store}, nil
}

func (l *UluleLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (schema.RateLimitResult, error) {
	lctx, err := l.store.Get(ctx, key, limiter.Rate{Period: window, Limit: int64(limit)})
	if err != nil {
		return schema.RateLimitResult{}, err
	}
	return schema.RateLimitResult{
		Allowed:   !lctx.Reached,
		Limit:     int(lctx.Limit),
		Remaining: int(lctx.Remaining),
		ResetAt:   time.Unix(lctx.Reset, 0),
	}, nil
}

// KVLimiter is a sliding window over request timestamps kept in the gateway Store.
// Checks are serialised within the process; across instances the read and write are not atomic,
// so concurrent requests from several gateways may slightly overshoot the limit.
type KVLimiter struct {
	store *Store
	now   func() time.Time
	lock  sync.Mutex
}

func NewKVLimiter(store *Store) *KVLimiter {
	return &KVLimiter{store: store, now: time.Now}
}

func (l *KVLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (schema.RateLimitResult, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	now := l.now()
	w, err := l.store.LoadRateWindow(key)
	if err != nil {
		return schema.RateLimitResult{}, err
	}

	cutoff := now.Add(-window).UnixMilli()
	live := w.Timestamps[:0]
	for _, ts := range w.Timestamps {
		if ts > cutoff {
			live = append(live, ts)
		}
	}

	res := schema.RateLimitResult{Limit: limit, ResetAt: now.Add(window)}
	if len(live) > 0 {
		res.ResetAt = time.UnixMilli(live[0]).Add(window)
	}
	if len(live) >= limit {
		return res, nil
	}

	live = append(live, now.UnixMilli())
	if err := l.store.SaveRateWindow(key, schema.RateWindow{Timestamps: live}, window); err != nil {
		return schema.RateLimitResult{}, err
	}
	res.Allowed = true
	res.Remaining = limit - len(live)
	res.ResetAt = time.UnixMilli(live[0]).Add(window)
	return res, nil
}

// NewStoreLimiter counts where the gateway state lives. Redis uses the atomic ulule redis store with the
// timestamp window as fallback. The memory backend uses the in-process ulule counter first, its state is
// process local anyway. Bolt and mongo count in the shared Store directly.
func NewStoreLimiter(store *Store) (*TieredLimiter, error) {
	switch db := store.KVDb.(type) {
	case *rawdb.RedisDB:
		ule, err := NewUluleRedisLimiter(db.Client)
		if err != nil {
			return nil, err
		}
		return NewTieredLimiter(ule, NewKVLimiter(store)), nil
	case *rawdb.MemoryDB:
		return NewTieredLimiter(NewUluleMemoryLimiter(), NewKVLimiter(store)), nil
	default:
		return NewTieredLimiter(NewKVLimiter(store)), nil
	}
}

// TieredLimiter asks each limiter in order and uses the first that answers.
// When none answers the request is allowed.
type TieredLimiter struct {
	tiers []RateLimiter
}

func NewTieredLimiter(tiers ...RateLimiter) *TieredLimiter {
	return &TieredLimiter{tiers: tiers}
}

func (t *TieredLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (schema.RateLimitResult, error) {
	for i, tier := range t.tiers {
		res, err := tier.Check(ctx, key, limit, window)
		if err == nil {
			return res, nil
		}
		log.Warn("rate limiter tier unavailable", "tier", i, "err", err)
	}
	log.Warn("rate limiter fail open", "key", key, "err", schema.ErrNoLimiter)
	metricFailOpen()
	return schema.RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit,
		ResetAt:   time.Now().Add(window),
	}, nil
}

// clientIP prefers the trusted proxy header, then the first X-Forwarded-For hop, then the socket peer.
func clientIP(c *gin.Context, trustedHeader string) string {
	if trustedHeader != "" {
		if ip := strings.TrimSpace(c.GetHeader(trustedHeader)); ip != "" {
			return ip
		}
	}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	return c.ClientIP()
}

func rateLimitKey(ip, path string) string {
	return fmt.Sprintf("%s:%s", ip, path)
}
