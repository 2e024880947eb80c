package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/jobboard/internal/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	keyWebhookClient = "jobboard:webhook:ip:"

	localIdleTTL = 10 * time.Minute
)

// Limiter decides whether one more request for key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// NewWebhookLimiter uses the redis token bucket when one is available and an
// in-process limiter otherwise.
func NewWebhookLimiter(cfg config.Config, bucket *TokenBucket, log *zap.Logger) Limiter {
	rps := cfg.RateLimit.WebhookRate
	burst := cfg.RateLimit.WebhookBurst
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 30
	}
	log = log.Named("ratelimit.webhook")
	if bucket != nil {
		return &redisLimiter{bucket: bucket, rate: rps, burst: burst, log: log, fallback: NewLocalLimiter(rps, burst)}
	}
	return NewLocalLimiter(rps, burst)
}

type redisLimiter struct {
	bucket   *TokenBucket
	rate     float64
	burst    int
	log      *zap.Logger
	fallback *LocalLimiter
}

func (l *redisLimiter) Allow(ctx context.Context, key string) bool {
	res, err := l.bucket.Allow(ctx, keyWebhookClient+key, l.rate, l.burst)
	if err != nil {
		l.log.Warn("redis rate limit failed, using local limiter", zap.Error(err))
		return l.fallback.Allow(ctx, key)
	}
	return res.Allowed
}

// LocalLimiter keeps one x/time/rate limiter per key and forgets idle keys.
type LocalLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	visitors map[string]*visitor
	lastGC   time.Time
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLocalLimiter(rps float64, burst int) *LocalLimiter {
	return &LocalLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		visitors: map[string]*visitor{},
		now:      time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastGC) > localIdleTTL {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > localIdleTTL {
				delete(l.visitors, k)
			}
		}
		l.lastGC = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}
