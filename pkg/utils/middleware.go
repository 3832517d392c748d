package utils

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Limiter counts requests per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter keeps counters in process memory. Counters are not shared
// between replicas.
type MemoryLimiter struct {
	mu        sync.Mutex
	max       int
	interval  time.Duration
	windows   map[string]window
	lastPrune time.Time
	now       func() time.Time
}

type window struct {
	count   int
	started time.Time
}

// NewMemoryLimiter allows max requests per key every interval.
func NewMemoryLimiter(max int, interval time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		max:      max,
		interval: interval,
		windows:  make(map[string]window),
		now:      time.Now,
	}
}

// Allow increments the counter for key and reports whether it is within the limit.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	currentTime := l.now()
	l.prune(currentTime)

	w, ok := l.windows[key]
	// Reset the counter if the interval has passed
	if !ok || currentTime.Sub(w.started) > l.interval {
		w = window{started: currentTime}
	}
	w.count++
	l.windows[key] = w
	return w.count <= l.max, nil
}

// prune drops finished windows at most once per interval, so keys of clients
// that stopped calling do not accumulate.
func (l *MemoryLimiter) prune(now time.Time) {
	if now.Sub(l.lastPrune) <= l.interval {
		return
	}
	for key, w := range l.windows {
		if now.Sub(w.started) > l.interval {
			delete(l.windows, key)
		}
	}
	l.lastPrune = now
}

// incrWindow increments the counter and arms its expiry whenever the key has
// none, in one atomic step.
var incrWindow = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisLimiter shares counters between replicas through redis.
type RedisLimiter struct {
	client   redis.Scripter
	prefix   string
	max      int
	interval time.Duration
}

// NewRedisLimiter allows max requests per key every interval. Keys are
// stored as "<prefix>:<key>".
func NewRedisLimiter(client redis.Scripter, prefix string, max int, interval time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, max: max, interval: interval}
}

// Allow increments the redis counter for key. The window starts with the first hit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	count, err := incrWindow.Run(ctx, l.client, []string{redisKey}, l.interval.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("error incrementing rate counter: %w", err)
	}
	return count <= int64(l.max), nil
}

// RateLimitMiddleware protects an endpoint from abuse, keyed by client IP.
// A failing limiter lets the request through.
func RateLimitMiddleware(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		allowed, err := limiter.Allow(c.Request.Context(), clientIP)
		if err != nil {
			logrus.Warnf("RateLimitMiddleware: limiter unavailable for %s: %v", clientIP, err)
			c.Next()
			return
		}
		if !allowed {
			logrus.WithField("client_ip", clientIP).Warn("RateLimitMiddleware: too many requests")
			SendErrorResponse(c, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			c.Abort() // Abort the request after sending the error
			return
		}

		c.Next()
	}
}
