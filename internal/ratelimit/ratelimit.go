// Package ratelimit throttles public write endpoints per client IP.
package ratelimit

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const (
	idleTTL    = 10 * time.Minute
	sweepEvery = time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	swept    time.Time
	every    rate.Limit
	burst    int
	now      func() time.Time
}

// New allows perMinute requests per IP per minute, all of them usable as a burst.
func New(perMinute int) *Limiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &Limiter{
		visitors: make(map[string]*visitor),
		every:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		now:      time.Now,
	}
}

func (l *Limiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.swept) >= sweepEvery {
		l.sweep(now)
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// sweep drops visitors idle for longer than idleTTL. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > idleTTL {
			delete(l.visitors, key)
		}
	}
	l.swept = now
}

// Allow reports whether ip may make another request now.
func (l *Limiter) Allow(ip string) bool {
	return l.get(ip).AllowN(l.now(), 1)
}

func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Allow(c.IP()) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests, please try again later")
		}
		return c.Next()
	}
}
