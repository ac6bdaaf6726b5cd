// Package ratelimit throttles requests per authenticated user with a token bucket.
package ratelimit

import (
	"context"
	"github.com/go-chi/render"
	"golang.org/x/time/rate"
	"log/slog"
	"net/http"
	"prism/internal/lib/api/cont"
	"prism/internal/lib/api/response"
	"prism/internal/lib/sl"
	"sync"
	"time"
)

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Limiter struct {
	mu      sync.Mutex
	users   map[string]*userLimiter
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	log     *slog.Logger
}

// New allows perMinute requests per user with the given burst.
func New(perMinute, burst int, log *slog.Logger) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		users:   make(map[string]*userLimiter),
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		idleTTL: 30 * time.Minute,
		log:     log.With(sl.Module("middleware.ratelimit")),
	}
}

func (l *Limiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	ul, ok := l.users[key]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.users[key] = ul
	}
	ul.lastSeen = now
	return ul.limiter
}

// Cleanup drops limiters of users idle longer than the TTL.
func (l *Limiter) Cleanup(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for key, ul := range l.users {
		if now.Sub(ul.lastSeen) > l.idleTTL {
			delete(l.users, key)
			count++
		}
	}
	return count
}

// Run removes idle limiters every ten minutes until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := l.Cleanup(now); n > 0 {
				l.log.Debug("rate limiter cleanup", slog.Int("removed", n))
			}
		}
	}
}

// Handler rejects requests over the limit with 429. Anonymous requests are
// keyed by remote address.
func (l *Limiter) Handler(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if user := cont.GetUser(r.Context()); user != nil {
			key = user.UserID
		}
		now := time.Now()
		if !l.get(key, now).AllowN(now, 1) {
			l.log.Warn("rate limit exceeded", slog.String("key", key), slog.String("path", r.URL.Path))
			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, response.Fail("rate_limited", "Too many requests", nil))
			return
		}
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}
