package server

import (
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimit bounds write requests per actor. A zero PerSecond disables it.
type RateLimit struct {
	PerSecond float64
	Burst     int
}

type actorLimiter struct {
	limit RateLimit
	mu    sync.Mutex
	byKey map[string]*rate.Limiter
}

func newActorLimiter(l RateLimit) *actorLimiter {
	if l.Burst <= 0 {
		l.Burst = 1
	}
	return &actorLimiter{limit: l, byKey: map[string]*rate.Limiter{}}
}

func (a *actorLimiter) get(actor string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.byKey[actor]
	if !ok {
		l = rate.NewLimiter(rate.Limit(a.limit.PerSecond), a.limit.Burst)
		a.byKey[actor] = l
	}
	return l
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// newRateLimitMiddleware must run after authentication so writes are keyed
// by the resolved actor.
func newRateLimitMiddleware(basePath string, l RateLimit) func(http.Handler) http.Handler {
	if l.PerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := newActorLimiter(l)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !isWrite(req.Method) || !strings.HasPrefix(req.URL.Path, basePath) {
				next.ServeHTTP(w, req)
				return
			}
			p, ok := principalFromContext(req.Context())
			if !ok {
				next.ServeHTTP(w, req)
				return
			}
			if !limiter.get(p.ActorID).Allow() {
				respondStatusError(w, newAPIError(http.StatusTooManyRequests, "rate_limited", "too many write requests", map[string]any{"actor_id": p.ActorID}))
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
