package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"storefront/pkg/storefront/domain/model"
)

const minLimiterIdleTTL = time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// callerLimiter keeps one token bucket per caller. Entries idle longer than
// idleTTL are swept on access, at most once per idleTTL.
type callerLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
	limiters  map[uuid.UUID]*limiterEntry
}

func newCallerLimiter(limit rate.Limit, burst int) *callerLimiter {
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &callerLimiter{
		limit:    limit,
		burst:    burst,
		idleTTL:  limiterIdleTTL(limit, burst),
		now:      time.Now,
		limiters: make(map[uuid.UUID]*limiterEntry),
	}
}

// limiterIdleTTL is never shorter than a full refill of the bucket, so a
// dropped entry is no more generous than the one it replaces.
func limiterIdleTTL(limit rate.Limit, burst int) time.Duration {
	ttl := minLimiterIdleTTL
	if limit != rate.Inf {
		refill := time.Duration(float64(burst) / float64(limit) * float64(time.Second))
		if refill > ttl {
			ttl = refill
		}
	}
	return ttl
}

func (l *callerLimiter) allow(userID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)
	entry, ok := l.limiters[userID]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *callerLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	l.lastSweep = now
	for id, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > l.idleTTL {
			delete(l.limiters, id)
		}
	}
}

func (l *callerLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (h *Handler) limited(next privateHandlerFunc) privateHandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, caller model.Identity) {
		if !h.aiLimiter.allow(caller.UserID) {
			writeError(w, model.ErrRateLimited)
			return
		}
		next(w, r, caller)
	}
}
