package httpserver

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMaxVisitors = 10000
	visitorIdle        = 10 * time.Minute
)

// SendLimiter throttles message sends per user. It tracks at most
// maxVisitors users; past that, idle users go first, then the least recent.
type SendLimiter struct {
	mu          sync.Mutex
	limit       rate.Limit
	burst       int
	maxVisitors int
	visitors    map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewSendLimiter(perSecond float64, burst int) *SendLimiter {
	if burst < 1 {
		burst = 1
	}
	return &SendLimiter{
		limit:       rate.Limit(perSecond),
		burst:       burst,
		maxVisitors: defaultMaxVisitors,
		visitors:    make(map[string]*visitor),
	}
}

// Allow reports whether userID may send now.
func (l *SendLimiter) Allow(userID string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	v, ok := l.visitors[userID]
	if !ok {
		if len(l.visitors) >= l.maxVisitors {
			l.pruneLocked(visitorIdle)
		}
		for len(l.visitors) >= l.maxVisitors {
			l.evictOldestLocked()
		}
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[userID] = v
	}
	v.lastSeen = time.Now()
	l.mu.Unlock()
	return v.limiter.Allow()
}

func (l *SendLimiter) pruneLocked(maxIdle time.Duration) {
	for id, v := range l.visitors {
		if time.Since(v.lastSeen) > maxIdle {
			delete(l.visitors, id)
		}
	}
}

func (l *SendLimiter) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, v := range l.visitors {
		if oldestID == "" || v.lastSeen.Before(oldest) {
			oldestID, oldest = id, v.lastSeen
		}
	}
	delete(l.visitors, oldestID)
}

// Middleware rejects requests over the caller's budget with 429.
func (l *SendLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(CurrentUserID(r)) {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorBody("too many messages, slow down"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
