// Package ratelimit provides a per-client token-bucket limiter for HTTP routes.
package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/time/rate"
)

const (
	sweepEvery = 5 * time.Minute
	staleAfter = 10 * time.Minute
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out one token bucket per client address and forgets clients
// that have been idle for a while.
type Limiter struct {
	mu       sync.Mutex
	clients  map[string]*client
	limit    rate.Limit
	burst    int
	rejected atomic.Int64
	closed   atomic.Bool
	stop     chan struct{}
}

// New returns a Limiter allowing rps requests per second per client with the
// given burst. It starts a background sweeper that Close stops.
func New(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}

	l := &Limiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(rps),
		burst:   burst,
		stop:    make(chan struct{}),
	}
	go l.sweep()

	return l
}

// Allow reports whether the client identified by key may proceed now.
func (l *Limiter) Allow(key string) bool {
	if l.get(key).Allow() {
		return true
	}

	l.rejected.Inc()
	return false
}

// Rejected returns how many requests were turned away since start.
func (l *Limiter) Rejected() int64 {
	return l.rejected.Load()
}

// Middleware rejects requests over the limit with 429 and a JSON message.
func (l *Limiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(clientKey(r)) {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				//nolint:errcheck,gosec // best effort
				json.NewEncoder(w).Encode(map[string]string{"message": "Too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (l *Limiter) Close() error {
	if l.closed.CompareAndSwap(false, true) {
		close(l.stop)
	}
	return nil
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.clients[key]; ok {
		c.lastSeen = time.Now()
		return c.limiter
	}

	lim := rate.NewLimiter(l.limit, l.burst)
	l.clients[key] = &client{limiter: lim, lastSeen: time.Now()}
	return lim
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evict(time.Now().Add(-staleAfter))
		}
	}
}

func (l *Limiter) evict(before time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, c := range l.clients {
		if c.lastSeen.Before(before) {
			delete(l.clients, key)
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.clients)
}

// clientKey uses the address already resolved by the real-IP middleware,
// dropping the port when present.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
