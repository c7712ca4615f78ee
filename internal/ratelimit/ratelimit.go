// Package ratelimit guards the WebSocket upgrade endpoint with a
// per-IP sliding-window limit, so one client cannot churn connections
// fast enough to flood the registry with join/leave rounds.
package ratelimit

import (
	"log"
	"net"
	"net/http"
	"sync"
	"time"
)

// Limiter tracks request counts per IP within a sliding window.
type Limiter struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	max     int
	window  time.Duration
}

// New creates a Limiter allowing max requests per window per IP.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		entries: make(map[string][]time.Time),
		max:     max,
		window:  window,
	}
}

// Allow reports whether the IP is under its limit, recording the
// request when it is.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	timestamps := l.entries[ip]
	valid := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= l.max {
		l.entries[ip] = valid
		return false
	}

	l.entries[ip] = append(valid, now)
	return true
}

// Middleware rejects requests over the limit with 429 before they
// reach the wrapped handler.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !l.Allow(ip) {
			log.Printf("ratelimit: rejecting %s", ip)
			http.Error(w, "too many connections, slow down", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
