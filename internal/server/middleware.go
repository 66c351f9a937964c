// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// RATE LIMITING
// =============================================================================

// rateLimiter throttles requests per client IP with a token bucket each.
// Stale entries are pruned so one-off clients don't accumulate forever.
type rateLimiter struct {
	mu       sync.Mutex
	perSec   rate.Limit
	burst    int
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const visitorTTL = 10 * time.Minute

func newRateLimiter(perSecond float64) *rateLimiter {
	rl := &rateLimiter{
		perSec:   rate.Limit(perSecond),
		burst:    int(perSecond * 2),
		visitors: make(map[string]*visitor),
	}
	if rl.burst < 1 {
		rl.burst = 1
	}
	return rl
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.perSec, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()

	// Opportunistic pruning keeps the map bounded without a sweeper.
	if len(rl.visitors) > 1000 {
		cutoff := time.Now().Add(-visitorTTL)
		for key, vis := range rl.visitors {
			if vis.lastSeen.Before(cutoff) {
				delete(rl.visitors, key)
			}
		}
	}
	return v.limiter.Allow()
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			slog.Warn("rate limit exceeded", "ip", clientIP(r), "path", r.URL.Path)
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the remote IP, ignoring proxy headers: this server binds
// to loopback and trusting X-Forwarded-For would let clients spoof buckets.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// =============================================================================
// RECOVERY
// =============================================================================

// recoveryMiddleware turns handler panics into 500s instead of dropped
// connections.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("handler panic", "path", r.URL.Path, "panic", rec)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
