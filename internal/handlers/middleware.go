package handlers

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"termchat/internal/auth"
)

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(authService *auth.Service, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		if _, err := authService.VerifyToken(token); err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}

		next(w, r)
	}
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// RateLimiter is a per-client-IP token bucket guarding the API routes.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity float64
	rate     float64
}

func NewRateLimiter(capacity int, window time.Duration) *RateLimiter {
	if capacity <= 0 {
		capacity = 1
	}
	if window <= 0 {
		window = time.Second
	}

	return &RateLimiter{
		buckets:  make(map[string]*bucket),
		capacity: float64(capacity),
		rate:     float64(capacity) / window.Seconds(),
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[ip]
	if !ok {
		if len(rl.buckets) >= 10000 {
			rl.pruneLocked(now)
		}
		b = &bucket{tokens: rl.capacity, lastCheck: now}
		rl.buckets[ip] = b
	}

	elapsed := now.Sub(b.lastCheck).Seconds()
	b.lastCheck = now
	if elapsed > 0 {
		b.tokens += elapsed * rl.rate
		if b.tokens > rl.capacity {
			b.tokens = rl.capacity
		}
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// pruneLocked drops buckets that have refilled completely; they behave
// identically to a fresh one.
func (rl *RateLimiter) pruneLocked(now time.Time) {
	for ip, b := range rl.buckets {
		idle := now.Sub(b.lastCheck).Seconds()
		if b.tokens+idle*rl.rate >= rl.capacity {
			delete(rl.buckets, ip)
		}
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !rl.allow(ip) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
