package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/templui/fractional/internal/ctxkeys"
	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per key (client IP or user ID).
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows burst requests at once, refilled at limit per
// second. Keys unused for idle are forgotten.
func NewRateLimiter(limit rate.Limit, burst int, idle time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		idle:     idle,
		now:      time.Now,
	}
}

// Allow checks if a request for key should be allowed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// StartCleanup removes idle keys until stop is closed.
func (rl *RateLimiter) StartCleanup(every time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.cleanup()
			case <-stop:
				return
			}
		}
	}()
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idle)
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

// Middleware limits requests per key. keyFn returns "" to skip limiting.
func (rl *RateLimiter) Middleware(keyFn func(*http.Request) string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key != "" && !rl.Allow(key) {
				slog.Warn("rate limit exceeded",
					"key", key,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "too many requests, please try again later")
				return
			}
			next(w, r)
		}
	}
}

// RateLimitAuth limits login and registration to 5 attempts per 15 minutes
// per client IP. trusted lists the reverse proxies whose forwarding headers
// are believed.
func RateLimitAuth(trusted []netip.Prefix) func(http.HandlerFunc) http.HandlerFunc {
	limiter := NewRateLimiter(rate.Every(3*time.Minute), 5, 30*time.Minute)
	limiter.StartCleanup(5*time.Minute, nil)
	return limiter.Middleware(ClientIP(trusted))
}

// RateLimitAI limits AI-backed endpoints per authenticated user.
func RateLimitAI(perMinute int) func(http.HandlerFunc) http.HandlerFunc {
	if perMinute <= 0 {
		perMinute = 10
	}
	limiter := NewRateLimiter(rate.Limit(float64(perMinute)/60), perMinute, time.Hour)
	limiter.StartCleanup(10*time.Minute, nil)
	return limiter.Middleware(func(r *http.Request) string {
		if user := ctxkeys.User(r.Context()); user != nil {
			return user.ID
		}
		return ""
	})
}

// ClientIP returns a key function resolving the client address. Forwarding
// headers count only when the direct peer is in trusted. X-Forwarded-For is
// then read right to left and the first untrusted hop wins.
func ClientIP(trusted []netip.Prefix) func(*http.Request) string {
	return func(r *http.Request) string {
		peer := remoteIP(r.RemoteAddr)
		if !peer.IsValid() {
			return r.RemoteAddr
		}
		if !isTrusted(peer, trusted) {
			return peer.String()
		}

		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			hops := strings.Split(xff, ",")
			for i := len(hops) - 1; i >= 0; i-- {
				hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
				if err != nil {
					break
				}
				if hop = hop.Unmap(); !isTrusted(hop, trusted) {
					return hop.String()
				}
			}
		}

		if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
			return xri.Unmap().String()
		}

		return peer.String()
	}
}

func remoteIP(remoteAddr string) netip.Addr {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}
	}
	return addr.Unmap()
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
