package web

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RequestID tags every request with a short random id, echoes it in the
// X-Request-ID header, and logs one line per request.
func RequestID(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := make([]byte, 4)
			rand.Read(id)
			reqID := hex.EncodeToString(id)
			w.Header().Set("X-Request-ID", reqID)

			log.Info("web: request",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr)
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders sets a fixed header set suitable for a JSON API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter enforces a fixed-window per-IP request cap. Scans launch real
// browsers and outbound fetches, so the API cannot be left unthrottled.
type RateLimiter struct {
	max     int
	window  time.Duration
	buckets sync.Map
}

// NewRateLimiter allows max requests per ip per window. max <= 0 disables
// the limiter.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{max: max, window: window}
}

// Allow records one request from ip and reports whether it is within quota.
func (rl *RateLimiter) Allow(ip string) bool {
	if rl.max <= 0 {
		return true
	}
	now := time.Now()
	val, loaded := rl.buckets.LoadOrStore(ip, &bucket{count: 1, resetAt: now.Add(rl.window)})
	if !loaded {
		return true
	}
	b := val.(*bucket)
	if now.After(b.resetAt) {
		b.count = 1
		b.resetAt = now.Add(rl.window)
		return true
	}
	b.count++
	return b.count <= rl.max
}

// GC drops expired buckets. Call periodically on long-lived servers.
func (rl *RateLimiter) GC() {
	now := time.Now()
	rl.buckets.Range(func(key, value any) bool {
		if now.After(value.(*bucket).resetAt) {
			rl.buckets.Delete(key)
		}
		return true
	})
}

// Middleware returns 429 JSON when a client exceeds its quota.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(extractIP(r)) {
			writeJSON(w, http.StatusTooManyRequests,
				map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractIP takes the first X-Forwarded-For hop when present, otherwise the
// connection's remote address.
func extractIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
