package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter is a fixed-window request counter keyed by client IP.
// Good enough for the auth endpoints it guards; it is not distributed,
// so each instance counts independently.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	limit   int
	window  time.Duration
}

type rateWindow struct {
	count   int
	startAt time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		windows: make(map[string]*rateWindow),
		limit:   limit,
		window:  window,
	}
	go rl.evictStale()
	return rl
}

func (rl *RateLimiter) evictStale() {
	for range time.Tick(rl.window) {
		rl.mu.Lock()
		for ip, w := range rl.windows {
			if time.Since(w.startAt) > rl.window {
				delete(rl.windows, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		rl.mu.Lock()
		win := rl.windows[ip]
		if win == nil || time.Since(win.startAt) > rl.window {
			rl.windows[ip] = &rateWindow{count: 1, startAt: time.Now()}
			rl.mu.Unlock()
			next.ServeHTTP(w, r)
			return
		}
		win.count++
		over := win.count > rl.limit
		retryAfter := rl.window - time.Since(win.startAt)
		rl.mu.Unlock()

		if over {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr. The RealIP middleware may
// have already replaced RemoteAddr with a bare header value, in which
// case SplitHostPort fails and the value is used as-is.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
