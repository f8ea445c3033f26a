package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig sets how many requests a single client may make in a
// window, with a burst allowance on top.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// AuthRateLimit is the profile for the unauthenticated auth surface,
// where each request costs a bcrypt comparison.
func AuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerWindow: 5,
		Window:            time.Minute,
		Burst:             5,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter tracks a token-bucket limiter per client key. Idle
// client entries are dropped once their bucket has refilled.
type RateLimiter struct {
	config   RateLimitConfig
	clients  sync.Map
	logger   *slog.Logger
	keyFunc  func(r *http.Request) string
	stopOnce sync.Once
	stop     chan struct{}
}

func NewRateLimiter(config RateLimitConfig, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		logger:  logger,
		keyFunc: clientIP,
		stop:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Close stops the background cleanup goroutine.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	now := time.Now()
	if v, ok := rl.clients.Load(key); ok {
		cl := v.(*clientLimiter)
		cl.lastSeen = now
		return cl.limiter
	}

	limit := rate.Limit(float64(rl.config.RequestsPerWindow) / rl.config.Window.Seconds())
	cl := &clientLimiter{
		limiter:  rate.NewLimiter(limit, rl.config.Burst),
		lastSeen: now,
	}
	actual, _ := rl.clients.LoadOrStore(key, cl)
	return actual.(*clientLimiter).limiter
}

// Middleware rejects over-limit requests with 429 and a Retry-After
// hint; everything else passes through with limit headers attached.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.keyFunc(r)
		limiter := rl.limiterFor(key)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.config.RequestsPerWindow))
		w.Header().Set("X-RateLimit-Window", rl.config.Window.String())

		if !limiter.Allow() {
			reservation := limiter.Reserve()
			retryAfter := reservation.Delay()
			reservation.Cancel()

			rl.logger.Warn("rate limit exceeded",
				"client", key,
				"path", r.URL.Path,
				"retry_after", retryAfter.String())

			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "too many requests, slow down",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	cutoff := time.Now().Add(-rl.config.Window * 2)
	rl.clients.Range(func(key, value interface{}) bool {
		cl := value.(*clientLimiter)
		if cl.lastSeen.Before(cutoff) && cl.limiter.Tokens() >= float64(rl.config.Burst) {
			rl.clients.Delete(key)
		}
		return true
	})
}

// clientIP resolves the caller's address, trusting proxy headers when
// present.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
