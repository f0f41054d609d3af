package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/logging"
)

const (
	contextKeyUserID    = "user_id"
	contextKeyRequestID = "request_id"
)

// TokenValidator resolves an access token to a user ID.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// RequestID reuses the caller's X-Request-ID or generates one, and echoes
// it on the response.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" || len(requestID) > 128 {
				requestID = uuid.New().String()
			}

			c.Set(contextKeyRequestID, requestID)
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(c)
		}
	}
}

// GetRequestID returns the request ID set by RequestID.
func GetRequestID(c echo.Context) string {
	id, _ := c.Get(contextKeyRequestID).(string)
	return id
}

// RequestLogger attaches a request-scoped logger to the request context and
// logs each HTTP request with structured fields.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			logger := base.With(
				"request_id", GetRequestID(c),
				"method", req.Method,
				"path", req.URL.Path,
			)
			c.SetRequest(req.WithContext(logging.WithContext(req.Context(), logger)))

			err := next(c)
			if err != nil {
				// Let the error handler write the response so the logged
				// status is the one the client sees.
				c.Error(err)
			}

			logger.Info("http request",
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return nil
		}
	}
}

// JWTAuth validates the Bearer token and injects the user ID into echo context.
func JWTAuth(auth TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return domain.ErrUnauthorized
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				return domain.ErrUnauthorized
			}

			userID, err := auth.ValidateToken(token)
			if err != nil {
				return domain.ErrUnauthorized
			}

			c.Set(contextKeyUserID, userID)
			req := c.Request()
			logger := logging.FromContext(req.Context()).With("user_id", userID)
			c.SetRequest(req.WithContext(logging.WithContext(req.Context(), logger)))
			return next(c)
		}
	}
}

// GetUserID extracts the authenticated user ID from echo context.
func GetUserID(c echo.Context) (string, bool) {
	id, ok := c.Get(contextKeyUserID).(string)
	return id, ok && id != ""
}

// mustUserID is used behind JWTAuth, where a missing identity is a bug in
// route wiring and is reported as 401.
func mustUserID(c echo.Context) (string, error) {
	id, ok := GetUserID(c)
	if !ok {
		return "", domain.ErrUnauthorized
	}
	return id, nil
}

// KeyFunc picks the identity a request is rate limited by.
type KeyFunc func(c echo.Context) string

// KeyByIP limits by client address.
func KeyByIP(c echo.Context) string {
	return "ip:" + c.RealIP()
}

// KeyByUser limits by authenticated user, falling back to the client address.
func KeyByUser(c echo.Context) string {
	if id, ok := GetUserID(c); ok {
		return "user:" + id
	}
	return KeyByIP(c)
}

// RateLimiter implements token bucket rate limiting per identity. Idle
// identities are dropped by Sweep.
type RateLimiter struct {
	limiters sync.Map // key -> *limiterEntry
	rate     rate.Limit
	burst    int
	key      KeyFunc
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// NewRateLimiter creates a limiter allowing requestsPerSecond with the given
// burst for every key.
func NewRateLimiter(requestsPerSecond, burst int, key KeyFunc) *RateLimiter {
	return &RateLimiter{
		rate:  rate.Limit(requestsPerSecond),
		burst: burst,
		key:   key,
		now:   time.Now,
	}
}

// NewStrictRateLimiter is the profile for credential endpoints.
func NewStrictRateLimiter() *RateLimiter {
	return NewRateLimiter(5, 10, KeyByIP)
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	v, ok := rl.limiters.Load(key)
	if !ok {
		v, _ = rl.limiters.LoadOrStore(key, &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)})
	}
	entry := v.(*limiterEntry)
	entry.lastSeen.Store(rl.now().UnixNano())
	return entry.limiter
}

// Allow checks if a request should be allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Sweep forgets every identity not seen for idle and returns how many were
// removed. A forgotten identity starts again with a full bucket, so idle
// should be longer than burst/rate.
func (rl *RateLimiter) Sweep(idle time.Duration) int {
	cutoff := rl.now().Add(-idle).UnixNano()
	removed := 0
	rl.limiters.Range(func(k, v any) bool {
		if v.(*limiterEntry).lastSeen.Load() < cutoff {
			rl.limiters.Delete(k)
			removed++
		}
		return true
	})
	return removed
}

// Len returns the number of tracked identities.
func (rl *RateLimiter) Len() int {
	n := 0
	rl.limiters.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

// Run sweeps every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.Sweep(idle); n > 0 {
				logging.FromContext(ctx).Debug("rate limiter swept", "removed", n)
			}
		}
	}
}

// Middleware returns an echo middleware function for rate limiting.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limiter := rl.getLimiter(rl.key(c))

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
			if !limiter.Allow() {
				h.Set("X-RateLimit-Remaining", "0")
				h.Set("Retry-After", "1")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			h.Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))

			return next(c)
		}
	}
}
