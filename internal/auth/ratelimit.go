package auth

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/delivergaz-api/pkg/util"
)

type rateBucket struct {
	count   int
	resetAt time.Time
}

// UserRateLimiter applies a fixed-window request quota per authenticated
// user. The window resets entirely once it elapses. Requests with no
// principal bypass the limiter; anonymous throttling is a gateway concern.
type UserRateLimiter struct {
	maxRequests int
	window      time.Duration

	mu      sync.Mutex
	buckets map[string]*rateBucket

	now func() time.Time
}

// NewUserRateLimiter constructs a limiter owning its bucket table.
func NewUserRateLimiter(maxRequests int, window time.Duration) *UserRateLimiter {
	if maxRequests <= 0 {
		maxRequests = 100
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &UserRateLimiter{
		maxRequests: maxRequests,
		window:      window,
		buckets:     make(map[string]*rateBucket),
		now:         time.Now,
	}
}

// Allow records one request for the key and reports whether it is within
// quota, along with the retry-after delay when it is not.
func (l *UserRateLimiter) Allow(key string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if !ok || now.After(bucket.resetAt) {
		l.buckets[key] = &rateBucket{count: 1, resetAt: now.Add(l.window)}
		return true, 0
	}

	bucket.count++
	if bucket.count > l.maxRequests {
		return false, bucket.resetAt.Sub(now)
	}
	return true, 0
}

// Middleware returns the Fiber handler enforcing the quota.
func (l *UserRateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return c.Next()
		}

		allowed, retryAfter := l.Allow(principal.UserID)
		if !allowed {
			seconds := int64(retryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			return apperrors.NewRateLimited(seconds)
		}
		return c.Next()
	}
}
