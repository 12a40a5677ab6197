package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"constitution-gpt/internal/transport/http/response"
)

type window struct {
	start time.Time
	count int
}

// rateLimiter counts requests per client IP in fixed windows.
type rateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	clients   map[string]*window
	lastSweep time.Time
	now       func() time.Time
	logger    *zap.Logger
}

// RateLimit allows limit requests per client IP in every window. A
// non-positive limit or window disables it.
func RateLimit(limit int, per time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &rateLimiter{
		limit:   limit,
		window:  per,
		clients: make(map[string]*window),
		now:     time.Now,
		logger:  logger,
	}
	return l.handle
}

func (l *rateLimiter) handle(c *gin.Context) {
	if l.limit <= 0 || l.window <= 0 {
		c.Next()
		return
	}
	ip := c.ClientIP()
	if !l.allow(ip) {
		l.logger.Warn("rate limit hit", zap.String("ip", ip), zap.String("path", c.Request.URL.Path))
		c.Header("Retry-After", retryAfter(l.window))
		response.Abort(c, http.StatusTooManyRequests, response.CodeTooManyRequests, http.StatusText(http.StatusTooManyRequests))
		return
	}
	c.Next()
}

func (l *rateLimiter) allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) >= l.window {
		l.sweepLocked(now)
	}
	w, ok := l.clients[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.clients[key] = &window{start: now, count: 1}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

func (l *rateLimiter) sweepLocked(now time.Time) {
	for k, w := range l.clients {
		if now.Sub(w.start) >= l.window {
			delete(l.clients, k)
		}
	}
	l.lastSweep = now
}

func retryAfter(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
