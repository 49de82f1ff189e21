package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/port"
	"golang.org/x/time/rate"
)

// sweepEvery bounds how often idle per-IP limiters are dropped.
const sweepEvery = 256

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// ipLimiter is a token bucket per client IP refilling Requests tokens per Window.
type ipLimiter struct {
	name     string
	limit    Limit
	security port.SecurityRecorder
	now      func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
	calls    int
}

func newIPLimiter(name string, limit Limit, security port.SecurityRecorder) (*ipLimiter, error) {
	if limit.Requests <= 0 || limit.Window <= 0 {
		return nil, fmt.Errorf("%s limit: requests and window must be positive", name)
	}
	if security == nil {
		return nil, errors.New("security is nil")
	}

	return &ipLimiter{
		name:     name,
		limit:    limit,
		security: security,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}, nil
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	l.calls++
	if l.calls%sweepEvery == 0 {
		for key, v := range l.visitors {
			if now.Sub(v.seen) > l.limit.Window {
				delete(l.visitors, key)
			}
		}
	}

	v, ok := l.visitors[ip]
	if !ok {
		every := l.limit.Window / time.Duration(l.limit.Requests)
		v = &visitor{limiter: rate.NewLimiter(rate.Every(every), l.limit.Requests)}
		l.visitors[ip] = v
	}
	v.seen = now

	return v.limiter.AllowN(now, 1)
}

func (l *ipLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if l.allow(ip) {
			c.Next()
			return
		}

		l.security.Record(c.Request.Context(), domain.EventRateLimitExceeded, domain.SeverityMedium, map[string]any{
			"limiter": l.name,
			"limit":   l.limit.Requests,
			"window":  l.limit.Window.String(),
		})

		c.Header("Retry-After", fmt.Sprintf("%.0f", l.limit.Window.Seconds()))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"message": "Too many requests, please try again later",
		})
	}
}
