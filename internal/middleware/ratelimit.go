package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/ratelimit"
	"github.com/GregMSThompson/utilization-pilot/internal/response"
	"github.com/GregMSThompson/utilization-pilot/pkg/logger"
)

type limiter interface {
	Allow(ctx context.Context, identity string, write bool) (ratelimit.Decision, error)
}

type rateLimitMiddleware struct {
	Limiter         limiter
	ResponseHandler response.ResponseHandler
}

func NewRateLimitMiddleware(l limiter, rh response.ResponseHandler) *rateLimitMiddleware {
	return &rateLimitMiddleware{Limiter: l, ResponseHandler: rh}
}

// RateLimit charges GET/HEAD/OPTIONS against the read budget and everything else
// against the write budget. Clients are keyed by uid when authenticated. A failing
// store lets the request through.
func (m *rateLimitMiddleware) RateLimit(next http.Handler) http.Handler {
	return m.limit(clientKey, next)
}

func (m *rateLimitMiddleware) limit(key func(*http.Request) string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		decision, err := m.Limiter.Allow(ctx, key(r), isWrite(r.Method))
		if err != nil {
			logger.FromContext(ctx).Warn("rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			m.ResponseHandler.HandleError(w, r, errs.NewRateLimitError(decision.RetryAfter))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimitByIP keys every request by client address. It runs ahead of
// authentication so rejected credentials still spend budget.
func (m *rateLimitMiddleware) RateLimitByIP(next http.Handler) http.Handler {
	return m.limit(ipKey, next)
}

func clientKey(r *http.Request) string {
	if uid := UID(r.Context()); uid != "" {
		return uid
	}
	return ipKey(r)
}

func ipKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func isWrite(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
