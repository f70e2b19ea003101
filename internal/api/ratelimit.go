package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/libraryhub/library-server/internal/errors"
	"github.com/libraryhub/library-server/internal/ratelimit"
)

// RateLimiter wraps KeyedRateLimiter for API use.
type RateLimiter = ratelimit.KeyedRateLimiter

// NewRateLimiter creates a limiter allowing ratePerInterval requests per
// interval with the given burst.
func NewRateLimiter(ratePerInterval int, interval time.Duration, burst int) *RateLimiter {
	return ratelimit.New(ratelimit.Every(ratePerInterval, interval), burst)
}

var errRateLimited = domainerrors.Wrap(nil, domainerrors.CodeRateLimited, "Too many requests. Please try again later.")

// lendingRateLimit is a huma middleware that limits borrow and return calls
// per client IP. Rejected calls get 429 with a Retry-After header.
func (s *Server) lendingRateLimit(ctx huma.Context, next func(huma.Context)) {
	if s.lendingLimiter == nil {
		next(ctx)
		return
	}

	key := clientIP(ctx.RemoteAddr())
	allowed, retryAfter := s.lendingLimiter.Reserve(key)
	if allowed {
		next(ctx)
		return
	}

	s.logger.Warn("Rate limit exceeded",
		"ip", key,
		"operation", ctx.Operation().OperationID,
	)
	if retryAfter > 0 {
		ctx.SetHeader("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	}
	_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, errRateLimited.Message, errRateLimited)
}

// clientIP strips the port from a remote address. chi's RealIP middleware
// has already applied X-Forwarded-For and X-Real-IP.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
