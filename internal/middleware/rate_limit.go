package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/gamegate/pkg/http"
	pkglogger "github.com/BradenHooton/gamegate/pkg/logger"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// DefaultAuthRateLimit limits the public auth endpoints to 5 requests per
// minute per client.
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 5, Window: time.Minute}
}

// DefaultAPIRateLimit applies to the remaining endpoints.
func DefaultAPIRateLimit() RateLimitConfig {
	return RateLimitConfig{Requests: 100, Window: time.Minute}
}

// RateLimitByIP limits requests per client IP. The key comes from the
// RequestInfo middleware when present, which only trusts forwarding headers
// from configured proxies; otherwise it falls back to the peer address.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyFuncs(clientKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many requests, please try again later")
		}),
	)
}

func clientKey(r *http.Request) (string, error) {
	if ip := pkglogger.RequestInfoFrom(r.Context()).IPAddress; ip != "" {
		return ip, nil
	}
	return httprate.KeyByIP(r)
}
