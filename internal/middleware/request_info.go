package middleware

import (
	"net/http"

	pkghttp "github.com/BradenHooton/gamegate/pkg/http"
	pkglogger "github.com/BradenHooton/gamegate/pkg/logger"
)

// RequestInfo records the client address and user agent on the request
// context so audit records can attribute each event.
func RequestInfo(ipConfig *pkghttp.IPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := pkglogger.WithRequestInfo(r.Context(), pkglogger.RequestInfo{
				IPAddress: pkghttp.ExtractClientIP(r, ipConfig),
				UserAgent: r.UserAgent(),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
