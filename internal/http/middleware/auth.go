package middleware

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
)

type clientIPKey struct{}

// ClientIP stores the connection's remote IP in the request context so
// handlers behind the router can enforce address-based rules. It reads the
// raw RemoteAddr, not forwarding headers: the localhost check on the playout
// webhook must not be spoofable with an X-Forwarded-For.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ctx := context.WithValue(r.Context(), clientIPKey{}, host)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ContextWithClientIP returns a context carrying the given remote IP, as
// ClientIP would have stored it.
func ContextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIPFromContext returns the remote IP stored by ClientIP, or "".
func ClientIPFromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// IsLoopback reports whether the given IP string is a loopback address.
func IsLoopback(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}

// apiKeyExempt lists path prefixes open without a key: probes, the playout
// webhook (guarded by the localhost check instead), and the API docs.
var apiKeyExempt = []string{
	"/api/health",
	"/api/status/",
	"/api/playout/",
	"/openapi",
	"/docs",
	"/schemas",
}

// APIKey returns a middleware requiring the configured key on every
// non-exempt request, via either the X-API-Key header or a bearer token.
// An empty configured key disables the check.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" || exemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			presented := r.Header.Get("X-API-Key")
			if presented == "" {
				bearer := r.Header.Get("Authorization")
				if after, ok := strings.CutPrefix(bearer, "Bearer "); ok {
					presented = after
				}
			}

			if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
				http.Error(w, "invalid or missing API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func exemptPath(path string) bool {
	for _, prefix := range apiKeyExempt {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
