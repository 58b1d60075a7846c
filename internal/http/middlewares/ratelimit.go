package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/securesign/internal/http/errors"
	"github.com/dropDatabas3/securesign/internal/observability/logger"
	"github.com/dropDatabas3/securesign/internal/rate"
)

// RateKeyFunc arma la key de rate limit de un request.
type RateKeyFunc func(r *http.Request) string

// IPRateKey limita por IP de cliente.
func IPRateKey(r *http.Request) string {
	return "ip|" + clientIP(r)
}

// BasicUserRateKey limita por usuario de HTTP Basic + IP, sin validar la
// contraseña. Sin credenciales cae a la IP.
func BasicUserRateKey(r *http.Request) string {
	user, _, ok := r.BasicAuth()
	if !ok || user == "" {
		return "basic|" + clientIP(r)
	}
	return "basic|" + strings.ToLower(strings.TrimSpace(user)) + "|" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// WithRateLimit aplica limiter con la key de keyFn. Un limiter nil no limita
// y un error del backend deja pasar el request (fail-open).
func WithRateLimit(limiter rate.Limiter, keyFn RateKeyFunc) Middleware {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), keyFn(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if res.WindowTTL > 0 {
				resetAt := time.Now().Add(res.WindowTTL).Unix()
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if !res.Allowed {
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
				}
				errors.WriteError(w, errors.ErrTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
