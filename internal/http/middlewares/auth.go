package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
	"github.com/dropDatabas3/securesign/internal/http/errors"
	"github.com/dropDatabas3/securesign/internal/observability/logger"
)

// RoleOperator es el valor de la claim "role" que habilita las rutas de operador.
const RoleOperator = "operator"

// RequireOperator valida Authorization: Bearer <JWT HS256> firmado con secret
// y exige role=operator. Sin secret configurado las rutas quedan cerradas.
func RequireOperator(secret []byte) Middleware {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	keyfunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(secret) == 0 {
				errors.WriteError(w, errors.ErrForbidden.WithDetail("operator access disabled"))
				return
			}
			raw, ok := bearer(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="securesign"`)
				errors.WriteError(w, errors.ErrUnauthorized.WithDetail("missing bearer token"))
				return
			}

			claims := jwt.MapClaims{}
			if _, err := parser.ParseWithClaims(raw, claims, keyfunc); err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="securesign", error="invalid_token"`)
				errors.WriteError(w, errors.ErrTokenInvalid.WithCause(err))
				return
			}
			if role, _ := claims["role"].(string); role != RoleOperator {
				errors.WriteError(w, errors.ErrForbidden.WithDetail("operator role required"))
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(ah) < 7 || !strings.EqualFold(ah[:7], "bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(ah[7:])
	return raw, raw != ""
}

// Authenticator valida email y contraseña de una identidad.
type Authenticator interface {
	Authenticate(ctx context.Context, ref, password string) (*repository.Identity, error)
}

// RequireIdentity exige HTTP Basic con las credenciales de la identidad y la
// deja en el contexto (GetIdentity).
func RequireIdentity(auth Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user == "" {
				w.Header().Set("WWW-Authenticate", `Basic realm="securesign", charset="UTF-8"`)
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}
			id, err := auth.Authenticate(r.Context(), user, pass)
			if err != nil {
				errors.WriteError(w, err)
				return
			}
			ctx := WithIdentity(r.Context(), id.Ref)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.Identity(id.Ref)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
