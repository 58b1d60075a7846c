package middlewares

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const (
	ctxRequestIDKey ctxKey = "request_id"
	ctxIdentityKey  ctxKey = "identity"
	ctxClaimsKey    ctxKey = "claims"
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, rid)
}

// WithIdentity inyecta la identidad autenticada en el contexto.
func WithIdentity(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, ctxIdentityKey, ref)
}

func withClaims(ctx context.Context, c jwt.MapClaims) context.Context {
	return context.WithValue(ctx, ctxClaimsKey, c)
}

// GetRequestID obtiene el request ID. Vacío si no hay.
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(ctxRequestIDKey).(string)
	return s
}

// GetIdentity obtiene la identidad autenticada. Vacío si no hay.
func GetIdentity(ctx context.Context) string {
	s, _ := ctx.Value(ctxIdentityKey).(string)
	return s
}

// GetClaims obtiene las claims del operador. nil si el request no pasó por
// RequireOperator.
func GetClaims(ctx context.Context) jwt.MapClaims {
	c, _ := ctx.Value(ctxClaimsKey).(jwt.MapClaims)
	return c
}

// Operator devuelve el sub del operador autenticado, o "operator".
func Operator(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		if sub, _ := c.GetSubject(); sub != "" {
			return sub
		}
	}
	return "operator"
}
