package middleware

import (
	"context"
	"net/http"
	"strings"

	"health-record-portal/internal/ports/auth"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// Dev-mode headers, honoured only when no verifier is configured.
const (
	DebugUserHeader = "X-Debug-User-ID"
	DebugRoleHeader = "X-Debug-Role"
)

// AuthContext:
//   - verifier != nil and a Bearer token is present: Verify() and store the claims.
//   - verifier == nil (dev mode): X-Debug-User-ID (and optional X-Debug-Role) become the claims.
//   - Without claims the request continues; handlers decide whether auth is required.
func AuthContext(verifier auth.AuthVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				if uid := strings.TrimSpace(r.Header.Get(DebugUserHeader)); uid != "" {
					claims := auth.Claims{
						UserID: uid,
						Role:   strings.ToUpper(strings.TrimSpace(r.Header.Get(DebugRoleHeader))),
					}
					next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
					return
				}

				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				// The handler answers 401 once it finds no claims.
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func WithClaims(ctx context.Context, claims auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func GetClaims(ctx context.Context) (auth.Claims, bool) {
	v := ctx.Value(claimsKey)
	if v == nil {
		return auth.Claims{}, false
	}
	c, ok := v.(auth.Claims)
	return c, ok
}

func bearerToken(authHeader string) string {
	if strings.TrimSpace(authHeader) == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
