package auth

import "context"

// AuthVerifier checks a bearer token and returns its claims.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// TokenIssuer mints bearer tokens for locally authenticated users.
type TokenIssuer interface {
	Issue(ctx context.Context, claims Claims) (Token, error)
}
