package remote

import (
	"context"

	"health-record-portal/internal/ports/auth"
)

// Verifier adapts Client to auth.AuthVerifier.
type Verifier struct {
	client *Client
}

func NewVerifier(client *Client) *Verifier {
	return &Verifier{client: client}
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || v.client == nil {
		return auth.Claims{}, ErrNotConfigured
	}
	return v.client.VerifyToken(ctx, token)
}
