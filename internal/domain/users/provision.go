package users

import (
	"context"

	"health-record-portal/internal/ports/auth"
)

// ProvisioningVerifier wraps an external verifier so that every identity it
// accepts has a local account. The returned role is the stored one.
type ProvisioningVerifier struct {
	next  auth.AuthVerifier
	users *Service
}

func NewProvisioningVerifier(next auth.AuthVerifier, users *Service) *ProvisioningVerifier {
	return &ProvisioningVerifier{next: next, users: users}
}

func (v *ProvisioningVerifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	claims, err := v.next.Verify(ctx, token)
	if err != nil {
		return auth.Claims{}, err
	}
	u, err := v.users.Provision(ctx, claims)
	if err != nil {
		return auth.Claims{}, err
	}
	claims.Role = string(u.Role)
	claims.Email = u.Email
	return claims, nil
}
