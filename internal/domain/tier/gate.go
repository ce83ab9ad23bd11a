// Package tier enforces profile completeness levels in front of features.
package tier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"health-record-portal/internal/domain/users"
	"health-record-portal/internal/middleware"
	"health-record-portal/internal/platform/apperr"
)

// Identity is the caller as resolved from storage, passed explicitly to
// the services below the handlers.
type Identity struct {
	UserID string
	Role   users.Role
	Level  int
}

func (i Identity) IsPatient() bool { return i.Role == users.RolePatient }
func (i Identity) IsDoctor() bool  { return i.Role == users.RoleDoctor }

// UserSource is the slice of the users service the gate reads.
type UserSource interface {
	Get(ctx context.Context, id string) (users.User, error)
}

type Gate struct {
	users UserSource
}

func NewGate(src UserSource) *Gate {
	return &Gate{users: src}
}

// LevelMessage is the remediation text shown when a level gate rejects.
func LevelMessage(required int) string {
	return fmt.Sprintf("complete your profile to level %d to use this feature", required)
}

// RequireLevel loads the stored level of userID and rejects it when below required.
func (g *Gate) RequireLevel(ctx context.Context, userID string, required int) (Identity, error) {
	u, err := g.load(ctx, userID)
	if err != nil {
		return Identity{}, err
	}
	id := Identity{UserID: u.ID, Role: u.Role, Level: u.ProfileLevel}
	if id.Level < required {
		return id, apperr.Forbidden(LevelMessage(required))
	}
	return id, nil
}

// Authorize checks, in order: a verified caller, the role (empty means any),
// then the level.
func (g *Gate) Authorize(r *http.Request, role users.Role, required int) (Identity, error) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		return Identity{}, apperr.Unauthenticated("unauthorized")
	}

	u, err := g.load(r.Context(), claims.UserID)
	if err != nil {
		return Identity{}, err
	}
	if role != "" && u.Role != role {
		return Identity{}, apperr.Forbidden(fmt.Sprintf("only %s accounts can use this feature", strings.ToLower(string(role))))
	}
	if u.ProfileLevel < required {
		return Identity{}, apperr.Forbidden(LevelMessage(required))
	}
	return Identity{UserID: u.ID, Role: u.Role, Level: u.ProfileLevel}, nil
}

func (g *Gate) load(ctx context.Context, userID string) (users.User, error) {
	u, err := g.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.User{}, apperr.Unauthenticated("unknown user")
		}
		return users.User{}, err
	}
	return u, nil
}
