package users

import (
	"strings"
	"time"
)

// Role separates the two kinds of portal accounts.
// @Enum PATIENT, DOCTOR
type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
)

// MaxLevel is the highest profile completeness tier.
const MaxLevel = 3

func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RolePatient:
		return RolePatient, true
	case RoleDoctor:
		return RoleDoctor, true
	default:
		return "", false
	}
}

type User struct {
	ID    string
	Email string
	Name  string

	// Empty for accounts provisioned from an external identity provider.
	PasswordHash string

	Role         Role
	ProfileLevel int

	CreatedAt time.Time
	UpdatedAt time.Time
}
