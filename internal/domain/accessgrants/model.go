package accessgrants

import (
	"strings"
	"time"
)

// Status of a patient-to-doctor access grant.
// @Enum PENDING, APPROVED, DENIED, REVOKED
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusDenied   Status = "DENIED"
	StatusRevoked  Status = "REVOKED"
)

// ParseDecision accepts the statuses a patient may set.
func ParseDecision(s string) (Status, bool) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusApproved, StatusDenied, StatusRevoked:
		return st, true
	default:
		return "", false
	}
}

// Grant is the single row per (patient, doctor) pair. A re-request resets it.
type Grant struct {
	ID string

	PatientID string // owner of the data
	DoctorID  string // reader

	Status Status

	RequestedAt time.Time
	GrantedAt   *time.Time
	ExpiresAt   *time.Time // nil = no expiry
	UpdatedAt   time.Time
}

// ActiveAt is the only definition of read access: approved and not yet expired.
func (g Grant) ActiveAt(now time.Time) bool {
	if g.Status != StatusApproved {
		return false
	}
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}

// Resettable reports whether a new request may overwrite the row at now.
func (g Grant) Resettable(now time.Time) bool {
	return g.Status != StatusPending && !g.ActiveAt(now)
}
