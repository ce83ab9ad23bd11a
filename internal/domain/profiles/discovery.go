package profiles

import (
	"context"
	"errors"
	"sort"
	"strings"

	"health-record-portal/internal/domain/users"
)

// DiscoverableLevel is the minimum doctor level shown to patients.
const DiscoverableLevel = 1

// DoctorCard is a doctor as listed to patients.
type DoctorCard struct {
	ID       string
	Name     string
	Email    string
	Level    int
	Verified bool
	Profile  DoctorProfile
}

// ListDoctors returns discoverable doctors, verified ones first, then by name.
func (s *Service) ListDoctors(ctx context.Context, f DoctorFilter) ([]DoctorCard, error) {
	items, err := s.repo.ListDoctors(ctx, f)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(items))
	for _, d := range items {
		ids = append(ids, d.UserID)
	}
	accounts, err := s.accounts.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]DoctorCard, 0, len(items))
	for _, d := range items {
		u, ok := accounts[d.UserID]
		if !ok || u.Role != users.RoleDoctor || u.ProfileLevel < DiscoverableLevel {
			continue
		}
		card := toCard(u, d)
		if q != "" && !card.matches(q) {
			continue
		}
		out = append(out, card)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Verified != out[j].Verified {
			return out[i].Verified
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Service) GetDoctor(ctx context.Context, doctorID string) (DoctorCard, error) {
	u, err := s.accounts.Get(ctx, doctorID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return DoctorCard{}, ErrDoctorNotFound
		}
		return DoctorCard{}, err
	}
	if u.Role != users.RoleDoctor || u.ProfileLevel < DiscoverableLevel {
		return DoctorCard{}, ErrDoctorNotFound
	}

	d, err := s.loadDoctor(ctx, u.ID)
	if err != nil {
		return DoctorCard{}, err
	}
	return toCard(u, d), nil
}

// DoctorMode reports how a discoverable doctor consults.
func (s *Service) DoctorMode(ctx context.Context, doctorID string) (ConsultationMode, error) {
	card, err := s.GetDoctor(ctx, doctorID)
	if err != nil {
		return "", err
	}
	return card.Profile.ConsultationMode, nil
}

func toCard(u users.User, d DoctorProfile) DoctorCard {
	return DoctorCard{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Level:    u.ProfileLevel,
		Verified: u.ProfileLevel >= users.MaxLevel,
		Profile:  d,
	}
}

// matches expects q already lower-cased.
func (c DoctorCard) matches(q string) bool {
	fields := []string{c.Name, c.Profile.Specialization, c.Profile.ClinicName, c.Profile.Bio}
	fields = append(fields, c.Profile.ConditionsTreated...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
