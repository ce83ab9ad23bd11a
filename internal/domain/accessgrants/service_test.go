package accessgrants

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"health-record-portal/internal/domain/users"
	"health-record-portal/internal/platform/apperr"
)

// -------------------------
// Test doubles (in-memory)
// -------------------------

type testRepo struct {
	mu     sync.Mutex
	byID   map[string]Grant
	writes int
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Grant{}}
}

func (r *testRepo) pairLocked(patientID, doctorID string) (Grant, bool) {
	for _, g := range r.byID {
		if g.PatientID == patientID && g.DoctorID == doctorID {
			return g, true
		}
	}
	return Grant{}, false
}

func (r *testRepo) UpsertPending(ctx context.Context, g Grant, now time.Time) (Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.pairLocked(g.PatientID, g.DoctorID); ok {
		if cur.Status == StatusPending {
			return Grant{}, ErrAlreadyPending
		}
		if cur.ActiveAt(now) {
			return Grant{}, ErrAlreadyApproved
		}
		g.ID = cur.ID
	}
	r.byID[g.ID] = g
	r.writes++
	return g, nil
}

func (r *testRepo) UpsertApproved(ctx context.Context, g Grant, now time.Time) (Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.pairLocked(g.PatientID, g.DoctorID); ok {
		if cur.ActiveAt(now) {
			return Grant{}, ErrAlreadyApproved
		}
		g.ID = cur.ID
		g.RequestedAt = cur.RequestedAt
	}
	r.byID[g.ID] = g
	r.writes++
	return g, nil
}

func (r *testRepo) GetForPatient(ctx context.Context, patientID, grantID string) (Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.byID[grantID]
	if !ok || g.PatientID != patientID {
		return Grant{}, ErrNotFound
	}
	return g, nil
}

func (r *testRepo) GetByPair(ctx context.Context, patientID, doctorID string) (Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.pairLocked(patientID, doctorID)
	if !ok {
		return Grant{}, ErrNotFound
	}
	return g, nil
}

func (r *testRepo) Update(ctx context.Context, g Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[g.ID]; !ok {
		return ErrNotFound
	}
	r.byID[g.ID] = g
	r.writes++
	return nil
}

func (r *testRepo) ListByDoctor(ctx context.Context, doctorID string) ([]Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Grant, 0)
	for _, g := range r.byID {
		if g.DoctorID == doctorID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *testRepo) ListByPatient(ctx context.Context, patientID string) ([]Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Grant, 0)
	for _, g := range r.byID {
		if g.PatientID == patientID {
			out = append(out, g)
		}
	}
	return out, nil
}

type testAssignments map[[2]string]bool

func (a testAssignments) Exists(ctx context.Context, patientID, doctorID string) (bool, error) {
	return a[[2]string{patientID, doctorID}], nil
}

type testDirectory map[string]users.User

func (d testDirectory) Get(ctx context.Context, id string) (users.User, error) {
	u, ok := d[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func (d testDirectory) GetByEmail(ctx context.Context, email string) (users.User, error) {
	for _, u := range d {
		if u.Email == email {
			return u, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	svc   *Service
	repo  *testRepo
	clock *clock
}

const (
	patientID = "patient-1"
	doctorID  = "doctor-1"
	strangerD = "doctor-2"
)

func newFixture(t *testing.T) fixture {
	t.Helper()

	repo := newTestRepo()
	c := &clock{t: time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)}
	dir := testDirectory{
		patientID: {ID: patientID, Email: "pat@example.com", Role: users.RolePatient},
		doctorID:  {ID: doctorID, Email: "doc@example.com", Role: users.RoleDoctor, ProfileLevel: 1},
		strangerD: {ID: strangerD, Email: "other@example.com", Role: users.RoleDoctor, ProfileLevel: 1},
	}
	assigned := testAssignments{{patientID, doctorID}: true}

	svc := NewService(repo, assigned, dir, WithClock(c.now))
	return fixture{svc: svc, repo: repo, clock: c}
}

func days(n int) *int { return &n }

// -------------------------
// Tests
// -------------------------

func TestService_RequestAccess_RequiresAssignment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RequestAccess(context.Background(), strangerD, patientID)
	if !errors.Is(err, ErrNotAssigned) {
		t.Fatalf("expected ErrNotAssigned, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden kind, got %s", apperr.KindOf(err))
	}
	if len(f.repo.byID) != 0 {
		t.Fatalf("expected no grant row, got %d", len(f.repo.byID))
	}
}

func TestService_RequestAccess_CreatesPending(t *testing.T) {
	f := newFixture(t)

	g, err := f.svc.RequestAccess(context.Background(), doctorID, patientID)
	if err != nil {
		t.Fatalf("RequestAccess error: %v", err)
	}
	if g.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", g.Status)
	}
	if !g.RequestedAt.Equal(f.clock.now()) {
		t.Fatalf("expected RequestedAt = now")
	}
	if g.GrantedAt != nil || g.ExpiresAt != nil {
		t.Fatalf("expected GrantedAt/ExpiresAt nil on a fresh request")
	}
}

func TestService_RequestAccess_UnknownPatient(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RequestAccess(context.Background(), doctorID, "nobody")
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestService_RequestAccess_DoubleRequestConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.RequestAccess(ctx, doctorID, patientID); err != nil {
		t.Fatalf("first request: %v", err)
	}
	_, err := f.svc.RequestAccess(ctx, doctorID, patientID)
	if !errors.Is(err, ErrAlreadyPending) {
		t.Fatalf("expected ErrAlreadyPending, got %v", err)
	}
	if len(f.repo.byID) != 1 {
		t.Fatalf("expected exactly one grant row, got %d", len(f.repo.byID))
	}
}

func TestService_RequestAccess_WhileApprovedConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, _ := f.svc.RequestAccess(ctx, doctorID, patientID)
	if _, err := f.svc.Decide(ctx, patientID, g.ID, StatusApproved, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, err := f.svc.RequestAccess(ctx, doctorID, patientID)
	if !errors.Is(err, ErrAlreadyApproved) {
		t.Fatalf("expected ErrAlreadyApproved, got %v", err)
	}
}

func TestService_RequestAccess_ResetsDeniedRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, _ := f.svc.RequestAccess(ctx, doctorID, patientID)
	if _, err := f.svc.Decide(ctx, patientID, g.ID, StatusApproved, days(10)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.svc.Decide(ctx, patientID, g.ID, StatusDenied, nil); err != nil {
		t.Fatalf("deny: %v", err)
	}

	f.clock.advance(time.Hour)
	again, err := f.svc.RequestAccess(ctx, doctorID, patientID)
	if err != nil {
		t.Fatalf("re-request after deny: %v", err)
	}
	if again.ID != g.ID {
		t.Fatalf("expected the same row to be reused, got %s vs %s", again.ID, g.ID)
	}
	if again.Status != StatusPending || !again.RequestedAt.Equal(f.clock.now()) {
		t.Fatalf("expected fresh PENDING, got %s requested %s", again.Status, again.RequestedAt)
	}
	if again.GrantedAt != nil || again.ExpiresAt != nil {
		t.Fatalf("expected GrantedAt/ExpiresAt cleared")
	}
}

func TestService_RequestAccess_ResetsExpiredApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, _ := f.svc.RequestAccess(ctx, doctorID, patientID)
	if _, err := f.svc.Decide(ctx, patientID, g.ID, StatusApproved, days(1)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	f.clock.advance(48 * time.Hour)
	again, err := f.svc.RequestAccess(ctx, doctorID, patientID)
	if err != nil {
		t.Fatalf("re-request after expiry: %v", err)
	}
	if again.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", again.Status)
	}
}

func TestService_IsActive_FollowsExpiryWithoutWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, _ := f.svc.RequestAccess(ctx, doctorID, patientID)
	approved, err := f.svc.Decide(ctx, patientID, g.ID, StatusApproved, days(30))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	want := f.clock.now().AddDate(0, 0, 30)
	if approved.ExpiresAt == nil || !approved.ExpiresAt.Equal(want) {
		t.Fatalf("expected ExpiresAt %s, got %v", want, approved.ExpiresAt)
	}

	active, _ := f.svc.IsActive(ctx, patientID, doctorID)
	if !active {
		t.Fatalf("expected active right after approval")
	}

	writes := f.repo.writes
	f.clock.advance(31 * 24 * time.Hour)

	active, _ = f.svc.IsActive(ctx, patientID, doctorID)
	if active {
		t.Fatalf("expected inactive after expiry")
	}
	if f.repo.writes != writes {
		t.Fatalf("expected no writes on expiry, got %d new", f.repo.writes-writes)
	}
	stored, _ := f.repo.GetByPair(ctx, patientID, doctorID)
	if stored.Status != StatusApproved {
		t.Fatalf("expected stored status untouched, got %s", stored.Status)
	}
}

func TestService_Decide_ReapproveKeepsGrantedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, _ := f.svc.RequestAccess(ctx, doctorID, patientID)
	first, _ := f.svc.Decide(ctx, patientID, g.ID, StatusApproved, nil)

	f.clock.advance(time.Hour)
	second, err := f.svc.Decide(ctx, patientID, g.ID, StatusApproved, days(5))
	if err != nil {
		t.Fatalf("re-approve: %v", err)
	}
	if !second.GrantedAt.Equal(*first.GrantedAt) {
		t.Fatalf("expected GrantedAt unchanged, got %s vs %s", second.GrantedAt, first.GrantedAt)
	}
	if second.ExpiresAt == nil {
		t.Fatalf("expected expiry set on re-approve")
	}
}

func TestService_Decide_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g, _ := f.svc.RequestAccess(ctx, doctorID, patientID)

	cases := []struct {
		name     string
		decision Status
		days     *int
		want     error
	}{
		{"pending is not a decision", StatusPending, nil, ErrInvalidDecision},
		{"zero days", StatusApproved, days(0), ErrInvalidExpiry},
		{"too many days", StatusApproved, days(366), ErrInvalidExpiry},
		{"days with deny", StatusDenied, days(3), ErrExpiryNeedsApprove},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Decide(ctx, patientID, g.ID, tc.decision, tc.days)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestService_Decide_OtherPatientGetsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g, _ := f.svc.RequestAccess(ctx, doctorID, patientID)

	_, err := f.svc.Decide(ctx, "patient-2", g.ID, StatusApproved, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Revoke_IsIdempotentAndEndsAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, err := f.svc.Grant(ctx, patientID, Target{ID: doctorID}, nil)
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if g.Status != StatusApproved || g.GrantedAt == nil {
		t.Fatalf("expected direct APPROVED grant")
	}

	for i := 0; i < 2; i++ {
		r, err := f.svc.Revoke(ctx, patientID, g.ID)
		if err != nil {
			t.Fatalf("Revoke #%d: %v", i+1, err)
		}
		if r.Status != StatusRevoked {
			t.Fatalf("expected REVOKED, got %s", r.Status)
		}
	}

	if err := f.svc.RequireActive(ctx, doctorID, patientID); !errors.Is(err, ErrNoActiveGrant) {
		t.Fatalf("expected ErrNoActiveGrant after revoke, got %v", err)
	}
}

func TestService_Grant_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Grant(ctx, patientID, Target{ID: strangerD}, nil); !errors.Is(err, ErrGrantNotAssigned) {
		t.Fatalf("expected ErrGrantNotAssigned, got %v", err)
	}
	if _, err := f.svc.Grant(ctx, patientID, Target{Email: "doc@example.com"}, days(7)); err != nil {
		t.Fatalf("Grant by email: %v", err)
	}
	if _, err := f.svc.Grant(ctx, patientID, Target{ID: doctorID}, nil); !errors.Is(err, ErrAlreadyApproved) {
		t.Fatalf("expected ErrAlreadyApproved, got %v", err)
	}
}

func TestService_ListForDoctor_SplitsByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.RequestAccess(ctx, doctorID, patientID); err != nil {
		t.Fatalf("request: %v", err)
	}
	v, err := f.svc.ListForDoctor(ctx, doctorID)
	if err != nil {
		t.Fatalf("ListForDoctor: %v", err)
	}
	if len(v.Pending) != 1 || len(v.Approved) != 0 {
		t.Fatalf("expected 1 pending / 0 approved, got %d / %d", len(v.Pending), len(v.Approved))
	}

	g := v.Pending[0].Grant
	if _, err := f.svc.Decide(ctx, patientID, g.ID, StatusApproved, days(1)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	f.clock.advance(25 * time.Hour)

	v, _ = f.svc.ListForDoctor(ctx, doctorID)
	if len(v.Approved) != 1 || v.Approved[0].Active {
		t.Fatalf("expected one expired approved entry, got %+v", v.Approved)
	}
}

func TestService_RequestAccess_ConcurrentRequestsLeaveOneRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.RequestAccess(ctx, doctorID, patientID); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 1 {
		t.Fatalf("expected exactly one successful request, got %d", ok)
	}
	if len(f.repo.byID) != 1 {
		t.Fatalf("expected one grant row, got %d", len(f.repo.byID))
	}
}
