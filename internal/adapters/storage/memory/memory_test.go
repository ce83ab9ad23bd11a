package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"health-record-portal/internal/domain/accessgrants"
	"health-record-portal/internal/domain/appointments"
	"health-record-portal/internal/domain/assignments"
	"health-record-portal/internal/domain/users"
)

var t0 = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func TestGrantRepoConcurrentPendingKeepsOneRow(t *testing.T) {
	repo := NewAccessGrantsRepo()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.UpsertPending(context.Background(), accessgrants.Grant{
				ID:          string(rune('a' + i)),
				PatientID:   "p1",
				DoctorID:    "d1",
				Status:      accessgrants.StatusPending,
				RequestedAt: t0,
				UpdatedAt:   t0,
			}, t0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, accessgrants.ErrAlreadyPending):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if ok != 1 || conflicts != 19 {
		t.Fatalf("expected 1 write and 19 conflicts, got %d and %d", ok, conflicts)
	}
	items, _ := repo.ListByPatient(context.Background(), "p1")
	if len(items) != 1 {
		t.Fatalf("expected one row, got %d", len(items))
	}
}

func TestGrantRepoResetKeepsID(t *testing.T) {
	repo := NewAccessGrantsRepo()
	ctx := context.Background()

	first, err := repo.UpsertPending(ctx, accessgrants.Grant{ID: "g1", PatientID: "p1", DoctorID: "d1", Status: accessgrants.StatusPending, RequestedAt: t0}, t0)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	first.Status = accessgrants.StatusDenied
	if err := repo.Update(ctx, first); err != nil {
		t.Fatalf("deny: %v", err)
	}

	later := t0.Add(time.Hour)
	again, err := repo.UpsertPending(ctx, accessgrants.Grant{ID: "g2", PatientID: "p1", DoctorID: "d1", Status: accessgrants.StatusPending, RequestedAt: later}, later)
	if err != nil {
		t.Fatalf("re-request: %v", err)
	}
	if again.ID != "g1" || !again.RequestedAt.Equal(later) {
		t.Fatalf("expected reset of g1 at %s, got %+v", later, again)
	}
}

func TestUserRepoRaiseLevelNeverLowers(t *testing.T) {
	repo := NewUserRepo()
	ctx := context.Background()

	if err := repo.Create(ctx, users.User{ID: "u1", Email: "a@b.co", Role: users.RolePatient}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, users.User{ID: "u2", Email: "A@B.co"}); !errors.Is(err, users.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	u, err := repo.RaiseLevel(ctx, "u1", 2, t0)
	if err != nil || u.ProfileLevel != 2 {
		t.Fatalf("raise to 2: %+v %v", u, err)
	}
	u, err = repo.RaiseLevel(ctx, "u1", 1, t0)
	if err != nil || u.ProfileLevel != 2 {
		t.Fatalf("level must stay 2, got %+v %v", u, err)
	}
}

func TestAssignmentRepoUniquePair(t *testing.T) {
	repo := NewAssignmentRepo()
	ctx := context.Background()

	a := assignments.Assignment{ID: "a1", PatientID: "p1", DoctorID: "d1", CreatedAt: t0}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}
	a.ID = "a2"
	if err := repo.Create(ctx, a); !errors.Is(err, assignments.ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned, got %v", err)
	}
	if ok, _ := repo.Exists(ctx, "p1", "d1"); !ok {
		t.Fatalf("expected pair to exist")
	}
	if ok, _ := repo.Exists(ctx, "d1", "p1"); ok {
		t.Fatalf("pair is directional")
	}
}

func TestAppointmentRepoSlotAndTransition(t *testing.T) {
	repo := NewAppointmentRepo()
	ctx := context.Background()
	at := t0.Add(48 * time.Hour)

	a := appointments.Appointment{ID: "x1", PatientID: "p1", DoctorID: "d1", ScheduledAt: at, Status: appointments.StatusRequested}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}
	b := a
	b.ID, b.PatientID = "x2", "p2"
	if err := repo.Create(ctx, b); !errors.Is(err, appointments.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	if _, err := repo.Transition(ctx, "x1", appointments.StatusConfirmed, appointments.StatusCompleted, t0); !errors.Is(err, appointments.ErrStaleStatus) {
		t.Fatalf("expected ErrStaleStatus, got %v", err)
	}
	if _, err := repo.Transition(ctx, "x1", appointments.StatusRequested, appointments.StatusDeclined, t0); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("slot should be free after decline: %v", err)
	}
}
