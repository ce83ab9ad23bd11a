package assignments

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"health-record-portal/internal/domain/tier"
	"health-record-portal/internal/domain/users"
	"health-record-portal/internal/platform/httpx"
)

func RegisterRoutes(r chi.Router, svc *Service, gate *tier.Gate) {
	r.Route("/patient/doctors", func(pr chi.Router) {
		pr.Post("/", assignHandler(svc, gate))
		pr.Get("/", listForPatientHandler(svc, gate))
	})
	r.Get("/doctor/patients", listForDoctorHandler(svc, gate))
}

type assignRequest struct {
	DoctorID string `json:"doctorId"`
}

type assignmentResponse struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patientId"`
	DoctorID    string    `json:"doctorId"`
	CreatedAt   time.Time `json:"createdAt"`
	Counterpart *person   `json:"counterpart,omitempty"`
}

type person struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	ProfileLevel int    `json:"profileLevel"`
}

// assignHandler godoc
// @Summary Assign a doctor to the calling patient
// @Tags assignments
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param payload body assignRequest true "doctor to assign"
// @Success 201 {object} assignmentResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string "doctor not found"
// @Failure 409 {object} map[string]string "doctor already assigned"
// @Router /patient/doctors [post]
func assignHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, users.RolePatient, 1)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		var req assignRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		a, err := svc.Assign(r.Context(), ident.UserID, req.DoctorID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toAssignmentResponse(Entry{Assignment: a}))
	}
}

func listForPatientHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, users.RolePatient, 0)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		items, err := svc.ListForPatient(r.Context(), ident.UserID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		writeEntries(w, items)
	}
}

func listForDoctorHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, users.RoleDoctor, 1)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		items, err := svc.ListForDoctor(r.Context(), ident.UserID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		writeEntries(w, items)
	}
}

func writeEntries(w http.ResponseWriter, items []Entry) {
	out := make([]assignmentResponse, 0, len(items))
	for _, e := range items {
		out = append(out, toAssignmentResponse(e))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func toAssignmentResponse(e Entry) assignmentResponse {
	out := assignmentResponse{
		ID:        e.ID,
		PatientID: e.PatientID,
		DoctorID:  e.DoctorID,
		CreatedAt: e.CreatedAt,
	}
	if e.Counterpart.ID != "" {
		out.Counterpart = &person{
			ID:           e.Counterpart.ID,
			Name:         e.Counterpart.Name,
			Email:        e.Counterpart.Email,
			ProfileLevel: e.Counterpart.ProfileLevel,
		}
	}
	return out
}
