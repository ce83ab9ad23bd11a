package appointments

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"health-record-portal/internal/domain/tier"
	"health-record-portal/internal/domain/users"
	"health-record-portal/internal/platform/httpx"
)

func RegisterRoutes(r chi.Router, svc *Service, gate *tier.Gate) {
	r.Route("/appointments", func(ar chi.Router) {
		ar.Post("/", bookHandler(svc, gate))
		ar.Get("/", listHandler(svc, gate))
		ar.Put("/{appointmentID}", updateStatusHandler(svc, gate))
	})
}

type bookRequest struct {
	DoctorID        string     `json:"doctorId"`
	ScheduledAt     *time.Time `json:"scheduledAt"`
	DurationMinutes *int       `json:"durationMinutes"`
	Mode            string     `json:"mode"`
	Reason          string     `json:"reason"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type appointmentResponse struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patientId"`
	DoctorID        string    `json:"doctorId"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	DurationMinutes int       `json:"durationMinutes"`
	Mode            Mode      `json:"mode"`
	Reason          string    `json:"reason,omitempty"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// bookHandler godoc
// @Summary Book an appointment with an assigned doctor
// @Tags appointments
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param payload body bookRequest true "appointment"
// @Success 201 {object} appointmentResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string "appointments limited to assigned doctors"
// @Failure 409 {object} map[string]string "doctor already has an appointment at this time"
// @Router /appointments [post]
func bookHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, users.RolePatient, 1)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		var req bookRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		a, err := svc.Book(r.Context(), ident.UserID, BookInput(req))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toAppointmentResponse(a))
	}
}

func listHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, "", 0)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		items, err := svc.List(r.Context(), ident.UserID, ident.Role, r.URL.Query().Get("status"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		out := make([]appointmentResponse, 0, len(items))
		for _, a := range items {
			out = append(out, toAppointmentResponse(a))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// updateStatusHandler godoc
// @Summary Move an appointment along its lifecycle
// @Description Doctor: REQUESTED to CONFIRMED or DECLINED, CONFIRMED to COMPLETED. Patient: REQUESTED or CONFIRMED to CANCELLED.
// @Tags appointments
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param appointmentID path string true "appointment id"
// @Param payload body updateStatusRequest true "target status"
// @Success 200 {object} appointmentResponse
// @Failure 404 {object} map[string]string "appointment not found"
// @Failure 409 {object} map[string]string "appointment cannot move to this status"
// @Router /appointments/{appointmentID} [put]
func updateStatusHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, "", 0)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		var req updateStatusRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		to, ok := ParseStatus(req.Status)
		if !ok || to == StatusRequested {
			httpx.WriteError(w, ErrInvalidStatus)
			return
		}

		a, err := svc.UpdateStatus(r.Context(), ident.UserID, ident.Role, chi.URLParam(r, "appointmentID"), to)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(a))
	}
}

func toAppointmentResponse(a Appointment) appointmentResponse {
	return appointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		ScheduledAt:     a.ScheduledAt,
		DurationMinutes: a.DurationMinutes,
		Mode:            a.Mode,
		Reason:          a.Reason,
		Status:          a.Status,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}
