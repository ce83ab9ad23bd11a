package records

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"health-record-portal/internal/domain/tier"
	"health-record-portal/internal/domain/users"
	"health-record-portal/internal/platform/apperr"
	"health-record-portal/internal/platform/httpx"
)

func RegisterRoutes(r chi.Router, svc *Service, gate *tier.Gate) {
	r.Route("/patient/records", func(pr chi.Router) {
		pr.Post("/", createHandler(svc, gate))
		pr.Get("/", listForPatientHandler(svc, gate))
		pr.Delete("/{recordID}", deleteHandler(svc, gate))
	})
	r.Get("/doctor/patient-records", listForDoctorHandler(svc, gate))
}

type createRequest struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
	FileURL     string `json:"fileUrl"`
	RecordDate  string `json:"recordDate"`
}

type recordResponse struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patientId"`
	Title       string    `json:"title"`
	Category    Category  `json:"category"`
	Description string    `json:"description,omitempty"`
	FileURL     string    `json:"fileUrl,omitempty"`
	RecordDate  string    `json:"recordDate,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// createHandler godoc
// @Summary Store medical record metadata
// @Tags records
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param payload body createRequest true "record"
// @Success 201 {object} recordResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string "complete your profile to level 2 to use this feature"
// @Router /patient/records [post]
func createHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, users.RolePatient, 2)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		var req createRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		rec, err := svc.Create(r.Context(), ident.UserID, CreateInput(req))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toRecordResponse(rec))
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
		httpx.WriteJSON(w, http.StatusOK, toRecordResponses(items))
	}
}

func deleteHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, users.RolePatient, 0)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		if err := svc.Delete(r.Context(), ident.UserID, chi.URLParam(r, "recordID")); err != nil {
			httpx.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// listForDoctorHandler godoc
// @Summary Records of a patient who granted access
// @Tags records
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param patientId query string true "patient id"
// @Success 200 {array} recordResponse
// @Failure 400 {object} map[string]string "patientId required"
// @Failure 403 {object} map[string]string "no active access grant for this patient"
// @Failure 404 {object} map[string]string "patient not found"
// @Router /doctor/patient-records [get]
func listForDoctorHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, users.RoleDoctor, 1)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		patientID := strings.TrimSpace(r.URL.Query().Get("patientId"))
		if patientID == "" {
			httpx.WriteError(w, apperr.Validation("patientId required"))
			return
		}

		items, err := svc.ListForDoctor(r.Context(), ident.UserID, patientID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toRecordResponses(items))
	}
}

func toRecordResponses(items []Record) []recordResponse {
	out := make([]recordResponse, 0, len(items))
	for _, rec := range items {
		out = append(out, toRecordResponse(rec))
	}
	return out
}

func toRecordResponse(rec Record) recordResponse {
	resp := recordResponse{
		ID:          rec.ID,
		PatientID:   rec.PatientID,
		Title:       rec.Title,
		Category:    rec.Category,
		Description: rec.Description,
		FileURL:     rec.FileURL,
		CreatedAt:   rec.CreatedAt,
	}
	if rec.RecordDate != nil {
		resp.RecordDate = rec.RecordDate.Format(dateLayout)
	}
	return resp
}
