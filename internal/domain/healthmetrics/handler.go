package healthmetrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"health-record-portal/internal/domain/tier"
	"health-record-portal/internal/domain/users"
	"health-record-portal/internal/domain/vitals"
	"health-record-portal/internal/platform/apperr"
	"health-record-portal/internal/platform/httpx"
)

func RegisterRoutes(r chi.Router, svc *Service, gate *tier.Gate) {
	r.Route("/patient/health-metrics", func(pr chi.Router) {
		pr.Post("/", recordHandler(svc, gate))
		pr.Get("/", listForPatientHandler(svc, gate))
	})
	r.Get("/doctor/health-metrics", listForDoctorHandler(svc, gate))
}

type recordRequest struct {
	Systolic         *int       `json:"systolic"`
	Diastolic        *int       `json:"diastolic"`
	BloodSugar       *float64   `json:"bloodSugar"`
	HeartRate        *int       `json:"heartRate"`
	OxygenSaturation *int       `json:"oxygenSaturation"`
	WeightKg         *float64   `json:"weightKg"`
	RecordedAt       *time.Time `json:"recordedAt"`
}

type metricResponse struct {
	ID               string        `json:"id"`
	PatientID        string        `json:"patientId"`
	Systolic         *int          `json:"systolic,omitempty"`
	Diastolic        *int          `json:"diastolic,omitempty"`
	BloodSugar       *float64      `json:"bloodSugar,omitempty"`
	HeartRate        *int          `json:"heartRate,omitempty"`
	OxygenSaturation *int          `json:"oxygenSaturation,omitempty"`
	WeightKg         *float64      `json:"weightKg,omitempty"`
	Labels           vitals.Labels `json:"labels"`
	RecordedAt       time.Time     `json:"recordedAt"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// recordHandler godoc
// @Summary Log a vitals reading
// @Description Any subset of vitals; at least one is required. Heart rate 30..200, oxygen 70..100.
// @Tags health-metrics
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param payload body recordRequest true "reading"
// @Success 201 {object} metricResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string "complete your profile to level 1 to use this feature"
// @Router /patient/health-metrics [post]
func recordHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, users.RolePatient, 1)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		var req recordRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		m, err := svc.Record(r.Context(), ident.UserID, RecordInput{
			Reading: vitals.Reading{
				Systolic:         req.Systolic,
				Diastolic:        req.Diastolic,
				BloodSugar:       req.BloodSugar,
				HeartRate:        req.HeartRate,
				OxygenSaturation: req.OxygenSaturation,
				WeightKg:         req.WeightKg,
			},
			RecordedAt: req.RecordedAt,
		})
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toMetricResponse(m))
	}
}

func listForPatientHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, users.RolePatient, 0)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		items, err := svc.ListForPatient(r.Context(), ident.UserID, httpx.QueryInt(r, "limit", DefaultLimit, MaxLimit))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toMetricResponses(items))
	}
}

// listForDoctorHandler godoc
// @Summary Health metrics of a patient who granted access
// @Tags health-metrics
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param patientId query string true "patient id"
// @Param limit query int false "max items"
// @Success 200 {array} metricResponse
// @Failure 400 {object} map[string]string "patientId required"
// @Failure 403 {object} map[string]string "no active access grant for this patient"
// @Failure 404 {object} map[string]string "patient not found"
// @Router /doctor/health-metrics [get]
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

		items, err := svc.ListForDoctor(r.Context(), ident.UserID, patientID, httpx.QueryInt(r, "limit", DefaultLimit, MaxLimit))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toMetricResponses(items))
	}
}

func toMetricResponses(items []Metric) []metricResponse {
	out := make([]metricResponse, 0, len(items))
	for _, m := range items {
		out = append(out, toMetricResponse(m))
	}
	return out
}

func toMetricResponse(m Metric) metricResponse {
	return metricResponse{
		ID:               m.ID,
		PatientID:        m.PatientID,
		Systolic:         m.Systolic,
		Diastolic:        m.Diastolic,
		BloodSugar:       m.BloodSugar,
		HeartRate:        m.HeartRate,
		OxygenSaturation: m.OxygenSaturation,
		WeightKg:         m.WeightKg,
		Labels:           vitals.Classify(m.Reading()),
		RecordedAt:       m.RecordedAt,
		CreatedAt:        m.CreatedAt,
	}
}
