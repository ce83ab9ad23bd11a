package accessgrants

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"health-record-portal/internal/domain/tier"
	"health-record-portal/internal/domain/users"
	"health-record-portal/internal/platform/httpx"
)

func RegisterRoutes(r chi.Router, svc *Service, gate *tier.Gate) {
	// Doctor side
	r.Route("/access-request", func(dr chi.Router) {
		dr.Post("/", requestAccessHandler(svc, gate))
		dr.Get("/", listForDoctorHandler(svc, gate))
	})

	// Patient side
	r.Route("/patient/access", func(pr chi.Router) {
		pr.Get("/", listForPatientHandler(svc, gate))
		pr.Post("/", grantHandler(svc, gate))
		pr.Put("/{grantID}", decideHandler(svc, gate))
		pr.Delete("/{grantID}", revokeHandler(svc, gate))
	})
}

type requestAccessRequest struct {
	PatientID    string `json:"patientId"`
	PatientEmail string `json:"patientEmail"`
}

type grantRequest struct {
	DoctorID      string `json:"doctorId"`
	DoctorEmail   string `json:"doctorEmail"`
	ExpiresInDays *int   `json:"expiresInDays"`
}

type decideRequest struct {
	Status        string `json:"status"`
	ExpiresInDays *int   `json:"expiresInDays"`
}

type grantResponse struct {
	ID          string     `json:"id"`
	PatientID   string     `json:"patientId"`
	DoctorID    string     `json:"doctorId"`
	Status      Status     `json:"status"`
	Active      bool       `json:"active"`
	RequestedAt time.Time  `json:"requestedAt"`
	GrantedAt   *time.Time `json:"grantedAt,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type doctorGrantsResponse struct {
	Pending  []grantResponse `json:"pending"`
	Approved []grantResponse `json:"approved"`
}

// requestAccessHandler godoc
// @Summary Request access to an assigned patient's data
// @Description Creates the PENDING grant, or resets a DENIED, REVOKED or expired one. Requires an assignment between the pair.
// @Tags access
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param payload body requestAccessRequest true "patientId or patientEmail"
// @Success 201 {object} grantResponse
// @Failure 403 {object} map[string]string "access requests limited to assigned patients"
// @Failure 404 {object} map[string]string "patient not found"
// @Failure 409 {object} map[string]string "access request already pending / access already approved"
// @Router /access-request [post]
func requestAccessHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, users.RoleDoctor, 1)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		var req requestAccessRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		g, err := svc.RequestAccessTo(r.Context(), ident.UserID, Target{ID: req.PatientID, Email: req.PatientEmail})
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toGrantResponse(svc.Describe(g)))
	}
}

// listForDoctorHandler godoc
// @Summary Pending and approved grants of the calling doctor
// @Tags access
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} doctorGrantsResponse
// @Router /access-request [get]
func listForDoctorHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, users.RoleDoctor, 1)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		v, err := svc.ListForDoctor(r.Context(), ident.UserID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, doctorGrantsResponse{
			Pending:  toGrantResponses(v.Pending),
			Approved: toGrantResponses(v.Approved),
		})
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
		httpx.WriteJSON(w, http.StatusOK, toGrantResponses(items))
	}
}

// grantHandler godoc
// @Summary Grant an assigned doctor access directly
// @Tags access
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param payload body grantRequest true "doctorId or doctorEmail; expiresInDays 1..365 optional"
// @Success 201 {object} grantResponse
// @Failure 403 {object} map[string]string "access grants limited to assigned doctors"
// @Failure 409 {object} map[string]string "access already approved"
// @Router /patient/access [post]
func grantHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, users.RolePatient, 0)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		var req grantRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		g, err := svc.Grant(r.Context(), ident.UserID, Target{ID: req.DoctorID, Email: req.DoctorEmail}, req.ExpiresInDays)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toGrantResponse(svc.Describe(g)))
	}
}

// decideHandler godoc
// @Summary Approve, deny or revoke one of the caller's grants
// @Tags access
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param grantID path string true "grant id"
// @Param payload body decideRequest true "status APPROVED|DENIED|REVOKED; expiresInDays only with APPROVED"
// @Success 200 {object} grantResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string "access grant not found"
// @Router /patient/access/{grantID} [put]
func decideHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, users.RolePatient, 0)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		var req decideRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		decision, ok := ParseDecision(req.Status)
		if !ok {
			httpx.WriteError(w, ErrInvalidDecision)
			return
		}

		g, err := svc.Decide(r.Context(), ident.UserID, chi.URLParam(r, "grantID"), decision, req.ExpiresInDays)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toGrantResponse(svc.Describe(g)))
	}
}

func revokeHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, users.RolePatient, 0)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		g, err := svc.Revoke(r.Context(), ident.UserID, chi.URLParam(r, "grantID"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toGrantResponse(svc.Describe(g)))
	}
}

func toGrantResponses(items []Entry) []grantResponse {
	out := make([]grantResponse, 0, len(items))
	for _, e := range items {
		out = append(out, toGrantResponse(e))
	}
	return out
}

func toGrantResponse(e Entry) grantResponse {
	return grantResponse{
		ID:          e.ID,
		PatientID:   e.PatientID,
		DoctorID:    e.DoctorID,
		Status:      e.Status,
		Active:      e.Active,
		RequestedAt: e.RequestedAt,
		GrantedAt:   e.GrantedAt,
		ExpiresAt:   e.ExpiresAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
