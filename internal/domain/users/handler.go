package users

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"health-record-portal/internal/middleware"
	"health-record-portal/internal/platform/apperr"
	"health-record-portal/internal/platform/httpx"
)

// RegisterRoutes mounts the account endpoints. Register and login are only
// mounted when the service can issue tokens itself.
func RegisterRoutes(r chi.Router, svc *Service) {
	if svc.issuer != nil {
		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", registerHandler(svc))
			ar.Post("/login", loginHandler(svc))
		})
	}
	r.Get("/me", meHandler(svc))
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	ProfileLevel int       `json:"profileLevel"`
	CreatedAt    time.Time `json:"createdAt"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// registerHandler godoc
// @Summary Register a patient or doctor account
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body registerRequest true "role is PATIENT or DOCTOR"
// @Success 201 {object} sessionResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string "email already registered"
// @Router /auth/register [post]
func registerHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		sess, err := svc.Register(r.Context(), RegisterInput{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
			Role:     req.Role,
		})
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		httpx.WriteJSON(w, http.StatusCreated, toSessionResponse(sess))
	}
}

// loginHandler godoc
// @Summary Exchange email and password for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginRequest true "credentials"
// @Success 200 {object} sessionResponse
// @Failure 401 {object} map[string]string "invalid email or password"
// @Router /auth/login [post]
func loginHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		sess, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		httpx.WriteJSON(w, http.StatusOK, toSessionResponse(sess))
	}
}

func meHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			httpx.WriteError(w, apperr.Unauthenticated("unauthorized"))
			return
		}

		u, err := svc.Get(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				err = apperr.Unauthenticated("unknown user")
			}
			httpx.WriteError(w, err)
			return
		}

		httpx.WriteJSON(w, http.StatusOK, ToResponse(u))
	}
}

// ToResponse is the public shape of a user, shared by other modules.
func ToResponse(u User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		ProfileLevel: u.ProfileLevel,
		CreatedAt:    u.CreatedAt,
	}
}

func toSessionResponse(s Session) sessionResponse {
	return sessionResponse{
		Token:     s.Token.Value,
		ExpiresAt: s.Token.ExpiresAt,
		User:      ToResponse(s.User),
	}
}
