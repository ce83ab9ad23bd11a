package messages

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"health-record-portal/internal/domain/tier"
	"health-record-portal/internal/platform/httpx"
)

func RegisterRoutes(r chi.Router, svc *Service, gate *tier.Gate) {
	r.Route("/messages", func(mr chi.Router) {
		mr.Post("/", sendHandler(svc, gate))
		mr.Get("/", conversationHandler(svc, gate))
		mr.Post("/{messageID}/read", markReadHandler(svc, gate))
	})
}

type sendRequest struct {
	RecipientID string `json:"recipientId"`
	Body        string `json:"body"`
}

type messageResponse struct {
	ID          string     `json:"id"`
	SenderID    string     `json:"senderId"`
	RecipientID string     `json:"recipientId"`
	Body        string     `json:"body"`
	CreatedAt   time.Time  `json:"createdAt"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
}

// sendHandler godoc
// @Summary Send a message to an assigned counterpart
// @Description Markup is stripped from the body; 1..2000 characters remain.
// @Tags messages
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param payload body sendRequest true "message"
// @Success 201 {object} messageResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string "messaging limited to assigned patients and doctors"
// @Router /messages [post]
func sendHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, "", 1)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		var req sendRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		m, err := svc.Send(r.Context(), ident.UserID, req.RecipientID, req.Body)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toMessageResponse(m))
	}
}

// conversationHandler godoc
// @Summary Conversation with one counterpart, oldest first
// @Tags messages
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param with query string true "counterpart user id"
// @Param limit query int false "max messages"
// @Success 200 {array} messageResponse
// @Router /messages [get]
func conversationHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, "", 1)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		limit := httpx.QueryInt(r, "limit", DefaultLimit, MaxLimit)
		items, err := svc.Conversation(r.Context(), ident.UserID, r.URL.Query().Get("with"), limit)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		out := make([]messageResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMessageResponse(m))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

func markReadHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, "", 0)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		m, err := svc.MarkRead(r.Context(), ident.UserID, chi.URLParam(r, "messageID"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toMessageResponse(m))
	}
}

func toMessageResponse(m Message) messageResponse {
	return messageResponse{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
		ReadAt:      m.ReadAt,
	}
}
