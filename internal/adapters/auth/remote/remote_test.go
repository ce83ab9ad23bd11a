package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newIAM(t *testing.T, handler http.HandlerFunc) *Verifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return NewVerifier(c)
}

func TestVerifyOK(t *testing.T) {
	v := newIAM(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != verifyPath || r.Header.Get("X-Api-Key") != "k" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var in verifyRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Token != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(verifyResponse{UserID: " u1 ", Email: "u1@example.com", Role: "doctor"})
	})

	c, err := v.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if c.UserID != "u1" || c.Role != "DOCTOR" {
		t.Fatalf("unexpected claims: %+v", c)
	}
}

func TestVerifyUnauthorizedAndUpstream(t *testing.T) {
	v := newIAM(t, func(w http.ResponseWriter, r *http.Request) {
		var in verifyRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		switch in.Token {
		case "bad":
			w.WriteHeader(http.StatusUnauthorized)
		case "empty":
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	})

	if _, err := v.Verify(context.Background(), "bad"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := v.Verify(context.Background(), "empty"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream for missing user_id, got %v", err)
	}
	if _, err := v.Verify(context.Background(), "boom"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestNewClientRequiresConfig(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "http://iam"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
