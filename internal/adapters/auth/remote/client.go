// Package remote verifies bearer tokens against an external IAM service.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"health-record-portal/internal/platform/apperr"
	"health-record-portal/internal/platform/httpclient"
	"health-record-portal/internal/ports/auth"
)

const verifyPath = "/v1/tokens/verify"

var (
	ErrNotConfigured = errors.New("iam client not configured")
	ErrUnauthorized  = apperr.Unauthenticated("invalid or expired token")
	ErrUpstream      = errors.New("iam upstream error")
)

type Config struct {
	BaseURL string
	APIKey  string

	// Defaults to X-Api-Key.
	APIKeyHeader string
	Timeout      time.Duration

	// Transport is for tests; nil uses the default.
	Transport http.RoundTripper
}

type Client struct {
	http         *httpclient.Client
	apiKey       string
	apiKeyHeader string
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	hc, err := httpclient.New(cfg.BaseURL, cfg.Timeout, cfg.Transport)
	if err != nil {
		return nil, err
	}

	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}
	return &Client{http: hc, apiKey: strings.TrimSpace(cfg.APIKey), apiKeyHeader: h}, nil
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// VerifyToken posts the token and maps 401/403 to ErrUnauthorized.
func (c *Client) VerifyToken(ctx context.Context, token string) (auth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrUnauthorized
	}

	var out verifyResponse
	err := c.http.DoJSON(ctx, http.MethodPost, verifyPath, map[string]string{
		c.apiKeyHeader:  c.apiKey,
		"Authorization": "Bearer " + token,
	}, verifyRequest{Token: token}, &out)
	if err != nil {
		switch httpclient.StatusOf(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			return auth.Claims{}, ErrUnauthorized
		}
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	uid := strings.TrimSpace(out.UserID)
	if uid == "" {
		return auth.Claims{}, fmt.Errorf("%w: response missing user_id", ErrUpstream)
	}
	return auth.Claims{
		UserID: uid,
		Email:  strings.TrimSpace(out.Email),
		Role:   strings.ToUpper(strings.TrimSpace(out.Role)),
	}, nil
}
