package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"patas/internal/session"
	dErrors "patas/pkg/domain-errors"
)

// Endpoints of the backend's credential-issuance surface. The refresh call
// carries the refresh token as a bearer credential, not a body field.
const (
	loginPath   = "/autenticacao/login"
	refreshPath = "/autenticacao/refresh"
)

// tokenResponse is the backend's credential-issuance payload. TTLs are
// relative seconds; they are converted to absolute instants at receipt time.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
}

func (r tokenResponse) wellFormed() bool {
	return r.AccessToken != "" && r.RefreshToken != "" && r.ExpiresIn > 0 && r.RefreshExpiresIn > 0
}

// AuthClient implements session.AuthAPI against the backend's authentication
// endpoints. It deliberately does not go through the authenticated pipeline:
// login and refresh must work without (or with only) a refresh credential.
type AuthClient struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// AuthOption configures the AuthClient.
type AuthOption func(*AuthClient)

// WithAuthClock injects a time source. Used by tests.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(c *AuthClient) { c.now = now }
}

// NewAuthClient builds an AuthClient with the same fixed per-call timeout
// the pipeline uses.
func NewAuthClient(baseURL string, timeout time.Duration, opts ...AuthOption) *AuthClient {
	c := &AuthClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges username/password for a token pair.
func (c *AuthClient) Login(ctx context.Context, req session.LoginRequest) (*session.TokenPair, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode login request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(payload))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build login request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	status, body, err := c.roundTrip(httpReq)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusBadRequest {
		msg := pickMessage(body)
		if msg == "" {
			msg = "login rejected"
		}
		return nil, dErrors.WithStatus(dErrors.CodeInvalidCredentials, status, msg)
	}
	if status >= 400 {
		return nil, normalizeStatus(status, body)
	}
	return c.toTokenPair(body)
}

// Refresh exchanges the current refresh token for a new pair.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (*session.TokenPair, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+refreshPath, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build refresh request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+refreshToken)
	httpReq.Header.Set("Accept", "application/json")

	status, body, err := c.roundTrip(httpReq)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		msg := pickMessage(body)
		if msg == "" {
			msg = "refresh token rejected"
		}
		return nil, dErrors.WithStatus(dErrors.CodeSessionExpired, status, msg)
	}
	if status >= 400 {
		return nil, normalizeStatus(status, body)
	}
	return c.toTokenPair(body)
}

func (c *AuthClient) roundTrip(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, normalizeTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, normalizeTransport(err)
	}
	return resp.StatusCode, body, nil
}

func (c *AuthClient) toTokenPair(body []byte) (*session.TokenPair, error) {
	var dto tokenResponse
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeMalformedResponse, "decode token response")
	}
	if !dto.wellFormed() {
		return nil, dErrors.New(dErrors.CodeMalformedResponse, "token response missing required fields")
	}

	now := c.now()
	return &session.TokenPair{
		AccessToken:      dto.AccessToken,
		RefreshToken:     dto.RefreshToken,
		AccessExpiresAt:  now.Add(time.Duration(dto.ExpiresIn) * time.Second),
		RefreshExpiresAt: now.Add(time.Duration(dto.RefreshExpiresIn) * time.Second),
	}, nil
}
