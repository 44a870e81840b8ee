package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
)

const responseBodyReadLimit int64 = 1024

var errBrokerURLRequired = errors.New("oauth session data url is required")

// OAuthSessionData is the profile payload returned by the hosted auth broker.
type OAuthSessionData struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Picture      string `json:"picture"`
	SessionToken string `json:"session_token"`
}

// OAuthClient resolves short-lived session IDs against the hosted auth broker.
type OAuthClient struct {
	httpClient     *http.Client
	sessionDataURL string
}

// OAuthClientOption configures optional client behavior.
type OAuthClientOption func(*OAuthClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) OAuthClientOption {
	return func(c *OAuthClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewOAuthClient builds a broker client for the configured session-data URL.
func NewOAuthClient(sessionDataURL string, opts ...OAuthClientOption) (*OAuthClient, error) {
	trimmed := strings.TrimSpace(sessionDataURL)
	if trimmed == "" {
		return nil, errBrokerURLRequired
	}

	client := &OAuthClient{
		sessionDataURL: trimmed,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return client, nil
}

// ResolveSession exchanges the short-lived session ID for the user profile.
func (c *OAuthClient) ResolveSession(ctx context.Context, sessionID string) (*OAuthSessionData, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "oauth client not configured")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session ID is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sessionDataURL, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build session data request")
	}
	req.Header.Set("X-Session-ID", sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute session data request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "invalid session")
	}

	var data OAuthSessionData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode session data response")
	}
	if data.Email == "" || data.SessionToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "session data response missing email or token")
	}
	return &data, nil
}
