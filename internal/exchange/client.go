package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

// TokenResponse is the parsed body of a successful token endpoint response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

// OAuthError is an RFC 6749 error body returned by the token endpoint.
type OAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	StatusCode  int    `json:"-"`
}

func (e *OAuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("oauth error %q (status %d): %s", e.Code, e.StatusCode, e.Description)
	}
	return fmt.Sprintf("oauth error %q (status %d)", e.Code, e.StatusCode)
}

// parseOAuthError attempts to interpret a non-2xx body as an OAuth error.
func parseOAuthError(statusCode int, body []byte) *OAuthError {
	var oauthErr OAuthError
	if err := json.Unmarshal(body, &oauthErr); err != nil {
		return nil
	}
	if oauthErr.Code == "" {
		return nil
	}
	oauthErr.StatusCode = statusCode
	return &oauthErr
}

// Client executes built exchange requests against the configured endpoint.
// It performs a single round trip per call: no retries, and the configured
// timeout is the only deadline applied beyond the caller's context.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates an exchange client. A nil httpClient gets a plain client
// bounded by the configured timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		cfg:  cfg,
		http: httpClient,
	}
}

// Exchange performs one token exchange with the given grant parameters.
// Endpoint errors with an RFC 6749 body are returned as *OAuthError;
// transport failures are returned unchanged.
func (c *Client) Exchange(ctx context.Context, params map[string]string) (*TokenResponse, error) {
	req, err := NewRequest(ctx, c.cfg, params)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read token exchange response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if oauthErr := parseOAuthError(resp.StatusCode, body); oauthErr != nil {
			log.Debug().
				Str("error", oauthErr.Code).
				Int("status", oauthErr.StatusCode).
				Msg("token exchange refused")
			return nil, oauthErr
		}
		return nil, fmt.Errorf("token exchange failed with status %d", resp.StatusCode)
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token exchange response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token exchange returned empty access_token")
	}

	return &tokenResp, nil
}
