// Package exchange builds and executes requests against an OAuth token
// endpoint. Request construction is a pure function of its inputs; execution
// is delegated to an injected HTTP client so callers control transport,
// timeout enforcement and the execution context entirely.
package exchange

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTokenPath is appended to the base URL when no path is
	// configured.
	DefaultTokenPath = "oauth/token"

	// DefaultAudience substitutes an empty configured audience.
	DefaultAudience = "default"

	// ClientInfoHeader carries base64-encoded JSON metadata identifying the
	// calling SDK and version to the token endpoint.
	ClientInfoHeader = "Credcache-Client"

	// maxResponseBodySize is the maximum size read from a token endpoint
	// response (1 MB).
	maxResponseBodySize = 1 << 20
)

// ClientInfo identifies the calling SDK to the token endpoint.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Config describes the token endpoint and the fixed grant parameters sent on
// every exchange.
type Config struct {
	// BaseURL of the authorization server, without the token path.
	BaseURL string

	// TokenPath is appended to BaseURL; DefaultTokenPath when empty.
	TokenPath string

	// Timeout bounds a single exchange round trip when the executing client
	// is built by NewClient. NewRequest itself enforces nothing.
	Timeout time.Duration

	// ClientID is sent as the client_id grant parameter.
	ClientID string

	// Audience is sent as the audience grant parameter; DefaultAudience when
	// empty.
	Audience string

	// Scope is sent as the scope grant parameter when non-empty.
	Scope string

	// ClientInfo is attached as ClientInfoHeader unless disabled.
	ClientInfo ClientInfo

	// UseFormData selects URL-form-encoded bodies over JSON.
	UseFormData bool

	// DisableClientInfo suppresses the client identification header.
	DisableClientInfo bool
}

// NewRequest builds the token-exchange request: POST to baseUrl + "/" +
// tokenPath, grant parameters form- or JSON-encoded per configuration, with
// Content-Type set accordingly and the client identification header attached
// unless disabled.
//
// Construction is deterministic: both encodings sort parameters by name. The
// supplied params take precedence over the equivalent Config fields. No I/O
// is performed and no retries are implied; executing the request is the
// caller's concern.
func NewRequest(ctx context.Context, cfg Config, params map[string]string) (*http.Request, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("exchange base URL is required")
	}

	tokenPath := cfg.TokenPath
	if tokenPath == "" {
		tokenPath = DefaultTokenPath
	}
	target := strings.TrimSuffix(cfg.BaseURL, "/") + "/" + strings.TrimPrefix(tokenPath, "/")

	body := map[string]string{}
	if cfg.ClientID != "" {
		body["client_id"] = cfg.ClientID
	}
	audience := cfg.Audience
	if audience == "" {
		audience = DefaultAudience
	}
	body["audience"] = audience
	if cfg.Scope != "" {
		body["scope"] = cfg.Scope
	}
	for k, v := range params {
		body[k] = v
	}

	var payload []byte
	var contentType string
	if cfg.UseFormData {
		form := url.Values{}
		for k, v := range body {
			form.Set(k, v)
		}
		payload = []byte(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	} else {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding token request body: %w", err)
		}
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)

	if !cfg.DisableClientInfo {
		info, err := json.Marshal(cfg.ClientInfo)
		if err != nil {
			return nil, fmt.Errorf("encoding client metadata: %w", err)
		}
		req.Header.Set(ClientInfoHeader, base64.StdEncoding.EncodeToString(info))
	}

	return req, nil
}

// RefreshTokenParams returns the grant parameters for a refresh-token grant.
func RefreshTokenParams(refreshToken string) map[string]string {
	return map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	}
}
