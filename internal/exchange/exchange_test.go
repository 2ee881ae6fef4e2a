package exchange

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() Config {
	return Config{
		BaseURL:  "https://auth.example.com",
		ClientID: "client-1",
		ClientInfo: ClientInfo{
			Name:    "credcache",
			Version: "1.2.3",
		},
	}
}

func TestNewRequest_RequiresBaseURL(t *testing.T) {
	cfg := baseConfig()
	cfg.BaseURL = ""

	_, err := NewRequest(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "base URL")
}

func TestNewRequest_TargetURL(t *testing.T) {
	tests := []struct {
		name      string
		baseURL   string
		tokenPath string
		expected  string
	}{
		{
			name:     "default token path",
			baseURL:  "https://auth.example.com",
			expected: "https://auth.example.com/oauth/token",
		},
		{
			name:     "trailing slash on base",
			baseURL:  "https://auth.example.com/",
			expected: "https://auth.example.com/oauth/token",
		},
		{
			name:      "custom path with leading slash",
			baseURL:   "https://auth.example.com",
			tokenPath: "/custom/token",
			expected:  "https://auth.example.com/custom/token",
		},
		{
			name:      "custom path without leading slash",
			baseURL:   "https://auth.example.com/",
			tokenPath: "custom/token",
			expected:  "https://auth.example.com/custom/token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.BaseURL = tt.baseURL
			cfg.TokenPath = tt.tokenPath

			req, err := NewRequest(context.Background(), cfg, nil)
			require.NoError(t, err)

			assert.Equal(t, "POST", req.Method)
			assert.Equal(t, tt.expected, req.URL.String())
		})
	}
}

func TestNewRequest_JSONBody(t *testing.T) {
	cfg := baseConfig()
	cfg.Scope = "read write"

	req, err := NewRequest(context.Background(), cfg, map[string]string{
		"grant_type": "refresh_token",
	})
	require.NoError(t, err)

	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	raw, err := io.ReadAll(req.Body)
	require.NoError(t, err)

	var body map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, map[string]string{
		"client_id":  "client-1",
		"audience":   "default",
		"scope":      "read write",
		"grant_type": "refresh_token",
	}, body)
}

func TestNewRequest_FormBody(t *testing.T) {
	cfg := baseConfig()
	cfg.UseFormData = true
	cfg.Audience = "https://api.example.com"

	req, err := NewRequest(context.Background(), cfg, map[string]string{
		"grant_type": "refresh_token",
	})
	require.NoError(t, err)

	assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))

	raw, err := io.ReadAll(req.Body)
	require.NoError(t, err)

	form, err := url.ParseQuery(string(raw))
	require.NoError(t, err)
	assert.Equal(t, "client-1", form.Get("client_id"))
	assert.Equal(t, "https://api.example.com", form.Get("audience"))
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Empty(t, form.Get("scope"))
}

func TestNewRequest_ParamsOverrideConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.Audience = "configured-audience"

	req, err := NewRequest(context.Background(), cfg, map[string]string{
		"audience": "per-request-audience",
	})
	require.NoError(t, err)

	raw, err := io.ReadAll(req.Body)
	require.NoError(t, err)

	var body map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "per-request-audience", body["audience"])
}

func TestNewRequest_ClientInfoHeader(t *testing.T) {
	req, err := NewRequest(context.Background(), baseConfig(), nil)
	require.NoError(t, err)

	encoded := req.Header.Get(ClientInfoHeader)
	require.NotEmpty(t, encoded)

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	var info ClientInfo
	require.NoError(t, json.Unmarshal(decoded, &info))
	assert.Equal(t, ClientInfo{Name: "credcache", Version: "1.2.3"}, info)
}

func TestNewRequest_ClientInfoDisabled(t *testing.T) {
	cfg := baseConfig()
	cfg.DisableClientInfo = true

	req, err := NewRequest(context.Background(), cfg, nil)
	require.NoError(t, err)

	assert.Empty(t, req.Header.Get(ClientInfoHeader))
}

func TestRefreshTokenParams(t *testing.T) {
	assert.Equal(t, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": "rt-1",
	}, RefreshTokenParams("rt-1"))
}
