package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidebrook/credcache/internal/cache"
	"github.com/tidebrook/credcache/internal/exchange"
	"github.com/tidebrook/credcache/internal/idtoken"
)

// tokenRequest is the body of POST /token. Empty fields fall back to the
// configured defaults.
type tokenRequest struct {
	Audience string `json:"audience,omitempty"`
	Scope    string `json:"scope,omitempty"`
}

// handlePostToken serves credentials for the requested audience and scope:
// from the cache when a live entry exists, via a silent refresh when only a
// refresh-token remnant remains, and with a login_required error when
// neither is available. Interactive authorization is not this service's job.
func handlePostToken(
	manager *cache.Manager,
	exchanger *exchange.Client,
	cfg exchange.Config,
	leeway time.Duration,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		var req tokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			log.Info().Msgf("invalid token request body: %v", err)
			requestError(w, http.StatusBadRequest)
			return
		}

		audience := req.Audience
		if audience == "" {
			audience = cfg.Audience
		}
		if audience == "" {
			audience = exchange.DefaultAudience
		}
		scope := req.Scope
		if scope == "" {
			scope = cfg.Scope
		}

		key := cache.NewKey(cfg.ClientID, audience, scope)

		entry, err := manager.Get(r.Context(), key, leeway)
		if err != nil {
			log.Info().Msgf("cache read failed: %v", err)
			requestError(w, http.StatusInternalServerError)
			return
		}

		if entry != nil && entry.AccessToken != "" {
			writeEntry(w, entry)
			return
		}

		// no usable access token: a remnant may still allow a silent refresh
		var refreshToken string
		if entry != nil {
			refreshToken = entry.RefreshToken
		}
		if refreshToken == "" {
			writeJSONError(w, http.StatusUnauthorized, "login_required")
			return
		}

		resp, err := exchanger.Exchange(r.Context(), exchange.RefreshTokenParams(refreshToken))
		if err != nil {
			status, message := exchangeErrorStatus(err)
			log.Info().Msgf("token refresh failed: %v", err)
			writeJSONError(w, status, message)
			return
		}

		fresh, err := entryFromResponse(resp, cfg.ClientID, audience, scope, refreshToken)
		if err != nil {
			log.Info().Msgf("token response unusable: %v", err)
			requestError(w, http.StatusBadGateway)
			return
		}

		if err := manager.Set(r.Context(), *fresh); err != nil {
			log.Info().Msgf("cache write failed: %v", err)
			requestError(w, http.StatusInternalServerError)
			return
		}

		writeEntry(w, fresh)
	})
}

// entryFromResponse builds a cache entry from a token endpoint response. The
// stored audience, scope and client ID are the request's: they are the
// source of truth for the storage key. A response that grants a narrower
// scope than requested is recorded as granted, so later lookups match what
// the token can actually do. An unrotated refresh token is carried forward.
func entryFromResponse(
	resp *exchange.TokenResponse,
	clientID, audience, scope, previousRefreshToken string,
) (*cache.Entry, error) {
	var decoded *cache.DecodedToken
	if resp.IDToken != "" {
		var err error
		decoded, err = idtoken.Decode(resp.IDToken)
		if err != nil {
			return nil, err
		}
	}

	grantedScope := resp.Scope
	if grantedScope == "" {
		grantedScope = scope
	}

	refreshToken := resp.RefreshToken
	if refreshToken == "" {
		refreshToken = previousRefreshToken
	}

	return &cache.Entry{
		IDToken:      resp.IDToken,
		AccessToken:  resp.AccessToken,
		ExpiresIn:    resp.ExpiresIn,
		DecodedToken: decoded,
		Audience:     audience,
		Scope:        grantedScope,
		ClientID:     clientID,
		RefreshToken: refreshToken,
	}, nil
}

func handleClearCache(manager *cache.Manager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		if err := manager.Clear(r.Context()); err != nil {
			log.Info().Msgf("cache clear failed: %v", err)
			requestError(w, http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func handleHealthCheck() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func maxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.MaxBytesHandler(next, limit)
	}
}

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeEntry(w http.ResponseWriter, entry *cache.Entry) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entry); err != nil {
		// record failure to log: trying to respond to the client at this
		// point will likely fail
		log.Info().Msgf("failed to write response: %v", err)
	}
}

// writeJSONError writes a JSON error response with the given status code and message.
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Error: message}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// At this point the status code has been written, so we can only log
		log.Info().Msgf("failed to write JSON error response: %v", err)
	}
}

// exchangeErrorStatus maps an exchange failure to a response status. An
// authorization server refusal surfaces its RFC 6749 error code; transport
// failures are a bad gateway.
func exchangeErrorStatus(err error) (int, string) {
	var oauthErr *exchange.OAuthError
	if errors.As(err, &oauthErr) {
		return http.StatusUnauthorized, oauthErr.Code
	}
	return http.StatusBadGateway, http.StatusText(http.StatusBadGateway)
}

func requestError(w http.ResponseWriter, statusCode int) {
	http.Error(w, http.StatusText(statusCode), statusCode)
}

// drainRequestBody drains the request body by reading and discarding the contents.
// This is useful to ensure the request body is fully consumed, which is important
// for connection reuse in HTTP/1 clients.
func drainRequestBody(r *http.Request) {
	if r.Body != nil {
		// 5kb max: after this we'll assume the client is broken or malicious
		// and close the connection
		io.CopyN(io.Discard, r.Body, 5*1024*1024)
	}
}
