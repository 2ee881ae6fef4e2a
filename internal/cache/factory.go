package cache

import (
	"crypto/tls"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tidebrook/credcache/internal/config"
	"github.com/valkey-io/valkey-go"
)

// NewFromConfig creates a storage backend from configuration.
//
// The backend type must be either "memory" (ephemeral, process-lifetime) or
// "valkey" (durable, shared). Any other value returns an error. For "valkey",
// an address must be provided.
func NewFromConfig[T any](cacheConfig config.CacheConfig) (Backend[T], error) {
	switch cacheConfig.Type {
	case "valkey":
		log.Info().
			Str("backend_type", "valkey").
			Str("address", cacheConfig.Valkey.Address).
			Bool("tls", cacheConfig.Valkey.TLS).
			Msg("initializing durable backend")

		if cacheConfig.Valkey.Address == "" {
			return nil, fmt.Errorf("valkey address is required when backend type is valkey")
		}

		valkeyOpts := valkey.ClientOption{
			InitAddress: []string{cacheConfig.Valkey.Address},
			AuthCredentialsFn: StaticCredentialsFn(
				cacheConfig.Valkey.Username,
				cacheConfig.Valkey.Password,
			),
		}

		if cacheConfig.Valkey.TLS {
			valkeyOpts.TLSConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
			}
		}

		valkeyClient, err := valkey.NewClient(valkeyOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to create valkey client: %w", err)
		}

		durable, err := NewValkey[T](valkeyClient)
		if err != nil {
			valkeyClient.Close()
			return nil, fmt.Errorf("failed to create valkey backend: %w", err)
		}

		return NewInstrumented[T](durable, "valkey"), nil

	case "memory":
		log.Info().
			Str("backend_type", "memory").
			Msg("initializing ephemeral backend")

		memory, err := NewMemory[T](cacheConfig.MaxMemoryEntries)
		if err != nil {
			return nil, fmt.Errorf("failed to create memory backend: %w", err)
		}

		return NewInstrumented[T](memory, "memory"), nil

	default:
		return nil, fmt.Errorf("invalid backend type %q: must be either \"memory\" or \"valkey\"", cacheConfig.Type)
	}
}

// StaticCredentialsFn returns an AuthCredentialsFn that always returns the
// configured username and password.
func StaticCredentialsFn(username, password string) func(valkey.AuthCredentialsContext) (valkey.AuthCredentials, error) {
	return func(valkey.AuthCredentialsContext) (valkey.AuthCredentials, error) {
		return valkey.AuthCredentials{
			Username: username,
			Password: password,
		}, nil
	}
}
