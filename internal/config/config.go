package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Cache    CacheConfig
	Exchange ExchangeConfig
	Observe  ObserveConfig
	Server   ServerConfig
}

type ServerConfig struct {
	Port                   int `env:"SERVER_PORT, default=8080"`
	ShutdownTimeoutSeconds int `env:"SERVER_SHUTDOWN_TIMEOUT_SECS, default=25"`

	OutgoingHTTPMaxIdleConns    int `env:"SERVER_OUTGOING_MAX_IDLE_CONNS, default=100"`
	OutgoingHTTPMaxConnsPerHost int `env:"SERVER_OUTGOING_MAX_CONNS_PER_HOST, default=20"`
}

// CacheConfig specifies storage backend configuration.
type CacheConfig struct {
	// Type selects the backend implementation: "memory" (default) or "valkey".
	Type string `env:"CACHE_TYPE, default=memory"`

	// MaxMemoryEntries bounds the in-process backend.
	MaxMemoryEntries int `env:"CACHE_MEMORY_MAX_ENTRIES, default=10000"`

	// ExpiryLeewaySeconds treats entries as expired this many seconds before
	// their deadline, so tokens handed out are good for at least that long.
	ExpiryLeewaySeconds int `env:"CACHE_EXPIRY_LEEWAY_SECS, default=0"`

	// Valkey holds durable backend settings.
	Valkey ValkeyConfig
}

// ValkeyConfig specifies durable backend configuration.
type ValkeyConfig struct {
	// Address is the Valkey server address (host:port).
	Address string `env:"VALKEY_ADDRESS"`

	// TLS enables TLS connection to Valkey. Defaults to true so the secure
	// option is the default.
	TLS bool `env:"VALKEY_TLS, default=true"`

	// Username for Valkey authentication.
	Username string `env:"VALKEY_USERNAME"`

	// Password for Valkey authentication.
	Password string `env:"VALKEY_PASSWORD"`
}

// ExchangeConfig specifies the token endpoint the service exchanges against.
type ExchangeConfig struct {
	// BaseURL of the authorization server, without the token path.
	BaseURL string `env:"EXCHANGE_BASE_URL, required"`

	// TokenPath is appended to BaseURL to form the token endpoint.
	TokenPath string `env:"EXCHANGE_TOKEN_PATH, default=oauth/token"`

	// TimeoutSeconds bounds a single exchange round trip.
	TimeoutSeconds int `env:"EXCHANGE_TIMEOUT_SECS, default=10"`

	// ClientID identifies this client to the authorization server.
	ClientID string `env:"EXCHANGE_CLIENT_ID, required"`

	// Audience requested for issued tokens. The builder substitutes
	// "default" when empty.
	Audience string `env:"EXCHANGE_AUDIENCE"`

	// Scope requested for issued tokens, space-delimited.
	Scope string `env:"EXCHANGE_SCOPE"`

	// UseFormData selects URL-form-encoded request bodies over JSON.
	UseFormData bool `env:"EXCHANGE_USE_FORM_DATA, default=false"`

	// DisableClientInfo suppresses the client identification header.
	DisableClientInfo bool `env:"EXCHANGE_DISABLE_CLIENT_INFO, default=false"`
}

type ObserveConfig struct {
	SDKLogLevel                string `env:"OBSERVE_OTEL_LOG_LEVEL, default=info"`
	Enabled                    bool   `env:"OBSERVE_ENABLED, default=false"`
	MetricsEnabled             bool   `env:"OBSERVE_METRICS_ENABLED, default=true"`
	Type                       string `env:"OBSERVE_TYPE, default=grpc"`
	ServiceName                string `env:"OBSERVE_SERVICE_NAME, default=credcache"`
	TraceBatchTimeoutSeconds   int    `env:"OBSERVE_TRACE_BATCH_TIMEOUT_SECS, default=20"`
	MetricReadIntervalSeconds  int    `env:"OBSERVE_METRIC_READ_INTERVAL_SECS, default=60"`
	HTTPTransportEnabled       bool   `env:"OBSERVE_HTTP_TRANSPORT_ENABLED, default=true"`
	HTTPConnectionTraceEnabled bool   `env:"OBSERVE_CONNECTION_TRACE_ENABLED, default=true"`
}

func Load(ctx context.Context) (Config, error) {
	return load(ctx, nil) // load from OS environment
}

func load(ctx context.Context, lookup envconfig.Lookuper) (Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookup, // nil defaults to OS environment
	})
	if err != nil {
		return cfg, err
	}

	err = cfg.Cache.Validate()
	if err != nil {
		return cfg, fmt.Errorf("invalid cache configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the cache configuration is valid.
func (c *CacheConfig) Validate() error {
	if c.Type == "valkey" && c.Valkey.Address == "" {
		return fmt.Errorf("VALKEY_ADDRESS required when CACHE_TYPE=valkey")
	}

	if c.ExpiryLeewaySeconds < 0 {
		return fmt.Errorf("CACHE_EXPIRY_LEEWAY_SECS must not be negative")
	}

	return nil
}
