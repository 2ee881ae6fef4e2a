package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/justinas/alice"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidebrook/credcache/internal/audit"
	"github.com/tidebrook/credcache/internal/cache"
	"github.com/tidebrook/credcache/internal/config"
	"github.com/tidebrook/credcache/internal/exchange"
	"github.com/tidebrook/credcache/internal/observe"
	"github.com/tidebrook/credcache/internal/server"
)

func configureServerRoutes(cfg config.Config, hooks *server.ShutdownHooks) (http.Handler, error) {
	// wrap a mux such that HTTP telemetry is configured by default
	muxWithoutTelemetry := http.NewServeMux()
	mux := observe.NewMux(muxWithoutTelemetry)

	// configure middleware
	auditor := audit.Middleware()

	// The request body size is fairly limited to prevent accidental or
	// deliberate abuse. Given the current API shape, this is not configurable.
	requestLimitBytes := int64(20 << 10) // 20 KB
	requestLimiter := maxRequestSize(requestLimitBytes)

	tokenRouteMiddleware := alice.New(requestLimiter, auditor)
	standardRouteMiddleware := alice.New(requestLimiter)

	// setup the credential cache and its exchange collaborator
	backend, err := cache.NewFromConfig[cache.WrappedEntry](cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("cache backend configuration failed: %w", err)
	}
	hooks.Add("cache backend", backend.Close)

	manager := cache.NewManager(backend)

	exchangeCfg := exchangeConfig(cfg.Exchange)
	exchanger := exchange.NewClient(exchangeCfg, &http.Client{
		Transport: http.DefaultTransport,
		Timeout:   exchangeCfg.Timeout,
	})

	leeway := time.Duration(cfg.Cache.ExpiryLeewaySeconds) * time.Second

	mux.Handle("POST /token", tokenRouteMiddleware.Then(
		handlePostToken(manager, exchanger, exchangeCfg, leeway)))
	mux.Handle("DELETE /cache", tokenRouteMiddleware.Then(
		handleClearCache(manager)))

	// healthchecks are not included in telemetry
	muxWithoutTelemetry.Handle("GET /healthcheck", standardRouteMiddleware.Then(handleHealthCheck()))

	return mux, nil
}

// exchangeConfig maps the environment configuration onto the exchange
// package's endpoint description.
func exchangeConfig(cfg config.ExchangeConfig) exchange.Config {
	return exchange.Config{
		BaseURL:   cfg.BaseURL,
		TokenPath: cfg.TokenPath,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		ClientID:  cfg.ClientID,
		Audience:  cfg.Audience,
		Scope:     cfg.Scope,
		ClientInfo: exchange.ClientInfo{
			Name:    "credcache",
			Version: buildVersion(),
		},
		UseFormData:       cfg.UseFormData,
		DisableClientInfo: cfg.DisableClientInfo,
	}
}

func buildVersion() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok || buildInfo.Main.Version == "" {
		return "unknown"
	}
	return buildInfo.Main.Version
}

func main() {
	configureLogging()

	logBuildInfo()

	err := launchServer()
	if err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}

func launchServer() error {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("configuration load failed: %w", err)
	}

	hooks := &server.ShutdownHooks{}

	// configure telemetry, including wrapping the default HTTP client
	shutdownTelemetry, err := observe.Configure(ctx, cfg.Observe)
	if err != nil {
		return fmt.Errorf("telemetry bootstrap failed: %w", err)
	}
	hooks.AddContext("telemetry", shutdownTelemetry)

	http.DefaultTransport = observe.HTTPTransport(
		configureHTTPTransport(cfg.Server),
		cfg.Observe,
	)
	http.DefaultClient = &http.Client{
		Transport: http.DefaultTransport,
	}

	// setup routing and dependencies
	handler, err := configureServerRoutes(cfg, hooks)
	if err != nil {
		return fmt.Errorf("server routing configuration failed: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		MaxHeaderBytes:    20 << 10,         // 20 KB
		ReadHeaderTimeout: 20 * time.Second, // Prevent Slowloris attacks
	}

	err = server.Run(ctx, cfg.Server, srv, hooks)
	if err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func configureLogging() {
	// Set global level to the minimum: allows the Open Telemetry logging to be
	// configured separately. However, it means that any logger that sets its
	// level will log as this effectively disables the global level.
	zerolog.SetGlobalLevel(zerolog.Level(-128))

	// default level is Info
	log.Logger = log.Level(zerolog.InfoLevel)

	if os.Getenv("ENV") == "development" {
		log.Logger = log.
			Output(zerolog.ConsoleWriter{Out: os.Stdout}).
			Level(zerolog.DebugLevel)
	}

	zerolog.DefaultContextLogger = &log.Logger
}

func logBuildInfo() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	ev := log.Info()
	for _, v := range buildInfo.Settings {
		if strings.HasPrefix(v.Key, "vcs.") ||
			strings.HasPrefix(v.Key, "GO") ||
			v.Key == "CGO_ENABLED" {
			ev = ev.Str(v.Key, v.Value)
		}
	}

	ev.Msg("build information")
}

func configureHTTPTransport(cfg config.ServerConfig) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	transport.MaxIdleConns = cfg.OutgoingHTTPMaxIdleConns
	transport.MaxConnsPerHost = cfg.OutgoingHTTPMaxConnsPerHost

	return transport
}
