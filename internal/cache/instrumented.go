package cache

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	metricsOnce       sync.Once
	backendOperations metric.Int64Counter
	backendDuration   metric.Float64Histogram
)

func initMetrics() {
	metricsOnce.Do(func() {
		meter := otel.Meter("github.com/tidebrook/credcache/internal/cache")

		var err error
		backendOperations, err = meter.Int64Counter(
			"credcache.backend.operations",
			metric.WithDescription("Total storage backend operations"),
		)
		if err != nil {
			otel.Handle(err)
		}

		backendDuration, err = meter.Float64Histogram(
			"credcache.backend.operation.duration",
			metric.WithDescription("Storage backend operation duration"),
			metric.WithUnit("s"),
		)
		if err != nil {
			otel.Handle(err)
		}
	})
}

// Instrumented wraps a Backend with metrics and span attributes for each
// operation. Expiry policy remains upstream in the manager: a "hit" here is
// any entry found, expired or not.
type Instrumented[T any] struct {
	wrapped     Backend[T]
	backendType string
}

// NewInstrumented creates an instrumented backend wrapper. backendType tags
// the emitted metrics ("memory" or "valkey").
func NewInstrumented[T any](backend Backend[T], backendType string) *Instrumented[T] {
	initMetrics()
	return &Instrumented[T]{
		wrapped:     backend,
		backendType: backendType,
	}
}

// Get retrieves a value, recording hit/miss/error status.
func (i *Instrumented[T]) Get(ctx context.Context, key string) (T, bool, error) {
	start := time.Now()
	value, found, err := i.wrapped.Get(ctx, key)

	status := "miss"
	if err != nil {
		status = "error"
	} else if found {
		status = "hit"
	}
	i.record(ctx, "get", status, time.Since(start))

	return value, found, err
}

// Set stores a value.
func (i *Instrumented[T]) Set(ctx context.Context, key string, value T) error {
	start := time.Now()
	err := i.wrapped.Set(ctx, key, value)
	i.record(ctx, "set", statusOf(err), time.Since(start))
	return err
}

// Remove deletes a key.
func (i *Instrumented[T]) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := i.wrapped.Remove(ctx, key)
	i.record(ctx, "remove", statusOf(err), time.Since(start))
	return err
}

// Clear removes this subsystem's entries.
func (i *Instrumented[T]) Clear(ctx context.Context) error {
	start := time.Now()
	err := i.wrapped.Clear(ctx)
	i.record(ctx, "clear", statusOf(err), time.Since(start))
	return err
}

// Close releases the wrapped backend.
func (i *Instrumented[T]) Close() error {
	return i.wrapped.Close()
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (i *Instrumented[T]) record(ctx context.Context, operation, status string, duration time.Duration) {
	if backendOperations != nil {
		backendOperations.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("backend.type", i.backendType),
				attribute.String("backend.operation", operation),
				attribute.String("backend.status", status),
			),
		)
	}

	if backendDuration != nil {
		backendDuration.Record(ctx, duration.Seconds(),
			metric.WithAttributes(
				attribute.String("backend.type", i.backendType),
				attribute.String("backend.operation", operation),
			),
		)
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("backend.type", i.backendType),
		attribute.String("backend."+operation+".status", status),
		attribute.Float64("backend."+operation+".duration", duration.Seconds()),
	)
}
