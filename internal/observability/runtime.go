package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/memberkit/credential-service/internal/config"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Runtime owns the OpenTelemetry providers of the process. LoggerProvider is
// nil when OTLP log export is disabled.
type Runtime struct {
	LoggerProvider *sdklog.LoggerProvider
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider

	stops []namedStop
}

type namedStop struct {
	name string
	stop func(context.Context) error
}

func (r *Runtime) onShutdown(name string, stop func(context.Context) error) {
	r.stops = append(r.stops, namedStop{name: name, stop: stop})
}

// InitRuntime starts logs, metrics and tracing in that order. A failing step
// stops whatever already started.
func InitRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{}
	steps := []struct {
		name  string
		start func() error
	}{
		{"logs", func() error {
			lp, err := InitLogs(ctx, cfg, logger)
			if err == nil && lp != nil {
				rt.LoggerProvider = lp
				rt.onShutdown("logs", lp.Shutdown)
			}
			return err
		}},
		{"metrics", func() error {
			mp, err := InitMetrics(ctx, cfg, logger)
			if err == nil {
				rt.MeterProvider = mp
				rt.onShutdown("metrics", mp.Shutdown)
			}
			return err
		}},
		{"tracing", func() error {
			tp, err := InitTracing(ctx, cfg, logger)
			if err == nil {
				rt.TracerProvider = tp
				rt.onShutdown("tracing", tp.Shutdown)
			}
			return err
		}},
	}
	for _, step := range steps {
		if err := step.start(); err != nil {
			_ = rt.Shutdown(ctx)
			return nil, fmt.Errorf("init %s: %w", step.name, err)
		}
	}
	return rt, nil
}

// Shutdown flushes providers in reverse start order and reports every
// failure.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs []error
	for i := len(r.stops) - 1; i >= 0; i-- {
		s := r.stops[i]
		if err := s.stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s: %w", s.name, err))
		}
	}
	r.stops = nil
	return errors.Join(errs...)
}
