package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/memberkit/credential-service/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
)

type AppMetrics struct {
	loginCounter             metric.Int64Counter
	accountFlowCounter       metric.Int64Counter
	passwordHashDuration     metric.Float64Histogram
	tokenConsumeCounter      metric.Int64Counter
	abuseGuardCounter        metric.Int64Counter
	abuseGuardCooldown       metric.Float64Histogram
	accessTokenValidation    metric.Int64Counter
	rateLimitDecisionCounter metric.Int64Counter
	rateLimitRetryAfter      metric.Float64Histogram
	middlewareValidation     metric.Int64Counter
	adminAccountMutations    metric.Int64Counter
	memberProfileCounter     metric.Int64Counter
	healthCheckResultCounter metric.Int64Counter
	healthCheckDuration      metric.Float64Histogram
	toolCommandRuns          metric.Int64Counter
	dbStartupEvents          metric.Int64Counter
	dbStartupDuration        metric.Float64Histogram
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		// Hashing is deliberately slow; buckets cover 1ms..4s.
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "auth.password.hash.duration"},
			sdkmetric.Stream{
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
					Boundaries: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 4},
				},
			},
		)),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}
	setAppMetrics(m)

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var (
		m   AppMetrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
	}{
		{&m.loginCounter, "auth.login.attempts"},
		{&m.accountFlowCounter, "auth.account.flow"},
		{&m.tokenConsumeCounter, "auth.token.consume"},
		{&m.abuseGuardCounter, "auth.abuse_guard.events"},
		{&m.accessTokenValidation, "auth.access_token.validation.events"},
		{&m.rateLimitDecisionCounter, "http.rate_limit.decisions"},
		{&m.middlewareValidation, "http.middleware.validation.events"},
		{&m.adminAccountMutations, "admin.account.mutations"},
		{&m.memberProfileCounter, "member.profile.events"},
		{&m.healthCheckResultCounter, "health.check.results"},
		{&m.toolCommandRuns, "tool.command.runs"},
		{&m.dbStartupEvents, "database.startup.events"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name); err != nil {
			return nil, err
		}
	}
	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&m.passwordHashDuration, "auth.password.hash.duration", "Duration of password hash and verify operations in seconds"},
		{&m.abuseGuardCooldown, "auth.abuse_guard.cooldown", "Cooldown duration returned by auth abuse guard"},
		{&m.rateLimitRetryAfter, "http.rate_limit.retry_after", "Retry-after duration in seconds for throttled requests"},
		{&m.healthCheckDuration, "health.check.duration", "Duration of health dependency checks in seconds"},
		{&m.dbStartupDuration, "database.startup.duration", "Duration of migrate and seed phases in seconds"},
	}
	for _, h := range histograms {
		if *h.dst, err = meter.Float64Histogram(h.name, metric.WithUnit("s"), metric.WithDescription(h.desc)); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func setAppMetrics(m *AppMetrics) {
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()
}

func currentMetrics() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordLoginAttempt(ctx context.Context, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.loginCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordAccountFlow counts register, activate, forgot, reset and change
// flows by outcome.
func RecordAccountFlow(ctx context.Context, flow, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.accountFlowCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("outcome", outcome),
	))
}

func RecordPasswordHashDuration(ctx context.Context, algorithm, operation string, d time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.passwordHashDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("algorithm", algorithm),
		attribute.String("operation", operation),
	))
}

func RecordTokenConsume(ctx context.Context, kind, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.tokenConsumeCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

func RecordAuthAbuseGuardEvent(ctx context.Context, scope, action, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.abuseGuardCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

func RecordAuthAbuseCooldown(ctx context.Context, scope, action string, cooldown time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.abuseGuardCooldown.Record(ctx, cooldown.Seconds(), metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("action", action),
	))
}

func RecordAccessTokenValidation(ctx context.Context, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.accessTokenValidation.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome, mode string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.rateLimitDecisionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
		attribute.String("mode", mode),
	))
}

func RecordRateLimitRetryAfter(ctx context.Context, scope string, retryAfter time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.rateLimitRetryAfter.Record(ctx, retryAfter.Seconds(), metric.WithAttributes(attribute.String("scope", scope)))
}

func RecordMiddlewareValidationEvent(ctx context.Context, middleware, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.middlewareValidation.Add(ctx, 1, metric.WithAttributes(
		attribute.String("middleware", middleware),
		attribute.String("outcome", outcome),
	))
}

func RecordAdminAccountMutation(ctx context.Context, action, status string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.adminAccountMutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("status", status),
	))
}

func RecordMemberProfileEvent(ctx context.Context, section, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.memberProfileCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("section", section),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckResult(ctx context.Context, check, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.healthCheckResultCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("check", check),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckDuration(ctx context.Context, check string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.healthCheckDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("check", check)))
}

func RecordToolCommandRun(ctx context.Context, tool, command, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.toolCommandRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("command", command),
		attribute.String("outcome", outcome),
	))
}

// RecordDatabaseStartupEvent counts migrate and seed outcomes.
func RecordDatabaseStartupEvent(ctx context.Context, phase, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.dbStartupEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.String("outcome", outcome),
	))
}

func RecordDatabaseStartupDuration(ctx context.Context, phase string, d time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.dbStartupDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("phase", phase)))
}
