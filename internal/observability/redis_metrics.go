package observability

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var redisInstrumentationOnce sync.Once

// InstrumentRedisClient adds command and pool metrics to the client shared by
// the abuse guard, the rate limiter and the profile cache. Only the first
// call per process installs the hook.
func InstrumentRedisClient(client redis.UniversalClient, logger *slog.Logger) {
	if client == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	redisInstrumentationOnce.Do(func() {
		hook, err := newRedisMetricsHook(otel.Meter(instrumentationName), client.PoolStats)
		if err != nil {
			logger.Warn("redis metrics disabled", "error", err)
			return
		}
		client.AddHook(hook)
		logger.Info("redis metrics enabled")
	})
}

type redisMetricsHook struct {
	commands metric.Int64Counter
	latency  metric.Float64Histogram
}

func newRedisMetricsHook(meter metric.Meter, poolStats func() *redis.PoolStats) (*redisMetricsHook, error) {
	h := &redisMetricsHook{}
	var err error
	if h.commands, err = meter.Int64Counter("redis.command.total",
		metric.WithDescription("Redis commands by command and status")); err != nil {
		return nil, err
	}
	if h.latency, err = meter.Float64Histogram("redis.command.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Redis command latency")); err != nil {
		return nil, err
	}
	if err := registerRedisPoolGauges(meter, poolStats); err != nil {
		return nil, err
	}
	return h, nil
}

// registerRedisPoolGauges reports connection counts by state and the share of
// connections in use.
func registerRedisPoolGauges(meter metric.Meter, poolStats func() *redis.PoolStats) error {
	conns, err := meter.Int64ObservableGauge("redis.pool.connections",
		metric.WithDescription("Redis pool connections by state"))
	if err != nil {
		return err
	}
	saturation, err := meter.Float64ObservableGauge("redis.pool.saturation",
		metric.WithUnit("1"),
		metric.WithDescription("Share of pool connections in use"))
	if err != nil {
		return err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := poolStats()
		if stats == nil {
			return nil
		}
		used := int64(stats.TotalConns) - int64(stats.IdleConns)
		o.ObserveInt64(conns, int64(stats.IdleConns), metric.WithAttributes(attribute.String("state", "idle")))
		o.ObserveInt64(conns, used, metric.WithAttributes(attribute.String("state", "used")))
		if stats.TotalConns > 0 {
			o.ObserveFloat64(saturation, clampRatio(float64(used)/float64(stats.TotalConns)))
		}
		return nil
	}, conns, saturation)
	return err
}

func (h *redisMetricsHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *redisMetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe(ctx, start, err, attribute.String("command", strings.ToLower(cmd.Name())))
		return err
	}
}

func (h *redisMetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.observe(ctx, start, err, attribute.String("command", "pipeline"), attribute.Int("pipeline.size", len(cmds)))
		return err
	}
}

func (h *redisMetricsHook) observe(ctx context.Context, start time.Time, err error, attrs ...attribute.KeyValue) {
	opt := metric.WithAttributes(append(attrs, attribute.String("status", redisCommandStatus(err)))...)
	h.commands.Add(ctx, 1, opt)
	h.latency.Record(ctx, time.Since(start).Seconds(), opt)
}

func redisCommandStatus(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, redis.Nil) {
		return "miss"
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) ||
		strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return "timeout"
	}
	return "error"
}

func clampRatio(v float64) float64 {
	return min(max(v, 0), 1)
}
