package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/memberkit/credential-service/internal/observability"
)

type CheckResult struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

const startupGraceCheck = "startup_grace"

// ProbeRunner answers the readiness probe. Checks run concurrently, each
// under its own timeout, and results keep the order the checkers were given.
// Until gracePeriod has passed since construction it reports unready without
// touching any dependency.
type ProbeRunner struct {
	checkers    []Checker
	timeout     time.Duration
	gracePeriod time.Duration
	startedAt   time.Time
	now         func() time.Time
}

func NewProbeRunner(timeout, gracePeriod time.Duration, checkers ...Checker) *ProbeRunner {
	r := &ProbeRunner{timeout: timeout, gracePeriod: gracePeriod, now: time.Now}
	if r.timeout <= 0 {
		r.timeout = time.Second
	}
	for _, c := range checkers {
		if c != nil {
			r.checkers = append(r.checkers, c)
		}
	}
	r.startedAt = r.now()
	return r
}

func (r *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	if r == nil {
		return true, nil
	}
	if r.inGrace() {
		observability.RecordHealthCheckResult(ctx, startupGraceCheck, "unhealthy")
		return false, []CheckResult{{Name: startupGraceCheck, Error: "startup grace period active"}}
	}

	results := make([]CheckResult, len(r.checkers))
	var g errgroup.Group
	for i, c := range r.checkers {
		g.Go(func() error {
			results[i] = r.run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	ready := true
	for _, res := range results {
		ready = ready && res.Healthy
	}
	return ready, results
}

func (r *ProbeRunner) inGrace() bool {
	return r.gracePeriod > 0 && r.now().Sub(r.startedAt) < r.gracePeriod
}

func (r *ProbeRunner) run(ctx context.Context, c Checker) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := r.now()
	res := c.Check(checkCtx)
	elapsed := r.now().Sub(start)
	res.LatencyMS = elapsed.Milliseconds()

	outcome := "healthy"
	if !res.Healthy {
		outcome = "unhealthy"
	}
	observability.RecordHealthCheckResult(ctx, res.Name, outcome)
	observability.RecordHealthCheckDuration(ctx, res.Name, elapsed)
	return res
}
