package app

import (
	"context"
	"fmt"
	"time"

	"flight_delay_tracker/internal/domain/clock"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Job is one periodic pass over candidate rows. Run always completes its pass; the
// returned error is reserved for failures that prevent the pass from starting.
type Job interface {
	Name() string
	Run(ctx context.Context, now time.Time) (JobStats, error)
}

// JobStats are the per-run counters. Unused counters stay zero.
type JobStats struct {
	Considered int
	Processed  int
	Saved      int
	Refreshed  int
	CacheHits  int
	Notified   int
	Skipped    int
	Closed     int
	Errors     int
}

func (s JobStats) Fields() logrus.Fields {
	return logrus.Fields{
		"considered": s.Considered,
		"processed":  s.Processed,
		"saved":      s.Saved,
		"refreshed":  s.Refreshed,
		"cache_hits": s.CacheHits,
		"notified":   s.Notified,
		"skipped":    s.Skipped,
		"closed":     s.Closed,
		"errors":     s.Errors,
	}
}

// runItem isolates one item of a batch: errors and panics are returned, never propagated.
func runItem(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing item: %v", r)
		}
	}()
	return fn()
}

// JobRunner executes jobs against the injected clock, bounded by a per-pass timeout.
type JobRunner struct {
	clock   clock.Clock
	metrics Metrics
	timeout time.Duration
	logger  *logrus.Entry
}

func NewJobRunner(clk clock.Clock, metrics Metrics, timeout time.Duration, logger *logrus.Entry) *JobRunner {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &JobRunner{clock: clk, metrics: metrics, timeout: timeout, logger: logger}
}

func (r *JobRunner) Run(ctx context.Context, job Job) (JobStats, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	now := r.clock.Now()
	logCtx := r.logger.WithFields(logrus.Fields{
		"job":    job.Name(),
		"run_id": uuid.NewString(),
		"now":    now.Format(time.RFC3339),
	})
	logCtx.Info("Job run started")

	started := time.Now()
	stats, err := job.Run(ctx, now)
	elapsed := time.Since(started)
	r.metrics.JobFinished(job.Name(), stats, elapsed, err)

	logCtx = logCtx.WithFields(stats.Fields()).WithField("elapsed", elapsed.String())
	if err != nil {
		logCtx.WithError(err).Error("Job run failed")
		return stats, err
	}
	logCtx.Info("Job run completed")
	return stats, nil
}
