package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"flight_delay_tracker/internal/app"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	JobRuns      *prometheus.CounterVec
	JobItems     *prometheus.CounterVec
	JobDuration  *prometheus.HistogramVec
	CacheLookups *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "The total number of job passes, by job and result",
		}, []string{"job", "result"}),
		JobItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_items_total",
			Help:      "Per-item job counters (considered, processed, saved, closed, errors, ...)",
		}, []string{"job", "counter"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time taken by one job pass",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_cache_lookups_total",
			Help:      "Bucketed prediction cache lookups, by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) JobFinished(job string, stats app.JobStats, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.JobRuns.WithLabelValues(job, result).Inc()
	m.JobDuration.WithLabelValues(job).Observe(elapsed.Seconds())

	counters := map[string]int{
		"considered": stats.Considered,
		"processed":  stats.Processed,
		"saved":      stats.Saved,
		"refreshed":  stats.Refreshed,
		"cache_hits": stats.CacheHits,
		"notified":   stats.Notified,
		"skipped":    stats.Skipped,
		"closed":     stats.Closed,
		"errors":     stats.Errors,
	}
	for name, v := range counters {
		if v > 0 {
			m.JobItems.WithLabelValues(job, name).Add(float64(v))
		}
	}
}

// Server exposes /metrics for the given gatherer.
type Server struct {
	srv    *http.Server
	logger *logrus.Entry
}

func NewServer(addr string, gatherer prometheus.Gatherer, logger *logrus.Entry) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}
}

func (s *Server) Start() {
	go func() {
		s.logger.WithField("addr", s.srv.Addr).Info("Metrics endpoint listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Metrics endpoint stopped")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
