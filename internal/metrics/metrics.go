// Package metrics exposes Prometheus collectors for the session layer.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "player_session"

// Connect outcomes.
const (
	OutcomeNew       = "new"
	OutcomeReturning = "returning"
	OutcomeFailed    = "failed"
)

// Recorder owns the collectors and the registry they are registered in.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	connects          *prometheus.CounterVec
	disconnects       prometheus.Counter
	writeBackFailures prometheus.Counter
	writeBackDuration prometheus.Histogram
	checkpointedTotal prometheus.Counter
	economyRejections *prometheus.CounterVec
}

// New creates a Recorder with its own registry. activeSessions is sampled on
// every scrape.
func New(activeSessions func() int) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connects_total",
			Help:      "Connect attempts by outcome.",
		}, []string{"outcome"}),
		disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disconnects_total",
			Help:      "Sessions removed from the cache.",
		}),
		writeBackFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_back_failures_total",
			Help:      "Session write-backs that storage rejected.",
		}),
		writeBackDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "write_back_duration_seconds",
			Help:      "Latency of session write-backs.",
			Buckets:   prometheus.DefBuckets,
		}),
		checkpointedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpointed_sessions_total",
			Help:      "Active sessions written by periodic checkpoints.",
		}),
		economyRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "economy_rejections_total",
			Help:      "Economy operations rejected by reason.",
		}, []string{"reason"}),
	}

	active := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Players with a session in the cache.",
	}, func() float64 {
		if activeSessions == nil {
			return 0
		}
		return float64(activeSessions())
	})

	r.registry.MustRegister(
		active,
		r.connects,
		r.disconnects,
		r.writeBackFailures,
		r.writeBackDuration,
		r.checkpointedTotal,
		r.economyRejections,
		collectors.NewGoCollector(),
	)
	return r
}

// Connect records a connect attempt.
func (r *Recorder) Connect(outcome string) {
	if r == nil {
		return
	}
	r.connects.WithLabelValues(outcome).Inc()
}

// Disconnect records a removed session.
func (r *Recorder) Disconnect() {
	if r == nil {
		return
	}
	r.disconnects.Inc()
}

// WriteBack records one write-back attempt.
func (r *Recorder) WriteBack(started time.Time, err error) {
	if r == nil {
		return
	}
	r.writeBackDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		r.writeBackFailures.Inc()
	}
}

// Checkpointed records sessions written by a checkpoint pass.
func (r *Recorder) Checkpointed(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.checkpointedTotal.Add(float64(n))
}

// EconomyRejected records a rejected economy operation.
func (r *Recorder) EconomyRejected(reason string) {
	if r == nil {
		return
	}
	r.economyRejections.WithLabelValues(reason).Inc()
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns the /metrics HTTP handler.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// HealthHandler answers 200 when check passes and 503 otherwise.
// A nil check always passes.
func HealthHandler(check func(context.Context) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				log.Warn().Err(err).Msg("Health check failed")
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// Serve runs the metrics endpoint on addr until ctx is cancelled.
// /healthz reports the result of health.
func (r *Recorder) Serve(ctx context.Context, addr string, health func(context.Context) error) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	mux.Handle("/healthz", HealthHandler(health))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Metrics endpoint listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
