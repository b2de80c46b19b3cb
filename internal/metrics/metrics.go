// Package metrics provides Prometheus metrics for the FileStation client and
// the MCP tool dispatcher.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

// Recorder holds the collectors registered for one process. All methods are
// safe on a nil receiver so callers can run without metrics.
type Recorder struct {
	remoteRequests *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	toolCalls      *prometheus.CounterVec
	searchPolls    prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		remoteRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "synolink_remote_requests_total",
				Help: "Total number of FileStation API requests",
			},
			[]string{"api", "method", "outcome"},
		),
		remoteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "synolink_remote_request_duration_seconds",
				Help:    "FileStation API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"api", "method"},
		),
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "synolink_tool_calls_total",
				Help: "Total number of MCP tool invocations",
			},
			[]string{"tool", "outcome"},
		),
		searchPolls: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "synolink_search_polls_total",
				Help: "Total number of search task polls",
			},
		),
	}
}

// ObserveRemoteRequest records one FileStation request.
func (r *Recorder) ObserveRemoteRequest(api, method, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.remoteRequests.WithLabelValues(api, method, outcome).Inc()
	r.remoteDuration.WithLabelValues(api, method).Observe(elapsed.Seconds())
}

// ObserveToolCall records one tool invocation.
func (r *Recorder) ObserveToolCall(tool, outcome string) {
	if r == nil {
		return
	}
	r.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// IncSearchPolls counts one poll of a search task.
func (r *Recorder) IncSearchPolls() {
	if r == nil {
		return
	}
	r.searchPolls.Inc()
}

// Handler exposes the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve blocks serving /metrics on listener until ctx is cancelled.
func Serve(ctx context.Context, listener net.Listener, g prometheus.Gatherer, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if logger != nil {
		logger.Info("metrics server listening", zap.String("addr", listener.Addr().String()))
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
