// Package metrics exposes pipeline counters in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eve-intel/internal/logger"
)

var (
	// ChatLines counts decoded chat messages by channel.
	ChatLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eveintel_chat_lines_total",
		Help: "Chat messages decoded, by channel",
	}, []string{"channel"})

	// ChatFiles counts chat log files seen by the tailer, by outcome.
	ChatFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eveintel_chat_files_total",
		Help: "Chat log files examined, by outcome",
	}, []string{"outcome"})

	// Reports counts classified intel reports by threat kind.
	Reports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eveintel_reports_total",
		Help: "Intel reports classified, by threat kind",
	}, []string{"kind"})

	// Notifications counts notifications handed to a sink, by channel.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eveintel_notifications_total",
		Help: "Notifications delivered, by kind",
	}, []string{"kind"})

	// Pending is the number of reports waiting for the next debounce tick.
	Pending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eveintel_pending_reports",
		Help: "Reports waiting for the next debounce tick",
	})

	// RouteDuration tracks shortest-path search latency.
	RouteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eveintel_route_duration_seconds",
		Help:    "Route search duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is canceled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Server(addr + "/metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
