// Package metrics provides Prometheus collectors for the thumbnail pipeline.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Thumbnail results.
const (
	ResultDone     = "done"
	ResultFailed   = "failed"
	ResultCanceled = "canceled"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	thumbnailsTotal *prometheus.CounterVec
	loadDuration    prometheus.Histogram
	workersLive     prometheus.Gauge
	queueDepth      prometheus.Gauge
	itemsCached     prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		thumbnailsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rthumb_thumbnails_total",
				Help: "Thumbnail jobs finished, by result",
			},
			[]string{"result"},
		),
		loadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rthumb_load_duration_seconds",
				Help:    "Time spent loading and rendering one thumbnail",
				Buckets: prometheus.DefBuckets,
			},
		),
		workersLive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rthumb_workers_live",
				Help: "Number of live thumbnail workers",
			},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rthumb_queue_depth",
				Help: "Thumbnail jobs waiting for a worker",
			},
		),
		itemsCached: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rthumb_items_cached",
				Help: "File items held by the file system cache",
			},
		),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordThumbnail records one finished job.
func (m *Metrics) RecordThumbnail(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.thumbnailsTotal.WithLabelValues(result).Inc()
	if result != ResultCanceled {
		m.loadDuration.Observe(d.Seconds())
	}
}

// SetWorkersLive updates the live worker gauge.
func (m *Metrics) SetWorkersLive(n int) {
	if m == nil {
		return
	}
	m.workersLive.Set(float64(n))
}

// SetQueueDepth updates the queue depth gauge.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// SetItemsCached updates the cached item gauge.
func (m *Metrics) SetItemsCached(n int) {
	if m == nil {
		return
	}
	m.itemsCached.Set(float64(n))
}

// Handler returns the HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
