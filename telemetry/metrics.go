// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	VoiceEvents     prometheus.Counter
	Sweeps          prometheus.Counter
	ChannelsCreated prometheus.Counter
	ChannelsDeleted prometheus.Counter

	// Failures labelled by error class (retryable|fatal|unknown)
	CreateFailures *prometheus.CounterVec
	DeleteFailures *prometheus.CounterVec
	MoveFailures   *prometheus.CounterVec

	// Histograms (seconds)
	SweepDuration prometheus.Observer

	// Gauges
	TrackedChannelsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		VoiceEvents = promauto.NewCounter(prometheus.CounterOpts{Name: "tempvoice_voice_events_total", Help: "Number of voice state transitions handled"})
		Sweeps = promauto.NewCounter(prometheus.CounterOpts{Name: "tempvoice_sweeps_total", Help: "Number of sweep passes over tracked channels"})
		ChannelsCreated = promauto.NewCounter(prometheus.CounterOpts{Name: "tempvoice_channels_created_total", Help: "Number of temporary channels created"})
		ChannelsDeleted = promauto.NewCounter(prometheus.CounterOpts{Name: "tempvoice_channels_deleted_total", Help: "Number of temporary channels deleted"})
		CreateFailures = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tempvoice_channel_create_failures_total", Help: "Failed channel creations by error class"}, []string{"class"})
		DeleteFailures = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tempvoice_channel_delete_failures_total", Help: "Failed channel deletions by error class"}, []string{"class"})
		MoveFailures = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tempvoice_member_move_failures_total", Help: "Failed member moves by error class"}, []string{"class"})
		SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "tempvoice_sweep_duration_seconds", Help: "Sweep pass duration seconds", Buckets: prometheus.DefBuckets})
		TrackedChannelsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "tempvoice_tracked_channels", Help: "Current number of temporary channels in the registry"})
	})
}

// Inc increments c if metrics have been initialized.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// IncFailure increments the class series of vec if metrics have been initialized.
func IncFailure(vec *prometheus.CounterVec, class string) {
	if vec != nil {
		vec.WithLabelValues(class).Inc()
	}
}

// SetTrackedChannels records the current registry size.
func SetTrackedChannels(n int) {
	if TrackedChannelsGauge != nil {
		TrackedChannelsGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
