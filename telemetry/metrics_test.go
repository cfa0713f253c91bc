package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsInitialized(t *testing.T) {
	Init()

	counters := map[string]prometheus.Counter{
		"voice_events":     VoiceEvents,
		"sweeps":           Sweeps,
		"channels_created": ChannelsCreated,
		"channels_deleted": ChannelsDeleted,
	}
	for name, c := range counters {
		if c == nil {
			t.Errorf("%s counter not initialized", name)
		}
	}
	if CreateFailures == nil || DeleteFailures == nil || MoveFailures == nil {
		t.Error("failure counter vectors not initialized")
	}
	if SweepDuration == nil {
		t.Error("SweepDuration histogram not initialized")
	}
	if TrackedChannelsGauge == nil {
		t.Error("TrackedChannelsGauge not initialized")
	}
}

func TestIncHelpers(t *testing.T) {
	Init()

	before := testutil.ToFloat64(ChannelsCreated)
	Inc(ChannelsCreated)
	if got := testutil.ToFloat64(ChannelsCreated); got != before+1 {
		t.Errorf("ChannelsCreated = %v, want %v", got, before+1)
	}

	beforeFatal := testutil.ToFloat64(DeleteFailures.WithLabelValues("fatal"))
	IncFailure(DeleteFailures, "fatal")
	if got := testutil.ToFloat64(DeleteFailures.WithLabelValues("fatal")); got != beforeFatal+1 {
		t.Errorf("DeleteFailures{fatal} = %v, want %v", got, beforeFatal+1)
	}
}

func TestIncHelpersTolerateNil(t *testing.T) {
	// Must not panic when metrics were never registered.
	Inc(nil)
	IncFailure(nil, "retryable")
}

func TestSetTrackedChannels(t *testing.T) {
	Init()

	for _, n := range []int{0, 3, 1} {
		SetTrackedChannels(n)
		if got := testutil.ToFloat64(TrackedChannelsGauge); got != float64(n) {
			t.Errorf("tracked gauge = %v, want %d", got, n)
		}
	}
}

func TestTimeFuncRecordsObservation(t *testing.T) {
	testHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_duration_seconds",
		Help:    "Test duration",
		Buckets: prometheus.DefBuckets,
	})

	executed := false
	duration := TimeFunc(testHistogram, func() {
		time.Sleep(10 * time.Millisecond)
		executed = true
	})

	if !executed {
		t.Error("TimeFunc did not execute provided function")
	}
	if duration < 10*time.Millisecond {
		t.Errorf("TimeFunc duration = %v, want >= 10ms", duration)
	}

	metric := &dto.Metric{}
	if err := testHistogram.Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram == nil {
		t.Fatal("Histogram metric is nil")
	}
	if metric.Histogram.GetSampleCount() == 0 {
		t.Error("TimeFunc did not record observation in histogram")
	}
}

func TestTimeFuncNilObserver(t *testing.T) {
	ran := false
	TimeFunc(nil, func() { ran = true })
	if !ran {
		t.Error("TimeFunc skipped fn when observer is nil")
	}
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("GetCorrelation on bare context = %q, want empty", got)
	}
	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Errorf("GetCorrelation = %q, want abc-123", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Error("LoggerWithCorr returned nil")
	}
}
