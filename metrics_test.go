package goMFA

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsIncAndValue(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricVerifySuccess)
	m.Inc(MetricVerifySuccess)
	m.Inc(MetricVerifyFailure)

	if got := m.Value(MetricVerifySuccess); got != 2 {
		t.Fatalf("expected 2 successes, got %d", got)
	}
	if got := m.Value(MetricVerifyFailure); got != 1 {
		t.Fatalf("expected 1 failure, got %d", got)
	}
	if got := m.Value(MetricVerifyExpired); got != 0 {
		t.Fatalf("expected untouched counter to stay 0, got %d", got)
	}
}

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricVerifySuccess)
	m.Observe(MetricVerifyLatency, 10*time.Millisecond)

	if m.Enabled() {
		t.Fatal("expected metrics disabled")
	}
	if got := m.Value(MetricVerifySuccess); got != 0 {
		t.Fatalf("expected disabled Inc to be a no-op, got %d", got)
	}

	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot when disabled, got %+v", snap)
	}
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *Metrics

	m.Inc(MetricVerifySuccess)
	m.Observe(MetricVerifyLatency, time.Millisecond)

	if m.Enabled() || m.LatencyEnabled() {
		t.Fatal("expected nil metrics to report disabled")
	}
	if m.Value(MetricVerifySuccess) != 0 {
		t.Fatal("expected nil metrics value 0")
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatal("expected nil metrics snapshot empty")
	}
}

func TestObserveRequiresLatencyHistograms(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: false})
	m.Observe(MetricVerifyLatency, time.Millisecond)

	if buckets, ok := m.Snapshot().Histograms[MetricVerifyLatency]; ok {
		t.Fatalf("expected no histogram without latency opt-in, got %v", buckets)
	}
}

func TestObserveFillsBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	durations := []time.Duration{
		2 * time.Millisecond,   // bucket 0 (<=5ms)
		8 * time.Millisecond,   // bucket 1 (<=10ms)
		20 * time.Millisecond,  // bucket 2 (<=25ms)
		40 * time.Millisecond,  // bucket 3 (<=50ms)
		90 * time.Millisecond,  // bucket 4 (<=100ms)
		200 * time.Millisecond, // bucket 5 (<=250ms)
		400 * time.Millisecond, // bucket 6 (<=500ms)
		time.Second,            // bucket 7 (+Inf)
	}
	for _, d := range durations {
		m.Observe(MetricVerifyLatency, d)
	}

	buckets, ok := m.Snapshot().Histograms[MetricVerifyLatency]
	if !ok {
		t.Fatal("expected verify latency histogram in snapshot")
	}
	for i, count := range buckets {
		if count != 1 {
			t.Fatalf("expected one observation in bucket %d, got %d (buckets %v)", i, count, buckets)
		}
	}
}

func TestBucketIndexBoundaries(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{5 * time.Millisecond, 0},
		{6 * time.Millisecond, 1},
		{10 * time.Millisecond, 1},
		{25 * time.Millisecond, 2},
		{50 * time.Millisecond, 3},
		{100 * time.Millisecond, 4},
		{250 * time.Millisecond, 5},
		{500 * time.Millisecond, 6},
		{501 * time.Millisecond, 7},
		{time.Minute, 7},
	}
	for _, tc := range cases {
		if got := bucketIndex(tc.d); got != tc.want {
			t.Fatalf("bucketIndex(%v) = %d, want %d", tc.d, got, tc.want)
		}
	}
}

func TestSnapshotIsDetachedCopy(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(MetricVerifySuccess)
	m.Observe(MetricVerifyLatency, time.Millisecond)

	snap := m.Snapshot()
	m.Inc(MetricVerifySuccess)
	m.Observe(MetricVerifyLatency, time.Millisecond)

	if snap.Counters[MetricVerifySuccess] != 1 {
		t.Fatalf("expected snapshot counter frozen at 1, got %d", snap.Counters[MetricVerifySuccess])
	}
	if snap.Histograms[MetricVerifyLatency][0] != 1 {
		t.Fatalf("expected snapshot bucket frozen at 1, got %d", snap.Histograms[MetricVerifyLatency][0])
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricVerifySuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricVerifySuccess); got != workers*perWorker {
		t.Fatalf("expected %d increments, got %d", workers*perWorker, got)
	}
}
