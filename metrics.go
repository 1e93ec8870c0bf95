package goGuard

import (
	"time"

	internalmetrics "github.com/MrEthical07/goGuard/internal/metrics"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	MetricCSRFTokenIssued MetricID = iota
	MetricCSRFValidationSuccess
	MetricCSRFTokenMissing
	MetricCSRFTokenNotFound
	MetricCSRFTokenExpired
	MetricCSRFTokenReused
	MetricCSRFIdentifierMismatch
	MetricCSRFTokensPurged
	MetricCSRFTokensCleared
	MetricRateLimitAllowed
	MetricRateLimitHit
	MetricRateLimitCleared
	// MetricBackendError counts cache faults seen by either guard.
	MetricBackendError
	// MetricFailOpen counts checks admitted because of FailOpen.
	MetricFailOpen
	MetricCSRFCheckLatency
	MetricRateLimitCheckLatency
	metricIDCount
)

func isHistogram(id MetricID) bool {
	return id == MetricCSRFCheckLatency || id == MetricRateLimitCheckLatency
}

// Metrics holds the engine's counters and latency histograms.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      *internalmetrics.Counters
	histograms    [metricIDCount]*internalmetrics.Histogram
}

// MetricsSnapshot is a point-in-time copy of all metrics. Histogram slices
// hold per-bucket, non-cumulative counts.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	m := &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
		counters:      internalmetrics.NewCounters(int(metricIDCount)),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if isHistogram(id) {
			m.histograms[id] = &internalmetrics.Histogram{}
		}
	}
	return m
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add increments a counter by n.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || isHistogram(id) {
		return
	}
	m.counters.Add(int(id), n)
}

// Observe records a latency sample. Only histogram ids accept samples.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id >= metricIDCount {
		return
	}
	if h := m.histograms[id]; h != nil {
		h.Observe(d)
	}
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters.Load(int(id))
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 2),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if isHistogram(id) {
			if m.enableLatency {
				s.Histograms[id] = m.histograms[id].Snapshot()
			}
			continue
		}
		s.Counters[id] = m.counters.Load(int(id))
	}

	return s
}
