package goSSO

import (
	"sync/atomic"
	"time"
)

// MetricID identifies an engine counter or histogram.
type MetricID uint16

const (
	MetricSignInSuccess MetricID = iota
	MetricSignInFailure
	// MetricSignInCaptchaRequired counts sign-ins attempted after the per-IP
	// hit limit was exceeded.
	MetricSignInCaptchaRequired
	// MetricSignInPasswordChanged counts failed sign-ins that used the
	// password replaced by the latest restore.
	MetricSignInPasswordChanged
	MetricSignUpSuccess
	MetricSignUpDuplicate
	MetricSignUpFailure
	MetricSignUpVerified
	MetricSignUpVerifyFailure
	MetricEmailConfirmed
	MetricEmailConfirmFailure
	MetricPasswordRestoreRequest
	MetricPasswordRestoreSuccess
	MetricPasswordRestoreFailure
	MetricSignOut
	MetricCaptchaIssued
	MetricCaptchaSuccess
	MetricCaptchaFailure
	MetricCaptchaReplay
	MetricTokenExpired
	MetricTokenIllegal
	MetricAuthenticateSuccess
	MetricAuthenticateFailure
	MetricXSRFIssued
	MetricXSRFRejected
	MetricRateLimitHit
	MetricSessionCreated
	MetricSessionRefreshed
	MetricSessionRefreshFailure
	MetricSessionsSwept
	MetricProbationEnded
	// MetricDecryptLatency is the only histogram: time spent opening access tokens.
	MetricDecryptLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters. A nil or disabled *Metrics
// accepts every call and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters. Histogram buckets
// are non-cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a counter set. Histograms are recorded only when both
// Enabled and EnableLatencyHistograms are set.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
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

// Add increases counter id by n.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records d in the histogram for id. Only MetricDecryptLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricDecryptLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricDecryptLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricDecryptLatency].buckets[i])
		}
		s.Histograms[MetricDecryptLatency] = buckets
	}

	return s
}

// bucketIndex maps d onto upper bounds 0.1, 0.25, 0.5, 1, 2.5, 5, 10 ms and +Inf.
func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 100:
		return 0
	case us <= 250:
		return 1
	case us <= 500:
		return 2
	case us <= 1000:
		return 3
	case us <= 2500:
		return 4
	case us <= 5000:
		return 5
	case us <= 10000:
		return 6
	default:
		return 7
	}
}
