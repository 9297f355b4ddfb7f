package cshauth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	// MetricLoginSuccess is an exported constant or variable used by the authorization engine.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure is an exported constant or variable used by the authorization engine.
	MetricLoginFailure
	// MetricLoginRateLimited is an exported constant or variable used by the authorization engine.
	MetricLoginRateLimited
	// MetricSessionCreated is an exported constant or variable used by the authorization engine.
	MetricSessionCreated
	// MetricSessionLimitHit is an exported constant or variable used by the authorization engine.
	MetricSessionLimitHit
	// MetricValidateSuccess is an exported constant or variable used by the authorization engine.
	MetricValidateSuccess
	// MetricValidateFailure is an exported constant or variable used by the authorization engine.
	MetricValidateFailure
	// MetricLogout is an exported constant or variable used by the authorization engine.
	MetricLogout
	// MetricLogoutFailure is an exported constant or variable used by the authorization engine.
	MetricLogoutFailure
	// MetricLogoutAll is an exported constant or variable used by the authorization engine.
	MetricLogoutAll
	// MetricAuthorizeAllowed is an exported constant or variable used by the authorization engine.
	MetricAuthorizeAllowed
	// MetricAuthorizeDenied is an exported constant or variable used by the authorization engine.
	MetricAuthorizeDenied
	// MetricRateLimitHit is an exported constant or variable used by the authorization engine.
	MetricRateLimitHit
	// MetricUserCreated is an exported constant or variable used by the authorization engine.
	MetricUserCreated
	// MetricUserEdited is an exported constant or variable used by the authorization engine.
	MetricUserEdited
	// MetricUserRemoved is an exported constant or variable used by the authorization engine.
	MetricUserRemoved
	// MetricAuthorizeLatency is an exported constant or variable used by the authorization engine.
	MetricAuthorizeLatency
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

// Metrics holds the engine's in-process counters. All methods are safe
// for concurrent use and are no-ops on a nil or disabled receiver.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistogram,
	}
}

// Enabled describes the enabled operation and its observable behavior.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc describes the inc operation and its observable behavior.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records an authorize latency sample.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricAuthorizeLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value describes the value operation and its observable behavior.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
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
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthorizeLatency].buckets[i])
		}
		s.Histograms[MetricAuthorizeLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
