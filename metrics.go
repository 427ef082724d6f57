package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one session counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins whose follow-up fetch succeeded.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts logins that returned an error after validation.
	MetricLoginFailure
	// MetricLoginInvalidCredential counts logins rejected for an empty token.
	MetricLoginInvalidCredential
	// MetricLoginRolledBack counts logins undone because the fetch failed.
	MetricLoginRolledBack
	// MetricLogout counts logout calls.
	MetricLogout
	// MetricStatusLoggedIn counts status checks that found a token.
	MetricStatusLoggedIn
	// MetricStatusLoggedOut counts status checks that found no usable token.
	MetricStatusLoggedOut
	// MetricStatusExpiredToken counts tokens discarded for being expired.
	MetricStatusExpiredToken
	// MetricFetchSuccess counts committed snapshots.
	MetricFetchSuccess
	// MetricFetchUnauthenticated counts fetches attempted without a token.
	MetricFetchUnauthenticated
	// MetricFetchNetworkError counts fetches that got no response.
	MetricFetchNetworkError
	// MetricFetchAPIError counts fetches rejected by the API.
	MetricFetchAPIError
	// MetricFetchSuperseded counts fetch results discarded after a transition.
	MetricFetchSuperseded
	// MetricStorageFailure counts durable token store errors.
	MetricStorageFailure
	// MetricFetchLatency is the histogram of votes API round trips.
	MetricFetchLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricLoginSuccess:           "login_success",
	MetricLoginFailure:           "login_failure",
	MetricLoginInvalidCredential: "login_invalid_credential",
	MetricLoginRolledBack:        "login_rolled_back",
	MetricLogout:                 "logout",
	MetricStatusLoggedIn:         "status_logged_in",
	MetricStatusLoggedOut:        "status_logged_out",
	MetricStatusExpiredToken:     "status_expired_token",
	MetricFetchSuccess:           "fetch_success",
	MetricFetchUnauthenticated:   "fetch_unauthenticated",
	MetricFetchNetworkError:      "fetch_network_error",
	MetricFetchAPIError:          "fetch_api_error",
	MetricFetchSuperseded:        "fetch_superseded",
	MetricStorageFailure:         "storage_failure",
	MetricFetchLatency:           "fetch_latency",
}

// String returns the stable snake_case name used by exporters.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

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

// Metrics is a fixed set of lock-free counters plus the fetch latency
// histogram. A nil or disabled Metrics ignores every call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics never fails. Latency histograms are only recorded when both
// cfg.Enabled and cfg.EnableLatencyHistograms are set.
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

// Inc describes the inc operation and its observable behavior.
//
// Inc is safe for concurrent use and ignores unknown IDs.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the histogram for id. Only MetricFetchLatency carries
// a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricFetchLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot returns empty maps when metrics are disabled. Counters are read
// individually, so a snapshot taken under load is not a single atomic cut.
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
		if id == MetricFetchLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricFetchLatency].buckets[i])
		}
		s.Histograms[MetricFetchLatency] = buckets
	}

	return s
}

// LatencyBucketBounds returns the inclusive upper bound of each histogram
// bucket. The last bucket is unbounded.
func LatencyBucketBounds() []time.Duration {
	return []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
	}
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
