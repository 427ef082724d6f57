package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one exported session counter.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one exported latency histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Logins whose follow-up fetch succeeded."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Logins that returned an error."},
	{ID: goSession.MetricLoginInvalidCredential, Name: "gosession_login_invalid_credential_total", Help: "Logins rejected for an empty token."},
	{ID: goSession.MetricLoginRolledBack, Name: "gosession_login_rolled_back_total", Help: "Logins undone after a failed fetch."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Logout operations."},
	{ID: goSession.MetricStatusLoggedIn, Name: "gosession_status_logged_in_total", Help: "Status checks that found a stored token."},
	{ID: goSession.MetricStatusLoggedOut, Name: "gosession_status_logged_out_total", Help: "Status checks that found no usable token."},
	{ID: goSession.MetricStatusExpiredToken, Name: "gosession_status_expired_token_total", Help: "Stored tokens discarded as expired."},
	{ID: goSession.MetricFetchSuccess, Name: "gosession_fetch_success_total", Help: "Committed votes snapshots."},
	{ID: goSession.MetricFetchUnauthenticated, Name: "gosession_fetch_unauthenticated_total", Help: "Fetches attempted without a stored token."},
	{ID: goSession.MetricFetchNetworkError, Name: "gosession_fetch_network_error_total", Help: "Fetches that received no response."},
	{ID: goSession.MetricFetchAPIError, Name: "gosession_fetch_api_error_total", Help: "Fetches rejected by the votes API."},
	{ID: goSession.MetricFetchSuperseded, Name: "gosession_fetch_superseded_total", Help: "Fetch results dropped after a login or logout."},
	{ID: goSession.MetricStorageFailure, Name: "gosession_storage_failure_total", Help: "Durable token storage errors."},
}

// HistogramDefs lists every histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricFetchLatency, Name: "gosession_fetch_latency_seconds", Help: "Votes API round-trip latency."},
}

// HistogramBounds are the bucket upper bounds as Prometheus le labels.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds in a form usable inside metric names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// BucketUpperBounds returns the finite bucket bounds in seconds, derived from
// goSession.LatencyBucketBounds.
func BucketUpperBounds() []float64 {
	bounds := goSession.LatencyBucketBounds()
	out := make([]float64, len(bounds))
	for i, d := range bounds {
		out[i] = d.Seconds()
	}
	return out
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, padding or
// truncating as needed.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
