// Package prometheus exposes session store counters through client_golang.
//
// [NewPrometheusExporter] wraps a [goSession.Store] in a prometheus.Collector
// registered on a private registry. Counter names are gosession_*_total; the
// single histogram is gosession_fetch_latency_seconds.
//
// # What this package must NOT do
//
//   - Register with the global Prometheus registry. Callers mount Handler or
//     register the exporter themselves.
//   - Mutate store state.
package prometheus
