// Package prometheus exposes campusAuth counters as a prometheus.Collector.
//
// Counters are named campusauth_*_total; login latency is the histogram
// campusauth_login_latency_seconds. Register the exporter on your own
// registry, or mount [PrometheusExporter.Handler].
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
