// Package prometheus exposes goSSO engine metrics as a Prometheus collector.
//
// [NewPrometheusExporter] wraps a [goSSO.Engine] in a prometheus.Collector on a
// private registry and serves it through promhttp. Counters are named
// gosso_*_total; the access token decrypt histogram is
// gosso_decrypt_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers mount the
//     Handler or use Registry.
//   - Mutate engine state.
package prometheus
