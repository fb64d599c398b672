// Package otel binds goSSO engine metrics to OpenTelemetry instruments.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter. Each
// latency histogram becomes a "_bucket" gauge with one point per "le" bound
// plus a "_count" gauge. A single callback reads
// [goSSO.Engine.MetricsSnapshot] per collection cycle.
//
// The exporter does not own the MeterProvider and never mutates the engine.
package otel
