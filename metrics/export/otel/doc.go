// Package otel publishes campusAuth counters through an OpenTelemetry Meter.
//
// [NewOTelExporter] registers an Int64ObservableCounter per engine counter
// and an Int64ObservableGauge per login-latency bucket. Collection reads
// [campusAuth.Engine.MetricsSnapshot] once per cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
