// Package telemetry keeps the server's operational counters and exposes them
// in the Prometheus text format on /metrics.
//
// Counters are created on first use and may carry one label. Gauges are read
// from callbacks at scrape time, so they always reflect the live store and
// hub sizes.
package telemetry
