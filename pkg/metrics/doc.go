// Package metrics exposes Prometheus counters/gauges/histograms for
// the control plane (node and pod counts, scheduling latency and
// failures, health-loop durations, liveness/overload events), a
// Timer helper for recording operation durations, a status-agnostic
// Collector for periodic gauge sampling, and /health, /ready, /live
// HTTP handlers backed by a simple named-component health registry.
package metrics
