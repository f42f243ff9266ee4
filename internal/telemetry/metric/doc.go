// Package metric provides Prometheus metrics for botvault.
//
//   - prometheus.go: the metric set, per-account database observers and the
//     /metrics handler
//   - collector.go: a collector reporting redemption queue depth per tier
//
// Every metric lives in a private registry so tests and multiple agents in
// one process do not collide.
package metric
