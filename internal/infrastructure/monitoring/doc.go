// Package monitoring provides Prometheus metrics for the gateway.
//
// Metrics cover:
//   - HTTP traffic through the interception layer
//   - Forward outcomes (ok, timeout, protocol violation) and latency
//   - Passthrough fetches
//   - Broadcast fan-out and the pending-reply table
//   - Engine socket connections and message flow
//
// Exposition is standard promhttp on /metrics; the gin middleware in
// this package records per-request series.
package monitoring
