// Package metrics provides operational metrics collection.
//
// # Metric Categories
//
//   - Commands: outcome counts and duration by engine operation
//   - Ledger: append latency and append failures by error code
//   - Projection: number of campaigns held in memory
//   - RPC: request counts by method and status code
//   - Runtime: Go and process collectors
//
// # Integration
//
// Each Metrics value owns a private registry, served in Prometheus format by
// Handler. The gRPC interceptor records every unary call.
package metrics
