// Package telemetry groups operational observability for the escrow
// service.
//
// The ledger is the business record and is never derived from telemetry.
// Operational metrics (telemetry/metrics) describe how the service behaves:
// command outcomes, append latency and projection size. They are exposed in
// Prometheus format on the HTTP gateway.
package telemetry
