// Package server wires the escrow stores, engine and query layer behind the
// gRPC API and the read-only HTTP gateway, and runs both until shutdown.
package server
