// Package server holds shared state and HTTP infrastructure for the MCP
// server: per-account calendar clients, instrumentation wiring, the
// Prometheus metrics endpoint, and health probes.
package server
