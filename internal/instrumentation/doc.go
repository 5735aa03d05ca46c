// Package instrumentation provides OpenTelemetry instrumentation for the
// calagent scheduling assistant.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for agent turns, tool invocations, and Calendar API calls
//   - Distributed tracing for turn flows and API calls
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Agent Loop Metrics:
//   - agent_turns_total: Counter of conversation turns by status
//   - agent_turn_duration_seconds: Histogram of turn durations
//   - agent_reason_steps_total: Counter of reasoner consultations by status
//   - agent_reason_step_duration_seconds: Histogram of reasoner consultation durations
//   - agent_reason_steps_per_turn: Histogram of reasoner consultations per turn
//   - active_sessions: Gauge of active conversation sessions
//
// Calendar API Metrics:
//   - calendar_api_operations_total: Counter of Calendar API operations by operation, status
//   - calendar_api_operation_duration_seconds: Histogram of Calendar API operation durations
//
// OAuth Authentication Metrics:
//   - oauth_auth_total: Counter of OAuth authentication events by result
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// Tool Metrics:
//   - tool_invocations_total: Counter of scheduling tool invocations by tool name and status
//   - tool_duration_seconds: Histogram of tool execution durations
//
// # Tracing
//
// Distributed tracing spans are created for:
//   - Conversation turns and reasoner consultations (agent.reason)
//   - Scheduling tool invocations (tool.<name>)
//   - Calendar API calls (calendar.<operation>)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: calagent)
//
// # Example Usage
//
//	// Initialize instrumentation
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "calagent",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	// Get metrics recorder
//	recorder := provider.Metrics()
//
//	// Record a Calendar API operation
//	recorder.RecordCalendarOperation(ctx, "list", "success", time.Since(start))
//
//	// Record a tool invocation
//	recorder.RecordToolInvocation(ctx, "create_event", "success", time.Since(start))
package instrumentation
