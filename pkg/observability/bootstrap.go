package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitPrometheusMetrics builds the OTel instrument set backing RecordAgentCall,
// RecordLLMCall, RecordToolExecution, and friends, exports it through the
// process's default Prometheus registry, and installs it as the process-wide
// Metrics via SetGlobalMetrics. The returned handler serves the Prometheus
// exposition format and should be mounted at a metrics endpoint (e.g.
// "/metrics").
func InitPrometheusMetrics(meterName string) (http.Handler, error) {
	exporter, err := otelprometheus.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(meterName)

	agentDuration, err := meter.Float64Histogram("agent_call_duration_seconds")
	if err != nil {
		return nil, err
	}
	agentCallsTotal, err := meter.Int64Counter("agent_calls_total")
	if err != nil {
		return nil, err
	}
	agentErrorsTotal, err := meter.Int64Counter("agent_errors_total")
	if err != nil {
		return nil, err
	}
	agentTokensTotal, err := meter.Int64Counter("agent_tokens_total")
	if err != nil {
		return nil, err
	}
	toolDuration, err := meter.Float64Histogram("tool_call_duration_seconds")
	if err != nil {
		return nil, err
	}
	toolCallsTotal, err := meter.Int64Counter("tool_calls_total")
	if err != nil {
		return nil, err
	}
	toolErrorsTotal, err := meter.Int64Counter("tool_errors_total")
	if err != nil {
		return nil, err
	}
	llmDuration, err := meter.Float64Histogram("llm_call_duration_seconds")
	if err != nil {
		return nil, err
	}
	llmInputTokens, err := meter.Int64Counter("llm_input_tokens_total")
	if err != nil {
		return nil, err
	}
	llmOutputTokens, err := meter.Int64Counter("llm_output_tokens_total")
	if err != nil {
		return nil, err
	}
	llmErrorsTotal, err := meter.Int64Counter("llm_errors_total")
	if err != nil {
		return nil, err
	}
	httpRequestsTotal, err := meter.Int64Counter("http_requests_total")
	if err != nil {
		return nil, err
	}
	httpDuration, err := meter.Float64Histogram("http_request_duration_seconds")
	if err != nil {
		return nil, err
	}
	httpRequestSize, err := meter.Int64Histogram("http_request_size_bytes")
	if err != nil {
		return nil, err
	}
	httpResponseSize, err := meter.Int64Histogram("http_response_size_bytes")
	if err != nil {
		return nil, err
	}
	grpcCallsTotal, err := meter.Int64Counter("grpc_calls_total")
	if err != nil {
		return nil, err
	}
	grpcDuration, err := meter.Float64Histogram("grpc_call_duration_seconds")
	if err != nil {
		return nil, err
	}
	grpcErrorsTotal, err := meter.Int64Counter("grpc_errors_total")
	if err != nil {
		return nil, err
	}
	sessionDuration, err := meter.Float64Histogram("job_session_duration_seconds")
	if err != nil {
		return nil, err
	}
	sessionTotal, err := meter.Int64Counter("job_sessions_total")
	if err != nil {
		return nil, err
	}
	conversationTurns, err := meter.Int64Histogram("job_iterations")
	if err != nil {
		return nil, err
	}

	pm := NewPrometheusMetrics(
		agentDuration, agentCallsTotal, agentErrorsTotal, agentTokensTotal,
		toolDuration, toolCallsTotal, toolErrorsTotal,
		llmDuration, llmInputTokens, llmOutputTokens, llmErrorsTotal,
		httpRequestsTotal, httpDuration, httpRequestSize, httpResponseSize,
		grpcCallsTotal, grpcDuration, grpcErrorsTotal,
		sessionDuration, sessionTotal, conversationTurns,
	)
	SetGlobalMetrics(pm)

	return promhttp.Handler(), nil
}
