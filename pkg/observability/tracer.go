package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

type TracerConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporter_type"`
	EndpointURL  string  `yaml:"endpoint_url"`
	SamplingRate float64 `yaml:"sampling_rate"`
	ServiceName  string  `yaml:"service_name"`

	// CaptureDebugSpans keeps a bounded in-memory set of spans (past the
	// bound, spans are evicted in no particular order, not by age),
	// retrievable via DebugSpans, for operator inspection without a
	// collector attached.
	CaptureDebugSpans bool
	DebugSpanCapacity int
}

var (
	debugExporterMu sync.RWMutex
	debugExporter   *DebugExporter
)

func InitGlobalTracer(ctx context.Context, cfg TracerConfig) (trace.TracerProvider, error) {
	if !cfg.Enabled {
		return tracenoop.NewTracerProvider(), nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.EndpointURL),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
		sdktrace.WithResource(res),
	}

	if cfg.CaptureDebugSpans {
		capacity := cfg.DebugSpanCapacity
		if capacity <= 0 {
			capacity = 1000
		}
		de := NewDebugExporter().WithMaxSize(capacity)
		debugExporterMu.Lock()
		debugExporter = de
		debugExporterMu.Unlock()
		tpOpts = append(tpOpts, sdktrace.WithBatcher(de))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	return tp, nil
}

func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// DebugSpansHandler serves the spans captured by the debug exporter as JSON,
// when InitGlobalTracer was called with CaptureDebugSpans. Useful for
// inspecting recent phase-graph and LLM activity without a trace collector.
func DebugSpansHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		debugExporterMu.RLock()
		de := debugExporter
		debugExporterMu.RUnlock()
		if de == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("debug span capture not enabled"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(de.GetAllSpans())
	}
}
