package observability

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/anef-maroc/pdfcp-backend/internal/platform/envutil"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

const (
	tracerName         = "github.com/anef-maroc/pdfcp-backend"
	defaultServiceName = "pdfcp-backend"
	defaultSampleRatio = 0.1
)

// OtelConfig names the service in exported spans.
type OtelConfig struct {
	ServiceName string
	Environment string
	Version     string
}

// tracingEnv is the OTEL_* environment, read once per InitOTel.
type tracingEnv struct {
	enabled  bool
	endpoint string
	insecure bool
	headers  map[string]string
	ratio    float64
}

func readTracingEnv() tracingEnv {
	return tracingEnv{
		enabled:  envutil.Bool("OTEL_ENABLED", false),
		endpoint: strings.TrimSpace(envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "")),
		insecure: envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		headers:  parseHeaders(envutil.List("OTEL_EXPORTER_OTLP_HEADERS")),
		ratio:    parseRatio(envutil.String("OTEL_SAMPLER_RATIO", "")),
	}
}

var (
	otelOnce     sync.Once
	otelShutdown = func(context.Context) error { return nil }
)

// InitOTel installs the global tracer provider when OTEL_ENABLED is set and
// returns its shutdown. Exporter failures are logged; the process keeps running
// with spans sampled but not exported.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	otelOnce.Do(func() {
		env := readTracingEnv()
		if !env.enabled {
			return
		}
		name := strings.TrimSpace(cfg.ServiceName)
		if name == "" {
			name = defaultServiceName
		}
		res, err := resource.New(ctx, resource.WithAttributes(
			semconv.ServiceNameKey.String(name),
			semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
			attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
		))
		if err != nil && log != nil {
			log.Warn("otel resource init failed (continuing)", "error", err)
		}

		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(env.ratio))),
			sdktrace.WithResource(res),
		}
		exporter, err := newExporter(ctx, env)
		switch {
		case err != nil:
			if log != nil {
				log.Warn("otel exporter init failed (continuing)", "error", err)
			}
		case exporter != nil:
			opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
		}
		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
		otelShutdown = tp.Shutdown
		if log != nil {
			log.Info("otel tracing initialized", "service", name, "endpoint", env.endpoint, "ratio", env.ratio)
		}
	})
	return otelShutdown
}

// TracingEnabled reports whether OTEL_ENABLED asks for span export.
func TracingEnabled() bool { return envutil.Bool("OTEL_ENABLED", false) }

// newExporter prefers OTLP/http and falls back to pretty stdout when no endpoint is set.
func newExporter(ctx context.Context, env tracingEnv) (sdktrace.SpanExporter, error) {
	if env.endpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(env.endpoint)}
	if env.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(env.headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(env.headers))
	}
	return otlptracehttp.New(ctx, opts...)
}

// parseRatio clamps to [0,1]; empty or garbage gives the default.
func parseRatio(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	switch {
	case err != nil:
		return defaultSampleRatio
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// parseHeaders reads key=value items; malformed items are skipped.
func parseHeaders(items []string) map[string]string {
	var out map[string]string
	for _, it := range items {
		k, v, ok := strings.Cut(it, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		if out == nil {
			out = map[string]string{}
		}
		out[k] = v
	}
	return out
}

// StartSpan opens a span on the global provider. It is a no-op span until
// InitOTel has installed an exporter.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan marks the span failed when err is set, then ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
