package tracing

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	otelJaegerBackend "go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelZipkinBackend "go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	otel_resource "go.opentelemetry.io/otel/sdk/resource"
	otel_trace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const TRACER_NAME = "github.com/sam80180/stardb-exporter"

func newExporter(ctx context.Context, opts TracingOptions) (otel_trace.SpanExporter, error) {
	switch opts.Type {
	case "jaeger":
		return otelJaegerBackend.New(otelJaegerBackend.WithCollectorEndpoint(otelJaegerBackend.WithEndpoint(opts.URL)))
	case "zipkin":
		return otelZipkinBackend.New(opts.URL)
	case "datadog":
		u, err := url.Parse(opts.URL)
		if err != nil {
			return nil, err
		} // end if
		key := os.Getenv("DATADOG_API_KEY")
		if key == "" {
			key = os.Getenv("DD_API_KEY")
		} // end if
		expOpts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(u.Host),
			otlptracehttp.WithURLPath(u.Path),
			otlptracehttp.WithHeaders(map[string]string{"DD-API-KEY": key}),
		}
		if u.Scheme != "https" {
			expOpts = append(expOpts, otlptracehttp.WithInsecure())
		} // end if
		return otlptracehttp.New(ctx, expOpts...)
	} // end switch
	return nil, fmt.Errorf("unsupported tracing backend '%s'", opts.Type)
} // end newExporter()

// Setup installs a batching tracer provider globally. The returned func flushes and stops it.
func Setup(ctx context.Context, opts TracingOptions, serviceName, version string) (func(context.Context) error, error) {
	opts.fillDefaultURL()
	exp, err := newExporter(ctx, opts)
	if err != nil {
		return nil, err
	} // end if
	res, _ := otel_resource.New(ctx, otel_resource.WithAttributes(semconv.ServiceName(serviceName), semconv.ServiceVersion(version)))
	sampler := otel_trace.WithSampler(otel_trace.ParentBased(otel_trace.TraceIDRatioBased(1.0)))
	tp := otel_trace.NewTracerProvider(otel_trace.WithBatcher(exp), otel_trace.WithResource(res), sampler)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		logrus.Errorf("otel error: %v", err)
	}))
	logrus.WithField("type", opts.Type).WithField("endpoint", opts.URL).Infof("Tracer initialized")
	return tp.Shutdown, nil
} // end Setup()
