package tracing

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestParseTracingOptions(t *testing.T) {
	opts, err := ParseTracingOptions("type=jaeger")
	require.NoError(t, err)
	require.Equal(t, DefaultJaegerTracingOptions(), *opts)

	opts, err = ParseTracingOptions("")
	require.NoError(t, err)
	require.Equal(t, "zipkin", opts.Type)

	opts, err = ParseTracingOptions("type=datadog&url=http://agent:4318/v1/traces")
	require.NoError(t, err)
	require.Equal(t, "http://agent:4318/v1/traces", opts.URL)

	_, err = ParseTracingOptions("type=honeycomb")
	require.Error(t, err)
} // end TestParseTracingOptions()

func TestTracingOptionsJSON(t *testing.T) {
	var opts TracingOptions
	require.NoError(t, json.Unmarshal([]byte(`"type=datadog"`), &opts))
	require.Equal(t, DefaultDatadogTracingOptions(), opts)

	opts = TracingOptions{}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"jaeger"}`), &opts))
	require.Equal(t, DefaultJaegerTracingOptions().URL, opts.URL)
} // end TestTracingOptionsJSON()

func TestSetup(t *testing.T) {
	shutdown, err := Setup(context.Background(), DefaultZipkinTracingOptions(), "stardb-exporter-test", "dev")
	require.NoError(t, err)
	_, span := otel.Tracer(TRACER_NAME).Start(context.Background(), "noop")
	require.True(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, shutdown(context.Background()))

	_, err = Setup(context.Background(), TracingOptions{Type: "nope"}, "x", "y")
	require.Error(t, err)
} // end TestSetup()
