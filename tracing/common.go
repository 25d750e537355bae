// Package tracing configures the global OpenTelemetry tracer provider.
package tracing

import (
	"github.com/hetiansu5/urlquery"
	"github.com/sam80180/stardb-exporter/internal/helper"
)

type TracingOptions struct {
	Type string `query:"type" validate:"required,oneof=zipkin jaeger datadog"`
	URL  string `query:"url"`
} // end type

func (that *TracingOptions) QueryEncode() []byte {
	b, _ := urlquery.Marshal(that)
	return b
} // end QueryEncode()

func (that *TracingOptions) String() string {
	return string(that.QueryEncode())
} // end String()

func (that *TracingOptions) Set(s string) error {
	parsed, err := ParseTracingOptions(s)
	if err != nil {
		return err
	} // end if
	*that = *parsed
	return nil
} // end Set()

func (that *TracingOptions) UnmarshalJSON(data []byte) error {
	if err := helper.UnmarshalQueryOptionsJSON(data, that); err != nil {
		return err
	} // end if
	that.fillDefaultURL()
	return helper.Validate(that)
} // end UnmarshalJSON()

func DefaultZipkinTracingOptions() TracingOptions {
	return TracingOptions{
		Type: "zipkin",
		URL:  "http://localhost:9411/api/v2/spans",
	}
} // end DefaultZipkinTracingOptions()

func DefaultJaegerTracingOptions() TracingOptions {
	return TracingOptions{
		Type: "jaeger",
		URL:  "http://localhost:14268/api/traces",
	}
} // end DefaultJaegerTracingOptions()

func DefaultDatadogTracingOptions() TracingOptions {
	return TracingOptions{
		Type: "datadog",
		URL:  "http://localhost:8126/api/v2/otlp",
	}
} // end DefaultDatadogTracingOptions()

func DefaultTracingOptions() TracingOptions {
	return DefaultZipkinTracingOptions()
} // end DefaultTracingOptions()

func (that *TracingOptions) fillDefaultURL() {
	if that.URL != "" {
		return
	} // end if
	switch that.Type {
	case "jaeger":
		that.URL = DefaultJaegerTracingOptions().URL
	case "datadog":
		that.URL = DefaultDatadogTracingOptions().URL
	case "zipkin":
		that.URL = DefaultZipkinTracingOptions().URL
	} // end switch
} // end fillDefaultURL()

// ParseTracingOptions reads "type=jaeger&url=..."; an omitted url falls back to the backend's local default.
func ParseTracingOptions(s string) (*TracingOptions, error) {
	opts := TracingOptions{}
	if err := urlquery.Unmarshal([]byte(s), &opts); err != nil {
		return nil, err
	} // end if
	if opts.Type == "" {
		opts.Type = DefaultTracingOptions().Type
	} // end if
	opts.fillDefaultURL()
	if err := helper.Validate(opts); err != nil {
		return nil, err
	} // end if
	return &opts, nil
} // end ParseTracingOptions()
