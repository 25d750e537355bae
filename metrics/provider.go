package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	zmq "github.com/go-zeromq/zmq4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	mysnmp "github.com/sam80180/stardb-exporter/snmp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelPrometheusBackend "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	otel_metric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	otel_resource "go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Provider owns the meter provider and whatever endpoint exposes it.
type Provider struct {
	opts     MetricsOptions
	version  string
	mp       *otel_metric.MeterProvider
	registry *prometheus.Registry
	manual   *otel_metric.ManualReader
	interval time.Duration
	snmp     *SNMPRecorder
} // end type

func datadogHeaders() map[string]string {
	key := os.Getenv("DATADOG_API_KEY")
	if key == "" {
		key = os.Getenv("DD_API_KEY")
	} // end if
	return map[string]string{"DD-API-KEY": key}
} // end datadogHeaders()

func Setup(ctx context.Context, opts MetricsOptions, serviceName, version string) (*Provider, error) {
	that := &Provider{opts: opts, version: version}
	var reader otel_metric.Reader
	switch {
	case opts.Type == "prometheus" && opts.Mode == string(zmq.Pull):
		that.registry = prometheus.NewRegistry()
		exp, err := otelPrometheusBackend.New(otelPrometheusBackend.WithRegisterer(that.registry))
		if err != nil {
			return nil, err
		} // end if
		reader = exp
	case opts.Type == "snmp" && opts.Mode == string(zmq.Pull):
		interval, err := time.ParseDuration(opts.RefreshInterval)
		if err != nil {
			return nil, err
		} // end if
		if interval <= 0 {
			return nil, fmt.Errorf("zero interval")
		} // end if
		that.interval = interval
		that.manual = otel_metric.NewManualReader()
		that.snmp = NewSnmpRecorder()
		reader = that.manual
	case opts.Type == "datadog" && opts.Mode == string(zmq.Push):
		exp, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithHeaders(datadogHeaders()), otlpmetricgrpc.WithInsecure(), otlpmetricgrpc.WithEndpoint(opts.Addr))
		if err != nil {
			return nil, err
		} // end if
		readerOpts := []otel_metric.PeriodicReaderOption{}
		if opts.RefreshInterval != "" {
			interval, errInterval := time.ParseDuration(opts.RefreshInterval)
			if errInterval != nil {
				return nil, errInterval
			} // end if
			readerOpts = append(readerOpts, otel_metric.WithInterval(interval))
		} // end if
		reader = otel_metric.NewPeriodicReader(exp, readerOpts...)
	default:
		return nil, fmt.Errorf("unsupported metrics backend '%s' in mode '%s'", opts.Type, opts.Mode)
	} // end switch
	res, _ := otel_resource.New(ctx, otel_resource.WithAttributes(semconv.ServiceName(serviceName), semconv.ServiceVersion(version)))
	that.mp = otel_metric.NewMeterProvider(otel_metric.WithReader(reader), otel_metric.WithResource(res))
	return that, nil
} // end Setup()

func (that *Provider) MeterProvider() metric.MeterProvider {
	return that.mp
} // end MeterProvider()

func (that *Provider) SNMPRecorder() *SNMPRecorder {
	return that.snmp
} // end SNMPRecorder()

// Handler serves the prometheus registry on the metrics path and 404 everywhere else.
func (that *Provider) Handler() http.Handler {
	mux := http.NewServeMux()
	if that.registry != nil {
		mux.Handle(that.opts.MetricsPath, promhttp.HandlerFor(that.registry, promhttp.HandlerOpts{}))
	} // end if
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pattern := mux.Handler(r)
		if pattern == "" || (pattern == "/" && r.URL.Path != "/") {
			http.NotFound(w, r)
			return
		} // end if
		mux.ServeHTTP(w, r)
	})
} // end Handler()

// Collect pulls the manual reader once into the SNMP recorder.
func (that *Provider) Collect(ctx context.Context) error {
	if that.manual == nil || that.snmp == nil {
		return nil
	} // end if
	rm := &metricdata.ResourceMetrics{}
	if err := that.manual.Collect(ctx, rm); err != nil {
		return err
	} // end if
	that.snmp.OnTick(rm)
	return nil
} // end Collect()

// Serve exposes pull backends until ctx is done; push backends only wait.
func (that *Provider) Serve(ctx context.Context) error {
	switch that.opts.Type {
	case "prometheus":
		server := &http.Server{Addr: that.opts.Addr, Handler: that.Handler()}
		go (func() {
			<-ctx.Done()
			server.Shutdown(context.Background())
		})()
		logrus.WithField("type", that.opts.Type).WithField("metrics_path", that.opts.MetricsPath).Infof("Metrics exporter listening at %s", that.opts.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		} // end if
		return nil
	case "snmp":
		go (func() {
			ticker := time.NewTicker(that.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := that.Collect(ctx); err != nil {
						logrus.Warnf("Collect error: %+v", err)
					} // end if
				} // end select
			} // end for
		})()
		return mysnmp.Serve(ctx, that.opts.Addr, that.opts.SNMPCommunity, that.version, that.snmp.OIDs())
	} // end switch
	<-ctx.Done()
	return nil
} // end Serve()

func (that *Provider) Shutdown(ctx context.Context) error {
	return that.mp.Shutdown(ctx)
} // end Shutdown()
