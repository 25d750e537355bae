package metrics

import (
	"context"

	"github.com/sam80180/stardb-exporter/decoder"
	"github.com/sam80180/stardb-exporter/extract"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	METER_NAME = "github.com/sam80180/stardb-exporter"

	METRIC_DATAGRAMS = "stardb.datagrams.captured"
	METRIC_BYTES     = "stardb.datagrams.size"
	METRIC_RESTARTS  = "stardb.session.restarts"
	METRIC_COMMANDS  = "stardb.commands.decoded"
	METRIC_MISSES    = "stardb.join.misses"
)

// Meter records pipeline counters, it serves both as capture and extract recorder.
type Meter struct {
	datagrams metric.Int64Counter
	bytes     metric.Int64Counter
	restarts  metric.Int64Counter
	commands  metric.Int64Counter
	misses    metric.Int64Counter
} // end type

func NewMeter(mp metric.MeterProvider) (*Meter, error) {
	m := mp.Meter(METER_NAME)
	var err error
	that := &Meter{}
	if that.datagrams, err = m.Int64Counter(METRIC_DATAGRAMS, metric.WithDescription("datagrams handed to the decoder")); err != nil {
		return nil, err
	} // end if
	if that.bytes, err = m.Int64Counter(METRIC_BYTES, metric.WithUnit("By"), metric.WithDescription("bytes handed to the decoder")); err != nil {
		return nil, err
	} // end if
	if that.restarts, err = m.Int64Counter(METRIC_RESTARTS, metric.WithDescription("capture handle reopen cycles")); err != nil {
		return nil, err
	} // end if
	if that.commands, err = m.Int64Counter(METRIC_COMMANDS, metric.WithDescription("decoded game commands")); err != nil {
		return nil, err
	} // end if
	if that.misses, err = m.Int64Counter(METRIC_MISSES, metric.WithDescription("ids missing from the lookup tables")); err != nil {
		return nil, err
	} // end if
	return that, nil
} // end NewMeter()

func (that *Meter) ObserveDatagram(device int, size int) {
	attrs := metric.WithAttributes(attribute.Int("device", device))
	that.datagrams.Add(context.Background(), 1, attrs)
	that.bytes.Add(context.Background(), int64(size), attrs)
} // end ObserveDatagram()

func (that *Meter) ObserveRestart(device int) {
	that.restarts.Add(context.Background(), 1, metric.WithAttributes(attribute.Int("device", device)))
} // end ObserveRestart()

func (that *Meter) ObserveCommand(kind decoder.Kind) {
	that.commands.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind.String())))
} // end ObserveCommand()

func (that *Meter) ObserveMiss(kind extract.MissKind) {
	that.misses.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", string(kind))))
} // end ObserveMiss()
