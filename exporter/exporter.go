// Package exporter wires capture, decoding, extraction and delivery into one run.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"time"

	watermillmsg "github.com/ThreeDotsLabs/watermill/message"
	"github.com/UnwrittenFun/pluralise"
	"github.com/lithammer/shortuuid/v4"
	"github.com/sam80180/stardb-exporter/capture"
	"github.com/sam80180/stardb-exporter/decoder"
	"github.com/sam80180/stardb-exporter/extract"
	"github.com/sam80180/stardb-exporter/games"
	"github.com/sam80180/stardb-exporter/internal/helper"
	mymetrics "github.com/sam80180/stardb-exporter/metrics"
	mypubsub "github.com/sam80180/stardb-exporter/pubsub"
	"github.com/sam80180/stardb-exporter/sink"
	"github.com/sam80180/stardb-exporter/tables"
	mytracing "github.com/sam80180/stardb-exporter/tracing"
	do "github.com/samber/do/v2"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const SERVICE_NAME string = "stardb-exporter"
const APP_VERSION string = "0.4.0"

const DEFAULT_GRACE = 2 * time.Second

type Options struct {
	Game           string
	Mode           games.Mode
	Grace          time.Duration
	MaxRestarts    int
	DevicePatterns []string
	QueueSize      int

	MetricsOptions *mymetrics.MetricsOptions
	TracingOptions *mytracing.TracingOptions
	EventsOptions  *mypubsub.BusOptions
}

type Exporter struct {
	Opts    *Options
	Version string

	injector  do.Injector
	title     games.Title
	taps      []capture.Tap
	notifiers []capture.Notifier
	metrics   *mymetrics.Provider
	meter     *mymetrics.Meter
	events    watermillmsg.Publisher
	shutdowns []func(context.Context) error
}

// NewExporterWithDI expects the injector to provide a capture.Provider, a decoder.Decoder and a sink.Sink,
// plus a *games.Catalog for achievement runs or a tables.Resolver for artifact runs.
func NewExporterWithDI(opts *Options, di do.Injector) (*Exporter, error) {
	title, err := games.Lookup(opts.Game)
	if err != nil {
		return nil, err
	} // end if
	if err := title.Require(opts.Mode); err != nil {
		return nil, err
	} // end if
	if opts.Grace == 0 {
		opts.Grace = DEFAULT_GRACE
	} // end if
	that := &Exporter{
		Opts:     opts,
		Version:  APP_VERSION,
		injector: di,
		title:    title,
	}
	ctx := context.Background()
	if opts.TracingOptions != nil {
		shutdown, errTp := mytracing.Setup(ctx, *opts.TracingOptions, SERVICE_NAME, that.Version)
		if errTp != nil {
			return nil, errTp
		} // end if
		that.shutdowns = append(that.shutdowns, shutdown)
	} // end if
	if opts.MetricsOptions != nil {
		provider, errMtr := mymetrics.Setup(ctx, *opts.MetricsOptions, SERVICE_NAME, that.Version)
		if errMtr != nil {
			return nil, errMtr
		} // end if
		meter, errMeter := mymetrics.NewMeter(provider.MeterProvider())
		if errMeter != nil {
			return nil, errMeter
		} // end if
		that.metrics = provider
		that.meter = meter
		that.shutdowns = append(that.shutdowns, provider.Shutdown)
		do.ProvideValue(di, provider)
	} // end if
	if opts.EventsOptions != nil {
		pub, errPub := mypubsub.NewPublisher(*opts.EventsOptions)
		if errPub != nil {
			return nil, errPub
		} // end if
		that.events = pub
		that.notifiers = append(that.notifiers, capture.NewEventPublisher(pub, opts.EventsOptions.Topic))
		that.shutdowns = append(that.shutdowns, func(context.Context) error { return pub.Close() })
	} // end if
	return that, nil
} // end NewExporterWithDI()

func NewExporter(opts *Options) (*Exporter, error) {
	return NewExporterWithDI(opts, do.New())
} // end NewExporter()

func (that *Exporter) DI() do.Injector {
	return that.injector
} // end DI()

func (that *Exporter) Title() games.Title {
	return that.title
} // end Title()

// Events is the publisher session events go to, nil when none is configured.
func (that *Exporter) Events() watermillmsg.Publisher {
	return that.events
} // end Events()

func (that *Exporter) AddTap(t capture.Tap) {
	that.taps = append(that.taps, t)
} // end AddTap()

func (that *Exporter) AddNotifier(n capture.Notifier) {
	that.notifiers = append(that.notifiers, n)
} // end AddNotifier()

func (that *Exporter) sessionOptions() []capture.SessionOption {
	opts := []capture.SessionOption{capture.WithMaxRestarts(that.Opts.MaxRestarts)}
	if len(that.notifiers) > 0 {
		notifiers := that.notifiers
		opts = append(opts, capture.WithNotifier(capture.NotifierFunc(func(ev capture.Event) {
			for _, n := range notifiers {
				n.Notify(ev)
			} // end for
		})))
	} // end if
	if that.meter != nil {
		opts = append(opts, capture.WithRecorder(that.meter))
	} // end if
	for _, t := range that.taps {
		opts = append(opts, capture.WithTap(t))
	} // end for
	return opts
} // end sessionOptions()

func (that *Exporter) extractOptions() []extract.Option {
	opts := []extract.Option{}
	if that.meter != nil {
		opts = append(opts, extract.WithRecorder(that.meter))
	} // end if
	return opts
} // end extractOptions()

// consume runs the extractor of the configured mode over src.
func (that *Exporter) consume(ctx context.Context, dec decoder.Decoder, src <-chan capture.Datagram, wanted []uint32) (sink.Result, error) {
	result := sink.Result{Game: string(that.title.Game)}
	switch that.Opts.Mode {
	case games.MODE_ACHIEVEMENTS:
		ids, err := extract.Achievements(ctx, wanted, dec, src, that.extractOptions()...)
		result.Achievements = ids
		return result, err
	case games.MODE_ARTIFACTS:
		resolver, err := do.Invoke[tables.Resolver](that.injector)
		if err != nil {
			return result, err
		} // end if
		misses := 0
		opts := append(that.extractOptions(), extract.WithMissFunc(func(extract.Miss) { misses++ }))
		arts, err := extract.Artifacts(ctx, resolver, dec, src, opts...)
		if misses > 0 {
			log.Infof("Skipped %s that did not resolve", pluralise.WithCountInclusive("reference", misses))
		} // end if
		result.Artifacts = arts
		return result, err
	} // end switch
	return result, fmt.Errorf("unsupported mode '%s'", that.Opts.Mode)
} // end consume()

// Run performs one extraction and hands its result, success or failure, to the sink.
func (that *Exporter) Run(ctx context.Context) error {
	runID := shortuuid.New()
	started := time.Now()
	logger := log.WithField("run", runID).WithField("game", that.title.Game).WithField("mode", that.Opts.Mode)
	ctx, span := otel.Tracer(mytracing.TRACER_NAME).Start(ctx, "export.run")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", runID), attribute.String("game", string(that.title.Game)), attribute.String("mode", string(that.Opts.Mode)))

	out, err := do.Invoke[sink.Sink](that.injector)
	if err != nil {
		return err
	} // end if
	result, err := that.run(ctx, logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		result = sink.Result{Game: string(that.title.Game), Err: err}
	} // end if
	if errEmit := out.Emit(ctx, result); errEmit != nil {
		logger.Errorf("Failed to deliver result: %+v", errEmit)
		err = errors.Join(err, errEmit)
	} // end if
	summary := logger.WithField("elapsed", time.Since(started).Round(time.Millisecond))
	if uptime, errUp := helper.SysUpTime(); errUp == nil {
		summary = summary.WithField("uptime", uptime.Round(time.Second))
	} // end if
	summary.Infof("Run finished (%s)", result.Kind())
	return err
} // end Run()

func (that *Exporter) run(ctx context.Context, logger *log.Entry) (sink.Result, error) {
	provider, err := do.Invoke[capture.Provider](that.injector)
	if err != nil {
		return sink.Result{}, err
	} // end if
	dec, err := do.Invoke[decoder.Decoder](that.injector)
	if err != nil {
		return sink.Result{}, err
	} // end if
	var wanted []uint32
	if that.Opts.Mode == games.MODE_ACHIEVEMENTS {
		catalog, errCat := do.Invoke[*games.Catalog](that.injector)
		if errCat != nil {
			return sink.Result{}, errCat
		} // end if
		if wanted, err = catalog.AchievementIDs(ctx, that.title); err != nil {
			return sink.Result{}, err
		} // end if
		logger.Infof("Looking for %s", pluralise.WithCountInclusive("achievement", len(wanted)))
	} // end if

	orchestrator := capture.NewOrchestrator(provider, that.title.Filter,
		capture.WithDevicePatterns(that.Opts.DevicePatterns...),
		capture.WithQueueSize(that.Opts.QueueSize),
		capture.WithSessionOptions(that.sessionOptions()...),
	)
	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	defer stopServing()
	if that.metrics != nil {
		g.Go(func() error {
			return that.metrics.Serve(serveCtx)
		})
	} // end if
	var result sink.Result
	g.Go(func() error {
		defer stopServing()
		sup, errRun := orchestrator.Run(gctx)
		if errRun != nil {
			return errRun
		} // end if
		var errConsume error
		result, errConsume = that.consume(gctx, dec, sup.Datagrams(), wanted)
		if errStop := sup.Stop(that.Opts.Grace); errStop != nil {
			logger.Warnf("Capture did not stop cleanly: %+v", errStop)
		} // end if
		if errConsume != nil {
			// every device failing to open is the real cause of an empty stream
			if errAll := sup.Err(); errAll != nil && !errors.Is(errConsume, context.Canceled) {
				return errAll
			} // end if
			return errConsume
		} // end if
		return nil
	})
	if err := g.Wait(); err != nil {
		return sink.Result{}, err
	} // end if
	return result, nil
} // end run()

func (that *Exporter) Shutdown(ctx context.Context) error {
	errs := []error{}
	for i := len(that.shutdowns) - 1; i >= 0; i-- {
		errs = append(errs, that.shutdowns[i](ctx))
	} // end for
	return errors.Join(errs...)
} // end Shutdown()
