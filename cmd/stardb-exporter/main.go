package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	rawLog "log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	gateway "github.com/net-byte/go-gateway"
	mycache "github.com/sam80180/stardb-exporter/cache"
	"github.com/sam80180/stardb-exporter/capture"
	"github.com/sam80180/stardb-exporter/capture/livepcap"
	"github.com/sam80180/stardb-exporter/capture/replay"
	"github.com/sam80180/stardb-exporter/decoder"
	"github.com/sam80180/stardb-exporter/dumper"
	"github.com/sam80180/stardb-exporter/exporter"
	"github.com/sam80180/stardb-exporter/games"
	mymetrics "github.com/sam80180/stardb-exporter/metrics"
	mypubsub "github.com/sam80180/stardb-exporter/pubsub"
	"github.com/sam80180/stardb-exporter/sink"
	mysyslog "github.com/sam80180/stardb-exporter/syslog"
	"github.com/sam80180/stardb-exporter/tables"
	mytracing "github.com/sam80180/stardb-exporter/tracing"
	do "github.com/samber/do/v2"
	log "github.com/sirupsen/logrus"
)

func setupLogging(config *Config) {
	if config.Debug > 0 {
		rawLog.SetFlags(rawLog.LstdFlags | rawLog.Lshortfile)
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	} // end if
	if config.Debug == 2 {
		log.SetReportCaller(true)
	} // end if
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	if config.Syslog.IsSet() {
		opts, err := mysyslog.ParseSyslogOptions(config.Syslog.String())
		if err == nil {
			err = mysyslog.Setup(opts, exporter.SERVICE_NAME)
		} // end if
		if err != nil {
			log.Warnf("Failed to enable syslog: %+v", err)
		} // end if
	} // end if
} // end setupLogging()

func newProvider(config *Config) capture.Provider {
	if len(config.Replay) > 0 {
		return replay.New(config.Replay...)
	} // end if
	return livepcap.New()
} // end newProvider()

// toasts shown on stderr while waiting for the game to talk
func deviceNotifier() capture.Notifier {
	return capture.NotifierFunc(func(ev capture.Event) {
		switch ev.Kind {
		case capture.EVENT_READY:
			fmt.Fprintf(os.Stderr, "Device %d Ready~!\n", ev.Device)
		case capture.EVENT_RESTARTING:
			fmt.Fprintf(os.Stderr, "Device %d Error. Starting up again...\n", ev.Device)
		case capture.EVENT_FAILED:
			fmt.Fprintf(os.Stderr, "Device %d failed: %s\n", ev.Device, ev.Error)
		} // end switch
	})
} // end deviceNotifier()

func exporterOptions(config *Config, mode games.Mode) (*exporter.Options, error) {
	opts := &exporter.Options{
		Game:           config.Game,
		Mode:           mode,
		Grace:          config.grace(),
		MaxRestarts:    config.MaxRestarts,
		DevicePatterns: config.Devices,
		QueueSize:      config.QueueSize,
	}
	if opts.Game == "" {
		opts.Game = string(games.GENSHIN)
	} // end if
	if config.MetricsExporter != "" {
		metricsOptions, err := mymetrics.ParseMetricsOptions(config.MetricsExporter)
		if err != nil {
			return nil, err
		} // end if
		opts.MetricsOptions = metricsOptions
	} // end if
	if config.Tracer != "" {
		tracingOptions, err := mytracing.ParseTracingOptions(config.Tracer)
		if err != nil {
			return nil, err
		} // end if
		opts.TracingOptions = tracingOptions
	} // end if
	if config.Events != "" {
		busOptions := mypubsub.DefaultBusOptions()
		if err := busOptions.Set(config.Events); err != nil {
			return nil, err
		} // end if
		opts.EventsOptions = &busOptions
	} // end if
	return opts, nil
} // end exporterOptions()

func provideServices(injector do.Injector, config *Config, title games.Title, mode games.Mode) error {
	do.ProvideValue(injector, newProvider(config))
	if config.Keys == "" {
		return fmt.Errorf("-keys is required")
	} // end if
	f, err := os.Open(config.Keys)
	if err != nil {
		return err
	} // end if
	keys, err := decoder.LoadKeys(f)
	f.Close()
	if err != nil {
		return err
	} // end if
	do.ProvideValue[decoder.Decoder](injector, decoder.New(keys, title.Schema))

	sinkOptions := sink.DefaultSinkOptions()
	if config.Sink != "" {
		if err := sinkOptions.Set(config.Sink); err != nil {
			return err
		} // end if
	} // end if
	out, err := sink.New(sinkOptions)
	if err != nil {
		return err
	} // end if
	do.ProvideValue(injector, out)

	switch mode {
	case games.MODE_ACHIEVEMENTS:
		cacheOptions := mycache.DefaultCacheOptions()
		if config.Cache != "" {
			if err := cacheOptions.Set(config.Cache); err != nil {
				return err
			} // end if
		} // end if
		c, err := mycache.New(cacheOptions)
		if err != nil {
			return err
		} // end if
		catalogOpts := []games.CatalogOption{}
		if config.Catalog != "" {
			catalogOpts = append(catalogOpts, games.WithCatalogFile(config.Catalog))
		} // end if
		if config.CatalogURL != "" {
			catalogOpts = append(catalogOpts, games.WithCatalogBaseURL(config.CatalogURL))
		} // end if
		do.ProvideValue(injector, games.NewCatalog(c, catalogOpts...))
	case games.MODE_ARTIFACTS:
		if config.DataDir == "" {
			return fmt.Errorf("-data_dir is required for artifacts")
		} // end if
		t, err := tables.Build(os.DirFS(config.DataDir))
		if err != nil {
			return err
		} // end if
		do.ProvideValue[tables.Resolver](injector, t)
	} // end switch
	return nil
} // end provideServices()

func runExport(ctx context.Context, config *Config, mode games.Mode) error {
	opts, err := exporterOptions(config, mode)
	if err != nil {
		return err
	} // end if
	exp, err := exporter.NewExporterWithDI(opts, do.New())
	if err != nil {
		return err
	} // end if
	defer exp.Shutdown(context.Background())
	if err := provideServices(exp.DI(), config, exp.Title(), mode); err != nil {
		return err
	} // end if
	defer (func() {
		if out, errSink := do.Invoke[sink.Sink](exp.DI()); errSink == nil {
			out.Close()
		} // end if
	})()
	exp.AddNotifier(deviceNotifier())
	if config.Dump != "" {
		dumperOptions, err := dumper.ParseDumperOptions(config.Dump)
		if err != nil {
			return err
		} // end if
		d, err := dumper.New(*dumperOptions)
		if err != nil {
			return err
		} // end if
		defer d.Close()
		exp.AddTap(d)
	} // end if
	log.Infof("%s version %v", exporter.SERVICE_NAME, exp.Version)
	return exp.Run(ctx)
} // end runExport()

func listDevices(config *Config) error {
	devices, err := newProvider(config).ListDevices()
	if err != nil {
		return err
	} // end if
	eligible, _ := capture.EnumerateDevices(newProvider(config), config.Devices...)
	selected := map[string]int{}
	for _, d := range eligible {
		selected[d.Name] = d.Index
	} // end for
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tDESCRIPTION\tADDRESSES")
	for _, d := range devices {
		index := "-"
		if i, has := selected[d.Name]; has {
			index = fmt.Sprint(i)
		} // end if
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", index, d.Name, d.Description, d.Addresses)
	} // end for
	if err := w.Flush(); err != nil {
		return err
	} // end if
	gwIp, errGw := gateway.DiscoverGatewayIPv4()
	if errGw != nil {
		gwIp, errGw = gateway.DiscoverGatewayIPv6()
	} // end if
	if errGw == nil {
		fmt.Printf("\nDefault gateway: %s\n", gwIp)
	} else {
		log.Debugf("No default gateway: %v", errGw)
	} // end if
	return nil
} // end listDevices()

func trimTextMap(config *Config) error {
	if config.DataDir == "" {
		return fmt.Errorf("-data_dir is required")
	} // end if
	trimmed, err := tables.TrimTextMap(os.DirFS(config.DataDir))
	if err != nil {
		return err
	} // end if
	out := os.Stdout
	if config.Output != "" {
		f, err := os.Create(config.Output)
		if err != nil {
			return err
		} // end if
		defer f.Close()
		out = f
	} // end if
	log.Infof("Kept %d text map entries", len(trimmed))
	return json.NewEncoder(out).Encode(trimmed)
} // end trimTextMap()

func watchEvents(ctx context.Context, config *Config) error {
	if config.Events == "" {
		return fmt.Errorf("-events is required")
	} // end if
	busOptions := mypubsub.DefaultBusOptions()
	if err := busOptions.Set(config.Events); err != nil {
		return err
	} // end if
	sub, err := mypubsub.NewSubscriber(busOptions)
	if err != nil {
		return err
	} // end if
	defer sub.Close()
	events, err := capture.SubscribeEvents(ctx, sub, busOptions.Topic)
	if err != nil {
		return err
	} // end if
	enc := json.NewEncoder(os.Stdout)
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			return err
		} // end if
	} // end for
	return nil
} // end watchEvents()

func main() {
	config := loadConfig()
	mask_proc_title()
	if config.version {
		fmt.Printf("%s: %s\n", exporter.SERVICE_NAME, exporter.APP_VERSION)
		os.Exit(0)
	} // end if
	setupLogging(config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	var err error
	switch config.command {
	case "achievements":
		err = runExport(ctx, config, games.MODE_ACHIEVEMENTS)
	case "artifacts":
		err = runExport(ctx, config, games.MODE_ARTIFACTS)
	case "devices":
		err = listDevices(config)
	case "trim-textmap":
		err = trimTextMap(config)
	case "watch":
		err = watchEvents(ctx, config)
	default:
		flag.Usage()
		os.Exit(2)
	} // end switch
	if err != nil {
		stop()
		log.Fatal(err)
	} // end if
} // end main()
