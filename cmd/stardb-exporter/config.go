package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"regexp"
	"time"

	mycache "github.com/sam80180/stardb-exporter/cache"
	"github.com/sam80180/stardb-exporter/dumper"
	"github.com/sam80180/stardb-exporter/exporter"
	"github.com/sam80180/stardb-exporter/internal/helper"
	mymetrics "github.com/sam80180/stardb-exporter/metrics"
	mypubsub "github.com/sam80180/stardb-exporter/pubsub"
	"github.com/sam80180/stardb-exporter/sink"
	mysyslog "github.com/sam80180/stardb-exporter/syslog"
	mytracing "github.com/sam80180/stardb-exporter/tracing"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	version bool // show version

	Game            string         // gi | hsr
	Keys            string         // key table JSON
	DataDir         string         // reference tables for artifacts
	Replay          []string       // pcap files instead of live capture
	Devices         []string       // device name/description globs
	Catalog         string         // achievement catalog file, skips the network
	CatalogURL      string         // achievement catalog base URL
	Sink            string         // result sink options
	Cache           string         // catalog cache options
	Events          string         // session event bus options
	Dump            string         // packet dumper address & options
	MetricsExporter string         // metrics exporter options
	Tracer          string         // tracing options
	Syslog          optionalString // syslog
	MaxRestarts     int            // per device, 0 = unlimited
	Grace           string         // how long to wait for capture to stop
	QueueSize       int            // datagram channel capacity
	Output          string         // trim-textmap output file
	Debug           int            // debug mode: 1 - print debug log, 2 - show debug from

	filename string // read config from the filename
	command  string
}

func loadConfigFromFile(filename string) (*Config, error) {
	var config Config
	if err := helper.NewStructFromFile(filename, &config); err != nil {
		return nil, err
	} // end if
	return &config, nil
} // end loadConfigFromFile()

type optionalString struct {
	Name  string
	set   bool
	value string
} // end type

func (o *optionalString) String() string { return o.value } // end String()

func (o *optionalString) IsSet() bool { return o.set } // end IsSet()

// "-syslog" alone enables the default, "-syslog=..." passes options
func (o *optionalString) Set(s string) error {
	o.set = true
	lastVal := ""
	reExpVal := regexp.MustCompile(fmt.Sprintf(`^[-]{1,2}%s=.*`, regexp.QuoteMeta(o.Name)))
	reNoVal := regexp.MustCompile(fmt.Sprintf(`^[-]{1,2}%s$`, regexp.QuoteMeta(o.Name)))
	for _, argv := range os.Args[1:] {
		if reNoVal.MatchString(argv) {
			lastVal = ""
		} else if reExpVal.MatchString(argv) {
			lastVal = s
		} // end if
	} // end for
	o.value = lastVal
	return nil
} // end Set()

func (o *optionalString) IsBoolFlag() bool {
	return true
} // end IsBoolFlag()

func (o *optionalString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	} // end if
	o.set = true
	o.value = s
	return nil
} // end UnmarshalJSON()

type arrayValue []string

func (a *arrayValue) String() string {
	return fmt.Sprint(*a)
} // end String()

func (a *arrayValue) Set(value string) error {
	*a = append(*a, value)
	return nil
} // end Set()

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [flags] <command>\n\n", os.Args[0])
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  achievements   export unlocked achievements")
	fmt.Fprintln(out, "  artifacts      export artifacts as GOOD")
	fmt.Fprintln(out, "  devices        list capture devices")
	fmt.Fprintln(out, "  trim-textmap   shrink TextMapEN.json to the entries artifacts need")
	fmt.Fprintln(out, "  watch          print capture events from a remote bus")
	fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()
} // end usage()

func loadConfigFromCli() *Config {
	config := Config{Syslog: optionalString{Name: "syslog"}}

	flag.BoolVar(&config.version, "version", false, "show stardb-exporter version")
	flag.StringVar(&config.Game, "game", "", "game title: gi or hsr (default: gi)")
	flag.StringVar(&config.Keys, "keys", "", "key table JSON file")
	flag.StringVar(&config.DataDir, "data_dir", "", "directory with the reference JSON tables (artifacts)")
	flag.Var((*arrayValue)(&config.Replay), "replay", "replay a pcap file instead of capturing live (repeatable)")
	flag.Var((*arrayValue)(&config.Devices), "device", "only capture on devices matching this glob (repeatable)")
	flag.StringVar(&config.Catalog, "catalog", "", "achievement catalog file")
	flag.StringVar(&config.CatalogURL, "catalog_url", "", "achievement catalog base URL")

	defaultSinkOptions := sink.DefaultSinkOptions()
	flag.StringVar(&config.Sink, "sink", "", fmt.Sprintf("result sink (default: %s)", defaultSinkOptions.String()))

	defaultCacheOptions := mycache.DefaultCacheOptions()
	flag.StringVar(&config.Cache, "cache", "", fmt.Sprintf("catalog cache (default: %s)", defaultCacheOptions.String()))

	defaultBusOptions := mypubsub.DefaultBusOptions()
	flag.StringVar(&config.Events, "events", "", fmt.Sprintf("publish capture events (default: %s)", defaultBusOptions.String()))

	defaultDumperOptions := dumper.DefaultTcpDumperOptions()
	flag.StringVar(&config.Dump, "dump", "", fmt.Sprintf("dump captured packets (default: %s)", defaultDumperOptions.String()))

	defaultMetricsOptions := mymetrics.DefaultPrometheusMetricsOptions()
	flag.StringVar(&config.MetricsExporter, "metrics_exporter", "", fmt.Sprintf("start metrics exporter (default: %s)", defaultMetricsOptions.String()))

	defaultTracingOptions := mytracing.DefaultTracingOptions()
	flag.StringVar(&config.Tracer, "tracing", "", fmt.Sprintf("trace runs (default: %s)", defaultTracingOptions.String()))

	defaultSyslogOptions := mysyslog.DefaultHostSyslogOptions()
	remoteSyslogOptions := mysyslog.DefaultRemoteSyslogOptions()
	flag.Var(&config.Syslog, config.Syslog.Name, fmt.Sprintf("enable syslog (default: %s, remote: %s)", defaultSyslogOptions.String(), remoteSyslogOptions.String()))

	flag.IntVar(&config.MaxRestarts, "max_restarts", 0, "restart ceiling per device, 0 for unlimited")
	flag.StringVar(&config.Grace, "grace", "", fmt.Sprintf("wait this long for capture to stop (default: %s)", exporter.DEFAULT_GRACE))
	flag.IntVar(&config.QueueSize, "queue_size", 0, "datagram queue capacity")
	flag.StringVar(&config.Output, "o", "", "trim-textmap output file (default: stdout)")
	flag.IntVar(&config.Debug, "debug", 0, "debug mode: 1 - print debug log, 2 - show debug from")
	flag.StringVar(&config.filename, "f", "", "read config from the filename")
	flag.Usage = usage
	flag.Parse()
	config.command = flag.Arg(0)

	return &config
} // end loadConfigFromCli()

func mergeConfigs(fileConfig, cliConfig *Config) *Config {
	config := new(Config)
	*config = *fileConfig
	config.version = cliConfig.version
	config.command = cliConfig.command
	config.filename = cliConfig.filename
	if cliConfig.Game != "" {
		config.Game = cliConfig.Game
	} // end if
	if cliConfig.Keys != "" {
		config.Keys = cliConfig.Keys
	} // end if
	if cliConfig.DataDir != "" {
		config.DataDir = cliConfig.DataDir
	} // end if
	if len(cliConfig.Replay) > 0 {
		config.Replay = cliConfig.Replay
	} // end if
	if len(cliConfig.Devices) > 0 {
		config.Devices = cliConfig.Devices
	} // end if
	if cliConfig.Catalog != "" {
		config.Catalog = cliConfig.Catalog
	} // end if
	if cliConfig.CatalogURL != "" {
		config.CatalogURL = cliConfig.CatalogURL
	} // end if
	if cliConfig.Sink != "" {
		config.Sink = cliConfig.Sink
	} // end if
	if cliConfig.Cache != "" {
		config.Cache = cliConfig.Cache
	} // end if
	if cliConfig.Events != "" {
		config.Events = cliConfig.Events
	} // end if
	if cliConfig.Dump != "" {
		config.Dump = cliConfig.Dump
	} // end if
	if cliConfig.MetricsExporter != "" {
		config.MetricsExporter = cliConfig.MetricsExporter
	} // end if
	if cliConfig.Tracer != "" {
		config.Tracer = cliConfig.Tracer
	} // end if
	if cliConfig.Syslog.IsSet() {
		config.Syslog = cliConfig.Syslog
	} // end if
	if cliConfig.MaxRestarts != 0 {
		config.MaxRestarts = cliConfig.MaxRestarts
	} // end if
	if cliConfig.Grace != "" {
		config.Grace = cliConfig.Grace
	} // end if
	if cliConfig.QueueSize != 0 {
		config.QueueSize = cliConfig.QueueSize
	} // end if
	if cliConfig.Output != "" {
		config.Output = cliConfig.Output
	} // end if
	if cliConfig.Debug != 0 {
		config.Debug = cliConfig.Debug
	} // end if
	return config
} // end mergeConfigs()

func loadConfig() *Config {
	cliConfig := loadConfigFromCli()
	if cliConfig.version || cliConfig.filename == "" {
		return cliConfig
	} // end if
	fileConfig, err := loadConfigFromFile(cliConfig.filename)
	if err != nil {
		log.Warnf("read config from %v error %v", cliConfig.filename, err)
		return cliConfig
	} // end if
	return mergeConfigs(fileConfig, cliConfig)
} // end loadConfig()

func (that *Config) grace() time.Duration {
	if that.Grace == "" {
		return exporter.DEFAULT_GRACE
	} // end if
	d, err := time.ParseDuration(that.Grace)
	if err != nil {
		log.Warnf("Invalid grace period '%s', using %s", that.Grace, exporter.DEFAULT_GRACE)
		return exporter.DEFAULT_GRACE
	} // end if
	return d
} // end grace()
