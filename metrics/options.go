package metrics

import (
	"encoding/json"
	"fmt"
	"strings"

	zmq "github.com/go-zeromq/zmq4" // only for the Pull/Push socket type names
	"github.com/hetiansu5/urlquery"
	"github.com/phayes/freeport"
	"github.com/sam80180/stardb-exporter/internal/helper"
	mysnmp "github.com/sam80180/stardb-exporter/snmp"
	"github.com/tiendc/gofn"
)

const (
	DEFAULT_EXPORTER_PORT = 9100
	DEFAULT_METRICS_PATH  = "/metrics"
)

type MetricsOptions struct {
	Addr            string `query:"-"`
	Type            string `query:"type" validate:"required,oneof=prometheus snmp datadog"`
	Mode            string `query:"mode" validate:"oneof=PULL PUSH"`
	RefreshInterval string `query:"refresh_interval"`

	// Prometheus
	MetricsPath string `query:"metrics_path"`

	// SNMP
	SNMPCommunity string `query:"snmp_community" mask:"zero"`
} // end type

func (that *MetricsOptions) QueryEncode() []byte {
	var b0 []byte
	if that.Addr != "" {
		b0 = []byte(that.Addr)
	} // end if
	var sep []byte
	b1, _ := urlquery.Marshal(that)
	if len(b1) > 0 && len(b0) > 0 {
		sep = []byte("?")
	} // end if
	return gofn.Concat(b0, sep, b1)
} // end QueryEncode()

func (that *MetricsOptions) String() string {
	return string(that.QueryEncode())
} // end String()

func (that *MetricsOptions) Set(s string) error {
	parsed, err := ParseMetricsOptions(s)
	if err != nil {
		return err
	} // end if
	*that = *parsed
	return nil
} // end Set()

// accepts the flag form as a JSON string, or an object keyed by query names
func (that *MetricsOptions) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return that.Set(s)
	} // end if
	return helper.UnmarshalQueryOptionsJSON(data, that)
} // end UnmarshalJSON()

func DefaultPrometheusMetricsOptions() MetricsOptions {
	return MetricsOptions{
		Addr:        fmt.Sprintf(":%d", DEFAULT_EXPORTER_PORT),
		Type:        "prometheus",
		Mode:        string(zmq.Pull),
		MetricsPath: DEFAULT_METRICS_PATH,
	}
} // end DefaultPrometheusMetricsOptions()

func DefaultSnmpMetricsOptions() MetricsOptions {
	return MetricsOptions{
		Addr:            fmt.Sprintf(":%d", mysnmp.SNMPD_DEFAULT_PORT),
		Type:            "snmp",
		Mode:            string(zmq.Pull),
		SNMPCommunity:   mysnmp.SNMPD_DEFAULT_COMMUNITY,
		RefreshInterval: mysnmp.SNMPD_DEFAULT_REFRESH_INTERVAL,
	}
} // end DefaultSnmpMetricsOptions()

func DefaultDatadogMetricsOptions() MetricsOptions {
	return MetricsOptions{
		Addr:            "localhost:4317",
		Type:            "datadog",
		Mode:            string(zmq.Push),
		RefreshInterval: "60s",
	}
} // end DefaultDatadogMetricsOptions()

/*
parses "[host][:port][?query]", e.g.

	:9100?type=prometheus&metrics_path=/metrics
	0.0.0.0:1161?type=snmp&snmp_community=private
	localhost:4317?type=datadog&mode=push
*/
func ParseMetricsOptions(s string) (*MetricsOptions, error) {
	addr, query := helper.SplitAddrAndQuery(s)
	var probe MetricsOptions
	if err := urlquery.Unmarshal([]byte(query), &probe); err != nil {
		return nil, err
	} // end if
	var opts MetricsOptions
	switch probe.Type {
	case "snmp":
		opts = DefaultSnmpMetricsOptions()
	case "datadog":
		opts = DefaultDatadogMetricsOptions()
	default:
		opts = DefaultPrometheusMetricsOptions()
	} // end switch
	if err := urlquery.Unmarshal([]byte(query), &opts); err != nil {
		return nil, err
	} // end if
	opts.Mode = strings.ToUpper(opts.Mode)
	if addr != "" && opts.Type == "datadog" {
		opts.Addr = addr
	} else if addr != "" {
		host, port, _ := helper.ParseHostAndPort(addr)
		if !helper.IsValidPort(port) {
			switch opts.Type {
			case "prometheus":
				port = DEFAULT_EXPORTER_PORT
			case "snmp":
				port = mysnmp.SNMPD_DEFAULT_PORT
			default:
				port, _ = freeport.GetFreePort()
			} // end switch
		} // end if
		opts.Addr = fmt.Sprintf("%s:%d", host, port)
	} // end if
	if opts.MetricsPath == "" {
		opts.MetricsPath = DEFAULT_METRICS_PATH
	} // end if
	if !strings.HasPrefix(opts.MetricsPath, "/") {
		opts.MetricsPath = "/" + opts.MetricsPath
	} // end if
	if err := helper.Validate(opts); err != nil {
		return nil, err
	} // end if
	return &opts, nil
} // end ParseMetricsOptions()
