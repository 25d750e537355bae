// Package syslog forwards logrus entries to the host logger, a remote collector or the windows event log.
package syslog

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/RackSec/srslog"
	"github.com/asaskevich/govalidator"
	"github.com/hetiansu5/urlquery"
	gosyslog "github.com/leodido/go-syslog/v4/common"
	"github.com/sam80180/stardb-exporter/internal/helper"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/constraints"
)

const (
	DEFAULT_RSYSLOG_HOST    = "localhost"
	DEFAULT_RSYSLOG_PORT    = 514
	DEFAULT_SYSLOG_FACILITY = uint8(srslog.LOG_LOCAL0 >> 3)
)

var DEFAULT_SYSLOG_FACILITY_LABEL string = gosyslog.FacilityKeywords[DEFAULT_SYSLOG_FACILITY]

type SyslogOptions struct {
	Type         string `query:"type" validate:"required,oneof=host remote"`
	URI          string `query:"uri" validate:"required_if=Type remote"`
	Facility     string `query:"facility"`
	FacilityCode uint8  `query:"-"`
} // end type

func (that *SyslogOptions) QueryEncode() []byte {
	b, _ := urlquery.Marshal(that)
	return b
} // end QueryEncode()

func (that *SyslogOptions) String() string {
	return string(that.QueryEncode())
} // end String()

func (that *SyslogOptions) Set(s string) error {
	parsed, err := ParseSyslogOptions(s)
	if err != nil {
		return err
	} // end if
	*that = parsed
	return nil
} // end Set()

func (that *SyslogOptions) UnmarshalJSON(data []byte) error {
	if err := helper.UnmarshalQueryOptionsJSON(data, that); err != nil {
		return err
	} // end if
	return that.resolveFacility()
} // end UnmarshalJSON()

func DefaultHostSyslogOptions() SyslogOptions {
	return SyslogOptions{
		Type:         "host",
		Facility:     DEFAULT_SYSLOG_FACILITY_LABEL,
		FacilityCode: DEFAULT_SYSLOG_FACILITY,
	}
} // end DefaultHostSyslogOptions()

func DefaultRemoteSyslogOptions() SyslogOptions {
	return SyslogOptions{
		Type:         "remote",
		URI:          fmt.Sprintf("udp://%s:%d", DEFAULT_RSYSLOG_HOST, DEFAULT_RSYSLOG_PORT),
		Facility:     DEFAULT_SYSLOG_FACILITY_LABEL,
		FacilityCode: DEFAULT_SYSLOG_FACILITY,
	}
} // end DefaultRemoteSyslogOptions()

// facility may be given as keyword ("local3") or code ("19")
func (that *SyslogOptions) resolveFacility() error {
	if that.Facility == "" {
		that.Facility = DEFAULT_SYSLOG_FACILITY_LABEL
	} // end if
	if helper.IsAllDigits(that.Facility) {
		c, err := strconv.Atoi(that.Facility)
		if err != nil || c > 255 {
			return fmt.Errorf("invalid syslog facility '%s'", that.Facility)
		} // end if
		label, has := gosyslog.FacilityKeywords[uint8(c)]
		if !has {
			return fmt.Errorf("invalid syslog facility '%s'", that.Facility)
		} // end if
		that.Facility = label
		that.FacilityCode = uint8(c)
		return nil
	} // end if
	for c, label := range gosyslog.FacilityKeywords {
		if label == that.Facility {
			that.FacilityCode = c
			return nil
		} // end if
	} // end for
	return fmt.Errorf("unknown syslog facility '%s'", that.Facility)
} // end resolveFacility()

func ParseSyslogOptions(s string) (SyslogOptions, error) {
	opts := DefaultHostSyslogOptions()
	if err := urlquery.Unmarshal([]byte(s), &opts); err != nil {
		return opts, err
	} // end if
	if err := opts.resolveFacility(); err != nil {
		return opts, err
	} // end if
	return opts, helper.Validate(opts)
} // end ParseSyslogOptions()

// "udp://host:514" => ("udp", "host:514")
func parseRemoteSyslogURI(s string) (string, string, error) {
	if s == "" {
		return "", "", nil
	} // end if
	u, err := url.Parse(s)
	if err != nil {
		return "", "", err
	} // end if
	if u.Scheme != "tcp" && u.Scheme != "udp" {
		return "", "", fmt.Errorf("unsupported syslog scheme '%s'", u.Scheme)
	} // end if
	port := u.Port()
	if port == "" {
		port = strconv.Itoa(DEFAULT_RSYSLOG_PORT)
	} // end if
	host := u.Hostname()
	if host == "" {
		host = DEFAULT_RSYSLOG_HOST
	} // end if
	if net.ParseIP(host) == nil && !govalidator.IsDNSName(host) {
		return "", "", fmt.Errorf("not a valid syslog host '%s'", host)
	} // end if
	return u.Scheme, fmt.Sprintf("%s:%s", host, port), nil
} // end parseRemoteSyslogURI()

func toPriority[T constraints.Integer](facility, level T) T {
	return (level | (facility << 3))
} // end toPriority()

func Setup(opts SyslogOptions, tag string) error {
	logrus.WithField("options", opts.String()).Info("Enable syslog")
	return initSyslog(&opts, tag)
} // end Setup()
