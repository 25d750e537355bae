package dumper

import (
	"encoding/json"
	"fmt"

	"github.com/hetiansu5/urlquery"
	"github.com/lestrrat-go/strftime"
	"github.com/sam80180/stardb-exporter/internal/helper"
	"github.com/tiendc/gofn"
)

const DEFAULT_DUMPER_PORT = 12345

// DumperOptions reads "type=file&path=..." or "host:port?type=tcp".
type DumperOptions struct {
	Type    string `query:"type" validate:"required,oneof=tcp file"`
	Address string `query:"-"`

	// file output
	FileRotationSize int64  `query:"rotationSize"`
	FileRotationTime string `query:"rotationTime"`
	FileMaxAge       string `query:"maxAge"`
	Path             string `query:"path" validate:"required_if=Type file"`
} // end type

func (that *DumperOptions) QueryEncode() []byte {
	var b0 []byte
	if that.Type == "tcp" && that.Address != "" {
		b0 = []byte(that.Address)
	} // end if
	var sep []byte = nil
	b1, _ := urlquery.Marshal(that)
	if len(b1) > 0 && len(b0) > 0 {
		sep = []byte("?")
	} // end if
	return gofn.Concat(b0, sep, b1)
} // end QueryEncode()

func (that *DumperOptions) String() string {
	return string(that.QueryEncode())
} // end String()

func (that *DumperOptions) Set(s string) error {
	parsed, err := ParseDumperOptions(s)
	if err != nil {
		return err
	} // end if
	*that = *parsed
	return nil
} // end Set()

func (that *DumperOptions) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return that.Set(s)
	} // end if
	if err := helper.UnmarshalQueryOptionsJSON(data, that); err != nil {
		return err
	} // end if
	return helper.Validate(that)
} // end UnmarshalJSON()

func DefaultFileDumperOptions() DumperOptions {
	return DumperOptions{
		Type: "file",
		Path: "packets-%Y%m%d-%H%M%S.pcap",
	}
} // end DefaultFileDumperOptions()

func DefaultTcpDumperOptions() DumperOptions {
	return DumperOptions{
		Type:    "tcp",
		Address: fmt.Sprintf(":%d", DEFAULT_DUMPER_PORT),
	}
} // end DefaultTcpDumperOptions()

func ParseDumperOptions(s string) (*DumperOptions, error) {
	addr, query := helper.SplitAddrAndQuery(s)
	probe := DumperOptions{}
	if err := urlquery.Unmarshal([]byte(query), &probe); err != nil {
		return nil, err
	} // end if
	var opts DumperOptions
	switch probe.Type {
	case "file":
		opts = DefaultFileDumperOptions()
	case "tcp", "":
		opts = DefaultTcpDumperOptions()
	default:
		return nil, fmt.Errorf("unsupported packet dumper type '%s'", probe.Type)
	} // end switch
	if err := urlquery.Unmarshal([]byte(query), &opts); err != nil {
		return nil, err
	} // end if
	if opts.Type == "tcp" && addr != "" {
		host, port, okay := helper.ParseHostAndPort(addr)
		if !okay {
			return nil, fmt.Errorf("invalid packet dumper address '%s'", addr)
		} // end if
		opts.Address = fmt.Sprintf("%s:%d", host, port)
	} // end if
	if opts.Type == "file" {
		if _, err := strftime.New(opts.Path); err != nil {
			return nil, fmt.Errorf("invalid packet dump path pattern '%s': %w", opts.Path, err)
		} // end if
	} // end if
	return &opts, helper.Validate(opts)
} // end ParseDumperOptions()
