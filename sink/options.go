package sink

import (
	"fmt"

	"github.com/hetiansu5/urlquery"
	"github.com/sam80180/stardb-exporter/internal/helper"
	mypubsub "github.com/sam80180/stardb-exporter/pubsub"
)

const (
	COMPRESSION_NONE   = "none"
	COMPRESSION_GZIP   = "gzip"
	COMPRESSION_ZSTD   = "zstd"
	COMPRESSION_BROTLI = "br"
)

// SinkOptions reads e.g. "type=file&path=good.json.gz&compression=gzip" or "type=redis&url=redis://localhost:6379/0".
type SinkOptions struct {
	Type        string `query:"type" validate:"required,oneof=stdout file zmq redis"`
	Path        string `query:"path" validate:"required_if=Type file"`
	Compression string `query:"compression" validate:"omitempty,oneof=none gzip zstd br"`
	Address     string `query:"address" validate:"required_if=Type zmq"`
	URL         string `query:"url" validate:"required_if=Type redis" mask:"zero"`
	Topic       string `query:"topic"`
} // end type

func DefaultSinkOptions() SinkOptions {
	return SinkOptions{Type: "stdout", Compression: COMPRESSION_NONE}
} // end DefaultSinkOptions()

func (that *SinkOptions) QueryEncode() []byte {
	b, _ := urlquery.Marshal(that)
	return b
} // end QueryEncode()

func (that *SinkOptions) String() string {
	return string(that.QueryEncode())
} // end String()

func (that *SinkOptions) Set(s string) error {
	parsed, err := ParseSinkOptions(s)
	if err != nil {
		return err
	} // end if
	*that = *parsed
	return nil
} // end Set()

func (that *SinkOptions) UnmarshalJSON(data []byte) error {
	opts := DefaultSinkOptions()
	if err := helper.UnmarshalQueryOptionsJSON(data, &opts); err != nil {
		return err
	} // end if
	*that = opts
	return helper.Validate(that)
} // end UnmarshalJSON()

func ParseSinkOptions(s string) (*SinkOptions, error) {
	opts := DefaultSinkOptions()
	if err := urlquery.Unmarshal([]byte(s), &opts); err != nil {
		return nil, err
	} // end if
	if err := helper.Validate(opts); err != nil {
		return nil, err
	} // end if
	return &opts, nil
} // end ParseSinkOptions()

func (that *SinkOptions) busOptions() (mypubsub.BusOptions, error) {
	topic := that.Topic
	if topic == "" {
		topic = mypubsub.DEFAULT_RESULTS_TOPIC
	} // end if
	switch that.Type {
	case "zmq":
		return mypubsub.BusOptions{Type: mypubsub.BUS_ZMQ, Address: that.Address, Topic: topic}, nil
	case "redis":
		return mypubsub.BusOptions{Type: mypubsub.BUS_REDIS, URL: that.URL, Topic: topic}, nil
	} // end switch
	return mypubsub.BusOptions{}, fmt.Errorf("sink type '%s' is not a bus", that.Type)
} // end busOptions()
