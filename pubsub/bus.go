package pubsub

import (
	"fmt"

	watermillmsg "github.com/ThreeDotsLabs/watermill/message"
	"github.com/hetiansu5/urlquery"
	"github.com/sam80180/stardb-exporter/internal/helper"
)

const (
	BUS_LOCAL = "local"
	BUS_ZMQ   = "zmq"
	BUS_REDIS = "redis"

	DEFAULT_EVENTS_TOPIC  = "stardb.capture"
	DEFAULT_RESULTS_TOPIC = "stardb.results"
)

type BusOptions struct {
	Type    string `query:"type" validate:"required,oneof=local zmq redis"`
	Address string `query:"address" validate:"required_if=Type zmq"`
	URL     string `query:"url" validate:"required_if=Type redis" mask:"zero"`
	Topic   string `query:"topic"`
} // end type

func DefaultBusOptions() BusOptions {
	return BusOptions{Type: BUS_LOCAL, Topic: DEFAULT_EVENTS_TOPIC}
} // end DefaultBusOptions()

func (that *BusOptions) QueryEncode() []byte {
	b, _ := urlquery.Marshal(that)
	return b
} // end QueryEncode()

func (that *BusOptions) String() string {
	return string(that.QueryEncode())
} // end String()

func (that *BusOptions) Set(s string) error {
	if err := urlquery.Unmarshal([]byte(s), that); err != nil {
		return err
	} // end if
	if that.Topic == "" {
		that.Topic = DEFAULT_EVENTS_TOPIC
	} // end if
	return nil
} // end Set()

func (that *BusOptions) UnmarshalJSON(data []byte) error {
	return helper.UnmarshalQueryOptionsJSON(data, that)
} // end UnmarshalJSON()

// NewPublisher opens the publishing side; a local bus also serves as its own subscriber.
func NewPublisher(opts BusOptions) (watermillmsg.Publisher, error) {
	if err := helper.Validate(opts); err != nil {
		return nil, err
	} // end if
	switch opts.Type {
	case BUS_LOCAL:
		return NewLocalBus(), nil
	case BUS_ZMQ:
		return NewZmqPub(opts.Address)
	case BUS_REDIS:
		return NewRedisPub(opts.URL)
	} // end switch
	return nil, fmt.Errorf("unknown bus type '%s'", opts.Type)
} // end NewPublisher()

func NewSubscriber(opts BusOptions) (watermillmsg.Subscriber, error) {
	if err := helper.Validate(opts); err != nil {
		return nil, err
	} // end if
	switch opts.Type {
	case BUS_ZMQ:
		return NewZmqSub(opts.Address)
	case BUS_REDIS:
		return NewRedisSub(opts.URL)
	} // end switch
	return nil, fmt.Errorf("bus type '%s' cannot be subscribed to from another process", opts.Type)
} // end NewSubscriber()
