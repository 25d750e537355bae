package capture

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	watermillmsg "github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"
)

type EventKind string

const (
	EVENT_READY      EventKind = "ready"
	EVENT_RESTARTING EventKind = "restarting"
	EVENT_FAILED     EventKind = "failed"
	EVENT_DRAINED    EventKind = "drained"
	EVENT_STOPPED    EventKind = "stopped"
)

type Event struct {
	Kind     EventKind `json:"kind"`
	Device   int       `json:"device"`
	Name     string    `json:"name"`
	Restarts int       `json:"restarts,omitempty"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
} // end type

type Notifier interface {
	Notify(ev Event)
}

type NotifierFunc func(ev Event)

func (fn NotifierFunc) Notify(ev Event) {
	fn(ev)
} // end Notify()

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

// EventPublisher forwards session events onto a watermill topic.
type EventPublisher struct {
	pub   watermillmsg.Publisher
	topic string
} // end type

func NewEventPublisher(pub watermillmsg.Publisher, topic string) *EventPublisher {
	return &EventPublisher{pub: pub, topic: topic}
} // end NewEventPublisher()

func (that *EventPublisher) Notify(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logrus.Warn(err)
		return
	} // end if
	msg := watermillmsg.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("kind", string(ev.Kind))
	if errPub := that.pub.Publish(that.topic, msg); errPub != nil {
		logrus.Warnf("Failed to publish capture event: %+v", errPub)
	} // end if
} // end Notify()

// SubscribeEvents decodes events published by EventPublisher until ctx is done.
func SubscribeEvents(ctx context.Context, sub watermillmsg.Subscriber, topic string) (<-chan Event, error) {
	messages, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	} // end if
	events := make(chan Event, 16)
	go (func() {
		defer close(events)
		for msg := range messages {
			var ev Event
			if errDec := json.Unmarshal(msg.Payload, &ev); errDec != nil {
				logrus.Warn(errDec)
				msg.Ack()
				continue
			} // end if
			msg.Ack()
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			} // end select
		} // end for
	})()
	return events, nil
} // end SubscribeEvents()
