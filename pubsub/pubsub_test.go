package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeKeepsJSONPayloadInline(t *testing.T) {
	msg := message.NewMessage("id-1", []byte(`{"kind":"ready","device":0}`))
	msg.Metadata.Set("kind", "ready")
	b, err := encode(msg)
	require.NoError(t, err)
	require.Contains(t, string(b), `"payload":{"kind":"ready","device":0}`)

	back, err := decode(b)
	require.NoError(t, err)
	require.Equal(t, "id-1", back.UUID)
	require.Equal(t, "ready", back.Metadata.Get("kind"))
	require.JSONEq(t, `{"kind":"ready","device":0}`, string(back.Payload))
} // end TestEnvelopeKeepsJSONPayloadInline()

func TestEnvelopeQuotesRawPayload(t *testing.T) {
	b, err := encode(message.NewMessage("id-2", []byte("not json")))
	require.NoError(t, err)
	back, err := decode(b)
	require.NoError(t, err)
	require.Equal(t, `"not json"`, string(back.Payload))
} // end TestEnvelopeQuotesRawPayload()

func TestBusOptions(t *testing.T) {
	opts := DefaultBusOptions()
	require.NoError(t, opts.Set("type=zmq&address=tcp://127.0.0.1:5563"))
	require.Equal(t, BUS_ZMQ, opts.Type)
	require.Equal(t, DEFAULT_EVENTS_TOPIC, opts.Topic)

	_, err := NewPublisher(BusOptions{Type: BUS_REDIS})
	require.Error(t, err)
	_, err = NewSubscriber(DefaultBusOptions())
	require.Error(t, err)
} // end TestBusOptions()

func TestLocalBus(t *testing.T) {
	bus := NewLocalBus()
	defer bus.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch, err := bus.Subscribe(ctx, DEFAULT_EVENTS_TOPIC)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(DEFAULT_EVENTS_TOPIC, message.NewMessage("x", []byte("hi"))))
	got := <-ch
	got.Ack()
	require.Equal(t, "hi", string(got.Payload))
} // end TestLocalBus()
