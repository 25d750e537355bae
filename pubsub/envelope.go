package pubsub

import (
	"encoding/json"

	watermillmsg "github.com/ThreeDotsLabs/watermill/message"
)

// envelope is the wire form of a watermill message on zmq and redis.
type envelope struct {
	UUID     string            `json:"uuid"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Payload  json.RawMessage   `json:"payload"`
} // end type

func encode(msg *watermillmsg.Message) ([]byte, error) {
	payload := json.RawMessage(msg.Payload)
	if !json.Valid(payload) {
		b, err := json.Marshal(string(msg.Payload))
		if err != nil {
			return nil, err
		} // end if
		payload = b
	} // end if
	return json.Marshal(envelope{UUID: msg.UUID, Metadata: msg.Metadata, Payload: payload})
} // end encode()

func decode(b []byte) (*watermillmsg.Message, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	} // end if
	msg := watermillmsg.NewMessage(env.UUID, watermillmsg.Payload(env.Payload))
	for k, v := range env.Metadata {
		msg.Metadata.Set(k, v)
	} // end for
	return msg, nil
} // end decode()
