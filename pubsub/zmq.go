package pubsub

import (
	"context"

	watermillmsg "github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-zeromq/zmq4"
	"github.com/sirupsen/logrus"
)

// ZmqPub binds a PUB socket; frame 0 is the topic, frame 1 the encoded message.
type ZmqPub struct {
	socket zmq4.Socket
} // end type

func NewZmqPub(addr string) (*ZmqPub, error) {
	pub := zmq4.NewPub(context.Background())
	if err := pub.Listen(addr); err != nil {
		pub.Close()
		return nil, err
	} // end if
	return &ZmqPub{socket: pub}, nil
} // end NewZmqPub()

func (that *ZmqPub) Publish(topic string, messages ...*watermillmsg.Message) error {
	topicBytes := []byte(topic)
	for _, msg := range messages {
		b, err := encode(msg)
		if err != nil {
			return err
		} // end if
		if errSnd := that.socket.SendMulti(zmq4.NewMsgFrom(topicBytes, b)); errSnd != nil {
			return errSnd
		} // end if
	} // end for
	return nil
} // end Publish()

func (that *ZmqPub) Close() error {
	return that.socket.Close()
} // end Close()

type ZmqSub struct {
	socket zmq4.Socket
} // end type

func NewZmqSub(addr string) (*ZmqSub, error) {
	sub := zmq4.NewSub(context.Background())
	if err := sub.Dial(addr); err != nil {
		sub.Close()
		return nil, err
	} // end if
	return &ZmqSub{socket: sub}, nil
} // end NewZmqSub()

func (that *ZmqSub) Subscribe(ctx context.Context, topic string) (<-chan *watermillmsg.Message, error) {
	if err := that.socket.SetOption(zmq4.OptionSubscribe, topic); err != nil {
		return nil, err
	} // end if
	out := make(chan *watermillmsg.Message, 100)
	go (func() {
		<-ctx.Done()
		that.socket.Close()
	})()
	go (func() {
		defer close(out)
		for {
			m, err := that.socket.Recv()
			if err != nil {
				if ctx.Err() == nil {
					logrus.Warn(err)
				} // end if
				return
			} // end if
			if len(m.Frames) < 2 {
				continue
			} // end if
			msg, errDecode := decode(m.Frames[1])
			if errDecode != nil {
				logrus.Warn(errDecode)
				continue
			} // end if
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			} // end select
		} // end for
	})()
	return out, nil
} // end Subscribe()

func (that *ZmqSub) Close() error {
	return that.socket.Close()
} // end Close()
