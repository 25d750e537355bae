package pubsub

import (
	"context"

	watermillmsg "github.com/ThreeDotsLabs/watermill/message"
	redis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

type RedisPub struct {
	client *redis.Client
} // end type

func newRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	} // end if
	return redis.NewClient(opts), nil
} // end newRedisClient()

func NewRedisPub(url string) (*RedisPub, error) {
	client, err := newRedisClient(url)
	if err != nil {
		return nil, err
	} // end if
	return &RedisPub{client: client}, nil
} // end NewRedisPub()

func (that *RedisPub) Publish(topic string, messages ...*watermillmsg.Message) error {
	ctx := context.Background()
	for _, msg := range messages {
		b, err := encode(msg)
		if err != nil {
			return err
		} // end if
		if errPub := that.client.Publish(ctx, topic, b).Err(); errPub != nil {
			return errPub
		} // end if
	} // end for
	return nil
} // end Publish()

func (that *RedisPub) Close() error {
	return that.client.Close()
} // end Close()

type RedisSub struct {
	client *redis.Client
} // end type

func NewRedisSub(url string) (*RedisSub, error) {
	client, err := newRedisClient(url)
	if err != nil {
		return nil, err
	} // end if
	return &RedisSub{client: client}, nil
} // end NewRedisSub()

func (that *RedisSub) Subscribe(ctx context.Context, topic string) (<-chan *watermillmsg.Message, error) {
	subscription := that.client.Subscribe(ctx, topic)
	if _, err := subscription.Receive(ctx); err != nil {
		subscription.Close()
		return nil, err
	} // end if
	out := make(chan *watermillmsg.Message, 100)
	go (func() {
		defer close(out)
		defer subscription.Close()
		for {
			m, err := subscription.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logrus.Warn(err)
				} // end if
				return
			} // end if
			msg, errDecode := decode([]byte(m.Payload))
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

func (that *RedisSub) Close() error {
	return that.client.Close()
} // end Close()
