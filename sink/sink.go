package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	watermillmsg "github.com/ThreeDotsLabs/watermill/message"
	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	mypubsub "github.com/sam80180/stardb-exporter/pubsub"
	"github.com/sirupsen/logrus"
)

type Sink interface {
	Emit(ctx context.Context, r Result) error
	Close() error
}

func compress(w io.WriteCloser, algo string) (io.WriteCloser, error) {
	switch algo {
	case "", COMPRESSION_NONE:
		return w, nil
	case COMPRESSION_GZIP:
		return gzip.NewWriter(w), nil
	case COMPRESSION_ZSTD:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, err
		} // end if
		return enc, nil
	case COMPRESSION_BROTLI:
		return brotli.NewWriter(w), nil
	} // end switch
	return nil, fmt.Errorf("unsupported compression '%s'", algo)
} // end compress()

// WriterSink writes one JSON document per result, optionally compressed.
type WriterSink struct {
	dst     io.WriteCloser
	encoder io.WriteCloser
} // end type

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func NewWriterSink(w io.Writer, compression string) (*WriterSink, error) {
	dst, ok := w.(io.WriteCloser)
	if !ok || w == os.Stdout {
		dst = nopCloser{w}
	} // end if
	enc, err := compress(dst, compression)
	if err != nil {
		return nil, err
	} // end if
	return &WriterSink{dst: dst, encoder: enc}, nil
} // end NewWriterSink()

func (that *WriterSink) Emit(_ context.Context, r Result) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	} // end if
	_, err = that.encoder.Write(append(b, '\n'))
	return err
} // end Emit()

func (that *WriterSink) Close() error {
	if that.encoder != that.dst {
		if err := that.encoder.Close(); err != nil {
			return err
		} // end if
	} // end if
	return that.dst.Close()
} // end Close()

// BusSink publishes results on a watermill topic.
type BusSink struct {
	pub   watermillmsg.Publisher
	topic string
} // end type

func NewBusSink(pub watermillmsg.Publisher, topic string) *BusSink {
	return &BusSink{pub: pub, topic: topic}
} // end NewBusSink()

func (that *BusSink) Emit(ctx context.Context, r Result) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	} // end if
	msg := watermillmsg.NewMessage(watermill.NewUUID(), b)
	msg.Metadata.Set("kind", r.Kind())
	msg.Metadata.Set("game", r.Game)
	msg.SetContext(ctx)
	return that.pub.Publish(that.topic, msg)
} // end Emit()

func (that *BusSink) Close() error {
	return that.pub.Close()
} // end Close()

func New(opts SinkOptions) (Sink, error) {
	logrus.WithField("options", opts.String()).Debug("Open result sink")
	switch opts.Type {
	case "stdout":
		return NewWriterSink(os.Stdout, opts.Compression)
	case "file":
		f, err := os.Create(opts.Path)
		if err != nil {
			return nil, err
		} // end if
		s, err := NewWriterSink(f, opts.Compression)
		if err != nil {
			f.Close()
			return nil, err
		} // end if
		return s, nil
	case "zmq", "redis":
		busOpts, err := opts.busOptions()
		if err != nil {
			return nil, err
		} // end if
		pub, err := mypubsub.NewPublisher(busOpts)
		if err != nil {
			return nil, err
		} // end if
		return NewBusSink(pub, busOpts.Topic), nil
	} // end switch
	return nil, fmt.Errorf("unsupported sink type '%s'", opts.Type)
} // end New()
