// Package extract turns the captured datagram stream into achievement ids or normalized artifacts.
package extract

import (
	"context"
	"errors"

	"github.com/sam80180/stardb-exporter/capture"
	"github.com/sam80180/stardb-exporter/decoder"
	log "github.com/sirupsen/logrus"
)

var (
	ErrNoAchievements = errors.New("no achievements found")
	ErrNoArtifacts    = errors.New("no artifacts found")
)

type MissKind string

const (
	MISS_TEMPLATE  MissKind = "template"
	MISS_MAIN_PROP MissKind = "main_prop"
	MISS_AFFIX     MissKind = "affix"
)

// Miss is a reference id that did not resolve during the artifact join.
type Miss struct {
	Kind       MissKind
	ArtifactID uint32
	RefID      uint32
} // end type

type Recorder interface {
	ObserveCommand(kind decoder.Kind)
	ObserveMiss(kind MissKind)
}

type options struct {
	onMiss   func(Miss)
	recorder Recorder
} // end type

type Option func(*options)

func WithMissFunc(fn func(Miss)) Option {
	return func(o *options) { o.onMiss = fn }
} // end WithMissFunc()

func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
} // end WithRecorder()

func newOptions(opts []Option) *options {
	o := &options{}
	for _, fn := range opts {
		fn(o)
	} // end for
	return o
} // end newOptions()

func (that *options) miss(m Miss) {
	log.WithField("kind", m.Kind).Debugf("Unresolved id %d on artifact %d", m.RefID, m.ArtifactID)
	if that.recorder != nil {
		that.recorder.ObserveMiss(m.Kind)
	} // end if
	if that.onMiss != nil {
		that.onMiss(m)
	} // end if
} // end miss()

/*
consume pulls datagrams until one batch of the wanted kind produces a non-empty result.
Only the first such batch counts, everything decoded after it is ignored.
notFound is returned once src is closed without a match.
*/
func consume[T any](ctx context.Context, kind decoder.Kind, dec decoder.Decoder, src <-chan capture.Datagram, o *options, notFound error, handle func(decoder.Command) []T) ([]T, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case d, ok := <-src:
			if !ok {
				return nil, notFound
			} // end if
			cmds, complete := dec.Process(d.Data)
			if !complete {
				continue
			} // end if
			var result []T
			for _, cmd := range cmds {
				if o.recorder != nil {
					o.recorder.ObserveCommand(cmd.Kind())
				} // end if
				if cmd.Kind() != kind || len(result) > 0 {
					continue
				} // end if
				result = handle(cmd)
			} // end for
			if len(result) > 0 {
				log.WithField("device", d.Device).Infof("Found %d %s", len(result), kind)
				return result, nil
			} // end if
		} // end select
	} // end for
} // end consume()
