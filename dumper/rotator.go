package dumper

import (
	"math"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

// RotaPrefixWriter is a rotating file writer that starts every new file with a header.
type RotaPrefixWriter struct {
	mu     sync.Mutex
	inner  *rotatelogs.RotateLogs
	header func(string) []byte
	last   string
} // end type

func NewRotaPrefixWriter(pattern string, header func(string) []byte, options ...rotatelogs.Option) (*RotaPrefixWriter, error) {
	rotator, err := rotatelogs.New(pattern, options...)
	if err != nil {
		return nil, err
	} // end if
	return &RotaPrefixWriter{inner: rotator, header: header}, nil
} // end NewRotaPrefixWriter()

func rotationOptions(opts DumperOptions) []rotatelogs.Option {
	options := []rotatelogs.Option{}
	if opts.FileRotationSize > 0 {
		options = append(options, rotatelogs.WithRotationSize(opts.FileRotationSize))
	} // end if
	if period, _ := time.ParseDuration(opts.FileRotationTime); period > 0 {
		options = append(options, rotatelogs.WithRotationTime(period))
	} // end if
	maxAge, _ := time.ParseDuration(opts.FileMaxAge)
	if maxAge <= 0 {
		maxAge = math.MaxInt64 // never purge
	} // end if
	return append(options, rotatelogs.WithMaxAge(maxAge))
} // end rotationOptions()

// CurrentFileName is the file the last write went to.
func (that *RotaPrefixWriter) CurrentFileName() string {
	that.mu.Lock()
	defer that.mu.Unlock()
	return that.last
} // end CurrentFileName()

func (that *RotaPrefixWriter) Write(data []byte) (int, error) {
	that.mu.Lock()
	defer that.mu.Unlock()
	// an empty write lets rotatelogs pick (and create) the file this record belongs to
	if _, err := that.inner.Write(nil); err != nil {
		return 0, err
	} // end if
	if cur := that.inner.CurrentFileName(); cur != that.last {
		logrus.Debugf("Write new file '%s'", cur)
		that.last = cur
		if that.header != nil {
			if b := that.header(cur); len(b) > 0 {
				if _, err := that.inner.Write(b); err != nil {
					logrus.Warnf("Failed to prepend file '%s': %+v", cur, err)
				} // end if
			} // end if
		} // end if
	} // end if
	return that.inner.Write(data)
} // end Write()

func (that *RotaPrefixWriter) Close() error {
	return that.inner.Close()
} // end Close()
