package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

type Session struct {
	device   Device
	provider Provider
	filter   string
	openOpts OpenOptions

	notifier    Notifier
	recorder    Recorder
	taps        []Tap
	minBackoff  time.Duration
	maxBackoff  time.Duration
	maxRestarts int

	mu       sync.Mutex
	handle   Handle
	restarts int
} // end type

type SessionOption func(*Session)

func WithBackoff(min, max time.Duration) SessionOption {
	return func(s *Session) { s.minBackoff, s.maxBackoff = min, max }
} // end WithBackoff()

// WithMaxRestarts bounds the restart cycles of a session, 0 means unbounded.
func WithMaxRestarts(n int) SessionOption {
	return func(s *Session) { s.maxRestarts = n }
} // end WithMaxRestarts()

func WithNotifier(n Notifier) SessionOption {
	return func(s *Session) {
		if n != nil {
			s.notifier = n
		} // end if
	}
} // end WithNotifier()

func WithRecorder(r Recorder) SessionOption {
	return func(s *Session) { s.recorder = r }
} // end WithRecorder()

func WithTap(t Tap) SessionOption {
	return func(s *Session) {
		if t != nil {
			s.taps = append(s.taps, t)
		} // end if
	}
} // end WithTap()

func WithOpenOptions(o OpenOptions) SessionOption {
	return func(s *Session) { s.openOpts = o }
} // end WithOpenOptions()

func NewSession(p Provider, d Device, filter string, opts ...SessionOption) *Session {
	s := &Session{
		device:     d,
		provider:   p,
		filter:     filter,
		openOpts:   DefaultOpenOptions(),
		notifier:   nopNotifier{},
		minBackoff: 200 * time.Millisecond,
		maxBackoff: 10 * time.Second,
	}
	for _, o := range opts {
		o(s)
	} // end for
	return s
} // end NewSession()

func (that *Session) Device() Device {
	return that.device
} // end Device()

func (that *Session) Restarts() int {
	that.mu.Lock()
	defer that.mu.Unlock()
	return that.restarts
} // end Restarts()

func (that *Session) emit(kind EventKind, err error) {
	ev := Event{
		Kind:     kind,
		Device:   that.device.Index,
		Name:     that.device.Label(),
		Restarts: that.Restarts(),
		Time:     time.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
	} // end if
	that.notifier.Notify(ev)
} // end emit()

func (that *Session) open() (Handle, error) {
	h, err := that.provider.Open(that.device, that.openOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open device %d (%s): %w", that.device.Index, that.device.Name, err)
	} // end if
	if that.filter != "" {
		if errFilter := h.SetFilter(that.filter); errFilter != nil {
			h.Close()
			return nil, fmt.Errorf("failed to apply filter '%s' on device %d: %w", that.filter, that.device.Index, errFilter)
		} // end if
	} // end if
	that.mu.Lock()
	that.handle = h
	that.mu.Unlock()
	return h, nil
} // end open()

func (that *Session) closeHandle() {
	that.mu.Lock()
	h := that.handle
	that.handle = nil
	that.mu.Unlock()
	if h != nil {
		h.Close()
	} // end if
} // end closeHandle()

// waitBackoff sleeps for the next backoff interval, false when ctx ended first.
func (that *Session) waitBackoff(ctx context.Context, bo backoff.BackOff) bool {
	next := bo.NextBackOff()
	if next == backoff.Stop {
		return false
	} // end if
	timer := time.NewTimer(next)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	} // end select
} // end waitBackoff()

// capture reads until the handle fails, returning the number of datagrams forwarded.
func (that *Session) capture(ctx context.Context, h Handle, out chan<- Datagram) (int, error) {
	captured := 0
	for {
		d, err := h.Next()
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				if ctx.Err() != nil {
					return captured, ctx.Err()
				} // end if
				continue
			} // end if
			if ctx.Err() != nil {
				return captured, ctx.Err()
			} // end if
			return captured, err
		} // end if
		d.Device = that.device.Index
		for _, t := range that.taps {
			if errTap := t.Write(d); errTap != nil {
				log.WithField("device", that.device.Index).Warnf("Tap rejected datagram: %+v", errTap)
			} // end if
		} // end for
		if that.recorder != nil {
			that.recorder.ObserveDatagram(d.Device, len(d.Data))
		} // end if
		select {
		case out <- d:
			captured++
		case <-ctx.Done():
			return captured, ctx.Err()
		} // end select
	} // end for
} // end capture()

// Run captures on the device until ctx is cancelled, the source drains or the
// restart ceiling is hit. A source drains when it hits end of file or fails before
// yielding anything. Open and filter failures are returned without restart.
func (that *Session) Run(ctx context.Context, out chan<- Datagram) error {
	logger := log.WithField("device", that.device.Index)
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = that.minBackoff
	bo.MaxInterval = that.maxBackoff
	bo.MaxElapsedTime = 0 // never stop
	bo.Reset()

	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go (func() {
		select {
		case <-ctx.Done():
			that.closeHandle()
		case <-stopWatch:
		} // end select
	})()

	for {
		h, err := that.open()
		if err != nil {
			logger.Error(err)
			that.emit(EVENT_FAILED, err)
			return err
		} // end if
		if ctx.Err() != nil {
			that.closeHandle()
			that.emit(EVENT_STOPPED, nil)
			return nil
		} // end if
		that.emit(EVENT_READY, nil)
		started := time.Now()
		captured, errCapture := that.capture(ctx, h, out)
		that.closeHandle()
		if ctx.Err() != nil {
			that.emit(EVENT_STOPPED, nil)
			return nil
		} // end if
		if captured == 0 || errors.Is(errCapture, io.EOF) {
			logger.Debugf("Source drained: %+v", errCapture)
			that.emit(EVENT_DRAINED, errCapture)
			return nil
		} // end if
		if time.Since(started) > that.maxBackoff {
			bo.Reset()
		} // end if

		that.mu.Lock()
		that.restarts++
		restarts := that.restarts
		that.mu.Unlock()
		if that.recorder != nil {
			that.recorder.ObserveRestart(that.device.Index)
		} // end if
		if that.maxRestarts > 0 && restarts > that.maxRestarts {
			errMax := fmt.Errorf("device %d: %w (%d)", that.device.Index, ErrTooManyRestarts, that.maxRestarts)
			that.emit(EVENT_FAILED, errMax)
			return errMax
		} // end if
		logger.Warnf("Capture failed, restarting: %+v", errCapture)
		that.emit(EVENT_RESTARTING, errCapture)
		if !that.waitBackoff(ctx, bo) {
			that.emit(EVENT_STOPPED, nil)
			return nil
		} // end if
	} // end for
} // end Run()
