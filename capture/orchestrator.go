package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

const DEFAULT_QUEUE_SIZE int = 1024

type Orchestrator struct {
	provider  Provider
	filter    string
	patterns  []string
	queueSize int
	opts      []SessionOption
} // end type

type OrchestratorOption func(*Orchestrator)

func WithDevicePatterns(patterns ...string) OrchestratorOption {
	return func(o *Orchestrator) { o.patterns = append(o.patterns, patterns...) }
} // end WithDevicePatterns()

func WithQueueSize(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.queueSize = n
		} // end if
	}
} // end WithQueueSize()

func WithSessionOptions(opts ...SessionOption) OrchestratorOption {
	return func(o *Orchestrator) { o.opts = append(o.opts, opts...) }
} // end WithSessionOptions()

func NewOrchestrator(p Provider, filter string, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		provider:  p,
		filter:    filter,
		queueSize: DEFAULT_QUEUE_SIZE,
	}
	for _, fn := range opts {
		fn(o)
	} // end for
	return o
} // end NewOrchestrator()

// Supervisor owns the sessions started by Orchestrator.Run.
type Supervisor struct {
	out      chan Datagram
	cancel   context.CancelFunc
	done     chan struct{}
	sessions []*Session
	active   atomic.Int32

	mu   sync.Mutex
	errs []error
} // end type

// Run starts one session per eligible device, all feeding the returned channel.
// The channel is closed once every session has exited.
func (that *Orchestrator) Run(ctx context.Context) (*Supervisor, error) {
	devices, err := EnumerateDevices(that.provider, that.patterns...)
	if err != nil {
		return nil, err
	} // end if
	runCtx, cancel := context.WithCancel(ctx)
	sup := &Supervisor{
		out:    make(chan Datagram, that.queueSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	var wg sync.WaitGroup
	for _, d := range devices {
		s := NewSession(that.provider, d, that.filter, that.opts...)
		sup.sessions = append(sup.sessions, s)
		log.WithField("device", d.Index).Infof("Capturing on %s", d.Label())
		wg.Add(1)
		sup.active.Inc()
		go (func() {
			defer wg.Done()
			defer sup.active.Dec()
			if errRun := s.Run(runCtx, sup.out); errRun != nil {
				sup.mu.Lock()
				sup.errs = append(sup.errs, errRun)
				sup.mu.Unlock()
			} // end if
		})()
	} // end for
	go (func() {
		wg.Wait()
		close(sup.out)
		close(sup.done)
	})()
	return sup, nil
} // end Run()

func (that *Supervisor) Datagrams() <-chan Datagram {
	return that.out
} // end Datagrams()

func (that *Supervisor) Sessions() []*Session {
	return that.sessions
} // end Sessions()

func (that *Supervisor) Active() int {
	return int(that.active.Load())
} // end Active()

func (that *Supervisor) Done() <-chan struct{} {
	return that.done
} // end Done()

// Err joins the session errors when every session ended in error.
func (that *Supervisor) Err() error {
	that.mu.Lock()
	defer that.mu.Unlock()
	if len(that.errs) == 0 || len(that.errs) < len(that.sessions) {
		return nil
	} // end if
	return errors.Join(that.errs...)
} // end Err()

func (that *Supervisor) Errors() []error {
	that.mu.Lock()
	defer that.mu.Unlock()
	return append([]error(nil), that.errs...)
} // end Errors()

// Stop cancels every session and waits up to grace for them to exit.
// A non-positive grace waits indefinitely.
func (that *Supervisor) Stop(grace time.Duration) error {
	that.cancel()
	if grace <= 0 {
		<-that.done
		return nil
	} // end if
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-that.done:
		return nil
	case <-timer.C:
		log.Warnf("%d capture session(s) still running after %s", that.Active(), grace)
		return ErrJoinTimeout
	} // end select
} // end Stop()
