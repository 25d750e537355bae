package capture

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/require"
)

type step struct {
	data []byte
	err  error
}

type fakeHandle struct {
	mu      sync.Mutex
	steps   []step
	block   bool
	closed  chan struct{}
	once    sync.Once
	filters []string
}

func (h *fakeHandle) SetFilter(expr string) error {
	h.filters = append(h.filters, expr)
	return nil
}

func (h *fakeHandle) Next() (Datagram, error) {
	h.mu.Lock()
	if len(h.steps) > 0 {
		st := h.steps[0]
		h.steps = h.steps[1:]
		h.mu.Unlock()
		if st.err != nil {
			return Datagram{}, st.err
		} // end if
		return Datagram{Data: st.data}, nil
	} // end if
	h.mu.Unlock()
	if h.block {
		<-h.closed
		return Datagram{}, errors.New("handle closed")
	} // end if
	return Datagram{}, io.EOF
}

func (h *fakeHandle) Close() {
	h.once.Do(func() { close(h.closed) })
}

type script struct {
	block bool
	steps []step
}

// fakeProvider hands out one script per open, repeating the last one.
type fakeProvider struct {
	mu        sync.Mutex
	devices   []Device
	scripts   map[string][]script
	openErr   map[string]error
	filterErr error
	opened    map[string]int
	lastOpts  OpenOptions
}

func newFakeProvider(devices ...Device) *fakeProvider {
	return &fakeProvider{
		devices: devices,
		scripts: map[string][]script{},
		openErr: map[string]error{},
		opened:  map[string]int{},
	}
}

func (p *fakeProvider) script(name string, block bool, steps ...step) {
	p.scripts[name] = append(p.scripts[name], script{block: block, steps: steps})
}

func (p *fakeProvider) ListDevices() ([]Device, error) {
	return p.devices, nil
}

func (p *fakeProvider) Open(d Device, opts OpenOptions) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastOpts = opts
	if err := p.openErr[d.Name]; err != nil {
		return nil, err
	} // end if
	p.opened[d.Name]++
	h := &fakeHandle{closed: make(chan struct{})}
	if queue := p.scripts[d.Name]; len(queue) > 0 {
		h.block = queue[0].block
		h.steps = append([]step(nil), queue[0].steps...)
		if len(queue) > 1 {
			p.scripts[d.Name] = queue[1:]
		} // end if
	} // end if
	if p.filterErr != nil {
		return &filterFailHandle{fakeHandle: h, err: p.filterErr}, nil
	} // end if
	return h, nil
}

type filterFailHandle struct {
	*fakeHandle
	err error
}

func (h *filterFailHandle) SetFilter(string) error {
	return h.err
}

func nic(name string) Device {
	return Device{Name: name, Addresses: []net.IP{net.ParseIP("192.168.1.2")}, Connected: true, Up: true, Running: true}
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Notify(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	kinds := []EventKind{}
	for _, ev := range l.events {
		kinds = append(kinds, ev.Kind)
	} // end for
	return kinds
}

func drain(ch <-chan Datagram) [][]byte {
	out := [][]byte{}
	for d := range ch {
		out = append(out, d.Data)
	} // end for
	return out
}

func TestEnumerateDevices(t *testing.T) {
	lo := nic("lo")
	lo.Loopback = true
	down := nic("eth9")
	down.Connected = false
	bare := nic("eth8")
	bare.Addresses = nil
	wifi := nic("wlan0")
	wifi.Description = "Wireless adapter"
	p := newFakeProvider(lo, nic("eth0"), down, bare, wifi)

	devices, err := EnumerateDevices(p)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	require.Equal(t, "eth0", devices[0].Name)
	require.Equal(t, 0, devices[0].Index)
	require.Equal(t, "wlan0", devices[1].Name)
	require.Equal(t, 1, devices[1].Index)

	devices, err = EnumerateDevices(p, "Wireless*")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.Equal(t, 0, devices[0].Index)

	_, err = EnumerateDevices(newFakeProvider(lo, down))
	require.ErrorIs(t, err, ErrNoDevices)
} // end TestEnumerateDevices()

func TestSessionDrainsWithoutRestart(t *testing.T) {
	p := newFakeProvider(nic("eth0"))
	p.script("eth0", false)
	events := &eventLog{}
	s := NewSession(p, nic("eth0"), "udp port 1", WithNotifier(events))
	out := make(chan Datagram, 4)

	require.NoError(t, s.Run(context.Background(), out))
	require.Equal(t, []EventKind{EVENT_READY, EVENT_DRAINED}, events.kinds())
	require.Equal(t, 1, p.opened["eth0"])
	require.Equal(t, 0, s.Restarts())
	require.Equal(t, DefaultOpenOptions(), p.lastOpts)
	require.Equal(t, BlockForever, p.lastOpts.ReadTimeout)

	p.script("eth0", false)
	custom := OpenOptions{ImmediateMode: true, ReadTimeout: 50 * time.Millisecond, SnapLen: 1500}
	require.NoError(t, NewSession(p, nic("eth0"), "", WithOpenOptions(custom)).Run(context.Background(), out))
	require.Equal(t, custom, p.lastOpts)
} // end TestSessionDrainsWithoutRestart()

func TestSessionRestartsAfterFailure(t *testing.T) {
	p := newFakeProvider(nic("eth0"))
	p.script("eth0", false, step{data: []byte("a")}, step{err: ErrTimeout}, step{data: []byte("b")}, step{err: errors.New("adapter reset")})
	p.script("eth0", false, step{data: []byte("c")})
	events := &eventLog{}
	s := NewSession(p, nic("eth0"), "", WithNotifier(events), WithBackoff(time.Millisecond, 2*time.Millisecond))
	out := make(chan Datagram, 8)

	require.NoError(t, s.Run(context.Background(), out))
	close(out)
	require.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, drain(out))
	require.Equal(t, 1, s.Restarts())
	require.Equal(t, []EventKind{
		EVENT_READY, EVENT_RESTARTING,
		EVENT_READY, EVENT_DRAINED,
	}, events.kinds())
} // end TestSessionRestartsAfterFailure()

func TestSessionRestartCeiling(t *testing.T) {
	p := newFakeProvider(nic("eth0"))
	p.script("eth0", false, step{data: []byte("x")}, step{err: errors.New("boom")})
	s := NewSession(p, nic("eth0"), "", WithMaxRestarts(3), WithBackoff(time.Millisecond, time.Millisecond))
	out := make(chan Datagram, 16)

	err := s.Run(context.Background(), out)
	require.ErrorIs(t, err, ErrTooManyRestarts)
	require.Equal(t, 4, s.Restarts())
} // end TestSessionRestartCeiling()

func TestSessionOpenAndFilterFailures(t *testing.T) {
	p := newFakeProvider(nic("eth0"))
	p.openErr["eth0"] = errors.New("permission denied")
	events := &eventLog{}
	err := NewSession(p, nic("eth0"), "", WithNotifier(events)).Run(context.Background(), make(chan Datagram))
	require.ErrorContains(t, err, "permission denied")
	require.Equal(t, []EventKind{EVENT_FAILED}, events.kinds())

	p = newFakeProvider(nic("eth0"))
	p.script("eth0", true)
	p.filterErr = errors.New("syntax error")
	err = NewSession(p, nic("eth0"), "udp prot 1").Run(context.Background(), make(chan Datagram))
	require.ErrorContains(t, err, "syntax error")
	require.ErrorContains(t, err, "udp prot 1")
} // end TestSessionOpenAndFilterFailures()

type countingRecorder struct {
	mu       sync.Mutex
	bytes    int
	restarts int
}

func (r *countingRecorder) ObserveDatagram(_ int, size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bytes += size
}

func (r *countingRecorder) ObserveRestart(int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restarts++
}

type tapFunc func(Datagram) error

func (fn tapFunc) Write(d Datagram) error { return fn(d) }

func TestOrchestratorFanIn(t *testing.T) {
	p := newFakeProvider(nic("eth0"), nic("eth1"))
	p.script("eth0", false, step{data: []byte("one")}, step{data: []byte("two")})
	p.script("eth1", false, step{data: []byte("three")})
	rec := &countingRecorder{}
	tapped := 0
	var tapMu sync.Mutex
	tap := tapFunc(func(Datagram) error {
		tapMu.Lock()
		defer tapMu.Unlock()
		tapped++
		return nil
	})
	o := NewOrchestrator(p, "udp", WithSessionOptions(WithRecorder(rec), WithTap(tap), WithBackoff(time.Millisecond, time.Millisecond)))
	sup, err := o.Run(context.Background())
	require.NoError(t, err)

	byDevice := map[int][]string{}
	for d := range sup.Datagrams() {
		byDevice[d.Device] = append(byDevice[d.Device], string(d.Data))
	} // end for
	require.Equal(t, []string{"one", "two"}, byDevice[0])
	require.Equal(t, []string{"three"}, byDevice[1])
	require.NoError(t, sup.Stop(time.Second))
	require.NoError(t, sup.Err())
	require.Equal(t, 0, sup.Active())
	require.Equal(t, 11, rec.bytes)
	require.Equal(t, 3, tapped)
} // end TestOrchestratorFanIn()

func TestOrchestratorStopUnblocksSessions(t *testing.T) {
	p := newFakeProvider(nic("eth0"), nic("eth1"))
	p.script("eth0", true, step{data: []byte("hello")})
	p.script("eth1", true)
	sup, err := NewOrchestrator(p, "").Run(context.Background())
	require.NoError(t, err)

	d := <-sup.Datagrams()
	require.Equal(t, "hello", string(d.Data))
	require.NoError(t, sup.Stop(2*time.Second))
	_, open := <-sup.Datagrams()
	require.False(t, open)
	require.Empty(t, sup.Errors())
} // end TestOrchestratorStopUnblocksSessions()

func TestOrchestratorAllSessionsFail(t *testing.T) {
	p := newFakeProvider(nic("eth0"), nic("eth1"))
	p.openErr["eth0"] = errors.New("denied")
	p.openErr["eth1"] = errors.New("denied")
	sup, err := NewOrchestrator(p, "").Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, drain(sup.Datagrams()))
	<-sup.Done()
	require.Error(t, sup.Err())
	require.Len(t, sup.Errors(), 2)

	_, err = NewOrchestrator(newFakeProvider(), "").Run(context.Background())
	require.ErrorIs(t, err, ErrNoDevices)
} // end TestOrchestratorAllSessionsFail()

func TestEventPublisher(t *testing.T) {
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	defer ps.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := SubscribeEvents(ctx, ps, "capture")
	require.NoError(t, err)

	pub := NewEventPublisher(ps, "capture")
	p := newFakeProvider(nic("eth0"))
	p.script("eth0", false)
	require.NoError(t, NewSession(p, nic("eth0"), "", WithNotifier(pub)).Run(ctx, make(chan Datagram, 1)))

	first := <-events
	require.Equal(t, EVENT_READY, first.Kind)
	require.Equal(t, "eth0", first.Name)
	second := <-events
	require.Equal(t, EVENT_DRAINED, second.Kind)
} // end TestEventPublisher()
