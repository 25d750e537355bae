package capture

import (
	"errors"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	BlockForever    time.Duration = -1 * time.Millisecond
	DEFAULT_SNAPLEN int           = 65535
)

var (
	ErrTimeout         = errors.New("capture read timed out")
	ErrNoDevices       = errors.New("no capture devices found")
	ErrTooManyRestarts = errors.New("capture restarted too many times")
	ErrJoinTimeout     = errors.New("capture sessions did not stop in time")
)

type Device struct {
	Index       int
	Name        string
	Description string
	Addresses   []net.IP
	Loopback    bool
	Up          bool
	Running     bool
	Connected   bool
} // end type

func (d Device) Eligible() bool {
	return d.Connected && len(d.Addresses) > 0 && !d.Loopback
} // end Eligible()

func (d Device) Label() string {
	if d.Description != "" {
		return d.Description
	} // end if
	return d.Name
} // end Label()

// Datagram is owned by whoever last received it from the channel.
type Datagram struct {
	Device   int
	LinkType layers.LinkType
	Info     gopacket.CaptureInfo
	Data     []byte
} // end type

type OpenOptions struct {
	Promiscuous   bool
	ImmediateMode bool
	ReadTimeout   time.Duration
	SnapLen       int
} // end type

func DefaultOpenOptions() OpenOptions {
	return OpenOptions{
		Promiscuous:   true,
		ImmediateMode: true,
		ReadTimeout:   BlockForever,
		SnapLen:       DEFAULT_SNAPLEN,
	}
} // end DefaultOpenOptions()

type Handle interface {
	SetFilter(expr string) error
	// Next returns ErrTimeout when the read timeout expired without a packet
	Next() (Datagram, error)
	Close()
}

type Provider interface {
	ListDevices() ([]Device, error)
	Open(d Device, opts OpenOptions) (Handle, error)
}

// Tap sees every datagram a session hands to the consumer.
type Tap interface {
	Write(d Datagram) error
}

type Recorder interface {
	ObserveDatagram(device int, size int)
	ObserveRestart(device int)
}
