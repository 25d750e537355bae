// Package dumper copies captured datagrams into rotating pcap files or streams them to tcp clients.
package dumper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	watermillmsg "github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/google/uuid"
	maurice2k_tcpserver "github.com/maurice2k/tcpserver"
	"github.com/sam80180/stardb-exporter/capture"
	mypubsub "github.com/sam80180/stardb-exporter/pubsub"
	"github.com/sirupsen/logrus"
)

// every record is rewritten to this link type so one file can hold datagrams from any device
const DUMP_LINK_TYPE = layers.LinkTypeEthernet

var errUnsupportedLinkType = errors.New("unsupported link type")

var _DUMPER_TOPIC string = uuid.New().String()

type Dumper struct {
	options DumperOptions

	mu      sync.Mutex
	rotator *RotaPrefixWriter
	server  *maurice2k_tcpserver.Server
	bus     *gochannel.GoChannel
	closed  bool
} // end type

func pcapHeader() ([]byte, error) {
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	if err := w.WriteFileHeader(uint32(capture.DEFAULT_SNAPLEN), DUMP_LINK_TYPE); err != nil {
		return nil, err
	} // end if
	return buf.Bytes(), nil
} // end pcapHeader()

func New(opts DumperOptions) (*Dumper, error) {
	that := &Dumper{options: opts}
	switch opts.Type {
	case "file":
		writer, err := NewRotaPrefixWriter(opts.Path, func(string) []byte {
			header, _ := pcapHeader()
			return header
		}, rotationOptions(opts)...)
		if err != nil {
			return nil, err
		} // end if
		that.rotator = writer
	case "tcp":
		server, err := maurice2k_tcpserver.NewServer(opts.Address)
		if err != nil {
			return nil, err
		} // end if
		if err := server.Listen(); err != nil {
			return nil, err
		} // end if
		that.server = server
		that.bus = mypubsub.NewLocalBus()
		server.SetRequestHandler(func(conn maurice2k_tcpserver.Connection) {
			if err := that.handleConnection(conn); err != nil {
				logrus.WithField("client", conn.RemoteAddr()).Warnf("Packet dump client error: %+v", err)
			} // end if
		})
		go (func() {
			server.Serve()
		})()
	default:
		return nil, fmt.Errorf("unsupported packet dumper type '%s'", opts.Type)
	} // end switch
	logrus.WithField("options", opts.String()).Info("Packet dumper started")
	return that, nil
} // end New()

// Addr is the listening address of a tcp dumper, nil otherwise.
func (that *Dumper) Addr() net.Addr {
	if that.server == nil {
		return nil
	} // end if
	return that.server.GetListenAddr()
} // end Addr()

// asEthernet gives raw-IP and loopback frames a synthetic ethernet header.
func asEthernet(lt layers.LinkType, data []byte) ([]byte, error) {
	switch lt {
	case layers.LinkTypeEthernet:
		return data, nil
	case layers.LinkTypeNull, layers.LinkTypeLoop:
		if len(data) < 4 {
			return nil, fmt.Errorf("short loopback frame")
		} // end if
		data = data[4:]
	case layers.LinkTypeRaw, layers.LinkTypeIPv4, layers.LinkTypeIPv6:
	default:
		return nil, fmt.Errorf("%w %s", errUnsupportedLinkType, lt)
	} // end switch
	if len(data) == 0 {
		return nil, fmt.Errorf("empty frame")
	} // end if
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0, 0, 0, 0, 0, 0},
		DstMAC:       net.HardwareAddr{0, 0, 0, 0, 0, 0},
		EthernetType: layers.EthernetTypeIPv4,
	}
	if data[0]>>4 == 6 {
		eth.EthernetType = layers.EthernetTypeIPv6
	} // end if
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, eth, gopacket.Payload(data)); err != nil {
		return nil, err
	} // end if
	return buf.Bytes(), nil
} // end asEthernet()

func record(d capture.Datagram) ([]byte, error) {
	frame, err := asEthernet(d.LinkType, d.Data)
	if err != nil {
		return nil, err
	} // end if
	ci := gopacket.CaptureInfo{
		Timestamp:     d.Info.Timestamp,
		CaptureLength: len(frame),
		Length:        len(frame) + d.Info.Length - d.Info.CaptureLength,
	}
	if ci.Timestamp.IsZero() {
		ci.Timestamp = time.Now()
	} // end if
	if ci.Length < ci.CaptureLength {
		ci.Length = ci.CaptureLength
	} // end if
	var buf bytes.Buffer
	if err := pcapgo.NewWriter(&buf).WritePacket(ci, frame); err != nil {
		return nil, err
	} // end if
	return buf.Bytes(), nil
} // end record()

// Write implements capture.Tap. Sessions call it concurrently.
func (that *Dumper) Write(d capture.Datagram) error {
	rec, err := record(d)
	if err != nil {
		return err
	} // end if
	that.mu.Lock()
	defer that.mu.Unlock()
	if that.closed {
		return nil
	} // end if
	switch that.options.Type {
	case "file":
		_, err = that.rotator.Write(rec)
		return err
	case "tcp":
		if that.server.GetActiveConnections() <= 0 {
			return nil
		} // end if
		return that.bus.Publish(_DUMPER_TOPIC, watermillmsg.NewMessage(watermill.NewUUID(), rec))
	} // end switch
	return nil
} // end Write()

func (that *Dumper) handleConnection(c net.Conn) error {
	logrus.WithField("client", c.RemoteAddr()).Infof("Packet dumper client connected")
	ctx, fnCancel := context.WithCancel(context.Background())
	defer fnCancel()
	sub, err := that.bus.Subscribe(ctx, _DUMPER_TOPIC)
	if err != nil {
		return err
	} // end if
	header, err := pcapHeader()
	if err != nil {
		return err
	} // end if
	if _, err := c.Write(header); err != nil {
		return err
	} // end if
	go (func(conn net.Conn, cancel context.CancelFunc) { // watch connection
		buf := make([]byte, 1)
		for {
			if _, err := conn.Read(buf); err != nil {
				cancel()
				return
			} // end if
		} // end for
	})(c, fnCancel)
	for {
		select {
		case <-ctx.Done():
			logrus.WithField("client", c.RemoteAddr()).Infof("Packet dumper client disconnected")
			return nil
		case msg, ok := <-sub:
			if !ok {
				return nil
			} // end if
			msg.Ack()
			if _, err := c.Write(msg.Payload); err != nil {
				return err
			} // end if
		} // end select
	} // end for
} // end handleConnection()

func (that *Dumper) Close() error {
	that.mu.Lock()
	defer that.mu.Unlock()
	if that.closed {
		return nil
	} // end if
	that.closed = true
	switch that.options.Type {
	case "file":
		return that.rotator.Close()
	case "tcp":
		errs := []error{that.bus.Close(), that.server.Shutdown(time.Second)}
		return errors.Join(errs...)
	} // end switch
	return nil
} // end Close()
