// Package livepcap captures from host network adapters through libpcap (npcap on windows).
package livepcap

import (
	"fmt"
	"net"

	"github.com/google/gopacket/pcap"
	"github.com/sam80180/stardb-exporter/capture"
)

// libpcap PCAP_IF_* flags
const (
	PCAP_IF_LOOPBACK                    uint32 = 0x00000001
	PCAP_IF_UP                          uint32 = 0x00000002
	PCAP_IF_RUNNING                     uint32 = 0x00000004
	PCAP_IF_CONNECTION_STATUS           uint32 = 0x00000030
	PCAP_IF_CONNECTION_STATUS_CONNECTED uint32 = 0x00000010
)

var findAllDevs = pcap.FindAllDevs

type Provider struct{}

func New() *Provider {
	return &Provider{}
} // end New()

func toDevice(iface pcap.Interface) capture.Device {
	addrs := make([]net.IP, 0, len(iface.Addresses))
	for _, a := range iface.Addresses {
		if a.IP != nil {
			addrs = append(addrs, a.IP)
		} // end if
	} // end for
	return capture.Device{
		Name:        iface.Name,
		Description: iface.Description,
		Addresses:   addrs,
		Loopback:    iface.Flags&PCAP_IF_LOOPBACK != 0,
		Up:          iface.Flags&PCAP_IF_UP != 0,
		Running:     iface.Flags&PCAP_IF_RUNNING != 0,
		Connected:   iface.Flags&PCAP_IF_CONNECTION_STATUS == PCAP_IF_CONNECTION_STATUS_CONNECTED,
	}
} // end toDevice()

func (that *Provider) ListDevices() ([]capture.Device, error) {
	ifaces, err := findAllDevs()
	if err != nil {
		return nil, err
	} // end if
	devices := make([]capture.Device, 0, len(ifaces))
	for _, iface := range ifaces {
		devices = append(devices, toDevice(iface))
	} // end for
	return devices, nil
} // end ListDevices()

func (that *Provider) Open(d capture.Device, opts capture.OpenOptions) (capture.Handle, error) {
	inactive, err := pcap.NewInactiveHandle(d.Name)
	if err != nil {
		return nil, err
	} // end if
	defer inactive.CleanUp()
	if err := inactive.SetPromisc(opts.Promiscuous); err != nil {
		return nil, fmt.Errorf("promiscuous mode: %w", err)
	} // end if
	if err := inactive.SetImmediateMode(opts.ImmediateMode); err != nil {
		return nil, fmt.Errorf("immediate mode: %w", err)
	} // end if
	timeout := opts.ReadTimeout
	if timeout < 0 {
		timeout = pcap.BlockForever
	} // end if
	if err := inactive.SetTimeout(timeout); err != nil {
		return nil, fmt.Errorf("read timeout: %w", err)
	} // end if
	if opts.SnapLen > 0 {
		if err := inactive.SetSnapLen(opts.SnapLen); err != nil {
			return nil, fmt.Errorf("snaplen: %w", err)
		} // end if
	} // end if
	h, err := inactive.Activate()
	if err != nil {
		return nil, err
	} // end if
	return &handle{h: h}, nil
} // end Open()

type handle struct {
	h *pcap.Handle
} // end type

func (that *handle) SetFilter(expr string) error {
	return that.h.SetBPFFilter(expr)
} // end SetFilter()

func (that *handle) Next() (capture.Datagram, error) {
	data, ci, err := that.h.ReadPacketData()
	if err != nil {
		if err == pcap.NextErrorTimeoutExpired {
			return capture.Datagram{}, capture.ErrTimeout
		} // end if
		return capture.Datagram{}, err
	} // end if
	return capture.Datagram{
		LinkType: that.h.LinkType(),
		Info:     ci,
		Data:     data,
	}, nil
} // end Next()

func (that *handle) Close() {
	that.h.Close()
} // end Close()
