// Package replay feeds previously dumped pcap files through the capture pipeline.
package replay

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/sam80180/stardb-exporter/capture"
	"github.com/sam80180/stardb-exporter/internal/helper"
)

// Provider exposes every file as one device. A file is replayed once; later opens drain immediately.
type Provider struct {
	files []string

	mu       sync.Mutex
	consumed map[string]bool
} // end type

func New(files ...string) *Provider {
	return &Provider{files: files, consumed: map[string]bool{}}
} // end New()

func (that *Provider) ListDevices() ([]capture.Device, error) {
	devices := make([]capture.Device, 0, len(that.files))
	for _, f := range that.files {
		if !helper.IsRegularFile(f) {
			return nil, fmt.Errorf("replay source '%s' is not a regular file", f)
		} // end if
		devices = append(devices, capture.Device{
			Name:        f,
			Description: "replay:" + filepath.Base(f),
			Addresses:   []net.IP{net.IPv4zero},
			Up:          true,
			Running:     true,
			Connected:   true,
		})
	} // end for
	return devices, nil
} // end ListDevices()

func (that *Provider) Open(d capture.Device, _ capture.OpenOptions) (capture.Handle, error) {
	that.mu.Lock()
	done := that.consumed[d.Name]
	that.consumed[d.Name] = true
	that.mu.Unlock()
	if done {
		return &handle{}, nil
	} // end if
	f, err := os.Open(d.Name)
	if err != nil {
		return nil, err
	} // end if
	r, err := pcapgo.NewReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read pcap header of '%s': %w", d.Name, err)
	} // end if
	return &handle{f: f, r: r}, nil
} // end Open()

type handle struct {
	mu     sync.Mutex
	f      *os.File
	r      *pcapgo.Reader
	ranges []helper.PortRange
	closed bool
} // end type

// SetFilter understands the udp port/portrange subset of BPF.
func (that *handle) SetFilter(expr string) error {
	ranges, err := helper.ParseUDPPortRanges(expr)
	if err != nil {
		return err
	} // end if
	if len(ranges) == 0 && strings.TrimSpace(expr) != "" {
		return fmt.Errorf("unsupported replay filter '%s'", expr)
	} // end if
	that.ranges = ranges
	return nil
} // end SetFilter()

func (that *handle) accept(data []byte, lt layers.LinkType) bool {
	if len(that.ranges) == 0 {
		return true
	} // end if
	pkt := gopacket.NewPacket(data, lt, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	udpLayer := pkt.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return false
	} // end if
	udp := udpLayer.(*layers.UDP)
	for _, r := range that.ranges {
		if r.Contains(uint16(udp.SrcPort)) || r.Contains(uint16(udp.DstPort)) {
			return true
		} // end if
	} // end for
	return false
} // end accept()

func (that *handle) Next() (capture.Datagram, error) {
	for {
		that.mu.Lock()
		if that.r == nil || that.closed {
			that.mu.Unlock()
			return capture.Datagram{}, io.EOF
		} // end if
		data, ci, err := that.r.ReadPacketData()
		lt := that.r.LinkType()
		that.mu.Unlock()
		if err != nil {
			return capture.Datagram{}, err
		} // end if
		if !that.accept(data, lt) {
			continue
		} // end if
		return capture.Datagram{LinkType: lt, Info: ci, Data: data}, nil
	} // end for
} // end Next()

func (that *handle) Close() {
	that.mu.Lock()
	defer that.mu.Unlock()
	if that.closed {
		return
	} // end if
	that.closed = true
	if that.f != nil {
		that.f.Close()
	} // end if
} // end Close()
