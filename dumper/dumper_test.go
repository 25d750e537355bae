package dumper

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/sam80180/stardb-exporter/capture"
	"github.com/stretchr/testify/require"
)

func udpFrame(t *testing.T, withEthernet bool, payload []byte) []byte {
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP, SrcIP: net.IP{10, 0, 0, 2}, DstIP: net.IP{10, 0, 0, 1}}
	udp := &layers.UDP{SrcPort: 22101, DstPort: 50000}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	stack := []gopacket.SerializableLayer{ip, udp, gopacket.Payload(payload)}
	if withEthernet {
		eth := &layers.Ethernet{SrcMAC: net.HardwareAddr{1, 2, 3, 4, 5, 6}, DstMAC: net.HardwareAddr{6, 5, 4, 3, 2, 1}, EthernetType: layers.EthernetTypeIPv4}
		stack = append([]gopacket.SerializableLayer{eth}, stack...)
	} // end if
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}, stack...))
	return buf.Bytes()
} // end udpFrame()

func TestParseDumperOptions(t *testing.T) {
	opts, err := ParseDumperOptions("127.0.0.1:4000?type=tcp")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:4000", opts.Address)

	opts, err = ParseDumperOptions("type=file&path=cap-%25Y%25m%25d.pcap&rotationSize=1024")
	require.NoError(t, err)
	require.Equal(t, "cap-%Y%m%d.pcap", opts.Path)
	require.Equal(t, int64(1024), opts.FileRotationSize)

	opts, err = ParseDumperOptions("")
	require.NoError(t, err)
	require.Equal(t, DefaultTcpDumperOptions(), *opts)

	_, err = ParseDumperOptions("type=ftp")
	require.Error(t, err)
} // end TestParseDumperOptions()

func TestAsEthernet(t *testing.T) {
	raw := udpFrame(t, false, []byte("hi"))
	frame, err := asEthernet(layers.LinkTypeRaw, raw)
	require.NoError(t, err)
	pkt := gopacket.NewPacket(frame, layers.LinkTypeEthernet, gopacket.Default)
	require.NotNil(t, pkt.Layer(layers.LayerTypeUDP))

	looped, err := asEthernet(layers.LinkTypeNull, append([]byte{2, 0, 0, 0}, raw...))
	require.NoError(t, err)
	require.Equal(t, frame, looped)

	_, err = asEthernet(layers.LinkTypeFDDI, raw)
	require.ErrorIs(t, err, errUnsupportedLinkType)
} // end TestAsEthernet()

func TestFileDumper(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultFileDumperOptions()
	opts.Path = filepath.Join(dir, "dump-%Y.pcap")
	d, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, d.Write(capture.Datagram{LinkType: layers.LinkTypeEthernet, Data: udpFrame(t, true, []byte("one"))}))
	require.NoError(t, d.Write(capture.Datagram{LinkType: layers.LinkTypeRaw, Data: udpFrame(t, false, []byte("two"))}))
	require.Error(t, d.Write(capture.Datagram{LinkType: layers.LinkTypeFDDI, Data: []byte{1}}))
	name := d.rotator.CurrentFileName()
	require.NoError(t, d.Close())

	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	r, err := pcapgo.NewReader(f)
	require.NoError(t, err)
	require.Equal(t, layers.LinkTypeEthernet, r.LinkType())
	payloads := []string{}
	for {
		data, _, errRead := r.ReadPacketData()
		if errRead != nil {
			break
		} // end if
		pkt := gopacket.NewPacket(data, layers.LinkTypeEthernet, gopacket.Default)
		udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
		require.True(t, ok)
		payloads = append(payloads, string(udp.Payload))
	} // end for
	require.Equal(t, []string{"one", "two"}, payloads)
} // end TestFileDumper()

func TestTcpDumper(t *testing.T) {
	opts, err := ParseDumperOptions("127.0.0.1:0?type=tcp")
	require.NoError(t, err)
	d, err := New(*opts)
	require.NoError(t, err)
	defer d.Close()

	// no client yet: datagrams are dropped
	require.NoError(t, d.Write(capture.Datagram{LinkType: layers.LinkTypeEthernet, Data: udpFrame(t, true, []byte("lost"))}))

	conn, err := net.Dial("tcp", d.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	r, err := pcapgo.NewReader(conn)
	require.NoError(t, err)
	require.Equal(t, layers.LinkTypeEthernet, r.LinkType())

	require.NoError(t, d.Write(capture.Datagram{LinkType: layers.LinkTypeEthernet, Data: udpFrame(t, true, []byte("live"))}))
	data, ci, err := r.ReadPacketData()
	require.NoError(t, err)
	require.Equal(t, len(data), ci.CaptureLength)
	udp, ok := gopacket.NewPacket(data, layers.LinkTypeEthernet, gopacket.Default).Layer(layers.LayerTypeUDP).(*layers.UDP)
	require.True(t, ok)
	require.Equal(t, "live", string(udp.Payload))
} // end TestTcpDumper()
