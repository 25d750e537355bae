package decoder

import (
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/sirupsen/logrus"
)

const MAX_FLOW_BUFFER = 4 << 20

type flowKey struct {
	network   gopacket.Flow
	transport gopacket.Flow
} // end type

// Sniffer is the reference Decoder: it strips link/network/transport layers,
// decrypts each UDP payload with the key table and reassembles units per flow.
type Sniffer struct {
	keys   KeyTable
	schema Schema

	mu      sync.Mutex
	buffers map[flowKey][]byte

	eth     layers.Ethernet
	ip4     layers.IPv4
	ip6     layers.IPv6
	udp     layers.UDP
	payload gopacket.Payload
	parsers map[gopacket.LayerType]*gopacket.DecodingLayerParser
} // end type

func New(keys KeyTable, schema Schema) *Sniffer {
	that := &Sniffer{
		keys:    keys,
		schema:  schema,
		buffers: map[flowKey][]byte{},
		parsers: map[gopacket.LayerType]*gopacket.DecodingLayerParser{},
	}
	for _, first := range []gopacket.LayerType{layers.LayerTypeEthernet, layers.LayerTypeIPv4, layers.LayerTypeIPv6} {
		parser := gopacket.NewDecodingLayerParser(first, &that.eth, &that.ip4, &that.ip6, &that.udp, &that.payload)
		parser.IgnoreUnsupported = true
		that.parsers[first] = parser
	} // end for
	return that
} // end New()

// frames from raw-IP devices (tun, some VPN adapters) carry no link header
func (that *Sniffer) decodeLayers(raw []byte) ([]gopacket.LayerType, bool) {
	decoded := []gopacket.LayerType{}
	that.parsers[layers.LayerTypeEthernet].DecodeLayers(raw, &decoded)
	if hasLayer(decoded, layers.LayerTypeUDP) {
		return decoded, true
	} // end if
	if len(raw) == 0 {
		return nil, false
	} // end if
	var first gopacket.LayerType
	switch raw[0] >> 4 {
	case 4:
		first = layers.LayerTypeIPv4
	case 6:
		first = layers.LayerTypeIPv6
	default:
		return nil, false
	} // end switch
	decoded = decoded[:0]
	that.parsers[first].DecodeLayers(raw, &decoded)
	return decoded, hasLayer(decoded, layers.LayerTypeUDP)
} // end decodeLayers()

func hasLayer(decoded []gopacket.LayerType, t gopacket.LayerType) bool {
	for _, lt := range decoded {
		if lt == t {
			return true
		} // end if
	} // end for
	return false
} // end hasLayer()

func (that *Sniffer) Process(raw []byte) ([]Command, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()
	decoded, ok := that.decodeLayers(raw)
	if !ok {
		return nil, false
	} // end if
	key := flowKey{transport: that.udp.TransportFlow()}
	if hasLayer(decoded, layers.LayerTypeIPv4) {
		key.network = that.ip4.NetworkFlow()
	} else {
		key.network = that.ip6.NetworkFlow()
	} // end if
	segment, ok := open(that.keys, that.udp.Payload)
	if !ok {
		return nil, false
	} // end if
	buf := append(that.buffers[key], segment...)
	commands := []Command{}
	for {
		hdr, body, consumed, bad := nextUnit(buf)
		if bad {
			logrus.WithField("flow", key.network.String()).Debugf("Discarding %d bytes of unframed data", len(buf))
			buf = nil
			break
		} // end if
		if consumed == 0 {
			break
		} // end if
		cmd, err := that.schema.Decode(hdr.CmdID, body)
		if err != nil {
			logrus.WithField("cmd", hdr.CmdID).Debugf("Failed to decode command body: %+v", err)
		} else {
			commands = append(commands, cmd)
		} // end if
		buf = buf[consumed:]
	} // end for
	if len(buf) == 0 || len(buf) > MAX_FLOW_BUFFER {
		delete(that.buffers, key)
	} else {
		that.buffers[key] = append([]byte(nil), buf...)
	} // end if
	return commands, len(commands) > 0
} // end Process()
