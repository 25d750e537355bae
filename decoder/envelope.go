package decoder

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/lunixbochs/struc"
	"github.com/sam80180/stardb-exporter/internal/helper"
)

const (
	UNIT_HEAD_MAGIC uint16 = 0x4567
	UNIT_TAIL_MAGIC uint16 = 0x89AB

	unitHeaderSize = 10 // magic + cmd + head length + body length
	unitTailSize   = 2
	keyIDSize      = 2
)

type unitHeader struct {
	Magic   uint16 `struc:"uint16,big"`
	CmdID   uint16 `struc:"uint16,big"`
	HeadLen uint16 `struc:"uint16,big"`
	BodyLen uint32 `struc:"uint32,big"`
} // end type

// KeyTable maps the key id carried in each datagram to its XOR key blob.
type KeyTable map[uint16][]byte

/*
reads

	{"4": "base64...", "5": "base64..."}
*/
func LoadKeys(r io.Reader) (KeyTable, error) {
	raw := map[string]string{}
	if err := helper.NewStructFromReader(r, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode key table: %w", err)
	} // end if
	keys := KeyTable{}
	for strID, strKey := range raw {
		id, errID := strconv.ParseUint(strID, 10, 16)
		if errID != nil {
			return nil, fmt.Errorf("invalid key id ‘%s’: %w", strID, errID)
		} // end if
		blob, errBlob := base64.StdEncoding.DecodeString(strKey)
		if errBlob != nil {
			return nil, fmt.Errorf("invalid key ‘%s’: %w", strID, errBlob)
		} // end if
		if len(blob) == 0 {
			return nil, fmt.Errorf("empty key ‘%s’", strID)
		} // end if
		keys[uint16(id)] = blob
	} // end for
	return keys, nil
} // end LoadKeys()

func xorInPlace(b, key []byte) {
	for i := range b {
		b[i] ^= key[i%len(key)]
	} // end for
} // end xorInPlace()

// BuildUnit frames one command body: magic | cmd | headLen | bodyLen | head | body | magic
func BuildUnit(cmdID uint16, head, body []byte) []byte {
	var buf bytes.Buffer
	struc.Pack(&buf, &unitHeader{
		Magic:   UNIT_HEAD_MAGIC,
		CmdID:   cmdID,
		HeadLen: uint16(len(head)),
		BodyLen: uint32(len(body)),
	})
	buf.Write(head)
	buf.Write(body)
	binary.Write(&buf, binary.BigEndian, UNIT_TAIL_MAGIC)
	return buf.Bytes()
} // end BuildUnit()

// Seal prefixes the key id and XORs `segment` with the matching key.
func Seal(keys KeyTable, keyID uint16, segment []byte) ([]byte, error) {
	key, has := keys[keyID]
	if !has {
		return nil, fmt.Errorf("unknown key id %d", keyID)
	} // end if
	out := make([]byte, keyIDSize+len(segment))
	binary.BigEndian.PutUint16(out, keyID)
	copy(out[keyIDSize:], segment)
	xorInPlace(out[keyIDSize:], key)
	return out, nil
} // end Seal()

func open(keys KeyTable, payload []byte) ([]byte, bool) {
	if len(payload) <= keyIDSize {
		return nil, false
	} // end if
	key, has := keys[binary.BigEndian.Uint16(payload)]
	if !has {
		return nil, false
	} // end if
	segment := bytes.Clone(payload[keyIDSize:])
	xorInPlace(segment, key)
	return segment, true
} // end open()

// splits complete units off the front of `buf`;
// `bad` is true when the buffer does not start with a valid unit and must be discarded
func nextUnit(buf []byte) (hdr unitHeader, body []byte, consumed int, bad bool) {
	if len(buf) < unitHeaderSize {
		return hdr, nil, 0, false
	} // end if
	if err := struc.Unpack(bytes.NewReader(buf[:unitHeaderSize]), &hdr); err != nil {
		return hdr, nil, 0, true
	} // end if
	if hdr.Magic != UNIT_HEAD_MAGIC {
		return hdr, nil, 0, true
	} // end if
	total := unitHeaderSize + int(hdr.HeadLen) + int(hdr.BodyLen) + unitTailSize
	if len(buf) < total {
		return hdr, nil, 0, false
	} // end if
	if binary.BigEndian.Uint16(buf[total-unitTailSize:]) != UNIT_TAIL_MAGIC {
		return hdr, nil, 0, true
	} // end if
	bodyStart := unitHeaderSize + int(hdr.HeadLen)
	return hdr, buf[bodyStart : bodyStart+int(hdr.BodyLen)], total, false
} // end nextUnit()
