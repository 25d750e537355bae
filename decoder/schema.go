package decoder

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Schema names the command ids and protobuf field numbers of one game's messages.
type Schema struct {
	AchievementsCmd uint16
	ArtifactsCmd    uint16

	AchievementList   protowire.Number // repeated message in the batch
	AchievementID     protowire.Number
	AchievementStatus protowire.Number

	ArtifactList        protowire.Number // repeated message in the batch
	ArtifactID          protowire.Number
	ArtifactLevel       protowire.Number
	ArtifactMainProp    protowire.Number
	ArtifactAppendProps protowire.Number // repeated uint32, packed or not
	ArtifactLocked      protowire.Number
} // end type

var errTruncated = errors.New("truncated protobuf message")

type wireField struct {
	typ   protowire.Type
	value uint64
	bytes []byte
} // end type

func parseFields(b []byte) (map[protowire.Number][]wireField, error) {
	fields := map[protowire.Number][]wireField{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("bad tag: %w", protowire.ParseError(n))
		} // end if
		b = b[n:]
		f := wireField{typ: typ}
		switch typ {
		case protowire.VarintType:
			f.value, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			f.value = uint64(v)
		case protowire.Fixed64Type:
			f.value, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		} // end switch
		if n < 0 {
			return nil, errTruncated
		} // end if
		b = b[n:]
		fields[num] = append(fields[num], f)
	} // end for
	return fields, nil
} // end parseFields()

func firstUint(fields map[protowire.Number][]wireField, num protowire.Number) uint32 {
	for _, f := range fields[num] {
		if f.typ != protowire.BytesType {
			return uint32(f.value)
		} // end if
	} // end for
	return 0
} // end firstUint()

func repeatedUint(fields map[protowire.Number][]wireField, num protowire.Number) ([]uint32, error) {
	values := []uint32{}
	for _, f := range fields[num] {
		if f.typ != protowire.BytesType {
			values = append(values, uint32(f.value))
			continue
		} // end if
		packed := f.bytes
		for len(packed) > 0 {
			v, n := protowire.ConsumeVarint(packed)
			if n < 0 {
				return nil, errTruncated
			} // end if
			values = append(values, uint32(v))
			packed = packed[n:]
		} // end for
	} // end for
	return values, nil
} // end repeatedUint()

func (s Schema) decodeAchievements(body []byte) ([]AchievementRecord, error) {
	batch, err := parseFields(body)
	if err != nil {
		return nil, err
	} // end if
	records := []AchievementRecord{}
	for _, item := range batch[s.AchievementList] {
		if item.typ != protowire.BytesType {
			continue
		} // end if
		fields, errItem := parseFields(item.bytes)
		if errItem != nil {
			return nil, errItem
		} // end if
		records = append(records, AchievementRecord{
			ID:     firstUint(fields, s.AchievementID),
			Status: firstUint(fields, s.AchievementStatus),
		})
	} // end for
	return records, nil
} // end decodeAchievements()

func (s Schema) decodeArtifacts(body []byte) ([]ArtifactRaw, error) {
	batch, err := parseFields(body)
	if err != nil {
		return nil, err
	} // end if
	records := []ArtifactRaw{}
	for _, item := range batch[s.ArtifactList] {
		if item.typ != protowire.BytesType {
			continue
		} // end if
		fields, errItem := parseFields(item.bytes)
		if errItem != nil {
			return nil, errItem
		} // end if
		appendProps, errProps := repeatedUint(fields, s.ArtifactAppendProps)
		if errProps != nil {
			return nil, errProps
		} // end if
		records = append(records, ArtifactRaw{
			ID:            firstUint(fields, s.ArtifactID),
			Level:         firstUint(fields, s.ArtifactLevel),
			MainPropID:    firstUint(fields, s.ArtifactMainProp),
			AppendPropIDs: appendProps,
			Locked:        firstUint(fields, s.ArtifactLocked) != 0,
		})
	} // end for
	return records, nil
} // end decodeArtifacts()

func (s Schema) Decode(cmdID uint16, body []byte) (Command, error) {
	switch cmdID {
	case 0:
	case s.AchievementsCmd:
		records, err := s.decodeAchievements(body)
		if err != nil {
			return Command{ID: cmdID}, err
		} // end if
		return NewAchievementsCommand(cmdID, records), nil
	case s.ArtifactsCmd:
		records, err := s.decodeArtifacts(body)
		if err != nil {
			return Command{ID: cmdID}, err
		} // end if
		return NewArtifactsCommand(cmdID, records), nil
	} // end switch
	return Command{ID: cmdID}, nil
} // end Decode()

func (s Schema) EncodeAchievements(records []AchievementRecord) []byte {
	var body []byte
	for _, r := range records {
		var item []byte
		item = protowire.AppendTag(item, s.AchievementID, protowire.VarintType)
		item = protowire.AppendVarint(item, uint64(r.ID))
		item = protowire.AppendTag(item, s.AchievementStatus, protowire.VarintType)
		item = protowire.AppendVarint(item, uint64(r.Status))
		body = protowire.AppendTag(body, s.AchievementList, protowire.BytesType)
		body = protowire.AppendBytes(body, item)
	} // end for
	return body
} // end EncodeAchievements()

func (s Schema) EncodeArtifacts(records []ArtifactRaw) []byte {
	var body []byte
	for _, r := range records {
		var item []byte
		item = protowire.AppendTag(item, s.ArtifactID, protowire.VarintType)
		item = protowire.AppendVarint(item, uint64(r.ID))
		item = protowire.AppendTag(item, s.ArtifactLevel, protowire.VarintType)
		item = protowire.AppendVarint(item, uint64(r.Level))
		item = protowire.AppendTag(item, s.ArtifactMainProp, protowire.VarintType)
		item = protowire.AppendVarint(item, uint64(r.MainPropID))
		if len(r.AppendPropIDs) > 0 {
			var packed []byte
			for _, id := range r.AppendPropIDs {
				packed = protowire.AppendVarint(packed, uint64(id))
			} // end for
			item = protowire.AppendTag(item, s.ArtifactAppendProps, protowire.BytesType)
			item = protowire.AppendBytes(item, packed)
		} // end if
		if r.Locked {
			item = protowire.AppendTag(item, s.ArtifactLocked, protowire.VarintType)
			item = protowire.AppendVarint(item, 1)
		} // end if
		body = protowire.AppendTag(body, s.ArtifactList, protowire.BytesType)
		body = protowire.AppendBytes(body, item)
	} // end for
	return body
} // end EncodeArtifacts()
