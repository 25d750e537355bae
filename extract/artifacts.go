package extract

import (
	"context"
	"math"

	"github.com/sam80180/stardb-exporter/capture"
	"github.com/sam80180/stardb-exporter/decoder"
	"github.com/sam80180/stardb-exporter/tables"
)

const MAIN_STAT_UNKNOWN string = "null"

type Artifact struct {
	SetKey      string           `json:"setKey"`
	SlotKey     string           `json:"slotKey"`
	Level       uint32           `json:"level"`
	Rarity      uint32           `json:"rarity"`
	MainStatKey string           `json:"mainStatKey"`
	Location    string           `json:"location"`
	Lock        bool             `json:"lock"`
	Substats    []tables.Substat `json:"substats"`
} // end type

// RoundSubstat gives percent stats one decimal, flat stats none.
func RoundSubstat(s tables.Substat) tables.Substat {
	if tables.IsPercentKey(s.Key) {
		s.Value = math.Round(math.Round(s.Value*100)/10) / 10
	} else {
		s.Value = math.Round(s.Value)
	} // end if
	return s
} // end RoundSubstat()

// substats sums rolls on the same key, keeping first-seen key order.
func substats(raw decoder.ArtifactRaw, r tables.Resolver, o *options) []tables.Substat {
	out := []tables.Substat{}
	index := map[string]int{}
	for _, affixID := range raw.AppendPropIDs {
		affix, ok := r.ResolveAffix(affixID)
		if !ok {
			o.miss(Miss{Kind: MISS_AFFIX, ArtifactID: raw.ID, RefID: affixID})
			continue
		} // end if
		if i, has := index[affix.Key]; has {
			out[i].Value += affix.Value
			continue
		} // end if
		index[affix.Key] = len(out)
		out = append(out, affix)
	} // end for
	for i := range out {
		out[i] = RoundSubstat(out[i])
	} // end for
	return out
} // end substats()

// Normalize joins one raw record against the lookup tables; false when its template is unknown.
func Normalize(raw decoder.ArtifactRaw, r tables.Resolver, opts ...Option) (Artifact, bool) {
	return normalize(raw, r, newOptions(opts))
} // end Normalize()

func normalize(raw decoder.ArtifactRaw, r tables.Resolver, o *options) (Artifact, bool) {
	typ, ok := r.ResolveType(raw.ID)
	if !ok {
		o.miss(Miss{Kind: MISS_TEMPLATE, ArtifactID: raw.ID, RefID: raw.ID})
		return Artifact{}, false
	} // end if
	mainStat, ok := r.ResolveMainProp(raw.MainPropID)
	if !ok {
		o.miss(Miss{Kind: MISS_MAIN_PROP, ArtifactID: raw.ID, RefID: raw.MainPropID})
		mainStat = MAIN_STAT_UNKNOWN
	} // end if
	level := uint32(0)
	if raw.Level > 0 {
		level = raw.Level - 1
	} // end if
	return Artifact{
		SetKey:      typ.SetKey,
		SlotKey:     typ.SlotKey,
		Level:       level,
		Rarity:      typ.Rarity,
		MainStatKey: mainStat,
		Lock:        raw.Locked,
		Substats:    substats(raw, r, o),
	}, true
} // end normalize()

// Artifacts returns the normalized records of the first batch that resolves at least one artifact.
func Artifacts(ctx context.Context, r tables.Resolver, dec decoder.Decoder, src <-chan capture.Datagram, opts ...Option) ([]Artifact, error) {
	o := newOptions(opts)
	return consume(ctx, decoder.KindArtifacts, dec, src, o, ErrNoArtifacts, func(cmd decoder.Command) []Artifact {
		out := []Artifact{}
		for _, raw := range cmd.Artifacts {
			if a, ok := normalize(raw, r, o); ok {
				out = append(out, a)
			} // end if
		} // end for
		return out
	})
} // end Artifacts()
