package extract

import (
	"context"
	"testing"
	"time"

	"github.com/sam80180/stardb-exporter/capture"
	"github.com/sam80180/stardb-exporter/decoder"
	"github.com/sam80180/stardb-exporter/tables"
	"github.com/stretchr/testify/require"
)

// scriptedDecoder maps a datagram's first byte to a prepared result.
type scriptedDecoder map[byte][]decoder.Command

func (d scriptedDecoder) Process(raw []byte) ([]decoder.Command, bool) {
	if len(raw) == 0 {
		return nil, false
	} // end if
	cmds, has := d[raw[0]]
	return cmds, has
}

func feed(keys ...byte) <-chan capture.Datagram {
	ch := make(chan capture.Datagram, len(keys))
	for _, k := range keys {
		ch <- capture.Datagram{Data: []byte{k}}
	} // end for
	close(ch)
	return ch
}

type fakeResolver struct{}

func (fakeResolver) ResolveType(id uint32) (tables.ArtifactType, bool) {
	if id == 81544 {
		return tables.ArtifactType{SetKey: "GladiatorsFinale", SlotKey: "flower", Rarity: 5}, true
	} // end if
	return tables.ArtifactType{}, false
}

func (fakeResolver) ResolveMainProp(id uint32) (string, bool) {
	if id == 15001 {
		return "hp", true
	} // end if
	return "", false
}

func (fakeResolver) ResolveAffix(id uint32) (tables.Substat, bool) {
	switch id {
	case 1:
		return tables.Substat{Key: "critRate_", Value: 3.3}, true
	case 2:
		return tables.Substat{Key: "atk", Value: 19.0}, true
	case 3:
		return tables.Substat{Key: "critRate_", Value: 10.332}, true
	} // end switch
	return tables.Substat{}, false
}

type countingRecorder struct {
	commands map[decoder.Kind]int
	misses   map[MissKind]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{commands: map[decoder.Kind]int{}, misses: map[MissKind]int{}}
}

func (r *countingRecorder) ObserveCommand(kind decoder.Kind) { r.commands[kind]++ }
func (r *countingRecorder) ObserveMiss(kind MissKind)        { r.misses[kind]++ }

func TestAchievementsIntersection(t *testing.T) {
	dec := scriptedDecoder{
		'a': {decoder.NewAchievementsCommand(1, []decoder.AchievementRecord{
			{ID: 10, Status: 2}, {ID: 11, Status: 3}, {ID: 12, Status: 1}, {ID: 13, Status: 3}, {ID: 10, Status: 2},
		})},
	}
	ids, err := Achievements(context.Background(), []uint32{10, 11, 12}, dec, feed('a'))
	require.NoError(t, err)
	require.Equal(t, []uint32{10, 11}, ids)
} // end TestAchievementsIntersection()

func TestAchievementsFirstBatchWins(t *testing.T) {
	rec := newCountingRecorder()
	dec := scriptedDecoder{
		'x': {decoder.Command{ID: 9}},
		'e': {decoder.NewAchievementsCommand(1, []decoder.AchievementRecord{{ID: 10, Status: 0}})},
		'a': {
			decoder.NewAchievementsCommand(1, []decoder.AchievementRecord{{ID: 10, Status: 2}}),
			decoder.NewAchievementsCommand(1, []decoder.AchievementRecord{{ID: 11, Status: 2}}),
		},
		'b': {decoder.NewAchievementsCommand(1, []decoder.AchievementRecord{{ID: 11, Status: 2}})},
	}
	ids, err := Achievements(context.Background(), []uint32{10, 11}, dec, feed('?', 'x', 'e', 'a', 'b'), WithRecorder(rec))
	require.NoError(t, err)
	require.Equal(t, []uint32{10}, ids)
	require.Equal(t, 1, rec.commands[decoder.KindOther])
	require.Equal(t, 3, rec.commands[decoder.KindAchievements])
} // end TestAchievementsFirstBatchWins()

func TestAchievementsExhausted(t *testing.T) {
	dec := scriptedDecoder{'e': {decoder.NewAchievementsCommand(1, []decoder.AchievementRecord{{ID: 10, Status: 1}})}}
	_, err := Achievements(context.Background(), []uint32{10}, dec, feed('e'))
	require.ErrorIs(t, err, ErrNoAchievements)

	_, err = Achievements(context.Background(), []uint32{10}, dec, feed())
	require.ErrorIs(t, err, ErrNoAchievements)
} // end TestAchievementsExhausted()

func TestAchievementsCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Achievements(ctx, []uint32{1}, scriptedDecoder{}, make(chan capture.Datagram))
	require.ErrorIs(t, err, context.DeadlineExceeded)
} // end TestAchievementsCancelled()

func TestArtifactsScenario(t *testing.T) {
	dec := scriptedDecoder{
		'a': {decoder.NewArtifactsCommand(2, []decoder.ArtifactRaw{
			{ID: 81544, Level: 5, MainPropID: 15001, AppendPropIDs: []uint32{1, 1, 2}},
			{ID: 99999, Level: 21, MainPropID: 15001},
			{ID: 81544, Level: 1, MainPropID: 4242, AppendPropIDs: []uint32{3, 777}, Locked: true},
		})},
	}
	misses := []Miss{}
	rec := newCountingRecorder()
	arts, err := Artifacts(context.Background(), fakeResolver{}, dec, feed('a'), WithMissFunc(func(m Miss) { misses = append(misses, m) }), WithRecorder(rec))
	require.NoError(t, err)
	require.Len(t, arts, 2)
	require.Equal(t, Artifact{
		SetKey:      "GladiatorsFinale",
		SlotKey:     "flower",
		Level:       4,
		Rarity:      5,
		MainStatKey: "hp",
		Lock:        false,
		Substats:    []tables.Substat{{Key: "critRate_", Value: 6.6}, {Key: "atk", Value: 19}},
	}, arts[0])
	require.Equal(t, MAIN_STAT_UNKNOWN, arts[1].MainStatKey)
	require.Equal(t, uint32(0), arts[1].Level)
	require.True(t, arts[1].Lock)
	require.Equal(t, []tables.Substat{{Key: "critRate_", Value: 10.3}}, arts[1].Substats)
	require.ElementsMatch(t, []Miss{
		{Kind: MISS_TEMPLATE, ArtifactID: 99999, RefID: 99999},
		{Kind: MISS_MAIN_PROP, ArtifactID: 81544, RefID: 4242},
		{Kind: MISS_AFFIX, ArtifactID: 81544, RefID: 777},
	}, misses)
	require.Equal(t, 1, rec.misses[MISS_TEMPLATE])
} // end TestArtifactsScenario()

func TestArtifactsOrderIndependentSubstats(t *testing.T) {
	a, ok := Normalize(decoder.ArtifactRaw{ID: 81544, Level: 3, MainPropID: 15001, AppendPropIDs: []uint32{1, 2, 1}}, fakeResolver{})
	require.True(t, ok)
	b, ok := Normalize(decoder.ArtifactRaw{ID: 81544, Level: 3, MainPropID: 15001, AppendPropIDs: []uint32{2, 1, 1}}, fakeResolver{})
	require.True(t, ok)
	require.ElementsMatch(t, a.Substats, b.Substats)
	_, ok = Normalize(decoder.ArtifactRaw{ID: 1}, fakeResolver{})
	require.False(t, ok)
} // end TestArtifactsOrderIndependentSubstats()

func TestArtifactsSkipsUnresolvedBatch(t *testing.T) {
	dec := scriptedDecoder{
		'u': {decoder.NewArtifactsCommand(2, []decoder.ArtifactRaw{{ID: 5}})},
		'a': {decoder.NewArtifactsCommand(2, []decoder.ArtifactRaw{{ID: 81544, Level: 21, MainPropID: 15001}})},
		'b': {decoder.NewArtifactsCommand(2, []decoder.ArtifactRaw{{ID: 81544, Level: 2, MainPropID: 15001}})},
	}
	arts, err := Artifacts(context.Background(), fakeResolver{}, dec, feed('u', 'a', 'b'))
	require.NoError(t, err)
	require.Len(t, arts, 1)
	require.Equal(t, uint32(20), arts[0].Level)

	_, err = Artifacts(context.Background(), fakeResolver{}, dec, feed('u'))
	require.ErrorIs(t, err, ErrNoArtifacts)
} // end TestArtifactsSkipsUnresolvedBatch()

func TestRoundSubstat(t *testing.T) {
	require.Equal(t, 10.3, RoundSubstat(tables.Substat{Key: "critRate_", Value: 10.332}).Value)
	require.Equal(t, 5.9, RoundSubstat(tables.Substat{Key: "atk_", Value: 5.8300000001 + 0.0999}).Value)
	require.Equal(t, 299.0, RoundSubstat(tables.Substat{Key: "hp", Value: 298.75}).Value)
	require.Equal(t, 16.0, RoundSubstat(tables.Substat{Key: "def", Value: 16.2}).Value)
} // end TestRoundSubstat()
