package extract

import (
	"context"

	"github.com/sam80180/stardb-exporter/capture"
	"github.com/sam80180/stardb-exporter/decoder"
	"github.com/samber/lo"
)

// Achievements returns the wanted ids the first qualifying batch reports as unlocked.
func Achievements(ctx context.Context, wanted []uint32, dec decoder.Decoder, src <-chan capture.Datagram, opts ...Option) ([]uint32, error) {
	wantedSet := lo.SliceToMap(wanted, func(id uint32) (uint32, struct{}) {
		return id, struct{}{}
	})
	return consume(ctx, decoder.KindAchievements, dec, src, newOptions(opts), ErrNoAchievements, func(cmd decoder.Command) []uint32 {
		ids := []uint32{}
		for _, rec := range cmd.Achievements {
			if _, has := wantedSet[rec.ID]; has && rec.Unlocked() {
				ids = append(ids, rec.ID)
			} // end if
		} // end for
		return lo.Uniq(ids)
	})
} // end Achievements()
