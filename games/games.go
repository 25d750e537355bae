package games

import (
	"fmt"
	"strings"

	"github.com/sam80180/stardb-exporter/decoder"
)

type Game string

const (
	GENSHIN   Game = "gi"
	STAR_RAIL Game = "hsr"
)

type Mode string

const (
	MODE_ACHIEVEMENTS Mode = "achievements"
	MODE_ARTIFACTS    Mode = "artifacts"
)

const CATALOG_BASE_URL = "https://stardb.gg"

type Title struct {
	Game        Game
	Name        string
	Filter      string // capture filter expression
	CatalogPath string // achievement catalog, relative to CATALOG_BASE_URL
	Modes       []Mode
	Schema      decoder.Schema
} // end type

var titles = map[Game]Title{
	GENSHIN: {
		Game:        GENSHIN,
		Name:        "Genshin Impact",
		Filter:      "udp portrange 22101-22102",
		CatalogPath: "/api/gi/achievements",
		Modes:       []Mode{MODE_ACHIEVEMENTS, MODE_ARTIFACTS},
		Schema: decoder.Schema{
			AchievementsCmd:     2676,
			ArtifactsCmd:        626,
			AchievementList:     4,
			AchievementID:       14,
			AchievementStatus:   11,
			ArtifactList:        9,
			ArtifactID:          1,
			ArtifactLevel:       2,
			ArtifactMainProp:    3,
			ArtifactAppendProps: 4,
			ArtifactLocked:      5,
		},
	},
	STAR_RAIL: {
		Game:        STAR_RAIL,
		Name:        "Honkai: Star Rail",
		Filter:      "udp portrange 23301-23302",
		CatalogPath: "/api/achievements",
		Modes:       []Mode{MODE_ACHIEVEMENTS},
		Schema: decoder.Schema{
			AchievementsCmd:   2623,
			AchievementList:   8,
			AchievementID:     3,
			AchievementStatus: 12,
		},
	},
}

func Lookup(name string) (Title, error) {
	t, has := titles[Game(strings.ToLower(strings.TrimSpace(name)))]
	if !has {
		return Title{}, fmt.Errorf("unsupported game ‘%s’", name)
	} // end if
	return t, nil
} // end Lookup()

func All() []Title {
	return []Title{titles[GENSHIN], titles[STAR_RAIL]}
} // end All()

func (t Title) Supports(m Mode) bool {
	for _, mm := range t.Modes {
		if mm == m {
			return true
		} // end if
	} // end for
	return false
} // end Supports()

func (t Title) Require(m Mode) error {
	if !t.Supports(m) {
		return fmt.Errorf("%s does not support %s export", t.Name, m)
	} // end if
	return nil
} // end Require()
