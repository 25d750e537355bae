// Package sink delivers the outcome of one extraction run.
package sink

import (
	"encoding/json"

	"github.com/sam80180/stardb-exporter/extract"
)

const (
	GOOD_FORMAT  = "GOOD"
	GOOD_VERSION = 2
	GOOD_SOURCE  = "stardb-exporter"
)

const (
	KIND_ACHIEVEMENTS = "achievements"
	KIND_ARTIFACTS    = "artifacts"
	KIND_ERROR        = "error"
)

// Result holds either a success payload or Err, never both.
type Result struct {
	Game         string
	Achievements []uint32
	Artifacts    []extract.Artifact
	Err          error
} // end type

type goodDocument struct {
	Format    string             `json:"format"`
	Version   int                `json:"version"`
	Source    string             `json:"source"`
	Artifacts []extract.Artifact `json:"artifacts"`
} // end type

type achievementsDocument struct {
	Game         string   `json:"game"`
	Achievements []uint32 `json:"achievements"`
} // end type

type errorDocument struct {
	Game  string `json:"game"`
	Error string `json:"error"`
} // end type

func (that Result) Kind() string {
	switch {
	case that.Err != nil:
		return KIND_ERROR
	case that.Artifacts != nil:
		return KIND_ARTIFACTS
	} // end switch
	return KIND_ACHIEVEMENTS
} // end Kind()

func (that Result) MarshalJSON() ([]byte, error) {
	switch that.Kind() {
	case KIND_ERROR:
		return json.Marshal(errorDocument{Game: that.Game, Error: that.Err.Error()})
	case KIND_ARTIFACTS:
		return json.Marshal(goodDocument{Format: GOOD_FORMAT, Version: GOOD_VERSION, Source: GOOD_SOURCE, Artifacts: that.Artifacts})
	} // end switch
	ids := that.Achievements
	if ids == nil {
		ids = []uint32{}
	} // end if
	return json.Marshal(achievementsDocument{Game: that.Game, Achievements: ids})
} // end MarshalJSON()
