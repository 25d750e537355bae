package tables

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"unicode"

	"github.com/UnwrittenFun/pluralise"
	"github.com/sam80180/stardb-exporter/internal/helper"
	"github.com/sirupsen/logrus"
)

const (
	RELIQUARY_FILE     = "ReliquaryExcelConfigData.json"
	DISPLAY_ITEM_FILE  = "DisplayItemExcelConfigData.json"
	TEXT_MAP_FILE      = "TextMapEN.json"
	MAIN_PROP_FILE     = "ReliquaryMainPropExcelConfigData.json"
	AFFIX_FILE         = "ReliquaryAffixExcelConfigData.json"
	DISPLAY_TYPE_RELIQ = "RELIQUARY_ITEM"
)

var ErrMissingData = errors.New("reference data is missing")

type reliquaryEntry struct {
	ID        uint32 `json:"id"`
	EquipType string `json:"equipType"`
	RankLevel uint32 `json:"rankLevel"`
	SetID     uint32 `json:"setId"`
} // end type

type displayItemEntry struct {
	DisplayType     string `json:"displayType"`
	NameTextMapHash uint64 `json:"nameTextMapHash"`
	Param           uint32 `json:"param"`
} // end type

type mainPropEntry struct {
	ID       uint32 `json:"id"`
	PropType string `json:"propType"`
} // end type

type affixEntry struct {
	ID        uint32  `json:"id"`
	PropType  string  `json:"propType"`
	PropValue float64 `json:"propValue"`
} // end type

type ArtifactType struct {
	SetKey  string
	SlotKey string
	Rarity  uint32
} // end type

type Substat struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
} // end type

// Resolver answers template, main-stat and affix lookups; ok is false on a miss.
type Resolver interface {
	ResolveType(id uint32) (ArtifactType, bool)
	ResolveMainProp(id uint32) (string, bool)
	ResolveAffix(id uint32) (Substat, bool)
}

// Tables is read-only once Build returns.
type Tables struct {
	Types     map[uint32]ArtifactType
	MainProps map[uint32]string
	Affixes   map[uint32]Substat
} // end type

var slotKeys = map[string]string{
	"EQUIP_BRACER":   "flower",
	"EQUIP_NECKLACE": "plume",
	"EQUIP_SHOES":    "sands",
	"EQUIP_RING":     "goblet",
	"EQUIP_DRESS":    "circlet",
}

var propKeys = map[string]string{
	"FIGHT_PROP_HP":                "hp",
	"FIGHT_PROP_HP_PERCENT":        "hp_",
	"FIGHT_PROP_ATTACK":            "atk",
	"FIGHT_PROP_ATTACK_PERCENT":    "atk_",
	"FIGHT_PROP_DEFENSE":           "def",
	"FIGHT_PROP_DEFENSE_PERCENT":   "def_",
	"FIGHT_PROP_ELEMENT_MASTERY":   "eleMas",
	"FIGHT_PROP_CHARGE_EFFICIENCY": "enerRech_",
	"FIGHT_PROP_HEAL_ADD":          "heal_",
	"FIGHT_PROP_CRITICAL":          "critRate_",
	"FIGHT_PROP_CRITICAL_HURT":     "critDMG_",
	"FIGHT_PROP_PHYSICAL_ADD_HURT": "physical_dmg_",
	"FIGHT_PROP_WIND_ADD_HURT":     "anemo_dmg_",
	"FIGHT_PROP_ROCK_ADD_HURT":     "geo_dmg_",
	"FIGHT_PROP_ELEC_ADD_HURT":     "electro_dmg_",
	"FIGHT_PROP_WATER_ADD_HURT":    "hydro_dmg_",
	"FIGHT_PROP_FIRE_ADD_HURT":     "pyro_dmg_",
	"FIGHT_PROP_ICE_ADD_HURT":      "cryo_dmg_",
	"FIGHT_PROP_GRASS_ADD_HURT":    "dendro_dmg_",
}

func SlotKey(equipType string) string {
	if k, has := slotKeys[equipType]; has {
		return k
	} // end if
	return equipType
} // end SlotKey()

func PropKey(propType string) string {
	if k, has := propKeys[propType]; has {
		return k
	} // end if
	return propType
} // end PropKey()

func IsPercentKey(key string) bool {
	return strings.HasSuffix(key, "_")
} // end IsPercentKey()

// "Gladiator's Finale" => "GladiatorsFinale"
func SetKey(name string) string {
	var sb strings.Builder
	capitalizeNext := true
	for _, c := range name {
		switch {
		case unicode.IsLetter(c):
			if capitalizeNext {
				sb.WriteRune(unicode.ToUpper(c))
				capitalizeNext = false
			} else {
				sb.WriteRune(unicode.ToLower(c))
			} // end if
		case c != '\'':
			capitalizeNext = true
		} // end switch
	} // end for
	return sb.String()
} // end SetKey()

func load[T any](fsys fs.FS, name string, out *T) error {
	if err := helper.NewStructFromFS(fsys, name, out); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingData, name)
		} // end if
		return err
	} // end if
	return nil
} // end load()

func buildTypes(fsys fs.FS) (map[uint32]ArtifactType, error) {
	var reliquaries []reliquaryEntry
	if err := load(fsys, RELIQUARY_FILE, &reliquaries); err != nil {
		return nil, err
	} // end if
	var displayItems []displayItemEntry
	if err := load(fsys, DISPLAY_ITEM_FILE, &displayItems); err != nil {
		return nil, err
	} // end if
	textMap := map[string]string{}
	if err := load(fsys, TEXT_MAP_FILE, &textMap); err != nil {
		return nil, err
	} // end if
	setNameHashes := map[uint32]uint64{}
	for _, item := range displayItems {
		if item.DisplayType == DISPLAY_TYPE_RELIQ {
			setNameHashes[item.Param] = item.NameTextMapHash
		} // end if
	} // end for
	types := map[uint32]ArtifactType{}
	for _, r := range reliquaries {
		hash, has := setNameHashes[r.SetID]
		if !has {
			continue
		} // end if
		name, has := textMap[strconv.FormatUint(hash, 10)]
		if !has {
			continue
		} // end if
		types[r.ID] = ArtifactType{SetKey: SetKey(name), SlotKey: SlotKey(r.EquipType), Rarity: r.RankLevel}
	} // end for
	if dropped := len(reliquaries) - len(types); dropped > 0 {
		logrus.Debugf("Dropped %s without a set name", pluralise.WithCountInclusive("template", dropped))
	} // end if
	return types, nil
} // end buildTypes()

func buildMainProps(fsys fs.FS) (map[uint32]string, error) {
	var entries []mainPropEntry
	if err := load(fsys, MAIN_PROP_FILE, &entries); err != nil {
		return nil, err
	} // end if
	props := make(map[uint32]string, len(entries))
	for _, e := range entries {
		props[e.ID] = PropKey(e.PropType)
	} // end for
	return props, nil
} // end buildMainProps()

func buildAffixes(fsys fs.FS) (map[uint32]Substat, error) {
	var entries []affixEntry
	if err := load(fsys, AFFIX_FILE, &entries); err != nil {
		return nil, err
	} // end if
	affixes := make(map[uint32]Substat, len(entries))
	for _, e := range entries {
		key := PropKey(e.PropType)
		value := e.PropValue
		if IsPercentKey(key) {
			value *= 100
		} // end if
		affixes[e.ID] = Substat{Key: key, Value: value}
	} // end for
	return affixes, nil
} // end buildAffixes()

// Build loads the five reference datasets from fsys; any missing or malformed file fails the build.
func Build(fsys fs.FS) (*Tables, error) {
	types, err := buildTypes(fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to build artifact type table: %w", err)
	} // end if
	mainProps, err := buildMainProps(fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to build main stat table: %w", err)
	} // end if
	affixes, err := buildAffixes(fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to build affix table: %w", err)
	} // end if
	logrus.WithField("types", len(types)).WithField("main_props", len(mainProps)).WithField("affixes", len(affixes)).Info("Lookup tables ready")
	return &Tables{Types: types, MainProps: mainProps, Affixes: affixes}, nil
} // end Build()

func (that *Tables) ResolveType(id uint32) (ArtifactType, bool) {
	t, ok := that.Types[id]
	return t, ok
} // end ResolveType()

func (that *Tables) ResolveMainProp(id uint32) (string, bool) {
	p, ok := that.MainProps[id]
	return p, ok
} // end ResolveMainProp()

func (that *Tables) ResolveAffix(id uint32) (Substat, bool) {
	s, ok := that.Affixes[id]
	return s, ok
} // end ResolveAffix()
