package cache

import (
	"fmt"

	"github.com/datasapiens/cachier"
	"github.com/hetiansu5/urlquery"
	"github.com/sam80180/stardb-exporter/internal/helper"
	log "github.com/sirupsen/logrus"
)

const (
	ENGINE_MEMORY = "memory"
	ENGINE_LRU    = "lru"
	ENGINE_REDIS  = "redis"

	DEFAULT_MAX_KEYS int = 1024
)

// CacheOptions is written as a query string, e.g. "type=redis&url=redis://localhost:6379/0".
type CacheOptions struct {
	Type    string `query:"type" validate:"required,oneof=memory lru redis"`
	MaxKeys int    `query:"max_keys" validate:"gte=0"`
	URL     string `query:"url" validate:"required_if=Type redis" mask:"zero"`
} // end type

func DefaultCacheOptions() CacheOptions {
	return CacheOptions{Type: ENGINE_MEMORY, MaxKeys: DEFAULT_MAX_KEYS}
} // end DefaultCacheOptions()

func (that *CacheOptions) QueryEncode() []byte {
	b, _ := urlquery.Marshal(that)
	return b
} // end QueryEncode()

func (that *CacheOptions) String() string {
	return string(that.QueryEncode())
} // end String()

func (that *CacheOptions) Set(s string) error {
	return urlquery.Unmarshal([]byte(s), that)
} // end Set()

func (that *CacheOptions) UnmarshalJSON(data []byte) error {
	return helper.UnmarshalQueryOptionsJSON(data, that)
} // end UnmarshalJSON()

func NewEngine(opts CacheOptions) (cachier.CacheEngine, error) {
	if err := helper.Validate(opts); err != nil {
		return nil, err
	} // end if
	switch opts.Type {
	case ENGINE_MEMORY:
		counters := int64(opts.MaxKeys) * 10
		if counters <= 0 {
			counters = int64(DEFAULT_MAX_KEYS) * 10
		} // end if
		return NewMemoryEngine(counters)
	case ENGINE_LRU:
		return NewLRUEngine(opts.MaxKeys, 0), nil
	case ENGINE_REDIS:
		return NewRedisEngine(opts.URL)
	} // end switch
	return nil, fmt.Errorf("unknown cache type '%s'", opts.Type)
} // end NewEngine()

func New(opts CacheOptions) (*cachier.Cache[any], error) {
	engine, err := NewEngine(opts)
	if err != nil {
		return nil, err
	} // end if
	log.WithField("type", opts.Type).Debug("Cache ready")
	return cachier.MakeCache[any](engine, log.StandardLogger()), nil
} // end New()
