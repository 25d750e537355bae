package cache

import (
	"time"

	"github.com/datasapiens/cachier"
	expirablecache "github.com/go-pkgz/expirable-cache/v3"
)

// LRUEngine keeps at most maxKeys entries in process memory.
type LRUEngine struct {
	store expirablecache.Cache[string, any]
} // end type

func NewLRUEngine(maxKeys int, ttl time.Duration) *LRUEngine {
	c := expirablecache.NewCache[string, any]().WithLRU()
	if maxKeys > 0 {
		c = c.WithMaxKeys(maxKeys)
	} // end if
	if ttl > 0 {
		c = c.WithTTL(ttl)
	} // end if
	return &LRUEngine{store: c}
} // end NewLRUEngine()

func (that *LRUEngine) Get(key string) (any, error) {
	val, has := that.store.Get(key)
	if !has {
		return nil, cachier.ErrNotFound
	} // end if
	return markHit(val), nil
} // end Get()

func (that *LRUEngine) Peek(key string) (any, error) {
	val, has := that.store.Peek(key)
	if !has {
		return nil, cachier.ErrNotFound
	} // end if
	return val, nil
} // end Peek()

func (that *LRUEngine) Set(key string, value any) error {
	that.store.Set(key, value, ttlOf(value))
	return nil
} // end Set()

func (that *LRUEngine) Delete(key string) error {
	that.store.Remove(key)
	return nil
} // end Delete()

func (that *LRUEngine) Keys() ([]string, error) {
	return that.store.Keys(), nil
} // end Keys()

func (that *LRUEngine) Purge() error {
	that.store.Purge()
	return nil
} // end Purge()
