package cache

import (
	"errors"
	"time"

	"github.com/datasapiens/cachier"
	ristretto "github.com/dgraph-io/ristretto/v2"
)

var errDropped = errors.New("cache entry dropped")

// MemoryEngine is an admission-controlled in-process cache, it cannot list keys.
type MemoryEngine struct {
	store *ristretto.Cache[string, any]
} // end type

func NewMemoryEngine(counters int64) (*MemoryEngine, error) {
	store, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: counters,
		MaxCost:     1 << 26,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	} // end if
	return &MemoryEngine{store: store}, nil
} // end NewMemoryEngine()

func (that *MemoryEngine) Get(key string) (any, error) {
	val, has := that.store.Get(key)
	if !has {
		return nil, cachier.ErrNotFound
	} // end if
	return markHit(val), nil
} // end Get()

func (that *MemoryEngine) Peek(key string) (any, error) {
	val, has := that.store.Get(key)
	if !has {
		return nil, cachier.ErrNotFound
	} // end if
	return val, nil
} // end Peek()

func (that *MemoryEngine) Set(key string, value any) error {
	ttl := ttlOf(value)
	if ttl <= 0 {
		ttl = 0 * time.Second
	} // end if
	if !that.store.SetWithTTL(key, value, 1, ttl) {
		return errDropped
	} // end if
	that.store.Wait()
	return nil
} // end Set()

func (that *MemoryEngine) Delete(key string) error {
	that.store.Del(key)
	return nil
} // end Delete()

func (that *MemoryEngine) Keys() ([]string, error) {
	return nil, nil
} // end Keys()

func (that *MemoryEngine) Purge() error {
	that.store.Clear()
	return nil
} // end Purge()
