package cache

import (
	"context"
	"encoding/json"

	"github.com/datasapiens/cachier"
	redis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sam80180/stardb-exporter/internal/helper"
	"github.com/sirupsen/logrus"
)

// marks values this process wrapped in ValueWithTTL
var wrapperTag string = uuid.NewString()

type RedisEngine struct {
	rc     *cachier.RedisCache
	client *redis.Client
} // end type

func NewRedisEngine(url string) (*RedisEngine, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	} // end if
	client := redis.NewClient(redisOpts)
	rc := cachier.NewRedisCacheWithLogger(client, "", func(v any) ([]byte, error) {
		return json.Marshal(v)
	}, func(b []byte, v *any) error {
		return json.Unmarshal(b, v)
	}, 0, logrus.StandardLogger(), nil)
	return &RedisEngine{rc: rc, client: client}, nil
} // end NewRedisEngine()

func (that *RedisEngine) Close() error {
	return that.client.Close()
} // end Close()

func (that *RedisEngine) Get(key string) (any, error) {
	val, err := that.rc.Get(key)
	if err != nil {
		return nil, err
	} // end if
	m, ok := val.(map[string]any)
	if !ok {
		return val, nil
	} // end if
	var wrapped ValueWithTTL
	if errDecode := helper.JSONCustomTagUnmarshal(m, "json", nil, &wrapped); errDecode != nil {
		return val, nil
	} // end if
	if tag, has := wrapped.Metadata[wrapperTag]; !has || tag != wrapperTag {
		return val, nil
	} // end if
	delete(wrapped.Metadata, wrapperTag)
	wrapped.Hit = true
	var vv any = wrapped
	return &vv, nil
} // end Get()

func (that *RedisEngine) Peek(key string) (any, error) {
	return that.Get(key)
} // end Peek()

func (that *RedisEngine) Set(key string, value any) error {
	ptr, ok := value.(*any)
	if !ok {
		return that.rc.Set(key, value)
	} // end if
	wrapped, isWrapped := (*ptr).(ValueWithTTL)
	if !isWrapped {
		return that.rc.Set(key, value)
	} // end if
	if wrapped.Metadata == nil {
		wrapped.Metadata = map[string]any{}
	} // end if
	wrapped.Metadata[wrapperTag] = wrapperTag
	b, err := json.Marshal(wrapped)
	if err != nil {
		return err
	} // end if
	return that.client.Set(context.Background(), key, b, wrapped.TTL).Err()
} // end Set()

func (that *RedisEngine) Delete(key string) error {
	return that.rc.Delete(key)
} // end Delete()

func (that *RedisEngine) Keys() ([]string, error) {
	return that.rc.Keys()
} // end Keys()

func (that *RedisEngine) Purge() error {
	return that.rc.Purge()
} // end Purge()
