package cache

import (
	"fmt"
	"reflect"
	"time"

	"github.com/datasapiens/cachier"
)

// ValueWithTTL carries its own expiry through engines that only see `any`.
type ValueWithTTL struct {
	Value    any            `json:"value"`
	TTL      time.Duration  `json:"ttl"`
	Hit      bool           `json:"-"`
	Metadata map[string]any `json:"metadata"`
} // end type

func ttlOf(value any) time.Duration {
	if ptr, ok := value.(*any); ok {
		if v, isWrapped := (*ptr).(ValueWithTTL); isWrapped {
			return v.TTL
		} // end if
	} // end if
	return 0
} // end ttlOf()

func markHit(value any) any {
	if ptr, ok := value.(*any); ok {
		if v, isWrapped := (*ptr).(ValueWithTTL); isWrapped {
			v.Hit = true
			var vv any = v
			return &vv
		} // end if
	} // end if
	return value
} // end markHit()

func UnwrapValueWithTTL[T any](v *any) (castedVal *T, hit bool, errCast error) {
	wrapped, ok := (*v).(ValueWithTTL)
	if !ok {
		return nil, false, fmt.Errorf("not a '%s'", reflect.TypeOf(ValueWithTTL{}))
	} // end if
	hit = wrapped.Hit
	vv, ok := wrapped.Value.(T)
	if !ok {
		var dummy T
		return nil, hit, fmt.Errorf("cannot cast value of type '%s' to '%s'", reflect.TypeOf(wrapped.Value), reflect.TypeOf(dummy))
	} // end if
	return &vv, hit, nil
} // end UnwrapValueWithTTL()

// GetOrComputeValueWithTTL returns the cached value for key, computing and storing it for ttl on a miss.
func GetOrComputeValueWithTTL[T any](c *cachier.Cache[any], key string, getter func() (*any, error), ttl time.Duration) (*T, bool, error) {
	wrappedGetter := func() (*any, error) {
		ptr, err := getter()
		if err != nil {
			return nil, err
		} // end if
		var v any
		if ptr != nil {
			v = *ptr
		} // end if
		var wrapped any = ValueWithTTL{Value: v, TTL: ttl}
		return &wrapped, nil
	}
	ptrVal, err := c.GetOrCompute(key, wrappedGetter)
	if err != nil {
		return nil, false, err
	} // end if
	if ptrVal == nil {
		return nil, false, nil
	} // end if
	return UnwrapValueWithTTL[T](ptrVal)
} // end GetOrComputeValueWithTTL()
