package helper

import (
	"encoding/json"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/hetiansu5/urlquery"
)

func JSONCustomTagUnmarshal[T any](data any, tag string, hook mapstructure.DecodeHookFunc, outVar *T) error {
	decoderConfig := &mapstructure.DecoderConfig{
		Result:           outVar,
		TagName:          tag,
		WeaklyTypedInput: true,
	}
	if hook != nil {
		decoderConfig.DecodeHook = hook
	} // end if
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return err
	} // end if
	return decoder.Decode(data)
} // end JSONCustomTagUnmarshal()

// accepts either "k=v&k2=v2" or {"k": "v", "k2": "v2"}
func UnmarshalQueryOptionsJSON[T any](data []byte, opts *T) error {
	var s any
	if e := json.Unmarshal(data, &s); e != nil {
		return e
	} // end if
	if s == nil {
		return nil
	} // end if
	switch reflect.TypeOf(s).Kind() {
	case reflect.String:
		return urlquery.Unmarshal([]byte(s.(string)), opts)
	case reflect.Map:
		if v, ok := s.(map[string]any); ok {
			return JSONCustomTagUnmarshal(v, "query", nil, opts)
		} // end if
	} // end switch
	return nil
} // end UnmarshalQueryOptionsJSON()
