// Package configbinder decodes JSL component properties into typed component configs.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// BindProperties decodes JSL properties (always strings) into target, a pointer to a struct.
// Fields are matched by their `mapstructure` tag. Strings are weakly converted to numbers and
// booleans, and a comma-separated string fills a slice field.
// An empty properties map leaves target untouched, so defaults set by the caller survive.
func BindProperties(props map[string]string, target interface{}) error {
	if len(props) == 0 {
		return nil
	}
	input := make(map[string]interface{}, len(props))
	for k, v := range props {
		input[k] = v
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind properties to struct %s: %w", targetType.Name(), err)
	}
	return nil
}

// DecodeSettings decodes an untyped adapter settings map (as read from YAML) into target,
// matching fields by their `yaml` tag.
func DecodeSettings(settings interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return fmt.Errorf("failed to decode settings: %w", err)
	}
	return nil
}
