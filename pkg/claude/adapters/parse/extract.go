package parse

import (
	"errors"
	"fmt"

	"github.com/spf13/cast"
)

// ErrMissingField indicates a required field is missing from the data.
var ErrMissingField = errors.New("missing required field")

// ErrInvalidType indicates a field has the wrong type.
var ErrInvalidType = errors.New("invalid field type")

// requiredString extracts a required string field.
func requiredString(data map[string]any, key string) (string, error) {
	val, ok := data[key]
	if !ok || val == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be string, got %T", ErrInvalidType, key, val)
	}

	return str, nil
}

// optionalString extracts a string field, returning "" when absent.
func optionalString(data map[string]any, key string) (string, error) {
	val, ok := data[key]
	if !ok || val == nil {
		return "", nil
	}
	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be string, got %T", ErrInvalidType, key, val)
	}

	return str, nil
}

// stringPtr extracts a nullable string field.
func stringPtr(data map[string]any, key string) (*string, error) {
	val, ok := data[key]
	if !ok || val == nil {
		return nil, nil
	}
	str, ok := val.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be string, got %T", ErrInvalidType, key, val)
	}

	return &str, nil
}

// intField extracts a numeric field. JSON numbers arrive as float64.
func intField(data map[string]any, key string) (int, error) {
	val, ok := data[key]
	if !ok || val == nil {
		return 0, nil
	}
	n, err := cast.ToIntE(val)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidType, key, err)
	}

	return n, nil
}

// intPtr extracts a nullable numeric field.
func intPtr(data map[string]any, key string) (*int, error) {
	val, ok := data[key]
	if !ok || val == nil {
		return nil, nil
	}
	n, err := cast.ToIntE(val)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidType, key, err)
	}

	return &n, nil
}

// floatPtr extracts a nullable floating point field.
func floatPtr(data map[string]any, key string) (*float64, error) {
	val, ok := data[key]
	if !ok || val == nil {
		return nil, nil
	}
	f, err := cast.ToFloat64E(val)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidType, key, err)
	}

	return &f, nil
}

// boolField extracts a boolean field, defaulting to false.
func boolField(data map[string]any, key string) (bool, error) {
	val, ok := data[key]
	if !ok || val == nil {
		return false, nil
	}
	b, err := cast.ToBoolE(val)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrInvalidType, key, err)
	}

	return b, nil
}

// stringSlice extracts a list of strings. Empty lists decode as nil.
func stringSlice(data map[string]any, key string) ([]string, error) {
	val, ok := data[key]
	if !ok || val == nil {
		return nil, nil
	}
	if _, isList := val.([]any); !isList {
		return nil, fmt.Errorf("%w: %s must be array, got %T", ErrInvalidType, key, val)
	}
	out, err := cast.ToStringSliceE(val)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidType, key, err)
	}
	if len(out) == 0 {
		return nil, nil
	}

	return out, nil
}

// mapField extracts an object field. Empty objects decode as nil so that
// an absent map and an empty map are the same value.
func mapField(data map[string]any, key string) (map[string]any, error) {
	val, ok := data[key]
	if !ok || val == nil {
		return nil, nil
	}
	m, ok := val.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be object, got %T", ErrInvalidType, key, val)
	}
	if len(m) == 0 {
		return nil, nil
	}

	return m, nil
}

// objectField extracts an object field and keeps an empty object as an
// empty, non-nil map. It pairs with encoders that omit the key for a nil map.
func objectField(data map[string]any, key string) (map[string]any, error) {
	val, ok := data[key]
	if !ok || val == nil {
		return nil, nil
	}
	m, ok := val.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be object, got %T", ErrInvalidType, key, val)
	}

	return m, nil
}

// listField extracts an array field.
func listField(data map[string]any, key string) ([]any, error) {
	val, ok := data[key]
	if !ok || val == nil {
		return nil, nil
	}
	list, ok := val.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be array, got %T", ErrInvalidType, key, val)
	}

	return list, nil
}

// setObject stores m under key unless m is nil.
func setObject(data map[string]any, key string, m map[string]any) {
	if m != nil {
		data[key] = m
	}
}

// nullable returns nil for a nil string pointer so it encodes as JSON null.
func nullable(s *string) any {
	if s == nil {
		return nil
	}

	return *s
}
