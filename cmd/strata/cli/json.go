// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// WriteJSON marshals value as indented JSON and writes it to w. Nil
// slices are written as [] rather than null.
func WriteJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(normalizeNilSlice(value))
}

// WriteJSONLine writes value as compact single-line JSON.
func WriteJSONLine(w io.Writer, value any) error {
	return json.NewEncoder(w).Encode(normalizeNilSlice(value))
}

// ParseValue parses a JSON (comments and trailing commas allowed)
// value from the command line. Integers stay integers, so they are
// stored as CBOR integers rather than floats.
func ParseValue(text string) (any, error) {
	var value any
	if err := yaml.Unmarshal(jsonc.ToJSON([]byte(text)), &value); err != nil {
		return nil, fmt.Errorf("parsing JSON value: %w", err)
	}
	return value, nil
}

// ParseObject parses a JSON object from the command line.
func ParseObject(text string) (map[string]any, error) {
	value, err := ParseValue(text)
	if err != nil {
		return nil, err
	}
	object, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %s", describe(value))
	}
	return object, nil
}

func describe(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case string:
		return "a string"
	default:
		return fmt.Sprintf("%T", value)
	}
}

// normalizeNilSlice returns an empty slice of the same type if value
// is a nil slice, so that JSON serialization produces [] instead of
// null. Returns value unchanged for all other types.
func normalizeNilSlice(value any) any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Slice && v.IsNil() {
		return reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return value
}
