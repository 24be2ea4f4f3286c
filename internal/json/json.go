// Package json wraps the JSON codec used across the application so the
// implementation can be swapped in one place. sonic is API-compatible
// with encoding/json for the subset used here.
package json

import "github.com/bytedance/sonic"

// Marshal encodes v as JSON.
func Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

// MarshalString encodes v as a JSON string.
func MarshalString(v any) (string, error) {
	return sonic.MarshalString(v)
}

// UnmarshalString decodes a JSON string into v.
func UnmarshalString(data string, v any) error {
	return sonic.UnmarshalString(data, v)
}
