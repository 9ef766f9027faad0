// Package wire holds the JSON driver shared by the link and the schema engine.
// Bodies are decoded with goccy/go-json into untyped trees: objects become
// map[string]any, arrays []any and numbers json.Number (go-json aliases the
// encoding/json type) so integer ids keep their exact text.
package wire

import (
	"bytes"
	"fmt"
	"io"

	j "github.com/goccy/go-json"
)

// Number is the type JSON numbers decode to.
type Number = j.Number

// Decode reads a single JSON document from r.
func Decode(r io.Reader) (any, error) {
	dec := j.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

// DecodeBytes is Decode over a byte slice.
func DecodeBytes(b []byte) (any, error) { return Decode(bytes.NewReader(b)) }

// Unmarshal decodes JSON into a typed value.
func Unmarshal(b []byte, v any) error {
	if err := j.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// Marshal encodes a request body.
func Marshal(v any) ([]byte, error) {
	b, err := j.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return b, nil
}

// MarshalIndent is Marshal with two-space indentation, used for CLI output.
func MarshalIndent(v any) ([]byte, error) {
	b, err := j.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return b, nil
}

// Render formats a decoded value the way it appeared on the wire. It is used
// to quote received values in decode error messages, so it never fails:
// values that cannot be encoded fall back to fmt formatting.
func Render(v any) string {
	b, err := j.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
