// Package codec converts radio payload text to records and back.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/speedwagon-io/loragw/internal/model"
)

var ErrMalformed = errors.New("malformed payload")

// Parse decodes a JSON object. Numbers stay json.Number so sender values
// are re-encoded exactly as received.
func Parse(raw []byte) (model.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", ErrMalformed)
	}

	obj, ok := root.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: root is %s, not an object", ErrMalformed, kindOf(root))
	}

	return model.Record(obj), nil
}

// Serialize encodes rec with sorted keys and without HTML escaping.
func Serialize(rec model.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(map[string]any(rec)); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
