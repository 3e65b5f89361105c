package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/marcus/macropad/internal/models"
)

// Errors reported by profile operations. Callers match them with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrAlreadyExists  = errors.New("already exists")
)

// Record is a decoded, validated profile record.
type Record struct {
	Name   string
	Macros map[string]json.RawMessage

	// Raw is the compacted source document.
	Raw json.RawMessage
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPayload, fmt.Sprintf(format, args...))
}

// Decode parses and validates a profile record. The record must be an object
// with a string "name" and an object "macros" keyed only by key1..key12.
// Every failure wraps ErrInvalidPayload.
func Decode(data []byte) (*Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, invalid("record is not a JSON object")
	}

	rawName, ok := fields["name"]
	if !ok {
		return nil, invalid("missing name")
	}
	var name string
	if err := json.Unmarshal(rawName, &name); err != nil || isNull(rawName) {
		return nil, invalid("name must be a string")
	}

	rawMacros, ok := fields["macros"]
	if !ok {
		return nil, invalid("missing macros")
	}
	var macros map[string]json.RawMessage
	if err := json.Unmarshal(rawMacros, &macros); err != nil || macros == nil {
		return nil, invalid("macros must be an object")
	}

	slots := make([]string, 0, len(macros))
	for id := range macros {
		slots = append(slots, id)
	}
	sort.Strings(slots)
	for _, id := range slots {
		if _, ok := models.SlotIndex(id); !ok {
			return nil, invalid("unrecognized key slot %q", id)
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return nil, invalid("record is not a JSON object")
	}

	return &Record{Name: name, Macros: macros, Raw: compact.Bytes()}, nil
}

// Validate reports whether data is a valid profile record.
func Validate(data []byte) bool {
	_, err := Decode(data)
	return err == nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// field decodes an optional record field, returning def when the field is
// absent, null or of the wrong type.
func field[T any](fields map[string]json.RawMessage, key string, def T) T {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return def
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return def
	}
	return v
}

// commandTokens returns the "command" field as a token list. A scalar
// command is treated as a single token.
func commandTokens(fields map[string]json.RawMessage) []json.RawMessage {
	raw, ok := fields["command"]
	if !ok || isNull(raw) {
		return nil
	}
	var tokens []json.RawMessage
	if err := json.Unmarshal(raw, &tokens); err == nil {
		return tokens
	}
	return []json.RawMessage{raw}
}
