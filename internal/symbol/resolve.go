// Package symbol turns the action tokens of a key record into resolved
// actions: HID keycodes, consumer-control batches or literal text.
package symbol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/marcus/macropad/internal/models"
)

// Keycode looks up a keyboard symbol such as "A" or "LEFT_CONTROL".
func Keycode(name string) (int, bool) {
	code, ok := keycodes[name]
	return code, ok
}

// ConsumerCode looks up a consumer-control symbol such as "VOLUME_INCREMENT".
func ConsumerCode(name string) (int, bool) {
	code, ok := consumerCodes[name]
	return code, ok
}

// KeycodeNames returns every keyboard symbol, sorted.
func KeycodeNames() []string {
	return slices.Sorted(maps.Keys(keycodes))
}

// ConsumerNames returns every consumer-control symbol, sorted.
func ConsumerNames() []string {
	return slices.Sorted(maps.Keys(consumerCodes))
}

// ResolveName resolves a single string token: keycode first, then consumer
// control, then literal text.
func ResolveName(name string) models.Action {
	if code, ok := Keycode(name); ok {
		return models.KeyCode(code)
	}
	if code, ok := ConsumerCode(name); ok {
		return models.ConsumerControls(code)
	}
	return models.Text(name)
}

// ResolveList resolves each name as a consumer control. Names that do not
// resolve are dropped.
func ResolveList(names []string) models.Action {
	codes := make([]int, 0, len(names))
	for _, name := range names {
		if code, ok := ConsumerCode(name); ok {
			codes = append(codes, code)
		}
	}
	return models.ConsumerControls(codes...)
}

// Resolve turns one raw JSON token into an action. It never fails: integers
// are keycodes (negative = release), strings resolve by name, lists are
// consumer-control batches and anything else is typed as literal text.
func Resolve(token json.RawMessage) models.Action {
	raw := bytes.TrimSpace(token)
	if len(raw) == 0 {
		return models.Text("")
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return ResolveName(s)
		}
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err == nil {
			names := make([]string, 0, len(elems))
			for _, e := range elems {
				var s string
				if json.Unmarshal(e, &s) == nil {
					names = append(names, s)
				}
			}
			return ResolveList(names)
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var n json.Number
		if err := dec.Decode(&n); err == nil && !strings.ContainsAny(n.String(), ".eE") {
			if code, err := n.Int64(); err == nil {
				return models.KeyCode(int(code))
			}
		}
	}

	return models.Text(string(raw))
}

// ResolveAll resolves a command list in order.
func ResolveAll(tokens []json.RawMessage) []models.Action {
	actions := make([]models.Action, 0, len(tokens))
	for _, t := range tokens {
		actions = append(actions, Resolve(t))
	}
	return actions
}

var (
	keycodeNames  = reverse(keycodes)
	consumerNames = reverse(consumerCodes)
)

// reverse maps each code to its shortest symbol, alphabetically first on ties.
func reverse(table map[string]int) map[int]string {
	out := make(map[int]string, len(table))
	for name, code := range table {
		cur, ok := out[code]
		if !ok || len(name) < len(cur) || (len(name) == len(cur) && name < cur) {
			out[code] = name
		}
	}
	return out
}

// KeycodeName returns a symbol for a keyboard code.
func KeycodeName(code int) (string, bool) {
	name, ok := keycodeNames[code]
	return name, ok
}

// ConsumerName returns a symbol for a consumer-control code.
func ConsumerName(code int) (string, bool) {
	name, ok := consumerNames[code]
	return name, ok
}

// Describe renders an action with symbol names where they are known.
func Describe(a models.Action) string {
	switch a.Kind {
	case models.ActionKeyCode:
		code, verb := a.Code, "press"
		if a.IsRelease() {
			code, verb = -a.Code, "release"
		}
		if name, ok := KeycodeName(code); ok {
			return verb + " " + name
		}
		return a.String()
	case models.ActionConsumerControls:
		parts := make([]string, len(a.Codes))
		for i, c := range a.Codes {
			if name, ok := ConsumerName(c); ok {
				parts[i] = name
			} else {
				parts[i] = fmt.Sprintf("0x%02X", c)
			}
		}
		return "consumer " + strings.Join(parts, "+")
	}
	return a.String()
}
