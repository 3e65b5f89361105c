// Package profile implements macro profiles: decoding and validating
// records, resolving them into key actions and persisting one JSON file per
// profile.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/marcus/macropad/internal/models"
	"github.com/marcus/macropad/internal/symbol"
)

// DefaultSoundsDir is prefixed to key sound paths.
const DefaultSoundsDir = "sounds/"

// Options controls how records resolve into key actions.
type Options struct {
	SoundsDir string
}

// DefaultOptions returns the options used by the device.
func DefaultOptions() Options {
	return Options{SoundsDir: DefaultSoundsDir}
}

// Profile is a parsed macro profile. Values are never mutated after
// construction; an update produces a new Profile.
type Profile struct {
	Name string
	Keys [models.NumKeys]models.KeyAction

	// Source is the compacted record the profile was parsed from.
	Source json.RawMessage

	// Path is where the record is persisted; empty for transient profiles.
	Path string
}

// Key returns the key action for a zero-based key index.
func (p *Profile) Key(index int) models.KeyAction {
	if index < 0 || index >= models.NumKeys {
		return models.EmptyKeyAction()
	}
	return p.Keys[index]
}

// Parse resolves a decoded record into a transient profile. Slots missing
// from the record get an empty key action.
func Parse(rec *Record, opts Options) *Profile {
	p := &Profile{Name: rec.Name, Source: rec.Raw}
	for i := range models.NumKeys {
		raw, ok := rec.Macros[models.SlotID(i)]
		if !ok {
			p.Keys[i] = models.EmptyKeyAction()
			continue
		}
		p.Keys[i] = parseKey(raw, opts)
	}
	return p
}

// ParseBytes decodes and parses a record in one step.
func ParseBytes(data []byte, opts Options) (*Profile, error) {
	rec, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Parse(rec, opts), nil
}

// Load reads and parses the profile persisted at path.
func Load(path string, opts Options) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	p, err := ParseBytes(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

func parseKey(raw json.RawMessage, opts Options) models.KeyAction {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		fields = nil
	}

	key := models.KeyAction{
		Name:    field(fields, "name", ""),
		Color:   ParseColor(field(fields, "color", "#000000")),
		Actions: symbol.ResolveAll(commandTokens(fields)),
		Tone:    field(fields, "tone", models.NoTone),
	}
	if sound := field(fields, "sound", ""); sound != "" {
		key.Sound = opts.SoundsDir + sound
	}
	return key
}

// ParseColor parses "#RRGGBB", "0xRRGGBB" or bare hex into a 24-bit color.
// Anything else is black.
func ParseColor(s string) uint32 {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "#"):
		s = s[1:]
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s = s[2:]
	}
	if s == "" {
		return 0
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || v > 0xFFFFFF {
		return 0
	}
	return uint32(v)
}
