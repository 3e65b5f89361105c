package models

import (
	"fmt"
	"strconv"
	"strings"
)

// NumKeys is the number of physical key slots on the pad.
const NumKeys = 12

// NoTone marks a key without a tone.
const NoTone = -1

// slotPrefix is the record key prefix for key slots ("key1".."key12").
const slotPrefix = "key"

// SlotID returns the record identifier for the zero-based key index.
func SlotID(index int) string {
	return slotPrefix + strconv.Itoa(index+1)
}

// SlotIndex returns the zero-based key index for a record identifier.
// ok is false for anything other than key1..key12.
func SlotIndex(id string) (int, bool) {
	rest, found := strings.CutPrefix(id, slotPrefix)
	if !found || rest == "" || rest[0] == '0' || rest[0] == '+' {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 || n > NumKeys {
		return 0, false
	}
	return n - 1, true
}

// ActionKind discriminates the Action variant
type ActionKind int

const (
	ActionKeyCode ActionKind = iota
	ActionText
	ActionConsumerControls
)

func (k ActionKind) String() string {
	switch k {
	case ActionKeyCode:
		return "keycode"
	case ActionText:
		return "text"
	case ActionConsumerControls:
		return "consumer"
	default:
		return "unknown"
	}
}

// Action is one resolved step of a key macro. Only the fields for Kind are set.
type Action struct {
	Kind ActionKind `json:"kind"`

	// Code is the HID keycode. Negative values release -Code.
	Code int `json:"code,omitempty"`

	// Text is typed verbatim.
	Text string `json:"text,omitempty"`

	// Codes are consumer-control usages issued together.
	Codes []int `json:"codes,omitempty"`
}

// KeyCode returns a keycode action.
func KeyCode(code int) Action { return Action{Kind: ActionKeyCode, Code: code} }

// Text returns a literal text action.
func Text(s string) Action { return Action{Kind: ActionText, Text: s} }

// ConsumerControls returns a consumer-control batch action.
func ConsumerControls(codes ...int) Action {
	if codes == nil {
		codes = []int{}
	}
	return Action{Kind: ActionConsumerControls, Codes: codes}
}

// IsRelease reports whether a keycode action releases its key.
func (a Action) IsRelease() bool {
	return a.Kind == ActionKeyCode && a.Code < 0
}

// Equal compares two actions by value.
func (a Action) Equal(b Action) bool {
	if a.Kind != b.Kind || a.Code != b.Code || a.Text != b.Text || len(a.Codes) != len(b.Codes) {
		return false
	}
	for i := range a.Codes {
		if a.Codes[i] != b.Codes[i] {
			return false
		}
	}
	return true
}

func (a Action) String() string {
	switch a.Kind {
	case ActionKeyCode:
		if a.Code < 0 {
			return fmt.Sprintf("release(%d)", -a.Code)
		}
		return fmt.Sprintf("press(%d)", a.Code)
	case ActionText:
		return strconv.Quote(a.Text)
	case ActionConsumerControls:
		parts := make([]string, len(a.Codes))
		for i, c := range a.Codes {
			parts[i] = fmt.Sprintf("0x%02X", c)
		}
		return "consumer[" + strings.Join(parts, ",") + "]"
	default:
		return "?"
	}
}

// KeyAction is the resolved behavior of one key slot
type KeyAction struct {
	Name    string   `json:"name"`
	Color   uint32   `json:"color"`
	Actions []Action `json:"actions"`
	Sound   string   `json:"sound,omitempty"`
	Tone    int      `json:"tone"`
}

// EmptyKeyAction returns the no-op key used for slots a record leaves out.
func EmptyKeyAction() KeyAction {
	return KeyAction{Actions: []Action{}, Tone: NoTone}
}

// HasTone reports whether the key plays a tone on press.
func (k KeyAction) HasTone() bool { return k.Tone != NoTone }

// ColorHex formats the key color as #RRGGBB.
func (k KeyAction) ColorHex() string {
	return fmt.Sprintf("#%06X", k.Color&0xFFFFFF)
}

// Equal compares two key actions by value.
func (k KeyAction) Equal(o KeyAction) bool {
	if k.Name != o.Name || k.Color != o.Color || k.Sound != o.Sound || k.Tone != o.Tone {
		return false
	}
	if len(k.Actions) != len(o.Actions) {
		return false
	}
	for i := range k.Actions {
		if !k.Actions[i].Equal(o.Actions[i]) {
			return false
		}
	}
	return true
}
