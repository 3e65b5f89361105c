// Package device runs the keypad's main loop: it serves the command
// protocol, follows the encoder, renders the current profile and turns key
// events into HID reports.
package device

import "time"

// ToneDuration is how long a key tone plays.
const ToneDuration = 100 * time.Millisecond

// KeyEvent is a single key transition.
type KeyEvent struct {
	Index   int
	Pressed bool
}

// KeyLabel is what the display shows for one key.
type KeyLabel struct {
	Name  string
	Color uint32
}

// KeySource yields key transitions without blocking.
type KeySource interface {
	PollKey() (KeyEvent, bool)
}

// Encoder is the rotary encoder and its push switch.
type Encoder interface {
	Position() int
	// SwitchPressed reports a press edge since the last call.
	SwitchPressed() bool
}

// HID emits keyboard and consumer-control reports.
type HID interface {
	Press(keycode int) error
	Release(keycode int) error
	Write(text string) error
	ConsumerPress(code int) error
	ConsumerRelease() error
}

// Display renders the current profile and key LEDs.
type Display interface {
	Show(name string, keys []KeyLabel)
	SetBrightness(level float64)
}

// Audio plays key feedback.
type Audio interface {
	PlayFile(path string) error
	PlayTone(freq int, d time.Duration) error
}

// nop satisfies every collaborator and does nothing.
type nop struct{}

func (nop) PollKey() (KeyEvent, bool) { return KeyEvent{}, false }
func (nop) Position() int { return 0 }
func (nop) SwitchPressed() bool { return false }
func (nop) Press(int) error { return nil }
func (nop) Release(int) error { return nil }
func (nop) Write(string) error { return nil }
func (nop) ConsumerPress(int) error { return nil }
func (nop) ConsumerRelease() error { return nil }
func (nop) Show(string, []KeyLabel) {}
func (nop) SetBrightness(float64) {}
func (nop) PlayFile(string) error { return nil }
func (nop) PlayTone(int, time.Duration) error { return nil }
