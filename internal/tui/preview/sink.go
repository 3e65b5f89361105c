package preview

import (
	"fmt"
	"time"

	"github.com/marcus/macropad/internal/device"
	"github.com/marcus/macropad/internal/models"
	"github.com/marcus/macropad/internal/symbol"
)

// maxActivity bounds the activity log.
const maxActivity = 50

// sink stands in for the keypad hardware: it is the display, HID, audio and
// encoder of the device loop, and records what they were asked to do.
type sink struct {
	name       string
	labels     []device.KeyLabel
	brightness float64
	renders    int

	position int
	clicks   int

	activity []string
}

func (s *sink) Show(name string, keys []device.KeyLabel) {
	s.name = name
	s.labels = keys
	s.renders++
}

func (s *sink) SetBrightness(level float64) { s.brightness = level }

func (s *sink) Position() int { return s.position }

func (s *sink) SwitchPressed() bool {
	if s.clicks == 0 {
		return false
	}
	s.clicks--
	return true
}

func (s *sink) log(format string, args ...any) {
	s.activity = append(s.activity, fmt.Sprintf(format, args...))
	if n := len(s.activity); n > maxActivity {
		s.activity = s.activity[n-maxActivity:]
	}
}

func (s *sink) Press(code int) error {
	s.log("%s", symbol.Describe(models.KeyCode(code)))
	return nil
}

func (s *sink) Release(code int) error {
	s.log("%s", symbol.Describe(models.KeyCode(-code)))
	return nil
}

func (s *sink) Write(text string) error {
	s.log("type %q", text)
	return nil
}

func (s *sink) ConsumerPress(code int) error {
	s.log("%s", symbol.Describe(models.ConsumerControls(code)))
	return nil
}

func (s *sink) ConsumerRelease() error { return nil }

func (s *sink) PlayFile(path string) error {
	s.log("play %s", path)
	return nil
}

func (s *sink) PlayTone(freq int, d time.Duration) error {
	s.log("tone %dHz for %s", freq, d)
	return nil
}
