package device

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/marcus/macropad/internal/models"
)

// LogHID records HID reports in the log instead of emitting them.
type LogHID struct{ Logger *slog.Logger }

func (h LogHID) Press(keycode int) error {
	h.Logger.Info("hid press", "keycode", keycode)
	return nil
}

func (h LogHID) Release(keycode int) error {
	h.Logger.Info("hid release", "keycode", keycode)
	return nil
}

func (h LogHID) Write(text string) error {
	h.Logger.Info("hid write", "text", text)
	return nil
}

func (h LogHID) ConsumerPress(code int) error {
	h.Logger.Info("hid consumer press", "code", fmt.Sprintf("0x%02X", code))
	return nil
}

func (h LogHID) ConsumerRelease() error {
	h.Logger.Debug("hid consumer release")
	return nil
}

// LogDisplay logs what would be rendered.
type LogDisplay struct{ Logger *slog.Logger }

func (d LogDisplay) Show(name string, keys []KeyLabel) {
	labels := make([]string, 0, len(keys))
	for _, k := range keys {
		labels = append(labels, k.Name)
	}
	d.Logger.Info("display", "profile", name, "keys", strings.Join(labels, "|"))
}

func (d LogDisplay) SetBrightness(level float64) {
	d.Logger.Info("brightness", "level", level)
}

// LogAudio logs sounds and tones.
type LogAudio struct{ Logger *slog.Logger }

func (a LogAudio) PlayFile(path string) error {
	a.Logger.Info("play file", "path", path)
	return nil
}

func (a LogAudio) PlayTone(freq int, d time.Duration) error {
	a.Logger.Info("play tone", "freq", freq, "duration", d)
	return nil
}

// Sim is a KeySource and Encoder driven by text lines:
//
//	press 3     key3 down
//	release 3   key3 up
//	tap 3       down then up
//	turn -1     rotate the encoder by a detent count
//	click       press the encoder switch
//
// Key numbers are 1-based like slot ids.
type Sim struct {
	logger *slog.Logger
	events chan KeyEvent

	mu       sync.Mutex
	position int
	clicks   int
	done     chan struct{}
}

// NewSim starts reading commands from r.
func NewSim(r io.Reader, logger *slog.Logger) *Sim {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sim{
		logger: logger,
		events: make(chan KeyEvent, 64),
		done:   make(chan struct{}),
	}
	go s.read(r)
	return s
}

// Done is closed when the input is exhausted.
func (s *Sim) Done() <-chan struct{} { return s.done }

func (s *Sim) read(r io.Reader) {
	defer close(s.done)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := s.apply(line); err != nil {
			s.logger.Warn("sim input", "line", line, "err", err)
		}
	}
	if err := sc.Err(); err != nil {
		s.logger.Warn("sim input", "err", err)
	}
}

func (s *Sim) apply(line string) error {
	fields := strings.Fields(line)
	verb := strings.ToLower(fields[0])

	switch verb {
	case "click":
		s.mu.Lock()
		s.clicks++
		s.mu.Unlock()
		return nil
	case "turn":
		delta := 1
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("bad detent count %q", fields[1])
			}
			delta = n
		}
		s.mu.Lock()
		s.position += delta
		s.mu.Unlock()
		return nil
	case "press", "release", "tap":
		if len(fields) < 2 {
			return fmt.Errorf("%s needs a key number", verb)
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 || n > models.NumKeys {
			return fmt.Errorf("key must be 1..%d", models.NumKeys)
		}
		idx := n - 1
		switch verb {
		case "press":
			s.events <- KeyEvent{Index: idx, Pressed: true}
		case "release":
			s.events <- KeyEvent{Index: idx}
		default:
			s.events <- KeyEvent{Index: idx, Pressed: true}
			s.events <- KeyEvent{Index: idx}
		}
		return nil
	}
	return fmt.Errorf("unknown command %q", verb)
}

// PollKey returns the next queued key event without blocking.
func (s *Sim) PollKey() (KeyEvent, bool) {
	select {
	case ev := <-s.events:
		return ev, true
	default:
		return KeyEvent{}, false
	}
}

// Position returns the accumulated encoder position.
func (s *Sim) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// SwitchPressed consumes one pending click.
func (s *Sim) SwitchPressed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clicks == 0 {
		return false
	}
	s.clicks--
	return true
}
