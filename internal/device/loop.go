package device

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/marcus/macropad/internal/models"
	"github.com/marcus/macropad/internal/profile"
	"github.com/marcus/macropad/internal/protocol"
	"github.com/marcus/macropad/internal/store"
)

// DefaultPollInterval is the loop period.
const DefaultPollInterval = 5 * time.Millisecond

// brightnessSteps is the number of brightness levels, 0.0 through 1.0.
const brightnessSteps = 11

// Loop owns the current-profile selection and drives the collaborators.
// All methods must be called from a single goroutine.
type Loop struct {
	store  *store.Store
	server *protocol.Server
	sel    store.Selection

	keys    KeySource
	encoder Encoder
	hid     HID
	display Display
	audio   Audio

	logger   *slog.Logger
	interval time.Duration
	observe  func(*store.Store)

	brightness int
	lastPos    int

	rendered    *profile.Profile
	renderedRev uint64
	hasRendered bool
}

// Option configures a Loop.
type Option func(*Loop)

func WithKeySource(k KeySource) Option { return func(l *Loop) { l.keys = k } }
func WithEncoder(e Encoder) Option { return func(l *Loop) { l.encoder = e } }
func WithHID(h HID) Option { return func(l *Loop) { l.hid = h } }
func WithDisplay(d Display) Option { return func(l *Loop) { l.display = d } }
func WithAudio(a Audio) Option { return func(l *Loop) { l.audio = a } }
func WithLogger(lg *slog.Logger) Option {
	return func(l *Loop) { l.logger = lg }
}

// WithPollInterval sets the Run period.
func WithPollInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithBrightness sets the initial LED brightness, rounded to tenths.
func WithBrightness(level float64) Option {
	return func(l *Loop) {
		l.brightness = int(math.Round(math.Max(0, math.Min(1, level)) * 10))
	}
}

// WithObserver registers fn to run after every re-render.
func WithObserver(fn func(*store.Store)) Option {
	return func(l *Loop) { l.observe = fn }
}

// New builds a loop over st. srv may be nil for a loop without a command
// channel.
func New(st *store.Store, srv *protocol.Server, opts ...Option) *Loop {
	l := &Loop{
		store:      st,
		server:     srv,
		keys:       nop{},
		encoder:    nop{},
		hid:        nop{},
		display:    nop{},
		audio:      nop{},
		logger:     slog.Default(),
		interval:   DefaultPollInterval,
		brightness: brightnessSteps - 1,
	}
	for _, o := range opts {
		o(l)
	}
	l.lastPos = l.encoder.Position()
	l.display.SetBrightness(l.Brightness())
	return l
}

// Current returns the selected profile, or nil when the store is empty.
func (l *Loop) Current() *profile.Profile { return l.sel.Current(l.store) }

// Selection exposes the cursor for callers sharing the loop goroutine.
func (l *Loop) Selection() *store.Selection { return &l.sel }

// Brightness returns the LED brightness in [0,1].
func (l *Loop) Brightness() float64 { return float64(l.brightness) / 10 }

// Run steps the loop every poll interval until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Info("device loop started", "profiles", l.store.Len(), "interval", l.interval)
	for {
		l.Step()
		select {
		case <-ctx.Done():
			l.logger.Info("device loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Step runs one iteration: one protocol poll, the encoder, rendering and at
// most one key event.
func (l *Loop) Step() {
	if l.server != nil {
		l.server.Poll(&l.sel)
	}
	l.pollEncoder()
	l.render()
	if ev, ok := l.keys.PollKey(); ok {
		l.HandleKey(ev)
	}
}

func (l *Loop) pollEncoder() {
	if pos := l.encoder.Position(); pos != l.lastPos {
		l.lastPos = pos
		l.sel.Wrap(l.store, pos)
		l.logger.Debug("encoder moved", "position", pos, "profile", l.sel.CurrentName(l.store))
	}
	if l.encoder.SwitchPressed() {
		l.brightness = (l.brightness + 1) % brightnessSteps
		l.display.SetBrightness(l.Brightness())
		l.logger.Debug("brightness changed", "level", l.Brightness())
	}
}

func (l *Loop) render() {
	cur := l.sel.Current(l.store)
	rev := l.store.Revision()
	if l.hasRendered && cur == l.rendered && rev == l.renderedRev {
		return
	}
	l.rendered, l.renderedRev, l.hasRendered = cur, rev, true

	labels := make([]KeyLabel, models.NumKeys)
	name := ""
	if cur != nil {
		name = cur.Name
		for i := range models.NumKeys {
			k := cur.Key(i)
			labels[i] = KeyLabel{Name: k.Name, Color: k.Color}
		}
	}
	l.display.Show(name, labels)
	if l.observe != nil {
		l.observe(l.store)
	}
}

// HandleKey dispatches a key transition against the current profile.
func (l *Loop) HandleKey(ev KeyEvent) {
	if ev.Index < 0 || ev.Index >= models.NumKeys {
		return
	}
	cur := l.sel.Current(l.store)
	if cur == nil {
		return
	}
	key := cur.Key(ev.Index)
	if ev.Pressed {
		l.press(key)
	} else {
		l.release(key)
	}
}

func (l *Loop) press(key models.KeyAction) {
	if key.Sound != "" {
		l.check("play file", l.audio.PlayFile(key.Sound))
	}
	if key.HasTone() {
		l.check("play tone", l.audio.PlayTone(key.Tone, ToneDuration))
	}
	for _, a := range key.Actions {
		switch a.Kind {
		case models.ActionKeyCode:
			if a.IsRelease() {
				l.check("release", l.hid.Release(-a.Code))
			} else {
				l.check("press", l.hid.Press(a.Code))
			}
		case models.ActionText:
			l.check("write", l.hid.Write(a.Text))
		case models.ActionConsumerControls:
			for _, code := range a.Codes {
				l.check("consumer release", l.hid.ConsumerRelease())
				l.check("consumer press", l.hid.ConsumerPress(code))
			}
		}
	}
}

func (l *Loop) release(key models.KeyAction) {
	for _, a := range key.Actions {
		if a.Kind == models.ActionKeyCode && !a.IsRelease() {
			l.check("release", l.hid.Release(a.Code))
		}
	}
	l.check("consumer release", l.hid.ConsumerRelease())
}

func (l *Loop) check(op string, err error) {
	if err != nil {
		l.logger.Warn("collaborator failed", "op", op, "err", err)
	}
}
