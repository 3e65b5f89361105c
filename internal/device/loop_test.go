package device

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/marcus/macropad/internal/protocol"
	"github.com/marcus/macropad/internal/store"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type recorder struct{ calls []string }

func (r *recorder) add(format string, args ...any) { r.calls = append(r.calls, fmt.Sprintf(format, args...)) }

func (r *recorder) Press(k int) error         { r.add("press %d", k); return nil }
func (r *recorder) Release(k int) error       { r.add("release %d", k); return nil }
func (r *recorder) Write(s string) error      { r.add("write %s", s); return nil }
func (r *recorder) ConsumerPress(c int) error { r.add("cpress %d", c); return nil }
func (r *recorder) ConsumerRelease() error    { r.add("crelease"); return nil }
func (r *recorder) PlayFile(p string) error   { r.add("file %s", p); return nil }
func (r *recorder) PlayTone(f int, d time.Duration) error {
	r.add("tone %d %s", f, d)
	return nil
}

type fakeDisplay struct {
	shows      []string
	labels     []KeyLabel
	brightness []float64
}

func (d *fakeDisplay) Show(name string, keys []KeyLabel) {
	d.shows = append(d.shows, name)
	d.labels = keys
}

func (d *fakeDisplay) SetBrightness(v float64) { d.brightness = append(d.brightness, v) }

type fakeEncoder struct {
	pos    int
	clicks int
}

func (e *fakeEncoder) Position() int { return e.pos }
func (e *fakeEncoder) SwitchPressed() bool {
	if e.clicks == 0 {
		return false
	}
	e.clicks--
	return true
}

type fakeKeys struct{ events []KeyEvent }

func (k *fakeKeys) PollKey() (KeyEvent, bool) {
	if len(k.events) == 0 {
		return KeyEvent{}, false
	}
	ev := k.events[0]
	k.events = k.events[1:]
	return ev, true
}

type fakeTransport struct {
	in  [][]byte
	out []string
}

func (t *fakeTransport) Poll() ([]byte, bool) {
	if len(t.in) == 0 {
		return nil, false
	}
	f := t.in[0]
	t.in = t.in[1:]
	return f, true
}

func (t *fakeTransport) WriteFrame(f []byte) error {
	t.out = append(t.out, string(f))
	return nil
}

const workRecord = `{"name":"Work","macros":{
	"key1":{"name":"Copy","color":"#FF0000","command":["LEFT_CONTROL","C",-224,-6],"sound":"beep.wav","tone":440},
	"key2":{"name":"Vol+","command":[["VOLUME_INCREMENT","NOPE","MUTE"]]},
	"key3":{"name":"Hi","command":["hello"]}
}}`

func loadStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"a-work.json":  workRecord,
		"b-games.json": `{"name":"Games","macros":{"key12":{"name":"Jump","color":"0x00FF00"}}}`,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}
	st, err := store.Load(dir, store.WithLogger(quiet))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return st
}

type harness struct {
	loop    *Loop
	hid     *recorder
	display *fakeDisplay
	encoder *fakeEncoder
	keys    *fakeKeys
	tr      *fakeTransport
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		hid:     &recorder{},
		display: &fakeDisplay{},
		encoder: &fakeEncoder{},
		keys:    &fakeKeys{},
		tr:      &fakeTransport{},
	}
	st := loadStore(t)
	srv := protocol.NewServer(h.tr, st, protocol.WithLogger(quiet))
	h.loop = New(st, srv,
		WithKeySource(h.keys),
		WithEncoder(h.encoder),
		WithHID(h.hid),
		WithAudio(h.hid),
		WithDisplay(h.display),
		WithLogger(quiet))
	return h
}

func TestPressDispatchesActionsInOrder(t *testing.T) {
	h := newHarness(t)
	h.keys.events = []KeyEvent{{Index: 0, Pressed: true}}
	h.loop.Step()

	want := []string{
		"file sounds/beep.wav",
		"tone 440 100ms",
		"press 224",
		"press 6",
		"release 224",
		"release 6",
	}
	if !slices.Equal(h.hid.calls, want) {
		t.Errorf("calls = %v\nwant %v", h.hid.calls, want)
	}
}

func TestReleaseReleasesPressedKeys(t *testing.T) {
	h := newHarness(t)
	h.keys.events = []KeyEvent{{Index: 0}}
	h.loop.Step()

	want := []string{"release 224", "release 6", "crelease"}
	if !slices.Equal(h.hid.calls, want) {
		t.Errorf("calls = %v, want %v", h.hid.calls, want)
	}
}

func TestConsumerControlsAndText(t *testing.T) {
	h := newHarness(t)
	h.keys.events = []KeyEvent{{Index: 1, Pressed: true}, {Index: 2, Pressed: true}}
	h.loop.Step()
	h.loop.Step()

	want := []string{"crelease", "cpress 233", "crelease", "cpress 226", "write hello"}
	if !slices.Equal(h.hid.calls, want) {
		t.Errorf("calls = %v, want %v", h.hid.calls, want)
	}
}

func TestOutOfRangeKeysIgnored(t *testing.T) {
	h := newHarness(t)
	h.loop.HandleKey(KeyEvent{Index: 12, Pressed: true})
	h.loop.HandleKey(KeyEvent{Index: -1, Pressed: true})
	if len(h.hid.calls) != 0 {
		t.Errorf("calls = %v, want none", h.hid.calls)
	}
}

func TestEncoderSelectsProfile(t *testing.T) {
	h := newHarness(t)
	h.loop.Step()
	if got := h.loop.Current().Name; got != "Work" {
		t.Fatalf("initial profile = %q, want Work", got)
	}

	h.encoder.pos = 3
	h.loop.Step()
	if got := h.loop.Current().Name; got != "Games" {
		t.Errorf("after turn profile = %q, want Games", got)
	}

	h.encoder.pos = -2
	h.loop.Step()
	if got := h.loop.Current().Name; got != "Work" {
		t.Errorf("after negative turn profile = %q, want Work", got)
	}
}

func TestEncoderDoesNotOverrideCommandSelection(t *testing.T) {
	h := newHarness(t)
	h.tr.in = [][]byte{[]byte(`{"code":3,"payload":"Games"}`)}
	h.loop.Step()
	h.loop.Step()
	if got := h.loop.Current().Name; got != "Games" {
		t.Errorf("profile = %q, want Games", got)
	}
}

func TestRenderOnlyOnChange(t *testing.T) {
	h := newHarness(t)
	h.loop.Step()
	h.loop.Step()
	if len(h.display.shows) != 1 || h.display.shows[0] != "Work" {
		t.Fatalf("shows = %v, want [Work]", h.display.shows)
	}
	if len(h.display.labels) != 12 || h.display.labels[0].Name != "Copy" || h.display.labels[0].Color != 0xFF0000 {
		t.Errorf("labels[0] = %+v", h.display.labels[0])
	}

	h.tr.in = [][]byte{[]byte(`{"code":6,"payload":{"name":"Work","macros":{"key1":{"name":"Paste"}}}}`)}
	h.loop.Step()
	if len(h.display.shows) != 2 {
		t.Fatalf("shows = %v, want re-render after update", h.display.shows)
	}
	if h.display.labels[0].Name != "Paste" {
		t.Errorf("label after update = %q, want Paste", h.display.labels[0].Name)
	}
	if len(h.tr.out) != 1 || !strings.Contains(h.tr.out[0], `"status":"success"`) {
		t.Errorf("responses = %v", h.tr.out)
	}
}

func TestBrightnessCycles(t *testing.T) {
	h := newHarness(t)
	if got := h.loop.Brightness(); got != 1.0 {
		t.Fatalf("initial brightness = %v, want 1", got)
	}
	h.encoder.clicks = 2
	h.loop.Step()
	if got := h.loop.Brightness(); got != 0.0 {
		t.Errorf("brightness after click = %v, want 0", got)
	}
	h.loop.Step()
	if got := h.loop.Brightness(); got != 0.1 {
		t.Errorf("brightness after second click = %v, want 0.1", got)
	}
}

func TestEmptyStore(t *testing.T) {
	st := store.New(t.TempDir(), store.WithLogger(quiet))
	d := &fakeDisplay{}
	hid := &recorder{}
	l := New(st, nil, WithDisplay(d), WithHID(hid), WithLogger(quiet))
	l.Step()
	l.HandleKey(KeyEvent{Index: 0, Pressed: true})

	if len(d.shows) != 1 || d.shows[0] != "" {
		t.Errorf("shows = %v, want one blank render", d.shows)
	}
	if len(hid.calls) != 0 {
		t.Errorf("calls = %v, want none", hid.calls)
	}
}

func TestSimInput(t *testing.T) {
	sim := NewSim(strings.NewReader("press 3\n# comment\nturn -2\nclick\nbogus\ntap 12\nrelease 0\n"), quiet)
	select {
	case <-sim.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("sim did not finish")
	}

	var got []KeyEvent
	for {
		ev, ok := sim.PollKey()
		if !ok {
			break
		}
		got = append(got, ev)
	}
	want := []KeyEvent{{Index: 2, Pressed: true}, {Index: 11, Pressed: true}, {Index: 11}}
	if !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if sim.Position() != -2 {
		t.Errorf("position = %d, want -2", sim.Position())
	}
	if !sim.SwitchPressed() || sim.SwitchPressed() {
		t.Error("expected exactly one click")
	}
}
