package preview

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/macropad/internal/store"
)

func newTestModel(t *testing.T) (Model, string) {
	t.Helper()
	dir := t.TempDir()
	records := map[string]string{
		"a.json": `{"name":"Work","macros":{"key1":{"name":"Copy","color":"#FF0000","command":["CONTROL","C",-224,-6]},"key5":{"name":"Vol","command":[["MUTE"]],"tone":440}}}`,
		"b.json": `{"name":"Games","macros":{"key2":{"name":"Jump","command":["hello"]}}}`,
	}
	for name, data := range records {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}
	st, err := store.Load(dir, store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return NewModel(st, time.Second, 1.0), dir
}

func send(m Model, keys ...string) Model {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "shift+tab":
			msg = tea.KeyMsg{Type: tea.KeyShiftTab}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestInitialRender(t *testing.T) {
	m, _ := newTestModel(t)
	if m.Current() == nil || m.Current().Name != "Work" {
		t.Fatalf("current = %v, want Work", m.Current())
	}
	if m.sink.name != "Work" || len(m.sink.labels) != 12 || m.sink.labels[0].Name != "Copy" {
		t.Errorf("display = %q %v", m.sink.name, m.sink.labels)
	}
	view := m.View()
	if !strings.Contains(view, "Copy") || !strings.Contains(view, "Work") {
		t.Errorf("view missing content:\n%s", view)
	}
}

func TestPressFiresKey(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(m, "enter")

	want := []string{"── key1 ──", "press CONTROL", "press C", "release CONTROL", "release C", "release CONTROL", "release C"}
	if got := m.Activity(); !slices.Equal(got, want) {
		t.Errorf("activity = %q\nwant %q", got, want)
	}
}

func TestCursorMovement(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(m, "down", "right", "enter")
	if m.Cursor != 4 {
		t.Fatalf("cursor = %d, want 4", m.Cursor)
	}
	got := m.Activity()
	if !slices.Contains(got, "tone 440Hz for 100ms") || !slices.Contains(got, "consumer MUTE") {
		t.Errorf("activity = %q", got)
	}

	m = send(m, "k", "k", "k", "h", "h", "h")
	if m.Cursor != 0 {
		t.Errorf("cursor = %d, want 0 after clamped moves", m.Cursor)
	}
}

func TestProfileCycling(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(m, "tab")
	if m.Current().Name != "Games" {
		t.Errorf("after tab = %q, want Games", m.Current().Name)
	}
	m = send(m, "tab")
	if m.Current().Name != "Work" {
		t.Errorf("after second tab = %q, want Work", m.Current().Name)
	}
	m = send(m, "shift+tab")
	if m.Current().Name != "Games" || m.sink.name != "Games" {
		t.Errorf("after shift+tab = %q", m.Current().Name)
	}
}

func TestBrightness(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(m, "b", "b")
	if m.sink.brightness != 0.1 {
		t.Errorf("brightness = %v, want 0.1", m.sink.brightness)
	}
}

func TestReloadKeepsSelection(t *testing.T) {
	m, dir := newTestModel(t)
	m = send(m, "tab")

	os.WriteFile(filepath.Join(dir, "0.json"), []byte(`{"name":"Alpha","macros":{}}`), 0644)
	msg := m.reload()()
	next, _ := m.Update(msg)
	m = next.(Model)

	if m.Err != nil {
		t.Fatalf("reload err: %v", m.Err)
	}
	if m.store.Len() != 3 {
		t.Errorf("profiles = %d, want 3", m.store.Len())
	}
	if m.Current().Name != "Games" {
		t.Errorf("current after reload = %q, want Games", m.Current().Name)
	}
	m = send(m, "tab")
	if m.Current().Name != "Alpha" {
		t.Errorf("tab after reload = %q, want Alpha (wraps)", m.Current().Name)
	}
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestSinkActivityIsVerbatim(t *testing.T) {
	s := &sink{}
	s.Press(0x04)
	s.ConsumerPress(0xE2)
	s.Write("100%d")
	want := []string{"press A", "consumer MUTE", `type "100%d"`}
	if !slices.Equal(s.activity, want) {
		t.Errorf("activity = %q, want %q", s.activity, want)
	}
}
