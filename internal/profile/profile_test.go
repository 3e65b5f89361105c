package profile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/marcus/macropad/internal/models"
)

const workRecord = `{
  "name": "Work",
  "macros": {
    "key1": {"name": "Copy", "color": "#00FF00", "command": ["CONTROL", "C", -224, -6]},
    "key3": {"name": "Vol+", "command": [["VOLUME_INCREMENT"]], "sound": "beep.wav", "tone": 440},
    "key12": {"name": "Hi", "color": "0x0000ff", "command": ["hello"]}
  }
}`

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{"full record", workRecord, true},
		{"empty macros", `{"name":"Empty","macros":{}}`, true},
		{"all slots", `{"name":"x","macros":{"key1":{},"key2":{},"key3":{},"key4":{},"key5":{},"key6":{},"key7":{},"key8":{},"key9":{},"key10":{},"key11":{},"key12":{}}}`, true},
		{"missing name", `{"macros":{}}`, false},
		{"missing macros", `{"name":"x"}`, false},
		{"unknown slot", `{"name":"x","macros":{"key1":{},"key13":{}}}`, false},
		{"zero slot", `{"name":"x","macros":{"key0":{}}}`, false},
		{"padded slot", `{"name":"x","macros":{"key01":{}}}`, false},
		{"macros array", `{"name":"x","macros":[]}`, false},
		{"macros null", `{"name":"x","macros":null}`, false},
		{"name number", `{"name":5,"macros":{}}`, false},
		{"name null", `{"name":null,"macros":{}}`, false},
		{"not json", `{"name": "x", "macros": {`, false},
		{"array", `[1,2]`, false},
		{"string", `"Work"`, false},
		{"empty", ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate([]byte(tt.data)); got != tt.want {
				t.Errorf("Validate(%s) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

func TestDecodeErrorsWrapInvalidPayload(t *testing.T) {
	_, err := Decode([]byte(`{"name":"x","macros":{"bogus":{}}}`))
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestParseAlwaysYieldsAllSlots(t *testing.T) {
	for _, data := range []string{
		`{"name":"none","macros":{}}`,
		`{"name":"one","macros":{"key5":{"name":"Five"}}}`,
		workRecord,
	} {
		p, err := ParseBytes([]byte(data), DefaultOptions())
		if err != nil {
			t.Fatalf("ParseBytes failed: %v", err)
		}
		if len(p.Keys) != models.NumKeys {
			t.Fatalf("got %d keys, want %d", len(p.Keys), models.NumKeys)
		}
		for i, k := range p.Keys {
			if _, present := mustDecode(t, data).Macros[models.SlotID(i)]; !present && !k.Equal(models.EmptyKeyAction()) {
				t.Errorf("slot %d of %s: expected empty key, got %+v", i, p.Name, k)
			}
		}
	}
}

func TestParseResolvesKeys(t *testing.T) {
	p, err := ParseBytes([]byte(workRecord), DefaultOptions())
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}
	if p.Name != "Work" {
		t.Errorf("Name = %q, want Work", p.Name)
	}

	copyKey := p.Key(0)
	if copyKey.Name != "Copy" || copyKey.Color != 0x00FF00 {
		t.Errorf("key1 = %+v", copyKey)
	}
	want := []models.Action{models.KeyCode(0xE0), models.KeyCode(0x06), models.KeyCode(-224), models.KeyCode(-6)}
	if len(copyKey.Actions) != len(want) {
		t.Fatalf("key1 actions = %v, want %v", copyKey.Actions, want)
	}
	for i := range want {
		if !copyKey.Actions[i].Equal(want[i]) {
			t.Errorf("key1 action %d = %v, want %v", i, copyKey.Actions[i], want[i])
		}
	}
	if copyKey.HasTone() {
		t.Error("key1 should have no tone")
	}

	vol := p.Key(2)
	if vol.Sound != "sounds/beep.wav" {
		t.Errorf("key3 sound = %q", vol.Sound)
	}
	if vol.Tone != 440 {
		t.Errorf("key3 tone = %d", vol.Tone)
	}
	if vol.Color != 0 {
		t.Errorf("key3 color = %06X, want black", vol.Color)
	}
	if len(vol.Actions) != 1 || !vol.Actions[0].Equal(models.ConsumerControls(0xE9)) {
		t.Errorf("key3 actions = %v", vol.Actions)
	}

	hi := p.Key(11)
	if hi.Color != 0x0000FF {
		t.Errorf("key12 color = %06X", hi.Color)
	}
	if len(hi.Actions) != 1 || !hi.Actions[0].Equal(models.Text("hello")) {
		t.Errorf("key12 actions = %v", hi.Actions)
	}
}

func TestParseFieldDefaults(t *testing.T) {
	data := `{"name":"odd","macros":{"key1":{"name":7,"color":"purple","tone":"loud","sound":null,"command":"UNKNOWN_SYMBOL_XYZ"},"key2":"not an object"}}`
	p, err := ParseBytes([]byte(data), DefaultOptions())
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}

	k := p.Key(0)
	if k.Name != "" || k.Color != 0 || k.Tone != models.NoTone || k.Sound != "" {
		t.Errorf("key1 defaults not applied: %+v", k)
	}
	if len(k.Actions) != 1 || !k.Actions[0].Equal(models.Text("UNKNOWN_SYMBOL_XYZ")) {
		t.Errorf("key1 actions = %v", k.Actions)
	}
	if !p.Key(1).Equal(models.EmptyKeyAction()) {
		t.Errorf("key2 = %+v, want empty", p.Key(1))
	}
}

func TestParseColor(t *testing.T) {
	tests := map[string]uint32{
		"#FF0000":   0xFF0000,
		"#00ff7f":   0x00FF7F,
		"0x123456":  0x123456,
		"ABCDEF":    0xABCDEF,
		"#1000000":  0,
		"red":       0,
		"":          0,
		"#":         0,
		"#-1":       0,
		" #000010 ": 0x10,
	}
	for in, want := range tests {
		if got := ParseColor(in); got != want {
			t.Errorf("ParseColor(%q) = %06X, want %06X", in, got, want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p, err := Create([]byte(workRecord), dir, DefaultOptions())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	loaded, err := Load(p.Path, DefaultOptions())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Name != p.Name {
		t.Errorf("Name = %q, want %q", loaded.Name, p.Name)
	}
	for i := range p.Keys {
		if !loaded.Keys[i].Equal(p.Keys[i]) {
			t.Errorf("slot %d differs after reload: %+v vs %+v", i, loaded.Keys[i], p.Keys[i])
		}
	}
	if string(loaded.Source) != string(p.Source) {
		t.Errorf("Source differs after reload:\n%s\n%s", loaded.Source, p.Source)
	}
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()

	p, err := Create([]byte(`{"name":"Games","macros":{}}`), dir, DefaultOptions())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.Path != filepath.Join(dir, "Games.json") {
		t.Errorf("Path = %q", p.Path)
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		t.Fatalf("read created file: %v", err)
	}
	if !Validate(data) {
		t.Errorf("persisted record is invalid: %s", data)
	}

	_, err = Create([]byte(`{"name":"Games","macros":{"key1":{}}}`), dir, DefaultOptions())
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("second Create: expected ErrAlreadyExists, got %v", err)
	}

	_, err = Create([]byte(`{"name":"Games"}`), dir, DefaultOptions())
	if !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("invalid Create: expected ErrInvalidPayload, got %v", err)
	}

	for _, name := range []string{"../escape", "", "..", `a\b`, ".hidden", "."} {
		raw, _ := json.Marshal(map[string]any{"name": name, "macros": map[string]any{}})
		if _, err := Create(raw, dir, DefaultOptions()); !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("Create(name=%q): expected ErrInvalidPayload, got %v", name, err)
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only Games.json in dir, got %v", names)
	}
}

func TestUpdateReturnsNewProfile(t *testing.T) {
	dir := t.TempDir()
	p, err := Create([]byte(`{"name":"Work","macros":{}}`), dir, DefaultOptions())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := Update(p, []byte(`{"name":"Work","macros":{"key2":{"name":"Paste","command":["CONTROL","V"]}}}`), DefaultOptions())
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated == p {
		t.Error("Update should return a new profile value")
	}
	if updated.Path != p.Path {
		t.Errorf("Path changed: %q -> %q", p.Path, updated.Path)
	}
	if updated.Key(1).Name != "Paste" {
		t.Errorf("key2 name = %q", updated.Key(1).Name)
	}
	if p.Key(1).Name != "" {
		t.Error("original profile was mutated")
	}
}

func TestUpdateInvalidLeavesRecord(t *testing.T) {
	dir := t.TempDir()
	p, err := Create([]byte(workRecord), dir, DefaultOptions())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	before, _ := os.ReadFile(p.Path)

	_, err = Update(p, []byte(`{"name":"Work","macros":{"key99":{}}}`), DefaultOptions())
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}

	after, _ := os.ReadFile(p.Path)
	if string(before) != string(after) {
		t.Error("record changed after invalid update")
	}
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	p, err := Create([]byte(`{"name":"Temp","macros":{}}`), dir, DefaultOptions())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := Delete(p, dir); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(p.Path); !os.IsNotExist(err) {
		t.Error("record still exists after Delete")
	}

	// Deleting again is a no-op.
	if err := Delete(p, dir); err != nil {
		t.Errorf("second Delete failed: %v", err)
	}
}

func TestDeleteRefusesProtectedLocations(t *testing.T) {
	dir := t.TempDir()
	for _, path := range []string{dir, dir + string(filepath.Separator), "/"} {
		p := &Profile{Name: "bad", Path: path}
		if err := Delete(p, dir); err == nil {
			t.Errorf("Delete(%q) should be refused", path)
		}
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("protected dir removed: %v", err)
	}
}

func mustDecode(t *testing.T, data string) *Record {
	t.Helper()
	rec, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return rec
}
