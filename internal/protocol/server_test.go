package protocol

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marcus/macropad/internal/store"
)

// fakeTransport replays queued frames and collects written responses.
type fakeTransport struct {
	in      [][]byte
	written [][]byte
}

func (f *fakeTransport) Poll() ([]byte, bool) {
	if len(f.in) == 0 {
		return nil, false
	}
	line := f.in[0]
	f.in = f.in[1:]
	return line, true
}

func (f *fakeTransport) WriteFrame(frame []byte) error {
	f.written = append(f.written, append([]byte(nil), frame...))
	return nil
}

type memRecorder struct{ entries []Entry }

func (m *memRecorder) Record(e Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

// wireResponse is the decoded form of a written frame.
type wireResponse struct {
	Code    int `json:"code"`
	Payload struct {
		Status    string          `json:"status"`
		Data      json.RawMessage `json:"data"`
		Error     string          `json:"error"`
		ErrorCode int             `json:"errorCode"`
		Detail    string          `json:"detail"`
	} `json:"payload"`
}

type harness struct {
	t         *testing.T
	transport *fakeTransport
	store     *store.Store
	sel       *store.Selection
	server    *Server
	recorder  *memRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	for file, data := range map[string]string{
		"Games.json": `{"name":"Games","macros":{"key1":{"name":"Jump","command":["SPACE"]}}}`,
		"Work.json":  `{"name":"Work","macros":{"key1":{"name":"Copy","command":["CONTROL","C"]}}}`,
	} {
		if err := os.WriteFile(filepath.Join(dir, file), []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}
	st, err := store.Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h := &harness{t: t, transport: &fakeTransport{}, store: st, sel: &store.Selection{}, recorder: &memRecorder{}}
	h.server = NewServer(h.transport, st, WithRecorder(h.recorder))
	return h
}

// send queues one line, polls once and returns the response, if any.
func (h *harness) send(line string) *wireResponse {
	h.t.Helper()
	before := len(h.transport.written)
	h.transport.in = append(h.transport.in, []byte(line))
	h.server.Poll(h.sel)

	switch len(h.transport.written) - before {
	case 0:
		return nil
	case 1:
	default:
		h.t.Fatalf("more than one response written for %s", line)
	}
	frame := h.transport.written[len(h.transport.written)-1]
	if strings.Contains(string(frame), "\n") {
		h.t.Errorf("frame contains a newline: %q", frame)
	}
	var resp wireResponse
	if err := json.Unmarshal(frame, &resp); err != nil {
		h.t.Fatalf("decode response %q: %v", frame, err)
	}
	return &resp
}

func (h *harness) mustSucceed(line string) *wireResponse {
	h.t.Helper()
	resp := h.send(line)
	if resp == nil {
		h.t.Fatalf("no response for %s", line)
	}
	if resp.Payload.Status != StatusSuccess {
		h.t.Fatalf("%s failed: %s (%s)", line, resp.Payload.Error, resp.Payload.Detail)
	}
	return resp
}

func (h *harness) mustFail(line string, kind ErrorKind) *wireResponse {
	h.t.Helper()
	resp := h.send(line)
	if resp == nil {
		h.t.Fatalf("no response for %s", line)
	}
	if resp.Payload.Error != kind.Name || resp.Payload.ErrorCode != kind.Code {
		h.t.Fatalf("%s: got error %q/%d, want %q/%d", line, resp.Payload.Error, resp.Payload.ErrorCode, kind.Name, kind.Code)
	}
	return resp
}

func TestPing(t *testing.T) {
	h := newHarness(t)
	resp := h.mustSucceed(`{"code":0,"payload":""}`)
	if resp.Code != int(CodePong) {
		t.Errorf("code = %d, want PONG", resp.Code)
	}
	if string(resp.Payload.Data) != "{}" {
		t.Errorf("data = %s, want {}", resp.Payload.Data)
	}
}

func TestMalformedFramesAreDropped(t *testing.T) {
	h := newHarness(t)
	for _, line := range []string{
		`not json`,
		`{"code":0}`,
		`{"payload":""}`,
		`{"code":"0","payload":""}`,
		`{"code":1.5,"payload":""}`,
		`[0, ""]`,
		`{"code":0,"payload":`,
		``,
	} {
		if resp := h.send(line); resp != nil {
			t.Errorf("%q got a response: %+v", line, resp)
		}
	}
}

func TestUnknownCodesAreIgnored(t *testing.T) {
	h := newHarness(t)
	for _, line := range []string{
		`{"code":1,"payload":""}`,
		`{"code":9,"payload":""}`,
		`{"code":-1,"payload":null}`,
	} {
		if resp := h.send(line); resp != nil {
			t.Errorf("%s got a response", line)
		}
	}
	if len(h.recorder.entries) != 0 {
		t.Errorf("recorded %d entries for ignored codes", len(h.recorder.entries))
	}
}

func TestGetMacroDefinition(t *testing.T) {
	h := newHarness(t)

	resp := h.mustSucceed(`{"code":4,"payload":"Work"}`)
	work, _ := h.store.Find("Work")
	if string(resp.Payload.Data) != string(work.Source) {
		t.Errorf("data = %s, want %s", resp.Payload.Data, work.Source)
	}

	h.mustFail(`{"code":4,"payload":"Missing"}`, KindNotFound)
	h.mustFail(`{"code":4,"payload":42}`, KindNotFound)
}

func TestSetAndGetCurrent(t *testing.T) {
	h := newHarness(t)

	resp := h.mustSucceed(`{"code":2,"payload":null}`)
	if string(resp.Payload.Data) != `{"name":"Games"}` {
		t.Errorf("initial current = %s", resp.Payload.Data)
	}

	h.mustSucceed(`{"code":3,"payload":"Work"}`)
	resp = h.mustSucceed(`{"code":2,"payload":""}`)
	if string(resp.Payload.Data) != `{"name":"Work"}` {
		t.Errorf("current = %s, want Work", resp.Payload.Data)
	}

	h.mustSucceed(`{"code":3,"payload":"Games"}`)
	resp = h.mustSucceed(`{"code":2,"payload":""}`)
	if string(resp.Payload.Data) != `{"name":"Games"}` {
		t.Errorf("current = %s, want Games", resp.Payload.Data)
	}

	h.mustFail(`{"code":3,"payload":"Missing"}`, KindNotFound)
	if h.sel.CurrentName(h.store) != "Games" {
		t.Error("failed select changed the selection")
	}
}

func TestCreateMacroDefinition(t *testing.T) {
	h := newHarness(t)

	h.mustFail(`{"code":5,"payload":{"name":"Work","macros":{}}}`, KindAlreadyExists)
	if h.store.Len() != 2 {
		t.Errorf("Len = %d after duplicate create", h.store.Len())
	}

	h.mustFail(`{"code":5,"payload":{"name":"Music"}}`, KindInvalidPayload)
	h.mustFail(`{"code":5,"payload":{"name":"Music","macros":{"key0":{}}}}`, KindInvalidPayload)
	h.mustFail(`{"code":5,"payload":"Music"}`, KindInvalidPayload)

	h.mustSucceed(`{"code":5,"payload":{"name":"Music","macros":{"key2":{"command":[["PLAY_PAUSE"]]}}}}`)
	p, ok := h.store.Find("Music")
	if !ok {
		t.Fatal("Music not in store")
	}
	if _, err := os.Stat(p.Path); err != nil {
		t.Errorf("Music record not persisted: %v", err)
	}

	resp := h.mustSucceed(`{"code":8,"payload":""}`)
	if string(resp.Payload.Data) != `["Games","Work","Music"]` {
		t.Errorf("names = %s", resp.Payload.Data)
	}
}

func TestCreatePersistenceFailureIsUnknown(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	h := newHarness(t)
	if err := os.Chmod(h.store.Dir(), 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(h.store.Dir(), 0755) })

	resp := h.mustFail(`{"code":5,"payload":{"name":"Music","macros":{}}}`, KindUnknown)
	if resp.Payload.Detail == "" {
		t.Error("unknown error should carry a detail")
	}
	if h.store.Len() != 2 {
		t.Errorf("Len = %d after failed create", h.store.Len())
	}
}

func TestUpdateMacroDefinition(t *testing.T) {
	h := newHarness(t)

	h.mustFail(`{"code":6,"payload":{"name":"Work","macros":{"nope":{}}}}`, KindInvalidPayload)
	work, _ := h.store.Find("Work")
	if work.Key(0).Name != "Copy" {
		t.Error("invalid update changed keys")
	}

	h.mustFail(`{"code":6,"payload":{"name":"Missing","macros":{}}}`, KindNotFound)

	h.mustSucceed(`{"code":6,"payload":{"name":"Work","macros":{"key1":{"name":"Cut","command":["CONTROL","X"]}}}}`)
	work, _ = h.store.Find("Work")
	if work.Key(0).Name != "Cut" {
		t.Errorf("key1 = %q after update", work.Key(0).Name)
	}

	resp := h.mustSucceed(`{"code":4,"payload":"Work"}`)
	if !strings.Contains(string(resp.Payload.Data), `"Cut"`) {
		t.Errorf("definition not updated: %s", resp.Payload.Data)
	}
}

func TestDeleteMacroDefinition(t *testing.T) {
	h := newHarness(t)

	h.mustFail(`{"code":7,"payload":"Missing"}`, KindNotFound)
	if h.store.Len() != 2 {
		t.Errorf("Len = %d after failed delete", h.store.Len())
	}

	h.mustSucceed(`{"code":7,"payload":"Work"}`)
	resp := h.mustSucceed(`{"code":8,"payload":null}`)
	if string(resp.Payload.Data) != `["Games"]` {
		t.Errorf("names = %s", resp.Payload.Data)
	}
	h.mustFail(`{"code":4,"payload":"Work"}`, KindNotFound)
}

func TestListEmptyStore(t *testing.T) {
	h := newHarness(t)
	h.mustSucceed(`{"code":7,"payload":"Work"}`)
	h.mustSucceed(`{"code":7,"payload":"Games"}`)

	resp := h.mustSucceed(`{"code":8,"payload":""}`)
	if string(resp.Payload.Data) != `[]` {
		t.Errorf("names = %s, want []", resp.Payload.Data)
	}
	resp = h.mustSucceed(`{"code":2,"payload":""}`)
	if string(resp.Payload.Data) != `{"name":""}` {
		t.Errorf("current = %s", resp.Payload.Data)
	}
}

func TestRecorderSeesEveryCommand(t *testing.T) {
	h := newHarness(t)
	h.send(`{"code":0,"payload":""}`)
	h.send(`{"code":4,"payload":"Missing"}`)
	h.send(`garbage`)

	if len(h.recorder.entries) != 2 {
		t.Fatalf("recorded %d entries, want 2", len(h.recorder.entries))
	}
	if !h.recorder.entries[0].OK || h.recorder.entries[0].Code != CodePing {
		t.Errorf("entry 0 = %+v", h.recorder.entries[0])
	}
	if h.recorder.entries[1].OK || h.recorder.entries[1].Kind != KindNotFound.Name {
		t.Errorf("entry 1 = %+v", h.recorder.entries[1])
	}
}

func TestParseRequest(t *testing.T) {
	req, ok := ParseRequest([]byte(`  {"code": 4.0, "payload": {"a": [1, 2]}}  `))
	if !ok {
		t.Fatal("expected valid request")
	}
	if req.Code != CodeGetMacroDefinition {
		t.Errorf("code = %v", req.Code)
	}
	if string(req.Payload) != `{"a": [1, 2]}` {
		t.Errorf("payload = %s", req.Payload)
	}
}
