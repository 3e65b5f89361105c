package channel

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// pipeRWC reads from an io.Pipe and records writes.
type pipeRWC struct {
	r *io.PipeReader

	mu     sync.Mutex
	writes [][]byte
}

func (p *pipeRWC) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *pipeRWC) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, append([]byte(nil), b...))
	return len(b), nil
}

func (p *pipeRWC) Close() error { return p.r.Close() }

func newPipeStream(t *testing.T, opts ...Option) (*Stream, *io.PipeWriter, *pipeRWC) {
	t.Helper()
	r, w := io.Pipe()
	rwc := &pipeRWC{r: r}
	s := NewStream(rwc, opts...)
	t.Cleanup(func() { s.Close() })
	return s, w, rwc
}

func nextFrame(t *testing.T, s *Stream) string {
	t.Helper()
	select {
	case f, ok := <-s.Frames():
		if !ok {
			t.Fatal("channel closed")
		}
		return string(f)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return ""
}

func TestStreamFramesLines(t *testing.T) {
	s, w, _ := newPipeStream(t)

	go func() {
		io.WriteString(w, `{"code":0,"payload":""}`+"\r\n")
		io.WriteString(w, "\n")
		io.WriteString(w, `{"code":8,`)
		io.WriteString(w, `"payload":""}`+"\n")
	}()

	if got := nextFrame(t, s); got != `{"code":0,"payload":""}` {
		t.Errorf("frame 1 = %q", got)
	}
	if got := nextFrame(t, s); got != `{"code":8,"payload":""}` {
		t.Errorf("frame 2 = %q", got)
	}
}

func TestStreamPollDoesNotBlock(t *testing.T) {
	s, _, _ := newPipeStream(t)

	done := make(chan struct{})
	go func() {
		s.Poll()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Poll blocked with no input")
	}
}

func TestStreamDropsOversizeFrames(t *testing.T) {
	s, w, _ := newPipeStream(t, WithMaxFrame(64))

	go func() {
		io.WriteString(w, strings.Repeat("x", 200)+"\n")
		io.WriteString(w, `{"code":0,"payload":""}`+"\n")
	}()

	if got := nextFrame(t, s); got != `{"code":0,"payload":""}` {
		t.Errorf("frame after oversize = %q", got)
	}
}

func TestStreamEOF(t *testing.T) {
	s, w, _ := newPipeStream(t)

	go func() {
		io.WriteString(w, `{"code":0,"payload":""}`)
		w.Close()
	}()

	if got := nextFrame(t, s); got != `{"code":0,"payload":""}` {
		t.Errorf("trailing frame = %q", got)
	}
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed after EOF")
	}
	if s.Err() != nil {
		t.Errorf("Err = %v, want nil on EOF", s.Err())
	}
}

func TestStreamWriteFrameSingleWrite(t *testing.T) {
	s, _, rwc := newPipeStream(t)

	if err := s.WriteFrame([]byte(`{"code":1,"payload":{}}`)); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	rwc.mu.Lock()
	defer rwc.mu.Unlock()
	if len(rwc.writes) != 1 {
		t.Fatalf("got %d writes, want 1", len(rwc.writes))
	}
	if !bytes.Equal(rwc.writes[0], []byte(`{"code":1,"payload":{}}`+"\n")) {
		t.Errorf("written = %q", rwc.writes[0])
	}
}
