// Package protocol implements the line-framed JSON command protocol used to
// manage macro profiles from a host: one request object per line, exactly
// one response per recognized request.
package protocol

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcus/macropad/internal/profile"
	"github.com/marcus/macropad/internal/store"
)

// Transport carries frames. Poll must not block; WriteFrame writes one
// frame plus the channel terminator in a single write.
type Transport interface {
	Poll() ([]byte, bool)
	WriteFrame(frame []byte) error
}

// Entry describes one dispatched command.
type Entry struct {
	Time     time.Time
	Code     Code
	OK       bool
	Kind     string
	Detail   string
	Duration time.Duration
}

// Recorder receives an Entry for every dispatched command.
type Recorder interface {
	Record(Entry) error
}

type handlerFunc func(s *Server, payload json.RawMessage, sel *store.Selection) (any, error)

// handlers is the fixed operation table.
var handlers = map[Code]handlerFunc{
	CodePing:                     handlePing,
	CodeGetCurrentMacroName:      handleGetCurrentName,
	CodeSetCurrentMacroByName:    handleSetCurrentByName,
	CodeGetMacroDefinition:       handleGetDefinition,
	CodeCreateMacroDefinition:    handleCreateDefinition,
	CodeUpdateMacroDefinition:    handleUpdateDefinition,
	CodeDeleteMacroDefinition:    handleDeleteDefinition,
	CodeListMacroDefinitionNames: handleListNames,
}

// Server dispatches requests against a profile store.
type Server struct {
	transport Transport
	store     *store.Store
	logger    *slog.Logger
	recorder  Recorder
	now       func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRecorder attaches a command recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// NewServer returns a server reading from t and operating on st.
func NewServer(t Transport, st *store.Store, opts ...Option) *Server {
	s := &Server{
		transport: t,
		store:     st,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Poll reads at most one frame and answers it. It reports whether a
// recognized command was dispatched.
func (s *Server) Poll(sel *store.Selection) bool {
	line, ok := s.transport.Poll()
	if !ok || len(line) == 0 {
		return false
	}

	resp, handled := s.Handle(line, sel)
	if !handled {
		return false
	}

	frame, err := resp.Encode()
	if err != nil {
		s.logger.Error("encode response", "code", resp.Code, "err", err)
		return true
	}
	if err := s.transport.WriteFrame(frame); err != nil {
		s.logger.Warn("write response", "code", resp.Code, "err", err)
	}
	return true
}

// Handle validates and dispatches one request line. handled is false when
// the line is malformed or the code has no handler; nothing must be written
// back in that case.
func (s *Server) Handle(line []byte, sel *store.Selection) (resp Response, handled bool) {
	req, ok := ParseRequest(line)
	if !ok {
		s.logger.Debug("drop malformed frame", "bytes", len(line))
		return Response{}, false
	}
	h, ok := handlers[req.Code]
	if !ok {
		s.logger.Debug("ignore unknown code", "code", int(req.Code))
		return Response{}, false
	}

	start := s.now()
	data, err := h(s, req.Payload, sel)

	respCode := req.Code
	if req.Code == CodePing {
		respCode = CodePong
	}

	entry := Entry{Time: start, Code: req.Code, OK: err == nil}
	if err != nil {
		kind := KindOf(err)
		resp = Failure(respCode, kind, err.Error())
		entry.Kind = kind.Name
		entry.Detail = err.Error()
		s.logger.Info("command failed", "code", req.Code.String(), "kind", kind.Name, "err", err)
	} else {
		resp = Success(respCode, data)
		s.logger.Debug("command handled", "code", req.Code.String())
	}
	entry.Duration = s.now().Sub(start)

	if s.recorder != nil {
		if err := s.recorder.Record(entry); err != nil {
			s.logger.Warn("record command", "err", err)
		}
	}
	return resp, true
}

// decodeName reads a profile name payload. Anything other than a JSON
// string cannot name a profile.
func decodeName(payload json.RawMessage) (string, error) {
	var name string
	if err := json.Unmarshal(payload, &name); err != nil {
		return "", fmt.Errorf("%w: payload is not a profile name", profile.ErrNotFound)
	}
	return name, nil
}

func handlePing(*Server, json.RawMessage, *store.Selection) (any, error) {
	return nil, nil
}

func handleGetCurrentName(s *Server, _ json.RawMessage, sel *store.Selection) (any, error) {
	return map[string]string{"name": sel.CurrentName(s.store)}, nil
}

func handleSetCurrentByName(s *Server, payload json.RawMessage, sel *store.Selection) (any, error) {
	name, err := decodeName(payload)
	if err != nil {
		return nil, err
	}
	if !sel.SelectName(s.store, name) {
		return nil, fmt.Errorf("%w: profile %q", profile.ErrNotFound, name)
	}
	return nil, nil
}

func handleGetDefinition(s *Server, payload json.RawMessage, _ *store.Selection) (any, error) {
	name, err := decodeName(payload)
	if err != nil {
		return nil, err
	}
	p, ok := s.store.Find(name)
	if !ok {
		return nil, fmt.Errorf("%w: profile %q", profile.ErrNotFound, name)
	}
	return p.Source, nil
}

func handleCreateDefinition(s *Server, payload json.RawMessage, _ *store.Selection) (any, error) {
	p, err := s.store.Create(payload)
	if err != nil {
		return nil, err
	}
	s.logger.Info("profile created", "name", p.Name, "path", p.Path)
	return nil, nil
}

func handleUpdateDefinition(s *Server, payload json.RawMessage, _ *store.Selection) (any, error) {
	p, err := s.store.Update(payload)
	if err != nil {
		return nil, err
	}
	s.logger.Info("profile updated", "name", p.Name, "path", p.Path)
	return nil, nil
}

func handleDeleteDefinition(s *Server, payload json.RawMessage, _ *store.Selection) (any, error) {
	name, err := decodeName(payload)
	if err != nil {
		return nil, err
	}
	if err := s.store.Remove(name); err != nil {
		return nil, err
	}
	s.logger.Info("profile deleted", "name", name)
	return nil, nil
}

func handleListNames(s *Server, _ json.RawMessage, _ *store.Selection) (any, error) {
	names := make([]string, 0, s.store.Len())
	for name := range s.store.Names() {
		names = append(names, name)
	}
	return names, nil
}
