// Package client talks to a keypad over the command protocol.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marcus/macropad/internal/channel"
	"github.com/marcus/macropad/internal/profile"
	"github.com/marcus/macropad/internal/protocol"
	"github.com/tidwall/gjson"
)

// DefaultTimeout bounds a request when the context has no deadline.
const DefaultTimeout = 5 * time.Second

// ErrClosed is returned when the channel ends before a response arrives.
var ErrClosed = errors.New("channel closed")

// RemoteError is an error payload returned by the device.
type RemoteError struct {
	Code   protocol.Code
	Kind   protocol.ErrorKind
	Detail string
}

func (e *RemoteError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Kind.Name)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Kind.Name, e.Detail)
}

// Unwrap maps the remote kind onto the profile sentinels so callers can use
// errors.Is(err, profile.ErrNotFound).
func (e *RemoteError) Unwrap() error {
	switch e.Kind {
	case protocol.KindNotFound:
		return profile.ErrNotFound
	case protocol.KindInvalidPayload:
		return profile.ErrInvalidPayload
	case protocol.KindAlreadyExists:
		return profile.ErrAlreadyExists
	}
	return nil
}

// Client issues one request at a time over a channel.
type Client struct {
	ch      channel.Channel
	timeout time.Duration
	logger  *slog.Logger
	mu      sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout used when ctx has no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client over ch. The client does not own ch.
func New(ch channel.Channel, opts ...Option) *Client {
	c := &Client{ch: ch, timeout: DefaultTimeout, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

type request struct {
	Code    protocol.Code `json:"code"`
	Payload any           `json:"payload"`
}

// Do sends one request and returns the data of the matching success
// response.
func (c *Client) Do(ctx context.Context, code protocol.Code, payload any) (json.RawMessage, error) {
	if payload == nil {
		payload = ""
	}
	frame, err := json.Marshal(request{Code: code, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.drain()
	if err := c.ch.WriteFrame(frame); err != nil {
		return nil, fmt.Errorf("send %s: %w", code, err)
	}

	want := code
	if code == protocol.CodePing {
		want = protocol.CodePong
	}
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("await %s: %w", code, ctx.Err())
		case line, ok := <-c.ch.Frames():
			if !ok {
				if err := c.ch.Err(); err != nil {
					return nil, fmt.Errorf("await %s: %w: %v", code, ErrClosed, err)
				}
				return nil, fmt.Errorf("await %s: %w", code, ErrClosed)
			}
			data, matched, err := decodeResponse(line, want)
			if !matched {
				c.logger.Debug("skip unrelated frame", "want", want.String(), "bytes", len(line))
				continue
			}
			return data, err
		}
	}
}

// drain discards frames left over from an earlier timed-out request.
func (c *Client) drain() {
	for {
		if _, ok := c.ch.Poll(); !ok {
			return
		}
	}
}

func decodeResponse(line []byte, want protocol.Code) (json.RawMessage, bool, error) {
	if !gjson.ValidBytes(line) {
		return nil, false, nil
	}
	root := gjson.ParseBytes(line)
	if code := root.Get("code"); code.Type != gjson.Number || protocol.Code(code.Int()) != want {
		return nil, false, nil
	}

	payload := root.Get("payload")
	if e := payload.Get("error"); e.Exists() {
		kind, ok := protocol.KindByCode(int(payload.Get("errorCode").Int()))
		if !ok {
			kind = protocol.ErrorKind{Name: e.String(), Code: int(payload.Get("errorCode").Int())}
		}
		return nil, true, &RemoteError{Code: want, Kind: kind, Detail: payload.Get("detail").String()}
	}
	if payload.Get("status").String() != protocol.StatusSuccess {
		return nil, true, fmt.Errorf("%s: malformed response payload", want)
	}
	return json.RawMessage(payload.Get("data").Raw), true, nil
}

// Ping checks that the device answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Do(ctx, protocol.CodePing, "")
	return err
}

// Current returns the name of the selected profile.
func (c *Client) Current(ctx context.Context) (string, error) {
	data, err := c.Do(ctx, protocol.CodeGetCurrentMacroName, "")
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(data, "name").String(), nil
}

// Use selects the named profile.
func (c *Client) Use(ctx context.Context, name string) error {
	_, err := c.Do(ctx, protocol.CodeSetCurrentMacroByName, name)
	return err
}

// Get returns the stored record of the named profile.
func (c *Client) Get(ctx context.Context, name string) (json.RawMessage, error) {
	return c.Do(ctx, protocol.CodeGetMacroDefinition, name)
}

// Create stores a new profile record.
func (c *Client) Create(ctx context.Context, record json.RawMessage) error {
	_, err := c.Do(ctx, protocol.CodeCreateMacroDefinition, record)
	return err
}

// Update replaces the record of the profile it names.
func (c *Client) Update(ctx context.Context, record json.RawMessage) error {
	_, err := c.Do(ctx, protocol.CodeUpdateMacroDefinition, record)
	return err
}

// Delete removes the named profile.
func (c *Client) Delete(ctx context.Context, name string) error {
	_, err := c.Do(ctx, protocol.CodeDeleteMacroDefinition, name)
	return err
}

// List returns profile names in device order.
func (c *Client) List(ctx context.Context) ([]string, error) {
	data, err := c.Do(ctx, protocol.CodeListMacroDefinitionNames, "")
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("decode names: %w", err)
	}
	return names, nil
}
