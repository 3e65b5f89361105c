package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// WebSocket carries one frame per text message.
type WebSocket struct {
	*queue
	conn     *websocket.Conn
	maxFrame int
	logger   *slog.Logger
	wmu      sync.Mutex
}

// NewWebSocket starts reading frames from an established connection.
func NewWebSocket(conn *websocket.Conn, opts ...Option) *WebSocket {
	o := buildOptions(opts)
	w := &WebSocket{
		queue:    newQueue(),
		conn:     conn,
		maxFrame: o.maxFrame,
		logger:   o.logger,
	}
	go w.readLoop()
	return w
}

// DialWebSocket connects to a bridge endpoint such as ws://host:8765/ws.
func DialWebSocket(ctx context.Context, url string, opts ...Option) (*WebSocket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewWebSocket(conn, opts...), nil
}

func (w *WebSocket) readLoop() {
	for {
		kind, msg, err := w.readMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				errors.Is(err, websocket.ErrCloseSent) {
				err = nil
			}
			w.finish(err)
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		if msg == nil {
			w.logger.Warn("drop oversize frame", "max", w.maxFrame)
			continue
		}
		if !w.deliver(msg) {
			w.finish(nil)
			return
		}
	}
}

// readMessage reads the next message, holding at most maxFrame bytes of it.
// The rest of an oversize message is discarded and msg is nil.
func (w *WebSocket) readMessage() (kind int, msg []byte, err error) {
	kind, r, err := w.conn.NextReader()
	if err != nil {
		return 0, nil, err
	}
	msg, err = io.ReadAll(io.LimitReader(r, int64(w.maxFrame)+1))
	if err != nil {
		return 0, nil, err
	}
	if len(msg) > w.maxFrame {
		if _, err := io.Copy(io.Discard, r); err != nil {
			return 0, nil, err
		}
		return kind, nil, nil
	}
	return kind, msg, nil
}

// WriteFrame sends frame as a single text message.
func (w *WebSocket) WriteFrame(frame []byte) error {
	w.wmu.Lock()
	defer w.wmu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := w.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close sends a close message and closes the connection.
func (w *WebSocket) Close() error {
	w.shutdown()
	w.wmu.Lock()
	w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	w.wmu.Unlock()
	return w.conn.Close()
}
