// Package bridge serves the command protocol over a WebSocket so browser and
// desktop tools can manage profiles without a serial port. Only one client
// may be attached at a time.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/marcus/macropad/internal/channel"
)

// ErrNoClient is returned by WriteFrame when no client is attached.
var ErrNoClient = errors.New("no bridge client connected")

const shutdownTimeout = 5 * time.Second

// Bridge is a protocol.Transport backed by at most one WebSocket client.
type Bridge struct {
	addr     string
	maxFrame int
	logger   *slog.Logger
	upgrader websocket.Upgrader
	engine   *gin.Engine

	profiles atomic.Int64

	mu     sync.Mutex
	active *channel.WebSocket
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// WithMaxFrame bounds inbound messages.
func WithMaxFrame(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.maxFrame = n
		}
	}
}

// New builds a bridge that will listen on addr.
func New(addr string, opts ...Option) *Bridge {
	b := &Bridge{
		addr:     addr,
		maxFrame: channel.DefaultMaxFrame,
		logger:   slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, o := range opts {
		o(b)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), b.requestLogger())
	r.GET("/health", b.handleHealth)
	r.GET("/ws", b.handleWS)
	b.engine = r
	return b
}

// Handler exposes the router, mainly for tests.
func (b *Bridge) Handler() http.Handler { return b.engine }

// SetProfiles updates the profile count reported by /health.
func (b *Bridge) SetProfiles(n int) { b.profiles.Store(int64(n)) }

// ListenAndServe serves until ctx is cancelled.
func (b *Bridge) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              b.addr,
		Handler:           b.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		b.logger.Info("bridge listening", "addr", b.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("bridge listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	b.detach(nil)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("bridge shutdown: %w", err)
	}
	return nil
}

// Poll returns the next frame from the attached client without blocking.
func (b *Bridge) Poll() ([]byte, bool) {
	ws := b.client()
	if ws == nil {
		return nil, false
	}
	frame, ok := ws.Poll()
	if ok {
		return frame, true
	}
	select {
	case <-ws.Done():
		b.detach(ws)
	default:
	}
	return nil, false
}

// WriteFrame sends a response to the attached client.
func (b *Bridge) WriteFrame(frame []byte) error {
	ws := b.client()
	if ws == nil {
		return ErrNoClient
	}
	return ws.WriteFrame(frame)
}

// Connected reports whether a client is attached.
func (b *Bridge) Connected() bool { return b.client() != nil }

func (b *Bridge) client() *channel.WebSocket {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// detach drops ws, or whatever client is attached when ws is nil.
func (b *Bridge) detach(ws *channel.WebSocket) {
	b.mu.Lock()
	cur := b.active
	if cur == nil || (ws != nil && cur != ws) {
		b.mu.Unlock()
		return
	}
	b.active = nil
	b.mu.Unlock()

	cur.Close()
	b.logger.Info("bridge client detached", "err", cur.Err())
}

func (b *Bridge) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"profiles":  b.profiles.Load(),
		"connected": b.Connected(),
	})
}

func (b *Bridge) handleWS(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active != nil {
		select {
		case <-b.active.Done():
			b.active.Close()
			b.active = nil
		default:
			c.JSON(http.StatusConflict, gin.H{"error": "a client is already connected"})
			return
		}
	}

	conn, err := b.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade", "err", err)
		return
	}
	b.active = channel.NewWebSocket(conn,
		channel.WithMaxFrame(b.maxFrame),
		channel.WithLogger(b.logger))
	b.logger.Info("bridge client attached", "remote", c.Request.RemoteAddr)
}

func (b *Bridge) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		b.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
