// Package channel moves command frames over byte streams and WebSocket
// connections. Reading happens on a background goroutine so that Poll never
// blocks the device loop.
package channel

import (
	"log/slog"
	"sync"
)

// DefaultMaxFrame bounds an inbound frame, terminator included.
const DefaultMaxFrame = 4096

// queueSize is the number of complete frames buffered ahead of the loop.
const queueSize = 16

// Channel is a bidirectional frame carrier.
type Channel interface {
	// Poll returns the next complete frame without blocking.
	Poll() ([]byte, bool)
	// Frames delivers inbound frames; it is closed when the peer goes away.
	Frames() <-chan []byte
	// WriteFrame writes one frame and its terminator in a single write.
	WriteFrame(frame []byte) error
	// Done is closed once no more frames will arrive.
	Done() <-chan struct{}
	// Err returns the error that ended the channel, if any.
	Err() error
	Close() error
}

// Option configures a channel.
type Option func(*options)

type options struct {
	maxFrame int
	logger   *slog.Logger
}

// WithMaxFrame sets the inbound frame bound.
func WithMaxFrame(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxFrame = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{maxFrame: DefaultMaxFrame, logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// queue is the inbound half shared by the channel implementations.
type queue struct {
	frames  chan []byte
	done    chan struct{}
	closing chan struct{}

	mu        sync.Mutex
	err       error
	closeOnce sync.Once
}

func newQueue() *queue {
	return &queue{
		frames:  make(chan []byte, queueSize),
		done:    make(chan struct{}),
		closing: make(chan struct{}),
	}
}

func (q *queue) Poll() ([]byte, bool) {
	select {
	case f, ok := <-q.frames:
		return f, ok
	default:
		return nil, false
	}
}

func (q *queue) Frames() <-chan []byte { return q.frames }

func (q *queue) Done() <-chan struct{} { return q.done }

func (q *queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// deliver hands a frame to the consumer. It returns false once the channel
// is closing.
func (q *queue) deliver(frame []byte) bool {
	select {
	case q.frames <- frame:
		return true
	case <-q.closing:
		return false
	}
}

// finish records the terminal error and signals consumers.
func (q *queue) finish(err error) {
	q.mu.Lock()
	q.err = err
	q.mu.Unlock()
	close(q.frames)
	close(q.done)
}

// shutdown stops delivery. It is safe to call more than once.
func (q *queue) shutdown() {
	q.closeOnce.Do(func() { close(q.closing) })
}
