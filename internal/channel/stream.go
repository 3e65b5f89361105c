package channel

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Stream frames newline-terminated lines over a byte stream such as a
// serial port, a FIFO or stdio.
type Stream struct {
	*queue
	rwc      io.ReadWriteCloser
	maxFrame int
	logger   *slog.Logger
	wmu      sync.Mutex
}

// NewStream starts reading frames from rwc.
func NewStream(rwc io.ReadWriteCloser, opts ...Option) *Stream {
	o := buildOptions(opts)
	s := &Stream{
		queue:    newQueue(),
		rwc:      rwc,
		maxFrame: o.maxFrame,
		logger:   o.logger,
	}
	go s.readLoop()
	return s
}

func (s *Stream) readLoop() {
	br := bufio.NewReaderSize(s.rwc, s.maxFrame)
	discarding := false

	for {
		line, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			if !discarding {
				s.logger.Warn("drop oversize frame", "max", s.maxFrame)
			}
			discarding = true
			continue
		}
		if err != nil {
			if !discarding && len(bytes.TrimSpace(line)) > 0 {
				s.deliver(bytes.Clone(line))
			}
			if errors.Is(err, io.EOF) {
				err = nil
			}
			s.finish(err)
			return
		}
		if discarding {
			discarding = false
			continue
		}

		frame := bytes.TrimRight(line, "\r\n")
		if len(frame) == 0 {
			continue
		}
		if !s.deliver(bytes.Clone(frame)) {
			s.finish(nil)
			return
		}
	}
}

// WriteFrame writes frame followed by a newline in one write call.
func (s *Stream) WriteFrame(frame []byte) error {
	buf := make([]byte, 0, len(frame)+1)
	buf = append(buf, frame...)
	buf = append(buf, '\n')

	s.wmu.Lock()
	defer s.wmu.Unlock()
	n, err := s.rwc.Write(buf)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if n != len(buf) {
		return fmt.Errorf("write frame: short write (%d of %d bytes)", n, len(buf))
	}
	return nil
}

// Close stops reading and closes the underlying stream.
func (s *Stream) Close() error {
	s.shutdown()
	return s.rwc.Close()
}
