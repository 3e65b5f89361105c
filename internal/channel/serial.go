package channel

import (
	"fmt"
	"io"
	"os"

	"github.com/jacobsa/go-serial/serial"
)

// SerialConfig describes a serial command port.
type SerialConfig struct {
	Port     string
	BaudRate uint
}

// OpenSerial opens a serial port (8N1) and frames it as a Stream.
func OpenSerial(cfg SerialConfig, opts ...Option) (*Stream, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("open serial: no port configured")
	}
	baud := cfg.BaudRate
	if baud == 0 {
		baud = 115200
	}

	port, err := serial.Open(serial.OpenOptions{
		PortName:        cfg.Port,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		ParityMode:      serial.PARITY_NONE,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", cfg.Port, err)
	}
	return NewStream(port, opts...), nil
}

// stdio joins stdin and stdout into one stream.
type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error { return nil }

// Stdio frames the process's stdin and stdout.
func Stdio(opts ...Option) *Stream {
	return NewStream(stdio{Reader: os.Stdin, Writer: os.Stdout}, opts...)
}
