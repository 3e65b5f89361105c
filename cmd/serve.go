package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/marcus/macropad/internal/bridge"
	"github.com/marcus/macropad/internal/channel"
	"github.com/marcus/macropad/internal/config"
	"github.com/marcus/macropad/internal/device"
	"github.com/marcus/macropad/internal/journal"
	"github.com/marcus/macropad/internal/profile"
	"github.com/marcus/macropad/internal/protocol"
	"github.com/marcus/macropad/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// openStdio frames the process's stdin and stdout; tests swap it out.
var openStdio = func(opts ...channel.Option) channel.Channel { return channel.Stdio(opts...) }

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the keypad loop and answer the command protocol",
	Long: `Loads every record in the macros directory, then runs the device loop:
one protocol frame, the encoder, the display and one key event per tick.

Transports:
  serial  the configured serial port (default)
  stdio   stdin/stdout, one JSON frame per line
  ws      WebSocket bridge at ws://LISTEN_ADDR/ws with /health

Keys and the encoder can be simulated with --input (see "macropad help serve").
HID reports, display updates and sounds are written to the log.`,
	Example: `  macropad serve --transport stdio
  macropad serve --transport ws --listen 0.0.0.0:8765 --journal macropad.db
  echo 'tap 1' | macropad serve --transport ws --input -`,
	GroupID: "device",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := applyServeFlags(cmd, cfg); err != nil {
			return err
		}
		logger := newLogger(cfg, os.Stderr)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger, cmd.InOrStdin())
	},
}

// serveFlagKeys maps serve flags onto config settings.
var serveFlagKeys = map[string]string{
	"transport": "transport",
	"port":      "serial_port",
	"baud":      "baud_rate",
	"listen":    "listen_addr",
	"macros":    "macros_dir",
	"journal":   "journal_path",
	"input":     "input_path",
}

// applyServeFlags copies explicitly set flags over the loaded config.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	var errs []error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		key, ok := serveFlagKeys[f.Name]
		if !ok {
			return
		}
		if err := cfg.Set(key, f.Value.String()); err != nil {
			errs = append(errs, fmt.Errorf("--%s: %w", f.Name, err))
		}
	})
	if err := errors.Join(errs...); err != nil {
		return err
	}
	return cfg.Validate()
}

// link is an opened command transport.
type link struct {
	protocol.Transport
	// pending reports queued inbound frames; set whenever done is.
	pending func() int
	// done is closed when the peer goes away; nil if it never does.
	done <-chan struct{}
	// listen runs alongside the loop; nil if nothing needs serving.
	listen func(context.Context) error
	close  func() error
}

func openLink(cfg *config.Config, logger *slog.Logger) (*link, *bridge.Bridge, error) {
	opts := []channel.Option{channel.WithMaxFrame(cfg.MaxFrame), channel.WithLogger(logger)}
	fromChannel := func(ch channel.Channel) *link {
		return &link{
			Transport: ch,
			pending:   func() int { return len(ch.Frames()) },
			done:      ch.Done(),
			close:     ch.Close,
		}
	}

	switch cfg.Transport {
	case config.TransportStdio:
		return fromChannel(openStdio(opts...)), nil, nil
	case config.TransportWS:
		br := bridge.New(cfg.ListenAddr, bridge.WithLogger(logger), bridge.WithMaxFrame(cfg.MaxFrame))
		return &link{
			Transport: br,
			listen:    br.ListenAndServe,
			close:     func() error { return nil },
		}, br, nil
	default:
		ch, err := channel.OpenSerial(channel.SerialConfig{Port: cfg.SerialPort, BaudRate: cfg.BaudRate}, opts...)
		if err != nil {
			return nil, nil, err
		}
		return fromChannel(ch), nil, nil
	}
}

// openInput returns the simulated key input named by path.
func openInput(path string, cfg *config.Config, stdin io.Reader) (io.Reader, func() error, error) {
	if path == "-" {
		if cfg.Transport == config.TransportStdio {
			return nil, nil, fmt.Errorf("--input - cannot share stdin with the stdio transport")
		}
		return stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, f.Close, nil
}

// serve runs the device until ctx is done or the command channel ends.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdin io.Reader) error {
	if err := os.MkdirAll(cfg.MacrosDir, 0755); err != nil {
		return fmt.Errorf("create macros dir: %w", err)
	}
	st, err := store.Load(cfg.MacrosDir,
		store.WithOptions(profile.Options{SoundsDir: cfg.SoundsDir}),
		store.WithLogger(logger))
	if err != nil {
		return err
	}

	srvOpts := []protocol.Option{protocol.WithLogger(logger)}
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer j.Close()
		srvOpts = append(srvOpts, protocol.WithRecorder(j))
		logger.Info("journal enabled", "path", j.Path())
	}

	ln, br, err := openLink(cfg, logger)
	if err != nil {
		return err
	}
	defer ln.close()

	loopOpts := []device.Option{
		device.WithHID(device.LogHID{Logger: logger}),
		device.WithDisplay(device.LogDisplay{Logger: logger}),
		device.WithAudio(device.LogAudio{Logger: logger}),
		device.WithLogger(logger),
		device.WithPollInterval(cfg.Poll()),
		device.WithBrightness(cfg.Brightness),
	}
	if br != nil {
		loopOpts = append(loopOpts, device.WithObserver(func(s *store.Store) { br.SetProfiles(s.Len()) }))
	}
	if cfg.InputPath != "" {
		r, closeInput, err := openInput(cfg.InputPath, cfg, stdin)
		if err != nil {
			return err
		}
		defer closeInput()
		sim := device.NewSim(r, logger)
		loopOpts = append(loopOpts, device.WithKeySource(sim), device.WithEncoder(sim))
	}

	srv := protocol.NewServer(ln, st, srvOpts...)
	loop := device.New(st, srv, loopOpts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	listenErr := make(chan error, 1)
	if ln.listen != nil {
		go func() {
			err := ln.listen(ctx)
			if err != nil {
				cancel()
			}
			listenErr <- err
		}()
	} else {
		listenErr <- nil
	}
	if ln.done != nil {
		go func() {
			select {
			case <-ln.done:
				logger.Info("command channel closed")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	if err := loop.Run(ctx); err != nil {
		return err
	}
	// Answer frames that arrived before the peer hung up.
	select {
	case <-ln.done:
		for ln.pending() > 0 {
			loop.Step()
		}
	default:
	}
	return <-listenErr
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("transport", "", "command transport: serial, stdio or ws")
	serveCmd.Flags().StringP("port", "p", "", "serial port")
	serveCmd.Flags().String("baud", "", "serial baud rate")
	serveCmd.Flags().String("listen", "", "bridge listen address (ws transport)")
	serveCmd.Flags().StringP("macros", "m", "", "macros directory")
	serveCmd.Flags().String("journal", "", "record every command in this SQLite file")
	serveCmd.Flags().StringP("input", "i", "", "simulated key input file (- for stdin)")
}
