package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/marcus/macropad/internal/channel"
	"github.com/marcus/macropad/internal/client"
	"github.com/marcus/macropad/internal/config"
	"github.com/marcus/macropad/internal/input"
	"github.com/marcus/macropad/internal/output"
	"github.com/marcus/macropad/internal/profile"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// dialDevice opens the channel to a keypad; tests swap it out.
var dialDevice = func(ctx context.Context, cfg *config.Config, url string) (channel.Channel, error) {
	opts := []channel.Option{channel.WithMaxFrame(cfg.MaxFrame)}
	if url != "" {
		ws, err := channel.DialWebSocket(ctx, url, opts...)
		if err != nil {
			return nil, err
		}
		return ws, nil
	}
	st, err := channel.OpenSerial(channel.SerialConfig{Port: cfg.SerialPort, BaudRate: cfg.BaudRate}, opts...)
	if err != nil {
		return nil, err
	}
	return st, nil
}

var clientCmd = &cobra.Command{
	Use:     "client",
	Aliases: []string{"c"},
	Short:   "Send protocol commands to a running keypad",
	Long: `Talks to a keypad over its serial port or a bridge (--url ws://host:port/ws).
Records for create/update may be given inline, as a file path, as @file or
as - for stdin.`,
	GroupID: "device",
}

// withClient connects, runs fn and closes the channel.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.SerialPort = port
	}
	url, _ := cmd.Flags().GetString("url")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	logger := newLogger(cfg, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ch, err := dialDevice(ctx, cfg, url)
	if err != nil {
		return reportErr(cmd, err)
	}
	defer ch.Close()

	c := client.New(ch, client.WithTimeout(timeout), client.WithLogger(logger))
	return reportErr(cmd, fn(ctx, c))
}

// errCode maps an error onto the structured output codes.
func errCode(err error) string {
	var remote *client.RemoteError
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return output.ErrCodeNotFound
	case errors.Is(err, profile.ErrInvalidPayload):
		return output.ErrCodeInvalidInput
	case errors.Is(err, profile.ErrAlreadyExists):
		return output.ErrCodeConflict
	case errors.As(err, &remote):
		return output.ErrCodeDeviceError
	}
	return output.ErrCodeChannelError
}

// reportErr prints err as JSON when --json is set. The error is still
// returned so the exit status reflects it.
func reportErr(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	if jsonOutput(cmd) {
		details := map[string]interface{}{}
		var remote *client.RemoteError
		if errors.As(err, &remote) {
			details["kind"] = remote.Kind.Name
			details["code"] = int(remote.Code)
		}
		output.JSONErrorWithDetails(errCode(err), err.Error(), details)
	}
	return err
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// readRecord loads a record argument and applies --name.
func readRecord(cmd *cobra.Command, arg string) (json.RawMessage, error) {
	data, err := input.ReadValue(arg, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	if name, _ := cmd.Flags().GetString("name"); name != "" {
		data, err = withRecordName(data, name)
		if err != nil {
			return nil, err
		}
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: record is not valid JSON", profile.ErrInvalidPayload)
	}
	return json.RawMessage(bytes.TrimSpace(data)), nil
}

// withRecordName sets the top-level "name" of a record.
func withRecordName(data []byte, name string) ([]byte, error) {
	out, err := sjson.SetBytes(data, "name", name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", profile.ErrInvalidPayload, err)
	}
	return out, nil
}

var clientPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the keypad answers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			start := time.Now()
			if err := c.Ping(ctx); err != nil {
				return err
			}
			rtt := time.Since(start)
			if jsonOutput(cmd) {
				return output.JSON(map[string]any{"ok": true, "rtt_ms": rtt.Milliseconds()})
			}
			output.Success("pong in %s", rtt.Round(time.Millisecond))
			return nil
		})
	},
}

var clientCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the selected profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			name, err := c.Current(ctx)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return output.JSON(map[string]string{"name": name})
			}
			if name == "" {
				fmt.Fprintln(cmd.OutOrStdout(), output.Subtle("(no profiles)"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		})
	},
}

var clientUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Select a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			if err := c.Use(ctx, args[0]); err != nil {
				return err
			}
			if !jsonOutput(cmd) {
				output.Success("selected %s", args[0])
			}
			return nil
		})
	},
}

var clientGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show a profile as stored on the keypad",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			rec, err := c.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if raw, _ := cmd.Flags().GetBool("raw"); raw || jsonOutput(cmd) {
				var buf bytes.Buffer
				if err := json.Indent(&buf, rec, "", "  "); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), buf.String())
				return nil
			}
			p, err := profile.ParseBytes(rec, profile.DefaultOptions())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output.FormatProfile(p, output.TerminalWidth(80)))
			return nil
		})
	},
}

var clientCreateCmd = &cobra.Command{
	Use:   "create <record>",
	Short: "Store a new profile on the keypad",
	Example: `  macropad client create work.json
  macropad client create @work.json --name "Work 2"
  cat work.json | macropad client create -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := readRecord(cmd, args[0])
		if err != nil {
			return reportErr(cmd, err)
		}
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			if err := c.Create(ctx, rec); err != nil {
				return err
			}
			if !jsonOutput(cmd) {
				output.Success("created %s", gjson.GetBytes(rec, "name").String())
			}
			return nil
		})
	},
}

var clientUpdateCmd = &cobra.Command{
	Use:   "update <record>",
	Short: "Replace the profile a record names",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := readRecord(cmd, args[0])
		if err != nil {
			return reportErr(cmd, err)
		}
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			if err := c.Update(ctx, rec); err != nil {
				return err
			}
			if !jsonOutput(cmd) {
				output.Success("updated %s", gjson.GetBytes(rec, "name").String())
			}
			return nil
		})
	},
}

var clientDeleteCmd = &cobra.Command{
	Use:   "delete <name>...",
	Short: "Delete profiles (names, @file or - for stdin)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := input.ExpandNames(args, cmd.InOrStdin())
		if err != nil {
			return reportErr(cmd, err)
		}
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			var errs []error
			for _, name := range names {
				if err := c.Delete(ctx, name); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", name, err))
					continue
				}
				if !jsonOutput(cmd) {
					output.Success("deleted %s", name)
				}
			}
			return errors.Join(errs...)
		})
	},
}

var clientListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List profile names in device order",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			names, err := c.List(ctx)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return output.JSON(names)
			}
			current, _ := c.Current(ctx)
			for _, name := range names {
				marker := "  "
				if name == current {
					marker = "▸ "
				}
				fmt.Fprintln(cmd.OutOrStdout(), marker+name)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(clientCmd)
	clientCmd.AddCommand(clientPingCmd, clientCurrentCmd, clientUseCmd, clientGetCmd,
		clientCreateCmd, clientUpdateCmd, clientDeleteCmd, clientListCmd)

	clientCmd.PersistentFlags().StringP("port", "p", "", "serial port (default from config)")
	clientCmd.PersistentFlags().String("url", "", "bridge WebSocket URL, e.g. ws://127.0.0.1:8765/ws")
	clientCmd.PersistentFlags().Duration("timeout", client.DefaultTimeout, "per-request timeout")
	clientCmd.PersistentFlags().Bool("json", false, "JSON output")

	clientGetCmd.Flags().Bool("raw", false, "print the stored record")
	clientCreateCmd.Flags().String("name", "", "override the record name")
	clientUpdateCmd.Flags().String("name", "", "override the record name")
}
