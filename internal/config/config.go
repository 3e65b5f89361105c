// Package config loads macropad settings from a JSON file with MACROPAD_*
// environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// DefaultFile is the config file used when --config is not given.
const DefaultFile = "macropad.json"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MACROPAD_"

// Transports accepted by the serve command.
const (
	TransportSerial = "serial"
	TransportStdio  = "stdio"
	TransportWS     = "ws"
)

// Duration is a time.Duration stored as a string such as "5ms".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds device and host settings.
type Config struct {
	MacrosDir    string   `json:"macros_dir"`
	SoundsDir    string   `json:"sounds_dir"`
	Transport    string   `json:"transport"`
	SerialPort   string   `json:"serial_port,omitempty"`
	BaudRate     uint     `json:"baud_rate"`
	MaxFrame     int      `json:"max_frame"`
	ListenAddr   string   `json:"listen_addr"`
	JournalPath  string   `json:"journal_path,omitempty"`
	PollInterval Duration `json:"poll_interval"`
	Brightness   float64  `json:"brightness"`
	LogLevel     string   `json:"log_level"`  // "debug", "info" (default), "warn", "error"
	LogFormat    string   `json:"log_format"` // "text" (default) or "json"
	InputPath    string   `json:"input_path,omitempty"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		MacrosDir:    "macros",
		SoundsDir:    "sounds/",
		Transport:    TransportSerial,
		BaudRate:     115200,
		MaxFrame:     4096,
		ListenAddr:   "127.0.0.1:8765",
		PollInterval: Duration(5 * time.Millisecond),
		Brightness:   1.0,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Poll returns the loop period.
func (c *Config) Poll() time.Duration { return time.Duration(c.PollInterval) }

// setting binds one key to its field.
type setting struct {
	key string
	get func(*Config) string
	set func(*Config, string) error
}

func str(field func(*Config) *string) (func(*Config) string, func(*Config, string) error) {
	return func(c *Config) string { return *field(c) },
		func(c *Config, v string) error { *field(c) = v; return nil }
}

func newSetting(key string, field func(*Config) *string) setting {
	get, set := str(field)
	return setting{key: key, get: get, set: set}
}

var settings = []setting{
	newSetting("macros_dir", func(c *Config) *string { return &c.MacrosDir }),
	newSetting("sounds_dir", func(c *Config) *string { return &c.SoundsDir }),
	newSetting("transport", func(c *Config) *string { return &c.Transport }),
	newSetting("serial_port", func(c *Config) *string { return &c.SerialPort }),
	{
		key: "baud_rate",
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.BaudRate), 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n == 0 {
				return fmt.Errorf("invalid baud rate %q", v)
			}
			c.BaudRate = uint(n)
			return nil
		},
	},
	{
		key: "max_frame",
		get: func(c *Config) string { return strconv.Itoa(c.MaxFrame) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid max frame %q", v)
			}
			c.MaxFrame = n
			return nil
		},
	},
	newSetting("listen_addr", func(c *Config) *string { return &c.ListenAddr }),
	newSetting("journal_path", func(c *Config) *string { return &c.JournalPath }),
	{
		key: "poll_interval",
		get: func(c *Config) string { return c.Poll().String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				return fmt.Errorf("invalid poll interval %q", v)
			}
			c.PollInterval = Duration(d)
			return nil
		},
	},
	{
		key: "brightness",
		get: func(c *Config) string { return strconv.FormatFloat(c.Brightness, 'f', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid brightness %q", v)
			}
			c.Brightness = f
			return nil
		},
	},
	newSetting("log_level", func(c *Config) *string { return &c.LogLevel }),
	newSetting("log_format", func(c *Config) *string { return &c.LogFormat }),
	newSetting("input_path", func(c *Config) *string { return &c.InputPath }),
}

func lookup(key string) (setting, bool) {
	key = strings.ToLower(strings.ReplaceAll(key, "-", "_"))
	i := slices.IndexFunc(settings, func(s setting) bool { return s.key == key })
	if i < 0 {
		return setting{}, false
	}
	return settings[i], true
}

// Keys returns every setting key in display order.
func Keys() []string {
	keys := make([]string, len(settings))
	for i, s := range settings {
		keys[i] = s.key
	}
	return keys
}

// EnvName returns the environment variable overriding key.
func EnvName(key string) string { return EnvPrefix + strings.ToUpper(key) }

// Get returns the string form of a setting.
func (c *Config) Get(key string) (string, error) {
	s, ok := lookup(key)
	if !ok {
		return "", fmt.Errorf("unknown setting %q", key)
	}
	return s.get(c), nil
}

// Set parses and assigns a setting.
func (c *Config) Set(key, value string) error {
	s, ok := lookup(key)
	if !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	return s.set(c, value)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	switch c.Transport {
	case TransportSerial, TransportStdio, TransportWS:
	default:
		errs = append(errs, fmt.Errorf("transport must be serial, stdio or ws, got %q", c.Transport))
	}
	if c.MacrosDir == "" {
		errs = append(errs, errors.New("macros_dir is empty"))
	}
	if c.Brightness < 0 || c.Brightness > 1 {
		errs = append(errs, fmt.Errorf("brightness must be within [0,1], got %v", c.Brightness))
	}
	if c.MaxFrame <= 0 {
		errs = append(errs, fmt.Errorf("max_frame must be positive, got %d", c.MaxFrame))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll_interval must be positive"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Read loads path over the defaults. A missing file yields the defaults.
func Read(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from MACROPAD_* variables.
func (c *Config) ApplyEnv() error {
	var errs []error
	for _, s := range settings {
		if v, ok := os.LookupEnv(EnvName(s.key)); ok && v != "" {
			if err := s.set(c, v); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", EnvName(s.key), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Load reads path, applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to disk using atomic write (temp file + rename)
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, "config-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}

// withLock serializes read-modify-write cycles on path using flock
func withLock(path string, fn func() error) error {
	lockPath := path + ".lock"

	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return err
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	return fn()
}

// SetValue updates one setting in the file at path.
func SetValue(path, key, value string) error {
	return withLock(path, func() error {
		cfg, err := Read(path)
		if err != nil {
			return err
		}
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return Save(path, cfg)
	})
}
