// Package settings loads the lgtv settings file.
//
// Settings are tool preferences (timeouts, scan tuning, logging). Paired
// TVs live in a separate config.json handled by pkg/persistence.
package settings

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid settings")

// Settings holds the tool preferences.
type Settings struct {
	DefaultName      string        `yaml:"default_name"`
	SSL              bool          `yaml:"ssl"`
	LogLevel         string        `yaml:"log_level"`
	ProtocolLog      string        `yaml:"protocol_log"`
	SettleDelay      time.Duration `yaml:"settle_delay"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	Scan             Scan          `yaml:"scan"`
}

// Scan tunes the discovery engine and address planner.
type Scan struct {
	Concurrency    int           `yaml:"concurrency"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`
	MDNS           bool          `yaml:"mdns"`
	MDNSWindow     time.Duration `yaml:"mdns_window"`
	CommonOctets   []int         `yaml:"common_octets"`
	MaxTargets     int           `yaml:"max_targets"`
}

// DefaultPath returns ~/.lgtv/lgtv/settings.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".lgtv", "lgtv", "settings.yaml")
}

// Default returns the built-in settings.
func Default() Settings {
	var s Settings
	if err := yaml.Unmarshal(defaultYAML, &s); err != nil {
		panic(fmt.Sprintf("settings: embedded defaults: %v", err))
	}
	return s
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("reading settings: %w", err)
	}

	if err := Parse(data, &s); err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes data over s and validates the result. Keys absent from
// data keep the values already in s.
func Parse(data []byte, s *Settings) error {
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parsing settings: %w", err)
	}
	return s.Validate()
}

// Validate checks ranges.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.DefaultName) == "" {
		return fmt.Errorf("%w: default_name must not be empty", ErrInvalid)
	}
	if _, err := ParseLevel(s.LogLevel); err != nil {
		return err
	}
	durations := []struct {
		key string
		d   time.Duration
	}{
		{"settle_delay", s.SettleDelay},
		{"handshake_timeout", s.HandshakeTimeout},
		{"scan.probe_timeout", s.Scan.ProbeTimeout},
		{"scan.confirm_timeout", s.Scan.ConfirmTimeout},
		{"scan.mdns_window", s.Scan.MDNSWindow},
	}
	for _, f := range durations {
		if f.d <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalid, f.key, f.d)
		}
	}
	if s.Scan.Concurrency < 1 {
		return fmt.Errorf("%w: scan.concurrency must be at least 1, got %d", ErrInvalid, s.Scan.Concurrency)
	}
	if s.Scan.MaxTargets < 1 {
		return fmt.Errorf("%w: scan.max_targets must be at least 1, got %d", ErrInvalid, s.Scan.MaxTargets)
	}
	for _, o := range s.Scan.CommonOctets {
		if o < 1 || o > 254 {
			return fmt.Errorf("%w: scan.common_octets entry %d outside 1..254", ErrInvalid, o)
		}
	}
	return nil
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: unknown log level %q", ErrInvalid, level)
	}
}
