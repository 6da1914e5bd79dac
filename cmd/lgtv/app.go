package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/webos-remote/lgtv-go/pkg/log"
	"github.com/webos-remote/lgtv-go/pkg/persistence"
	"github.com/webos-remote/lgtv-go/pkg/settings"
)

// rootFlags holds the persistent flags.
type rootFlags struct {
	name        string
	ssl         bool
	config      string
	logLevel    string
	protocolLog string
	port        int
}

// app is the state shared by every command, built once the flags are
// parsed.
type app struct {
	flags rootFlags

	settings settings.Settings
	logger   *slog.Logger
	store    *persistence.ConfigStore

	// lookupMAC resolves a TV's hardware address for Wake-on-LAN.
	lookupMAC func(ctx context.Context, ip string) (string, error)

	// capture receives protocol events; nil when capture is off.
	capture     log.Logger
	captureFile *log.FileLogger
}

// prepare loads the settings and applies flag precedence. It runs as the
// root's PersistentPreRunE.
func (a *app) prepare(cmd *cobra.Command) error {
	path := a.flags.config
	if path == "" {
		path = settings.DefaultPath()
	}
	s, err := settings.Load(path)
	if err != nil {
		return err
	}
	a.settings = s

	flags := cmd.Flags()
	if !flags.Changed("name") {
		a.flags.name = s.DefaultName
	}
	if !flags.Changed("ssl") {
		a.flags.ssl = s.SSL
	}
	if !flags.Changed("log-level") {
		a.flags.logLevel = s.LogLevel
	}
	if !flags.Changed("protocol-log") {
		a.flags.protocolLog = s.ProtocolLog
	}

	level, err := settings.ParseLevel(a.flags.logLevel)
	if err != nil {
		return err
	}
	a.setupLogging(cmd.ErrOrStderr(), level)

	if err := a.setupCapture(level); err != nil {
		return err
	}

	configPath, err := persistence.DefaultConfigPath()
	if err != nil {
		return err
	}
	a.store = persistence.NewConfigStore(configPath)
	return nil
}

func (a *app) setupLogging(w io.Writer, level slog.Level) {
	a.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
}

// setupCapture opens the protocol capture file, if configured, and
// mirrors capture events to the logger at debug level.
func (a *app) setupCapture(level slog.Level) error {
	var loggers []log.Logger

	if a.flags.protocolLog != "" {
		f, err := log.NewFileLogger(a.flags.protocolLog)
		if err != nil {
			return fmt.Errorf("open protocol log: %w", err)
		}
		a.captureFile = f
		loggers = append(loggers, f)
		a.logger.Debug("Protocol capture enabled", "path", a.flags.protocolLog)
	}
	if level <= slog.LevelDebug {
		loggers = append(loggers, log.NewSlogAdapter(a.logger))
	}

	switch len(loggers) {
	case 0:
		a.capture = nil
	case 1:
		a.capture = loggers[0]
	default:
		a.capture = log.NewMultiLogger(loggers...)
	}
	return nil
}

// setDebug raises the log level to debug for the rest of the command.
func (a *app) setDebug(w io.Writer) error {
	a.setupLogging(w, slog.LevelDebug)
	a.closeCapture()
	return a.setupCapture(slog.LevelDebug)
}

func (a *app) closeCapture() {
	if a.captureFile != nil {
		if err := a.captureFile.Close(); err != nil {
			a.logger.Warn("Closing protocol log failed", "error", err)
		}
		a.captureFile = nil
	}
}

// close releases resources after the command has run.
func (a *app) close() {
	a.closeCapture()
}

// loadDevice returns the stored record for the selected TV.
func (a *app) loadDevice() (*persistence.DeviceConfig, error) {
	cfg, err := a.store.Load(a.flags.name)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, fmt.Errorf("Configuration not found for TV '%s'. Please run auth first.", a.flags.name)
	}
	return cfg, err
}
