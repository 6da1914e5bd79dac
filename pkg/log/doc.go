// Package log provides protocol capture for SSAP sessions.
//
// This package defines the Logger interface and Event types for recording
// what crossed the wire during a session: raw text frames, decoded
// messages, handshake state changes and errors. It is separate from
// operational logging (slog). A capture is a machine-readable trace that
// the lgtv-log tool can view and summarise later.
//
// # Basic Usage
//
//	// Console: mirror events to slog at debug level
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// File: append CBOR-encoded events
//	cfg.ProtocolLogger, _ = log.NewFileLogger("session.lglog")
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(slogAdapter, fileLogger)
//
// # File Format
//
// Capture files are a stream of CBOR-encoded Events with integer keys.
package log
