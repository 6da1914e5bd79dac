package ssap

import (
	"errors"

	"github.com/webos-remote/lgtv-go/pkg/wire"
)

// State is the lifecycle state of a Client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshakePending
	StateReady
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateHandshakePending:
		return "HANDSHAKE_PENDING"
	case StateReady:
		return "READY"
	default:
		return "UNKNOWN"
	}
}

// Expectation selects what completes the pairing handshake.
type Expectation uint8

const (
	// ExpectRegistered requires a "registered" message.
	ExpectRegistered Expectation = iota

	// ExpectPromptAcknowledged also accepts a response to register_0.
	ExpectPromptAcknowledged
)

// String returns the expectation name.
func (e Expectation) String() string {
	switch e {
	case ExpectRegistered:
		return "REGISTERED"
	case ExpectPromptAcknowledged:
		return "PROMPT_ACKNOWLEDGED"
	default:
		return "UNKNOWN"
	}
}

// Satisfied reports whether msg completes the handshake.
func (e Expectation) Satisfied(msg *wire.Message) bool {
	if msg == nil {
		return false
	}
	if msg.Type == wire.TypeRegistered {
		return true
	}
	return e == ExpectPromptAcknowledged &&
		msg.Type == wire.TypeResponse &&
		msg.ID == wire.RegisterID
}

// Client errors.
var (
	ErrInvalidAddress   = errors.New("invalid address")
	ErrTransport        = errors.New("transport error")
	ErrHandshakeTimeout = errors.New("handshake timed out")
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrPairingRejected  = errors.New("pairing rejected")
	ErrRequestTimeout   = errors.New("request timed out")
	ErrCommandFailed    = errors.New("command failed")
)
