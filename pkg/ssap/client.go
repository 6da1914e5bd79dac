package ssap

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/webos-remote/lgtv-go/pkg/log"
	"github.com/webos-remote/lgtv-go/pkg/transport"
	"github.com/webos-remote/lgtv-go/pkg/wire"
)

// Defaults for Config.
const (
	DefaultHandshakeTimeout = 30 * time.Second
	DefaultSettleDelay      = 500 * time.Millisecond
	DefaultRequestTimeout   = 10 * time.Second
)

// Config configures a Client.
type Config struct {
	// Address is the TV's IPv4 address or host name.
	Address string

	// Port overrides the SSAP port. 0 selects 3000, or 3001 with UseSSL.
	Port   int
	UseSSL bool

	// Name labels capture events with the configured TV name.
	Name string

	// ClientKey is a previously stored pairing key. Empty forces the
	// on-screen pairing prompt.
	ClientKey string

	Expectation Expectation

	// HandshakeTimeout bounds the wait for handshake completion.
	// Default: 30 seconds.
	HandshakeTimeout time.Duration

	// SettleDelay is how long SendCommand waits after writing.
	// Default: 500ms. Negative disables the wait.
	SettleDelay time.Duration

	// RequestTimeout bounds Request. Default: 10 seconds.
	RequestTimeout time.Duration

	// PingInterval enables WebSocket keep-alive pings for long sessions.
	PingInterval time.Duration

	Logger         *slog.Logger
	ProtocolLogger log.Logger

	// OnMessage, if set, is called with every decoded inbound message,
	// from the connection's read loop.
	OnMessage func(*wire.Message)
}

// Client is an SSAP client for one TV.
type Client struct {
	config   Config
	logger   *slog.Logger
	protoLog log.Logger

	mu      sync.Mutex
	state   State
	session *session
}

// session is the per-Connect state. It is discarded on disconnect or
// transport failure.
type session struct {
	id          string
	expectation Expectation
	conn        *transport.ClientConn

	handshakeDone chan struct{}
	handshakeOnce sync.Once
	rejected      chan string

	// Guarded by Client.mu.
	negotiatedKey string
	lastID        uint64

	pending *pendingReplies
}

func (s *session) completeHandshake() {
	s.handshakeOnce.Do(func() { close(s.handshakeDone) })
}

func (s *session) handshakeComplete() bool {
	select {
	case <-s.handshakeDone:
		return true
	default:
		return false
	}
}

// NewClient returns a disconnected client.
func NewClient(cfg Config) *Client {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var protoLog log.Logger = log.NoopLogger{}
	if cfg.ProtocolLogger != nil {
		protoLog = cfg.ProtocolLogger
	}

	return &Client{
		config:   cfg,
		logger:   logger.With("tv", cfg.Address),
		protoLog: protoLog,
	}
}

// Address returns the TV address this client connects to.
func (c *Client) Address() string {
	return c.config.Address
}

// State returns the current state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HandshakeComplete reports whether the current session finished pairing.
func (c *Client) HandshakeComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil && c.session.handshakeComplete()
}

// ClientKey returns the key to persist: the key negotiated in this
// session if the TV sent one, otherwise the key the client was given.
func (c *Client) ClientKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.session.negotiatedKey != "" {
		return c.session.negotiatedKey
	}
	return c.config.ClientKey
}

// Connect dials the TV and performs the pairing handshake. On any failure
// the session is torn down and the client is back in StateDisconnected.
func (c *Client) Connect(ctx context.Context) error {
	if err := validateHost(c.config.Address); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	s := &session{
		id:            uuid.New().String(),
		expectation:   c.config.Expectation,
		handshakeDone: make(chan struct{}),
		rejected:      make(chan string, 1),
		pending:       newPendingReplies(),
	}
	c.session = s
	c.setStateLocked(s, StateConnecting, "connect")
	c.mu.Unlock()

	c.logger.Debug("Connect: dialing", "ssl", c.config.UseSSL, "expectation", s.expectation.String())

	conn, err := transport.Dial(ctx, transport.DialConfig{
		Host:         c.config.Address,
		Port:         c.config.Port,
		UseSSL:       c.config.UseSSL,
		DialTimeout:  c.config.HandshakeTimeout,
		PingInterval: c.config.PingInterval,
	}, &sessionHandler{client: c, session: s})
	if err != nil {
		c.teardown(s, "dial failed")
		c.captureError(s, log.LayerTransport, err.Error(), "dial")
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	c.mu.Lock()
	if c.session != s {
		c.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("%w: connection closed during connect", ErrTransport)
	}
	s.conn = conn
	c.setStateLocked(s, StateHandshakePending, "")
	c.mu.Unlock()

	data, err := wire.EncodeRegister(c.config.ClientKey)
	if err != nil {
		c.teardown(s, "encode register")
		return err
	}
	c.capture(s, log.Event{
		Direction: log.DirectionOut,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Message:   &log.MessageEvent{Type: wire.TypeRegister, ID: wire.RegisterID},
	})
	if err := c.write(s, data); err != nil {
		c.teardown(s, "send register failed")
		return err
	}

	timer := time.NewTimer(c.config.HandshakeTimeout)
	defer timer.Stop()

	select {
	case <-s.handshakeDone:
		return c.markReady(s)
	case reason := <-s.rejected:
		c.teardown(s, "pairing rejected")
		if reason == "" {
			reason = "TV refused registration"
		}
		return fmt.Errorf("%w: %s", ErrPairingRejected, reason)
	case <-conn.Done():
		if s.handshakeComplete() {
			return c.markReady(s)
		}
		c.teardown(s, "connection closed during handshake")
		if err := conn.Err(); err != nil {
			return fmt.Errorf("%w: connection closed during handshake: %v", ErrTransport, err)
		}
		return fmt.Errorf("%w: connection closed during handshake", ErrTransport)
	case <-timer.C:
		c.teardown(s, "handshake timeout")
		return ErrHandshakeTimeout
	case <-ctx.Done():
		c.teardown(s, "cancelled")
		return ctx.Err()
	}
}

// markReady is called once the handshake of s completed. If the TV closed
// the socket right after the satisfying frame, the session is already torn
// down and Connect still succeeds, in StateDisconnected.
func (c *Client) markReady(s *session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != s {
		c.logger.Debug("Connect: connection closed after handshake")
		return nil
	}
	c.setStateLocked(s, StateReady, "handshake complete")
	return nil
}

// SendCommand sends a request for uri and waits the settle delay. It does
// not wait for the TV's reply; replies reach OnMessage.
func (c *Client) SendCommand(ctx context.Context, uri string, payload wire.Object) error {
	s, id, err := c.nextRequest()
	if err != nil {
		return err
	}
	if err := c.sendRequest(s, id, uri, payload); err != nil {
		return err
	}
	return sleep(ctx, c.config.SettleDelay)
}

// Request sends a request for uri and waits for the reply carrying the
// same id. A reply of type "error" is returned along with an error
// wrapping ErrCommandFailed.
func (c *Client) Request(ctx context.Context, uri string, payload wire.Object) (*wire.Message, error) {
	s, id, err := c.nextRequest()
	if err != nil {
		return nil, err
	}

	replyID := wire.ID(strconv.FormatUint(id, 10))
	replyCh := s.pending.register(replyID)
	defer s.pending.remove(replyID)

	if err := c.sendRequest(s, id, uri, payload); err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.config.RequestTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrRequestTimeout
	case msg, ok := <-replyCh:
		if !ok {
			return nil, ErrNotConnected
		}
		if msg.Type == wire.TypeError {
			return msg, fmt.Errorf("%w: %s", ErrCommandFailed, msg.Error)
		}
		return msg, nil
	}
}

// Disconnect closes the connection and clears the session. It is safe to
// call at any time, any number of times, but not from OnMessage. Once it
// returns, OnMessage is no longer called for the closed session.
func (c *Client) Disconnect() {
	c.mu.Lock()
	s := c.session
	var conn *transport.ClientConn
	if s != nil {
		conn = s.conn
	}
	c.mu.Unlock()

	if s == nil {
		return
	}
	c.teardown(s, "disconnect")

	if conn != nil {
		select {
		case <-conn.Done():
		case <-time.After(transport.DefaultCloseTimeout):
			c.logger.Warn("Disconnect: read loop did not stop")
		}
	}
}

// nextRequest reserves the next correlation id of the ready session.
func (c *Client) nextRequest() (*session, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady || c.session == nil {
		return nil, 0, ErrNotConnected
	}
	c.session.lastID++
	return c.session, c.session.lastID, nil
}

func (c *Client) sendRequest(s *session, id uint64, uri string, payload wire.Object) error {
	data, err := wire.EncodeRequest(id, uri, payload)
	if err != nil {
		return err
	}
	c.capture(s, log.Event{
		Direction: log.DirectionOut,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Message: &log.MessageEvent{
			Type:    wire.TypeRequest,
			ID:      strconv.FormatUint(id, 10),
			URI:     uri,
			Payload: payloadJSON(payload),
		},
	})
	c.logger.Debug("SendCommand: sending", "id", id, "uri", uri)
	return c.write(s, data)
}

func (c *Client) write(s *session, data []byte) error {
	c.mu.Lock()
	conn := s.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.capture(s, log.Event{
		Direction: log.DirectionOut,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Frame:     log.NewFrameEvent(data),
	})
	if err := conn.SendText(data); err != nil {
		c.captureError(s, log.LayerTransport, err.Error(), "send")
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// teardown detaches s from the client, fails pending requests and closes
// the socket. The socket is closed outside c.mu because closing ends the
// read loop, which calls back into the client.
func (c *Client) teardown(s *session, reason string) {
	c.mu.Lock()
	if c.session != s {
		c.mu.Unlock()
		return
	}
	c.session = nil
	conn := s.conn
	c.setStateLocked(s, StateDisconnected, reason)
	c.mu.Unlock()

	s.pending.closeAll()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) setStateLocked(s *session, state State, reason string) {
	old := c.state
	c.state = state
	if old == state {
		return
	}
	c.capture(s, log.Event{
		Layer:    log.LayerSession,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: old.String(),
			NewState: state.String(),
			Reason:   reason,
		},
	})
}

// handleMessage runs on the read loop for every decoded inbound message.
func (c *Client) handleMessage(s *session, msg *wire.Message) {
	if !s.handshakeComplete() {
		switch {
		case s.expectation.Satisfied(msg):
			if s.expectation == ExpectRegistered {
				if key, ok := msg.ClientKey(); ok {
					c.mu.Lock()
					s.negotiatedKey = key
					c.mu.Unlock()
				}
			}
			s.completeHandshake()
			c.capture(s, log.Event{
				Direction: log.DirectionIn,
				Layer:     log.LayerSession,
				Category:  log.CategoryState,
				StateChange: &log.StateChangeEvent{
					Entity:   log.StateEntityHandshake,
					OldState: "PENDING",
					NewState: "COMPLETE",
					Reason:   msg.Type,
				},
			})
			c.logger.Debug("handshake complete", "msgType", msg.Type)
		case msg.Type == wire.TypeError && msg.ID == wire.RegisterID:
			select {
			case s.rejected <- msg.Error:
			default:
			}
		}
	}

	s.pending.deliver(msg)

	if c.config.OnMessage != nil {
		c.config.OnMessage(msg)
	}
}

func (c *Client) capture(s *session, ev log.Event) {
	ev.Timestamp = time.Now()
	ev.ConnectionID = s.id
	ev.RemoteAddr = c.config.Address
	ev.DeviceName = c.config.Name
	c.protoLog.Log(ev)
}

func (c *Client) captureError(s *session, layer log.Layer, msg, op string) {
	c.capture(s, log.Event{
		Layer:    layer,
		Category: log.CategoryError,
		Error:    &log.ErrorEventData{Layer: layer, Message: msg, Context: op},
	})
}

// sessionHandler binds transport callbacks to one session, so a late
// callback from an old connection cannot affect a newer session.
type sessionHandler struct {
	client  *Client
	session *session
}

func (h *sessionHandler) OnFrame(data []byte) {
	c, s := h.client, h.session
	c.capture(s, log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Frame:     log.NewFrameEvent(data),
	})

	msg, err := wire.DecodeMessage(data)
	if err != nil {
		c.logger.Debug("OnFrame: dropping malformed frame", "size", len(data), "error", err)
		c.captureError(s, log.LayerWire, err.Error(), "decode inbound frame")
		return
	}

	c.capture(s, log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Message: &log.MessageEvent{
			Type:    msg.Type,
			ID:      string(msg.ID),
			URI:     msg.URI,
			Payload: payloadJSON(msg.Payload),
			Error:   msg.Error,
		},
	})
	c.handleMessage(s, msg)
}

func (h *sessionHandler) OnClose(err error) {
	if err != nil {
		h.client.logger.Debug("OnClose: connection lost", "error", err)
		h.client.captureError(h.session, log.LayerTransport, err.Error(), "read loop")
	}
	h.client.teardown(h.session, "transport closed")
}

func (h *sessionHandler) OnControl(kind transport.ControlKind, code int) {
	ev := &log.ControlMsgEvent{}
	switch kind {
	case transport.ControlPing:
		ev.Type = log.ControlMsgPing
	case transport.ControlPong:
		ev.Type = log.ControlMsgPong
	case transport.ControlClose:
		ev.Type = log.ControlMsgClose
		ev.CloseCode = &code
	}
	h.client.capture(h.session, log.Event{
		Direction:  log.DirectionIn,
		Layer:      log.LayerTransport,
		Category:   log.CategoryControl,
		ControlMsg: ev,
	})
}

// payloadJSON renders a payload for capture with the client key redacted.
func payloadJSON(payload wire.Object) string {
	if len(payload) == 0 {
		return ""
	}
	if _, ok := payload[wire.KeyClientKey]; ok {
		redacted := make(wire.Object, len(payload))
		for k, v := range payload {
			redacted[k] = v
		}
		redacted[wire.KeyClientKey] = wire.String("<redacted>")
		payload = redacted
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(data)
}

// validateHost accepts an IP literal or a DNS host name.
func validateHost(host string) error {
	if host == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	if len(host) > 253 {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, host)
	}

	labels := strings.Split(strings.TrimSuffix(host, "."), ".")
	numeric := true
	for _, label := range labels {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return fmt.Errorf("%w: %q", ErrInvalidAddress, host)
		}
		for _, r := range label {
			isDigit := r >= '0' && r <= '9'
			if !isDigit {
				numeric = false
			}
			if !isDigit && !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && r != '-' {
				return fmt.Errorf("%w: %q", ErrInvalidAddress, host)
			}
		}
	}
	// All-numeric names are malformed IPv4 literals such as 192.168.1.300.
	if numeric {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, host)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
