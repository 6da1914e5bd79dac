package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Defaults for DialConfig.
const (
	DefaultDialTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 10 * time.Second
	DefaultCloseTimeout   = time.Second
	DefaultMaxMessageSize = 4 << 20
)

// ErrClosed is returned when writing to a closed connection.
var ErrClosed = errors.New("connection closed")

// FrameHandler receives inbound traffic. All calls for one connection are
// made from its read loop, in order.
type FrameHandler interface {
	// OnFrame is called for each inbound text frame.
	OnFrame(data []byte)

	// OnClose is called once when the read loop ends. err is nil when the
	// connection was closed locally.
	OnClose(err error)
}

// ControlObserver is optionally implemented by a FrameHandler to see
// inbound WebSocket control frames.
type ControlObserver interface {
	OnControl(kind ControlKind, closeCode int)
}

// ControlKind identifies a WebSocket control frame.
type ControlKind uint8

const (
	ControlPing ControlKind = iota
	ControlPong
	ControlClose
)

// DialConfig configures a connection to a TV.
type DialConfig struct {
	Host   string
	Port   int // 0 selects PlainPort or SSLPort
	UseSSL bool

	// DialTimeout bounds TCP, TLS and upgrade when ctx has no deadline.
	DialTimeout time.Duration

	WriteTimeout   time.Duration
	MaxMessageSize int64

	// PingInterval enables keep-alive pings when positive.
	PingInterval time.Duration
}

func (c *DialConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = Port(c.UseSSL)
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
}

// Dial connects to the TV and starts the read loop. handler is attached
// before the loop starts, so no inbound frame can be missed.
func Dial(ctx context.Context, cfg DialConfig, handler FrameHandler) (*ClientConn, error) {
	if handler == nil {
		return nil, fmt.Errorf("frame handler is required")
	}
	cfg.applyDefaults()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}

	dialer := &websocket.Dialer{
		NetDialContext:   (&net.Dialer{}).DialContext,
		HandshakeTimeout: cfg.DialTimeout,
	}
	if cfg.UseSSL {
		dialer.TLSClientConfig = NewInsecureTLSConfig()
	}

	url := URL(cfg.Host, cfg.Port, cfg.UseSSL)
	ws, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s failed: %w", url, err)
	}
	ws.SetReadLimit(cfg.MaxMessageSize)

	c := &ClientConn{
		ws:      ws,
		url:     url,
		config:  cfg,
		handler: handler,
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	c.installControlHandlers()

	go c.readLoop()
	if cfg.PingInterval > 0 {
		go c.pingLoop(cfg.PingInterval)
	}
	return c, nil
}

// ClientConn is an open WebSocket connection to a TV.
type ClientConn struct {
	ws      *websocket.Conn
	url     string
	config  DialConfig
	handler FrameHandler

	closeCh   chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex

	errMu   sync.Mutex
	readErr error
}

// URL returns the endpoint this connection was dialed to.
func (c *ClientConn) URL() string {
	return c.url
}

// RemoteAddr returns the TV's network address.
func (c *ClientConn) RemoteAddr() net.Addr {
	return c.ws.RemoteAddr()
}

// Done is closed when the read loop has ended.
func (c *ClientConn) Done() <-chan struct{} {
	return c.doneCh
}

// Err returns the error that ended the read loop, if any.
func (c *ClientConn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.readErr
}

// SendText writes one text frame.
func (c *ClientConn) SendText(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closeCh:
		return ErrClosed
	default:
	}

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame (best effort) and closes the socket. It does
// not wait for the read loop. Safe to call multiple times.
func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)

		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(DefaultCloseTimeout))
		c.writeMu.Unlock()

		err = c.ws.Close()
	})
	return err
}

func (c *ClientConn) readLoop() {
	defer close(c.doneCh)

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closeCh:
				err = nil
			default:
			}
			c.errMu.Lock()
			c.readErr = err
			c.errMu.Unlock()
			c.handler.OnClose(err)
			return
		}
		if kind == websocket.TextMessage {
			c.handler.OnFrame(data)
		}
	}
}

func (c *ClientConn) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeCh:
			return
		case <-c.doneCh:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.config.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *ClientConn) installControlHandlers() {
	c.ws.SetPongHandler(func(string) error {
		c.observe(ControlPong, 0)
		return nil
	})

	defaultPing := c.ws.PingHandler()
	c.ws.SetPingHandler(func(appData string) error {
		c.observe(ControlPing, 0)
		return defaultPing(appData)
	})

	defaultClose := c.ws.CloseHandler()
	c.ws.SetCloseHandler(func(code int, text string) error {
		c.observe(ControlClose, code)
		return defaultClose(code, text)
	})
}

func (c *ClientConn) observe(kind ControlKind, code int) {
	if o, ok := c.handler.(ControlObserver); ok {
		o.OnControl(kind, code)
	}
}
