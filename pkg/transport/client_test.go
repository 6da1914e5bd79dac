package transport_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webos-remote/lgtv-go/pkg/transport"
)

type recordingHandler struct {
	mu       sync.Mutex
	frames   []string
	controls []transport.ControlKind
	closed   chan error
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{closed: make(chan error, 1)}
}

func (h *recordingHandler) OnFrame(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames = append(h.frames, string(data))
}

func (h *recordingHandler) OnClose(err error) {
	h.closed <- err
}

func (h *recordingHandler) OnControl(kind transport.ControlKind, _ int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.controls = append(h.controls, kind)
}

func (h *recordingHandler) Frames() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.frames...)
}

// startServer runs a WebSocket server that calls serve for every
// connection and returns its host and port.
func startServer(t *testing.T, serve func(*websocket.Conn)) (string, int) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(srv.Close)

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestURL(t *testing.T) {
	assert.Equal(t, "ws://192.168.1.5:3000/", transport.URL("192.168.1.5", 0, false))
	assert.Equal(t, "wss://192.168.1.5:3001/", transport.URL("192.168.1.5", 0, true))
	assert.Equal(t, "ws://tv.local:8080/", transport.URL("tv.local", 8080, false))
}

func TestDialEchoesFramesInOrder(t *testing.T) {
	host, port := startServer(t, func(conn *websocket.Conn) {
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(kind, data); err != nil {
				return
			}
		}
	})

	h := newRecordingHandler()
	conn, err := transport.Dial(context.Background(), transport.DialConfig{Host: host, Port: port}, h)
	require.NoError(t, err)
	defer conn.Close()

	for _, msg := range []string{"one", "two", "three"} {
		require.NoError(t, conn.SendText([]byte(msg)))
	}

	assert.Eventually(t, func() bool { return len(h.Frames()) == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"one", "two", "three"}, h.Frames())
}

func TestDialDeliversFrameSentBeforeFirstWrite(t *testing.T) {
	host, port := startServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"hello"}`))
		_, _, _ = conn.ReadMessage()
	})

	h := newRecordingHandler()
	conn, err := transport.Dial(context.Background(), transport.DialConfig{Host: host, Port: port}, h)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return len(h.Frames()) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestCloseIsIdempotentAndReportsLocalClose(t *testing.T) {
	host, port := startServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	h := newRecordingHandler()
	conn, err := transport.Dial(context.Background(), transport.DialConfig{Host: host, Port: port}, h)
	require.NoError(t, err)

	assert.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())

	select {
	case err := <-h.closed:
		assert.NoError(t, err, "local close should not surface an error")
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not end")
	}
	<-conn.Done()

	assert.ErrorIs(t, conn.SendText([]byte("late")), transport.ErrClosed)
}

func TestRemoteCloseReportsError(t *testing.T) {
	host, port := startServer(t, func(conn *websocket.Conn) {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "standby")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	})

	h := newRecordingHandler()
	conn, err := transport.Dial(context.Background(), transport.DialConfig{Host: host, Port: port}, h)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case err := <-h.closed:
		assert.Error(t, err)
		assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not end")
	}
	assert.Error(t, conn.Err())
}

func TestDialFailsWithoutServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = transport.Dial(ctx, transport.DialConfig{Host: "127.0.0.1", Port: port}, newRecordingHandler())
	assert.Error(t, err)
}

func TestDialRequiresHandler(t *testing.T) {
	_, err := transport.Dial(context.Background(), transport.DialConfig{Host: "127.0.0.1"}, nil)
	assert.Error(t, err)
}
