package discovery

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/webos-remote/lgtv-go/pkg/transport"
)

// TCPProber reports whether a TCP connection to the SSAP port can be
// established within Timeout.
type TCPProber struct {
	UseSSL bool

	// Port overrides the SSAP port.
	Port int

	Timeout time.Duration
	Logger  *slog.Logger

	// DialContext defaults to a net.Dialer.
	DialContext func(ctx context.Context, network, address string) (net.Conn, error)
}

// Probe implements Prober.
func (p *TCPProber) Probe(ctx context.Context, address string) bool {
	err := p.probe(ctx, address)
	if err != nil && p.Logger != nil {
		p.Logger.Debug("Probe: no response", "address", address, "error", err)
	}
	return err == nil
}

// probe races a dial against the timeout. Exactly one outcome is recorded;
// a dial that succeeds after the timeout won is closed immediately.
func (p *TCPProber) probe(ctx context.Context, address string) error {
	port := p.Port
	if port == 0 {
		port = transport.Port(p.UseSSL)
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	dial := p.DialContext
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}

	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var gate completionGate
	result := make(chan error, 1)

	go func() {
		conn, err := dial(dialCtx, "tcp", net.JoinHostPort(address, strconv.Itoa(port)))
		if err == nil {
			conn.Close()
		}
		if gate.finish() {
			result <- err
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-timer.C:
		if gate.finish() {
			result <- errProbeTimeout
		}
	case <-ctx.Done():
		if gate.finish() {
			result <- ctx.Err()
		}
	}
	return <-result
}

// completionGate lets exactly one of several racing parties record an
// outcome.
type completionGate struct {
	mu   sync.Mutex
	done bool
}

// finish reports whether the caller is the first to finish.
func (g *completionGate) finish() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return false
	}
	g.done = true
	return true
}
