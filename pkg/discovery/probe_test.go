package discovery

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCompletionGateFinishesOnce(t *testing.T) {
	var gate completionGate
	var wins atomic.Int32
	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if gate.finish() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Errorf("finish() won %d times, want 1", got)
	}
}

func TestTCPProberListening(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	p := &TCPProber{Port: ln.Addr().(*net.TCPAddr).Port, Timeout: time.Second}
	if !p.Probe(context.Background(), "127.0.0.1") {
		t.Error("Probe() = false, want true for a listening port")
	}
}

func TestTCPProberClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	p := &TCPProber{Port: port, Timeout: time.Second}
	if p.Probe(context.Background(), "127.0.0.1") {
		t.Error("Probe() = true, want false for a closed port")
	}
}

func TestTCPProberTimeout(t *testing.T) {
	release := make(chan struct{})
	closed := make(chan struct{})

	p := &TCPProber{
		Port:    3000,
		Timeout: 30 * time.Millisecond,
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			<-release
			client, server := net.Pipe()
			t.Cleanup(func() { server.Close() })
			// Read only fails once the prober closes the late connection.
			go func() {
				buf := make([]byte, 1)
				if _, err := client.Read(buf); err != nil {
					close(closed)
				}
			}()
			return client, nil
		},
	}

	err := p.probe(context.Background(), "192.168.1.50")
	if !errors.Is(err, errProbeTimeout) {
		t.Errorf("probe() error = %v, want %v", err, errProbeTimeout)
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("late connection was not closed")
	}
}

func TestTCPProberContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := &TCPProber{
		Timeout: 5 * time.Second,
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	if p.Probe(ctx, "192.168.1.50") {
		t.Error("Probe() = true, want false after cancellation")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Probe() took %v after cancellation", elapsed)
	}
}

func TestTCPProberUsesSSAPPort(t *testing.T) {
	tests := []struct {
		useSSL bool
		want   string
	}{
		{false, "192.168.1.50:3000"},
		{true, "192.168.1.50:3001"},
	}
	for _, tt := range tests {
		var got string
		p := &TCPProber{
			UseSSL: tt.useSSL,
			DialContext: func(_ context.Context, _, address string) (net.Conn, error) {
				got = address
				return nil, errors.New("refused")
			},
		}
		p.Probe(context.Background(), "192.168.1.50")
		if got != tt.want {
			t.Errorf("dialed %q, want %q", got, tt.want)
		}
	}
}
