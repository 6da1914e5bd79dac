package wol

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestMagicPacket(t *testing.T) {
	packet, err := MagicPacket("a8:23:fe:01:02:03")
	if err != nil {
		t.Fatalf("MagicPacket() error = %v", err)
	}
	if len(packet) != 102 {
		t.Fatalf("len(packet) = %d, want 102", len(packet))
	}
	if !bytes.Equal(packet[:6], []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}) {
		t.Errorf("header = % x, want ff x6", packet[:6])
	}
	mac := []byte{0xa8, 0x23, 0xfe, 0x01, 0x02, 0x03}
	for i := 0; i < 16; i++ {
		off := 6 + i*6
		if !bytes.Equal(packet[off:off+6], mac) {
			t.Errorf("repetition %d = % x, want % x", i, packet[off:off+6], mac)
		}
	}
}

func TestMagicPacketAcceptsDashes(t *testing.T) {
	a, err := MagicPacket("A8-23-FE-01-02-03")
	if err != nil {
		t.Fatalf("MagicPacket() error = %v", err)
	}
	b, _ := MagicPacket("a8:23:fe:01:02:03")
	if !bytes.Equal(a, b) {
		t.Error("dash and colon notation produced different packets")
	}
}

func TestMagicPacketInvalid(t *testing.T) {
	for _, mac := range []string{"", "a8:23:fe", "zz:23:fe:01:02:03", "02:00:5e:10:00:00:00:01"} {
		if _, err := MagicPacket(mac); !errors.Is(err, ErrInvalidMAC) {
			t.Errorf("MagicPacket(%q) error = %v, want ErrInvalidMAC", mac, err)
		}
	}
}

func TestWakeSendsPacket(t *testing.T) {
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket() error = %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := Wake(ctx, "a8:23:fe:01:02:03", conn.LocalAddr().String()); err != nil {
		t.Fatalf("Wake() error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	want, _ := MagicPacket("a8:23:fe:01:02:03")
	if !bytes.Equal(buf[:n], want) {
		t.Errorf("received % x, want % x", buf[:n], want)
	}
}
