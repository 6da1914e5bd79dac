// Package wol sends Wake-on-LAN magic packets.
//
// webOS TVs switch off their network stack in deep standby unless "Turn on
// via Wi-Fi" (or "Mobile TV On") is enabled, so a TV that does not react
// to a packet is usually a settings issue rather than a network one.
package wol

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// DefaultBroadcast is the limited broadcast address on the discard port.
const DefaultBroadcast = "255.255.255.255:9"

// ErrInvalidMAC is returned for addresses that are not 6-byte MACs.
var ErrInvalidMAC = errors.New("invalid MAC address")

// MagicPacket returns 6 bytes of 0xFF followed by 16 copies of mac.
func MagicPacket(mac string) ([]byte, error) {
	hw, err := net.ParseMAC(mac)
	if err != nil || len(hw) != 6 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
	}

	packet := make([]byte, 0, 6+16*6)
	for range 6 {
		packet = append(packet, 0xFF)
	}
	for range 16 {
		packet = append(packet, hw...)
	}
	return packet, nil
}

// Wake sends a magic packet for mac to broadcast (host:port). Empty
// broadcast means DefaultBroadcast.
func Wake(ctx context.Context, mac, broadcast string) error {
	packet, err := MagicPacket(mac)
	if err != nil {
		return err
	}
	if broadcast == "" {
		broadcast = DefaultBroadcast
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp4", broadcast)
	if err != nil {
		return fmt.Errorf("wake-on-lan dial %s: %w", broadcast, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	if _, err := conn.Write(packet); err != nil {
		return fmt.Errorf("wake-on-lan send: %w", err)
	}
	return nil
}
