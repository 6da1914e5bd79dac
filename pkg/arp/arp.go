// Package arp looks up MAC addresses in the host's ARP cache.
//
// The kernel table at /proc/net/arp is read first. Where it is missing,
// as on macOS and the BSDs, the system arp command is used instead. Only
// addresses the host has recently talked to are present, so look up a TV
// right after connecting to it.
package arp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"
)

// DefaultTablePath is the Linux ARP table.
const DefaultTablePath = "/proc/net/arp"

// ErrNoEntry is returned when the cache has no usable entry for the address.
var ErrNoEntry = errors.New("no ARP entry")

// Resolver looks up MAC addresses.
type Resolver struct {
	// TablePath is read first. Empty skips the table.
	TablePath string

	// Command is run with the IP appended when the table has no entry.
	// Empty skips the command.
	Command []string

	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewResolver returns a Resolver using /proc/net/arp and "arp -n".
func NewResolver() *Resolver {
	return &Resolver{
		TablePath: DefaultTablePath,
		Command:   []string{"arp", "-n"},
	}
}

// Lookup returns the MAC address for ip as lower-case colon-separated hex.
func (r *Resolver) Lookup(ctx context.Context, ip string) (string, error) {
	if r.TablePath != "" {
		if f, err := os.Open(r.TablePath); err == nil {
			mac, ok := ParseProcTable(f, ip)
			f.Close()
			if ok {
				return mac, nil
			}
		}
	}

	if len(r.Command) > 0 {
		run := r.run
		if run == nil {
			run = runCommand
		}
		args := append(append([]string(nil), r.Command[1:]...), ip)
		out, err := run(ctx, r.Command[0], args...)
		if err != nil {
			return "", fmt.Errorf("%w for %s: %v", ErrNoEntry, ip, err)
		}
		if mac, ok := ParseArpOutput(out, ip); ok {
			return mac, nil
		}
	}

	return "", fmt.Errorf("%w for %s", ErrNoEntry, ip)
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return output, nil
}

// ParseProcTable finds ip in the /proc/net/arp format:
//
//	IP address       HW type     Flags       HW address            Mask     Device
//	192.168.1.100    0x1         0x2         a8:23:fe:01:02:03     *        eth0
func ParseProcTable(r io.Reader, ip string) (string, bool) {
	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] != ip {
			continue
		}
		if mac, ok := normalize(fields[3]); ok {
			return mac, true
		}
	}
	return "", false
}

// ParseArpOutput finds the MAC after "at" on the line mentioning ip:
//
//	? (192.168.1.100) at a8:23:fe:1:2:3 on en0 ifscope [ethernet]
//	? (192.168.1.100) at a8:23:fe:01:02:03 [ether] on eth0
func ParseArpOutput(out []byte, ip string) (string, bool) {
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "("+ip+")") {
			continue
		}
		fields := strings.Fields(line)
		for i, field := range fields {
			if field == "at" && i+1 < len(fields) {
				if mac, ok := normalize(fields[i+1]); ok {
					return mac, true
				}
			}
		}
	}
	return "", false
}

// normalize pads octets to two digits and lower-cases them. Incomplete
// entries (all zeros) are rejected.
func normalize(s string) (string, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return "", false
	}
	for i, part := range parts {
		if len(part) == 1 {
			part = "0" + part
		}
		parts[i] = strings.ToLower(part)
	}
	hw, err := net.ParseMAC(strings.Join(parts, ":"))
	if err != nil {
		return "", false
	}
	mac := hw.String()
	if mac == "00:00:00:00:00:00" {
		return "", false
	}
	return mac, true
}
