package scan

import (
	"net"
	"slices"
)

// preferredInterfaces are tried before any other interface, in order.
var preferredInterfaces = []string{"en0", "en1", "eth0", "wlan0"}

// LocalIPv4 returns the IPv4 address of the primary non-loopback interface
// that is up.
func LocalIPv4() (net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, ErrNoLocalAddress
	}
	return pickIPv4(ifaces, interfaceIPv4s)
}

func pickIPv4(ifaces []net.Interface, addrsOf func(net.Interface) []net.IP) (net.IP, error) {
	candidates := make(map[string]net.IP)
	var order []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		for _, ip := range addrsOf(iface) {
			if ip4 := ip.To4(); ip4 != nil && !ip4.IsLoopback() {
				candidates[iface.Name] = ip4
				order = append(order, iface.Name)
				break
			}
		}
	}

	for _, name := range preferredInterfaces {
		if ip, ok := candidates[name]; ok {
			return ip, nil
		}
	}
	if len(order) > 0 {
		return candidates[order[0]], nil
	}
	return nil, ErrNoLocalAddress
}

func interfaceIPv4s(iface net.Interface) []net.IP {
	addrs, err := iface.Addrs()
	if err != nil {
		return nil
	}
	var ips []net.IP
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && ipNet.IP.To4() != nil {
			ips = append(ips, ipNet.IP)
		}
	}
	slices.SortStableFunc(ips, func(a, b net.IP) int {
		// Link-local last.
		return boolRank(a.IsLinkLocalUnicast()) - boolRank(b.IsLinkLocalUnicast())
	})
	return ips
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
