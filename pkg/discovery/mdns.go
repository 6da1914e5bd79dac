package discovery

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// mDNS defaults for MDNSResolver.
const (
	Domain              = "local."
	DefaultBrowseWindow = 2 * time.Second
)

// DefaultServiceTypes are services webOS TVs are known to advertise.
var DefaultServiceTypes = []string{
	"_airplay._tcp",
	"_hap._tcp",
	"_lg-smart-device._tcp",
}

type browseFunc func(ctx context.Context, service, domain string,
	entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error

func zeroconfBrowse(ctx context.Context, service, domain string,
	entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error {
	return zeroconf.Browse(ctx, service, domain, entries, removed, opts...)
}

// MDNSResolver maps IPv4 addresses to host names by browsing DNS-SD
// services for a fixed window. It is best-effort: browse failures yield
// fewer names, never an error.
type MDNSResolver struct {
	// ServiceTypes defaults to DefaultServiceTypes.
	ServiceTypes []string

	// Window is how long to listen. Default: 2 seconds.
	Window time.Duration

	// Interface restricts browsing to one network interface.
	// Empty string means all interfaces.
	Interface string

	Logger *slog.Logger

	browse browseFunc
}

// NewMDNSResolver returns a resolver with default service types.
func NewMDNSResolver(window time.Duration) *MDNSResolver {
	return &MDNSResolver{Window: window}
}

// Resolve implements HostnameResolver.
func (r *MDNSResolver) Resolve(ctx context.Context) map[string]string {
	window := r.Window
	if window <= 0 {
		window = DefaultBrowseWindow
	}
	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	services := r.ServiceTypes
	if len(services) == 0 {
		services = DefaultServiceTypes
	}
	browse := r.browse
	if browse == nil {
		browse = zeroconfBrowse
	}
	opts := r.browserOptions()

	var (
		mu    sync.Mutex
		hosts = make(map[string]string)
		wg    sync.WaitGroup
	)
	record := func(entry *zeroconf.ServiceEntry) {
		name := hostnameOf(entry)
		if name == "" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		for _, ip := range entry.AddrIPv4 {
			if _, seen := hosts[ip.String()]; !seen {
				hosts[ip.String()] = name
			}
		}
	}

	for _, service := range services {
		entries := make(chan *zeroconf.ServiceEntry)
		removed := make(chan *zeroconf.ServiceEntry)

		wg.Add(1)
		go func(in, gone <-chan *zeroconf.ServiceEntry) {
			defer wg.Done()
			for {
				select {
				case entry, ok := <-in:
					if !ok {
						in = nil
						continue
					}
					record(entry)
				case _, ok := <-gone:
					if !ok {
						gone = nil
					}
				case <-ctx.Done():
					return
				}
			}
		}(entries, removed)

		go func() {
			if err := browse(ctx, service, Domain, entries, removed, opts...); err != nil {
				r.logger().Debug("Resolve: browse failed", "service", service, "error", err)
			}
		}()
	}

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return hosts
}

func (r *MDNSResolver) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if r.Interface != "" {
		iface, err := net.InterfaceByName(r.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

func (r *MDNSResolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// hostnameOf prefers the advertised host name over the instance name.
func hostnameOf(entry *zeroconf.ServiceEntry) string {
	if entry == nil {
		return ""
	}
	name := strings.TrimSuffix(entry.HostName, ".")
	if name == "" {
		name = entry.Instance
	}
	return name
}
