package discovery

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Defaults for Config.
const (
	DefaultConcurrency    = 32
	DefaultProbeTimeout   = time.Second
	DefaultConfirmTimeout = 6 * time.Second
)

// DeviceInfo describes a TV whose handshake succeeded.
const DeviceInfo = "LG webOS TV (connection successful)"

var (
	errProbeTimeout   = errors.New("probe timed out")
	errConfirmTimeout = errors.New("confirmation timed out")
)

// Prober checks whether something listens on the SSAP port of address.
type Prober interface {
	Probe(ctx context.Context, address string) bool
}

// Confirmer runs a handshake against address and returns a description of
// the device on success.
type Confirmer interface {
	Confirm(ctx context.Context, address string) (string, error)
}

// HostnameResolver maps IPv4 addresses to host names.
type HostnameResolver interface {
	Resolve(ctx context.Context) map[string]string
}

// Config configures an Engine.
type Config struct {
	UseSSL bool

	// Concurrency bounds parallel fast-phase probes. Default: 32.
	Concurrency int

	// ProbeTimeout bounds each fast-phase probe. Default: 1 second.
	ProbeTimeout time.Duration

	// ConfirmTimeout bounds each confirmation handshake. Default: 6 seconds.
	ConfirmTimeout time.Duration

	// Prober defaults to a TCPProber on the SSAP port.
	Prober Prober

	// Confirmer defaults to an SSAPConfirmer.
	Confirmer Confirmer

	// Hostnames, if set, runs alongside the fast phase.
	Hostnames HostnameResolver

	Logger *slog.Logger

	// OnEvent receives per-address diagnostics. It may be called from
	// several goroutines at once.
	OnEvent func(Event)
}

// ProbeResult is the fast-phase outcome for one target. Index is the
// target's position in the submitted list.
type ProbeResult struct {
	Index     int
	Address   string
	Responded bool
}

// Device is a confirmed TV.
type Device struct {
	Address  string
	Info     string
	Hostname string
}

// Report summarizes a scan.
type Report struct {
	Targets    int
	Responders []ProbeResult
	Devices    []Device
	Elapsed    time.Duration
}

// Engine runs scans.
type Engine struct {
	config Config
	logger *slog.Logger
}

// NewEngine returns an Engine with defaults filled in.
func NewEngine(cfg Config) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Prober == nil {
		cfg.Prober = &TCPProber{UseSSL: cfg.UseSSL, Timeout: cfg.ProbeTimeout, Logger: logger}
	}
	if cfg.Confirmer == nil {
		cfg.Confirmer = &SSAPConfirmer{UseSSL: cfg.UseSSL, Timeout: cfg.ConfirmTimeout, Logger: logger}
	}

	return &Engine{config: cfg, logger: logger}
}

// FastProbe probes every target and returns the responders in submission
// order.
func (e *Engine) FastProbe(ctx context.Context, targets []string) []ProbeResult {
	results := make(chan ProbeResult, len(targets))

	var g errgroup.Group
	g.SetLimit(e.config.Concurrency)
	for i, address := range targets {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			start := time.Now()
			ok := e.config.Prober.Probe(ctx, address)
			results <- ProbeResult{Index: i, Address: address, Responded: ok}

			kind := EventProbeSilent
			if ok {
				kind = EventProbeResponded
			}
			e.emit(Event{Kind: kind, Address: address, Duration: time.Since(start)})
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	var responders []ProbeResult
	for r := range results {
		if r.Responded {
			responders = append(responders, r)
		}
	}
	sort.Slice(responders, func(i, j int) bool {
		return responders[i].Index < responders[j].Index
	})

	e.logger.Debug("FastProbe: done", "targets", len(targets), "responders", len(responders))
	return responders
}

// Confirm runs the confirmation handshake against each responder in turn
// and returns the confirmed devices in the same order.
func (e *Engine) Confirm(ctx context.Context, responders []ProbeResult) []Device {
	if len(responders) > 0 && ctx.Err() == nil {
		e.emit(Event{Kind: EventConfirmStarted, Count: len(responders), Duration: e.config.ConfirmTimeout})
	}

	var devices []Device
	for _, r := range responders {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		info, err := e.confirmOne(ctx, r.Address)
		if err != nil {
			kind := EventConfirmFailed
			if errors.Is(err, errConfirmTimeout) {
				kind = EventConfirmTimeout
			}
			e.logger.Debug("Confirm: dropping address", "address", r.Address, "error", err)
			e.emit(Event{Kind: kind, Address: r.Address, Err: err, Duration: time.Since(start)})
			continue
		}

		e.emit(Event{Kind: EventConfirmed, Address: r.Address, Info: info, Duration: time.Since(start)})
		devices = append(devices, Device{Address: r.Address, Info: info})
	}
	return devices
}

// confirmOne races the confirmer against ConfirmTimeout. The loser is
// cancelled through its context.
func (e *Engine) confirmOne(ctx context.Context, address string) (string, error) {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		info string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		info, err := e.config.Confirmer.Confirm(cctx, address)
		done <- outcome{info, err}
	}()

	timer := time.NewTimer(e.config.ConfirmTimeout)
	defer timer.Stop()

	select {
	case o := <-done:
		return o.info, o.err
	case <-timer.C:
		return "", errConfirmTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Scan runs both phases. It only fails when ctx is cancelled, in which case
// the partial report is returned along with ctx's error.
func (e *Engine) Scan(ctx context.Context, targets []string) (*Report, error) {
	start := time.Now()
	report := &Report{Targets: len(targets)}

	var (
		wg        sync.WaitGroup
		hostnames map[string]string
	)
	if e.config.Hostnames != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hostnames = e.config.Hostnames.Resolve(ctx)
		}()
	}

	report.Responders = e.FastProbe(ctx, targets)
	report.Devices = e.Confirm(ctx, report.Responders)

	wg.Wait()
	for i := range report.Devices {
		if name, ok := hostnames[report.Devices[i].Address]; ok {
			report.Devices[i].Hostname = name
		}
	}

	report.Elapsed = time.Since(start)
	e.logger.Info("Scan complete",
		"targets", report.Targets,
		"responders", len(report.Responders),
		"devices", len(report.Devices),
		"elapsed", report.Elapsed)

	return report, ctx.Err()
}

func (e *Engine) emit(ev Event) {
	if e.config.OnEvent != nil {
		e.config.OnEvent(ev)
	}
}
