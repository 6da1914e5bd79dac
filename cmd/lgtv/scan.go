package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/webos-remote/lgtv-go/pkg/discovery"
	"github.com/webos-remote/lgtv-go/pkg/scan"
)

// targetPreview is how many planned addresses --debug prints.
const targetPreview = 20

func newScanCmd(a *app) *cobra.Command {
	var (
		seed  string
		debug bool
		mdns  bool
	)

	cmd := &cobra.Command{
		Use:     "scan",
		Short:   "Scan for LG TVs on the local network",
		GroupID: "setup",
		Long: `Discover LG webOS TVs on your local network. This command will:
  1. Plan the addresses to probe (local /24, or the --ip-address seed)
  2. Fast-probe every address for an open SSAP port
  3. Confirm each responder with a full handshake
  4. Display discovered TVs

--ip-address (alias --ip) accepts:
  a single IP (192.168.1.50)         scans that /24 subnet
  a /24 CIDR (192.168.1.0/24)
  a range (192.168.1.10-40 or 192.168.1.10-192.168.1.80)`,
		Example: `  lgtv scan --ssl
  lgtv scan --ssl --ip-address 10.0.20.15
  lgtv scan --ip 10.0.20.0/24
  lgtv scan --ssl --debug --ip-address 10.0.20.25`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if debug {
				if err := a.setDebug(cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("mdns") {
				mdns = a.settings.Scan.MDNS
			}
			return a.runScan(cmd, seed, debug, mdns)
		},
	}

	cmd.Flags().StringVar(&seed, "ip-address", "", "Seed IP, /24 CIDR, or range (e.g., 192.168.1.10-40) to scan")
	cmd.Flags().StringVar(&seed, "ip", "", "Alias for --ip-address")
	cmd.Flags().BoolVar(&debug, "debug", false, "Print detailed progress and connection errors during scanning")
	cmd.Flags().BoolVar(&mdns, "mdns", false, "Look up host names with mDNS while probing")
	return cmd
}

func (a *app) runScan(cmd *cobra.Command, seed string, debug, mdns bool) error {
	out := cmd.OutOrStdout()
	cfg := a.settings.Scan

	printTitle(out, "Scanning for LG webOS TVs")
	printField(out, "SSL", enabled(a.flags.ssl))
	fmt.Fprintln(out)

	planner := scan.NewPlanner()
	planner.CommonOctets = cfg.CommonOctets
	planner.MaxTargets = cfg.MaxTargets

	plan, err := planner.Plan(strings.TrimSpace(seed))
	if err != nil {
		return err
	}
	for _, line := range plan.Description {
		fmt.Fprintln(out, line)
	}
	if debug {
		printTargetPreview(out, plan.Targets)
	}
	fmt.Fprintln(out)

	if len(plan.Targets) == 0 {
		fmt.Fprintln(out, errorStyle.Render("No scan targets were generated. Provide a more specific --ip-address value."))
		return nil
	}

	engineCfg := discovery.Config{
		UseSSL:         a.flags.ssl,
		Concurrency:    cfg.Concurrency,
		ProbeTimeout:   cfg.ProbeTimeout,
		ConfirmTimeout: cfg.ConfirmTimeout,
		Prober: &discovery.TCPProber{
			UseSSL:  a.flags.ssl,
			Port:    a.flags.port,
			Timeout: cfg.ProbeTimeout,
			Logger:  a.logger,
		},
		Confirmer: &discovery.SSAPConfirmer{
			UseSSL:         a.flags.ssl,
			Port:           a.flags.port,
			Timeout:        cfg.ConfirmTimeout,
			Logger:         a.logger,
			ProtocolLogger: a.capture,
		},
		Logger:  a.logger,
		OnEvent: scanReporter(out, debug),
	}
	if mdns {
		resolver := discovery.NewMDNSResolver(cfg.MDNSWindow)
		resolver.Logger = a.logger
		engineCfg.Hostnames = resolver
	}
	engine := discovery.NewEngine(engineCfg)

	fmt.Fprintf(out, "Fast probing %d address(es) (timeout %s, concurrency %d)...\n",
		len(plan.Targets), cfg.ProbeTimeout, cfg.Concurrency)

	report, err := engine.Scan(cmd.Context(), plan.Targets)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)

	if len(report.Responders) == 0 {
		fmt.Fprintln(out, errorStyle.Render("No TVs responded during the fast probe phase."))
		fmt.Fprintln(out)
		printScanTroubleshooting(out)
		return nil
	}
	if len(report.Devices) == 0 {
		fmt.Fprintln(out, errorStyle.Render("No TVs found after confirming the fast probe candidates"))
		fmt.Fprintln(out)
		printScanTroubleshooting(out)
		return nil
	}

	printBanner(out, fmt.Sprintf("FOUND %d TV(S)", len(report.Devices)))
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(report.Devices))
	for _, d := range report.Devices {
		hostname := d.Hostname
		if hostname == "" {
			hostname = "-"
		}
		rows = append(rows, []string{d.Address, hostname, d.Info})
	}
	printTable(out, []string{"IP ADDRESS", "HOSTNAME", "INFO"}, rows)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "To pair with a TV:")
	for _, d := range report.Devices {
		fmt.Fprintln(out, "  "+commandStyle.Render(fmt.Sprintf("lgtv auth %s MyTV%s", d.Address, sslSuffix(a.flags.ssl))))
	}
	fmt.Fprintf(out, "\nScanned %d address(es) in %s.\n", report.Targets, report.Elapsed.Round(time.Millisecond))
	return nil
}

// scanReporter prints the confirmation phase as it happens. Per-address
// probe and handshake outcomes are only printed with --debug. Probe
// events arrive from several goroutines, so writes are serialized.
func scanReporter(w io.Writer, debug bool) func(discovery.Event) {
	var mu sync.Mutex
	return func(ev discovery.Event) {
		mu.Lock()
		defer mu.Unlock()

		switch ev.Kind {
		case discovery.EventConfirmStarted:
			fmt.Fprintf(w, "\nConfirming %d candidate(s) with a full handshake (timeout %s each)...\n", ev.Count, ev.Duration)
		case discovery.EventConfirmed:
			fmt.Fprintln(w, "   "+okStyle.Render("Found TV at "+ev.Address))
		case discovery.EventConfirmFailed:
			if debug {
				fmt.Fprintf(w, "   Handshake failed for %s: %v\n", ev.Address, ev.Err)
			}
		case discovery.EventConfirmTimeout:
			if debug {
				fmt.Fprintf(w, "   Handshake timed out for %s after %s\n", ev.Address, ev.Duration.Round(time.Millisecond))
			}
		case discovery.EventProbeResponded:
			if debug {
				fmt.Fprintf(w, "   Fast probe %s: responded\n", ev.Address)
			}
		case discovery.EventProbeSilent:
			if debug {
				fmt.Fprintf(w, "   Fast probe %s: no response\n", ev.Address)
			}
		}
	}
}

func printTargetPreview(w io.Writer, targets []string) {
	if len(targets) == 0 {
		fmt.Fprintln(w, "No targets generated.")
		return
	}
	n := min(targetPreview, len(targets))
	fmt.Fprintf(w, "Target preview (%d/%d): %s\n", n, len(targets), strings.Join(targets[:n], ", "))
	if len(targets) > n {
		fmt.Fprintf(w, "   ... +%d more\n", len(targets)-n)
	}
}

func printScanTroubleshooting(w io.Writer) {
	fmt.Fprintln(w, warningStyle.Render("Troubleshooting:"))
	fmt.Fprintln(w, "   1. Make sure your TV is powered on")
	fmt.Fprintln(w, "   2. Verify your TV is connected to the same network")
	fmt.Fprintln(w, "   3. Check if your TV's network settings show an IP address")
	fmt.Fprintln(w, "   4. Try scanning with --ssl or without it")
	fmt.Fprintln(w, "   5. Provide --ip-address <IP/CIDR/RANGE> to target a specific subnet")
}

func sslSuffix(ssl bool) string {
	if ssl {
		return " --ssl"
	}
	return ""
}
