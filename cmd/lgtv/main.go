// Command lgtv controls LG webOS TVs over the local network.
//
// Quick start:
//
//	lgtv setup                                  # step-by-step guide
//	lgtv scan --ssl [--ip-address <IP|RANGE>]   # find your TV
//	lgtv auth [<IP>] <NAME> --ssl               # pair (IP optional once saved)
//	lgtv sw-info --name <NAME> --ssl            # test the connection
//
// Paired TVs are stored in ~/.lgtv/lgtv/config/config.json. Tool
// preferences are read from ~/.lgtv/lgtv/settings.yaml; flags take
// priority over settings.
//
// Flags:
//
//	-n, --name string          TV name (default from settings: "LGC1")
//	    --ssl                  Use SSL (wss on port 3001)
//	    --config string        Settings file path
//	    --log-level string     Log level: debug, info, warn, error
//	    --protocol-log string  Capture SSAP traffic to a file (see lgtv-log)
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/webos-remote/lgtv-go/pkg/arp"
	"github.com/webos-remote/lgtv-go/pkg/remote"
)

// version is set at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp()
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

func newApp() *app {
	return &app{lookupMAC: arp.NewResolver().Lookup}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:     "lgtv",
		Short:   "LGTV Controller",
		Version: version,
		Long: `Control your LG webOS TV from the command line.

Quick Start:
  1. Run 'lgtv setup' for step-by-step setup guide
  2. Run 'lgtv scan --ssl [--ip-address <IP|RANGE>]' to find your TV
  3. Run 'lgtv auth [<IP>] <NAME> --ssl' to pair with your TV (IP optional when a saved IP exists)
  4. Run 'lgtv sw-info --name <NAME> --ssl' to test connection`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.prepare(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.flags.name, "name", "n", "LGC1", "TV name")
	f.BoolVar(&a.flags.ssl, "ssl", false, "Use SSL (wss)")
	f.StringVar(&a.flags.config, "config", "", "Settings file (default ~/.lgtv/lgtv/settings.yaml)")
	f.StringVar(&a.flags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	f.StringVar(&a.flags.protocolLog, "protocol-log", "", "Capture SSAP traffic to this file")
	f.IntVar(&a.flags.port, "port", 0, "Override the SSAP port")
	_ = f.MarkHidden("port")

	root.AddGroup(commandGroups...)
	root.AddCommand(
		newSetupCmd(),
		newScanCmd(a),
		newAuthCmd(a),
		newListCmd(a),
		newForgetCmd(a),
		newShellCmd(a),
		newOnCmd(a),
	)
	for _, in := range remote.Catalog() {
		root.AddCommand(newIntentCmd(a, in))
	}
	return root
}
