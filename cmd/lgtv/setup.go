package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "setup",
		Short:   "Interactive setup guide",
		Long:    "Step-by-step guide to set up and configure your LG TV for control",
		GroupID: "setup",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printSetupGuide(cmd.OutOrStdout())
		},
	}
}

var setupSteps = []struct {
	title string
	body  string
}{
	{"Prerequisites", `Before you begin, ensure:
  - Your LG TV is powered ON
  - Your TV is connected to your network (WiFi or Ethernet)
  - This computer is on the SAME network as your TV
  - You have your TV remote handy (for pairing approval)`},
	{"Check TV Network Settings", `On your LG TV:
  1. Press the Settings button on your remote
  2. Navigate to: Network > Network Status (or WiFi Connection)
  3. Note your TV's IP address (e.g., 192.168.1.100)
  4. Ensure it shows "Connected to Internet"`},
	{"Network Connection", `Ethernet is more reliable and lets you configure a static IP.
On WiFi, disable "WiFi Power Saving" so the TV stays reachable, and
enable "Turn on via Wi-Fi" if you want 'lgtv on' to work.`},
	{"Discover Your TV", `Run the scan command to find your TV:
  $ lgtv scan --ssl
  $ lgtv scan --ssl --ip-address 10.0.50.25
  $ lgtv scan --ip-address 10.0.50.10-40
--ip-address (alias --ip) seeds a different /24 subnet or limits the
scan to a last-octet range. Use it when this computer is not on the
same VLAN as the TV.`},
	{"Pair with Your TV", `Pair using the IP address from the scan:
  $ lgtv auth 192.168.1.100 LivingRoomTV --ssl
Accept the prompt on the TV. The client key is saved to
~/.lgtv/lgtv/config/config.json.`},
	{"Test the Connection", `  $ lgtv sw-info --name LivingRoomTV --ssl
  $ lgtv volume-up --name LivingRoomTV --ssl
Set default_name and ssl in ~/.lgtv/lgtv/settings.yaml to skip the flags.`},
}

func printSetupGuide(w io.Writer) {
	printTitle(w, "LG TV Control - Setup Guide")
	fmt.Fprintln(w)
	for i, step := range setupSteps {
		printBanner(w, fmt.Sprintf("Step %d: %s", i+1, step.title), step.body)
		fmt.Fprintln(w)
	}
}
