package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/webos-remote/lgtv-go/pkg/persistence"
	"github.com/webos-remote/lgtv-go/pkg/ssap"
)

func newAuthCmd(a *app) *cobra.Command {
	var ipFlag string

	cmd := &cobra.Command{
		Use:     "auth [IP] NAME",
		Short:   "Pair with a TV and save credentials",
		GroupID: "setup",
		Long: `Authenticate and pair with an LG webOS TV. This command will:
  1. Connect to the TV at the given IP address (or the IP already saved for NAME)
  2. Ask you to accept the pairing request on your TV screen
  3. Save the client key to ~/.lgtv/lgtv/config/config.json`,
		Example: `  lgtv auth 192.168.1.100 LivingRoomTV --ssl
  lgtv auth --ip-address 192.168.1.100 LivingRoomTV
  lgtv auth LivingRoomTV`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[len(args)-1]
			ip := ipFlag
			if len(args) == 2 {
				ip = args[0]
			}
			return a.runAuth(cmd, ip, name)
		},
	}

	cmd.Flags().StringVarP(&ipFlag, "ip-address", "i", "", "IP address of the TV (e.g., 192.168.1.100). Omit to reuse the saved IP.")
	return cmd
}

// resolveAuthIP picks the address to pair with: the given one, else the
// one already stored for the TV.
func resolveAuthIP(ip, name string, existing *persistence.DeviceConfig) (string, error) {
	if ip != "" {
		return ip, nil
	}
	if existing != nil && existing.IP != "" {
		return existing.IP, nil
	}
	return "", fmt.Errorf("Missing IP address for %s. Provide --ip-address or ensure the config already stores an IP.", name)
}

func (a *app) runAuth(cmd *cobra.Command, ip, name string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	existing, err := a.store.Load(name)
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return err
	}

	address, err := resolveAuthIP(ip, name, existing)
	if err != nil {
		return err
	}
	if ip == "" {
		fmt.Fprintf(out, "No --ip-address provided. Using saved IP %s for %s.\n", address, name)
	}

	printTitle(out, "Pairing with "+name)
	printField(out, "Address", address)
	printField(out, "SSL", enabled(a.flags.ssl))
	fmt.Fprintln(out)

	client := ssap.NewClient(ssap.Config{
		Address:          address,
		Port:             a.flags.port,
		UseSSL:           a.flags.ssl,
		Name:             name,
		Expectation:      ssap.ExpectRegistered,
		HandshakeTimeout: a.settings.HandshakeTimeout,
		Logger:           a.logger,
		ProtocolLogger:   a.capture,
	})
	defer client.Disconnect()

	printBanner(out, "PAIRING REQUEST SENT TO YOUR TV",
		"Please look at your TV screen now.",
		"A pairing request dialog should appear.",
		"",
		"Press 'Allow' or 'OK' on your TV remote to complete pairing.",
		fmt.Sprintf("Waiting for your response (up to %s)...", a.settings.HandshakeTimeout))
	fmt.Fprintln(out)

	if err := client.Connect(ctx); err != nil {
		fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("Pairing failed: %v", err)))
		fmt.Fprintln(out)
		printAuthTroubleshooting(out)
		return err
	}

	var previous persistence.DeviceConfig
	if existing != nil {
		previous = *existing
	}

	mac, err := a.lookupMAC(ctx, address)
	if err != nil {
		a.logger.Debug("MAC lookup failed", "address", address, "error", err)
		mac = previous.MAC
	}

	key := client.ClientKey()
	if key == "" {
		key = previous.ClientKey
	}

	record := persistence.DeviceConfig{
		Name:      name,
		IP:        address,
		Hostname:  previous.Hostname,
		MAC:       mac,
		ClientKey: key,
	}
	if err := a.store.Save(record); err != nil {
		return fmt.Errorf("save configuration: %w", err)
	}

	printBanner(out, "PAIRING SUCCESSFUL")
	fmt.Fprintln(out)
	printField(out, "Configuration saved to", a.store.Path())
	if mac != "" {
		printField(out, "MAC address", mac)
	}
	if key != "" {
		fmt.Fprintln(out, okStyle.Render("Client key saved."))
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "You can now control your TV with commands like:")
	for _, c := range []string{"sw-info", "volume-up", "off"} {
		fmt.Fprintln(out, "  "+commandStyle.Render(fmt.Sprintf("lgtv %s --name %s%s", c, name, sslSuffix(a.flags.ssl))))
	}
	return nil
}

func printAuthTroubleshooting(w io.Writer) {
	fmt.Fprintln(w, warningStyle.Render("Troubleshooting tips:"))
	fmt.Fprintln(w, "   1. Make sure your TV is powered on")
	fmt.Fprintln(w, "   2. Verify the IP address is correct")
	fmt.Fprintln(w, "   3. Ensure your computer and TV are on the same network")
	fmt.Fprintln(w, "   4. Try with or without the --ssl flag")
}
