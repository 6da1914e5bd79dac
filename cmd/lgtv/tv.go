package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/webos-remote/lgtv-go/pkg/remote"
	"github.com/webos-remote/lgtv-go/pkg/ssap"
	"github.com/webos-remote/lgtv-go/pkg/wire"
	"github.com/webos-remote/lgtv-go/pkg/wol"
)

var errMACRequired = errors.New("MAC address is required for Wake-on-LAN. Please add it to the config.")

// Command groups, in help order.
var commandGroups = []*cobra.Group{
	{ID: "setup", Title: "Setup & Discovery:"},
	{ID: remote.GroupInfo, Title: "Information:"},
	{ID: remote.GroupVolume, Title: "Volume Control:"},
	{ID: remote.GroupPower, Title: "Power Control:"},
	{ID: remote.GroupInput, Title: "Input Control:"},
	{ID: remote.GroupApps, Title: "App Control:"},
	{ID: remote.GroupMedia, Title: "Media Control:"},
	{ID: remote.GroupUtil, Title: "Utilities:"},
}

// newIntentCmd exposes one catalog intent as a command.
func newIntentCmd(a *app, in remote.Intent) *cobra.Command {
	use := in.Name
	if len(in.Args) > 0 {
		use += " " + strings.Join(in.Args, " ")
	}
	return &cobra.Command{
		Use:     use,
		Short:   in.Short,
		GroupID: in.Group,
		Args:    cobra.ExactArgs(len(in.Args)),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := in.Payload(args)
			if err != nil {
				return err
			}
			return a.withTV(cmd, func(ctx context.Context, c *ssap.Client) error {
				return c.SendCommand(ctx, in.URI, payload)
			})
		},
	}
}

// newClient builds a client for the stored TV using its client key.
func (a *app) newClient(onMessage func(*wire.Message)) (*ssap.Client, error) {
	dev, err := a.loadDevice()
	if err != nil {
		return nil, err
	}
	return ssap.NewClient(ssap.Config{
		Address:          dev.IP,
		Port:             a.flags.port,
		UseSSL:           a.flags.ssl,
		Name:             dev.Name,
		ClientKey:        dev.ClientKey,
		Expectation:      ssap.ExpectRegistered,
		HandshakeTimeout: a.settings.HandshakeTimeout,
		SettleDelay:      a.settings.SettleDelay,
		Logger:           a.logger,
		ProtocolLogger:   a.capture,
		OnMessage:        onMessage,
	}), nil
}

// withTV connects to the selected TV, runs fn, and disconnects. Inbound
// messages are printed as they arrive.
func (a *app) withTV(cmd *cobra.Command, fn func(context.Context, *ssap.Client) error) error {
	client, err := a.newClient(messagePrinter(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	defer client.Disconnect()

	ctx := cmd.Context()
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect to %s (%s): %w", a.flags.name, client.Address(), err)
	}
	return fn(ctx, client)
}

// messagePrinter writes inbound messages as indented JSON. Registration
// replies are skipped since they carry the client key.
func messagePrinter(w io.Writer) func(*wire.Message) {
	var mu sync.Mutex
	return func(msg *wire.Message) {
		if msg.Type == wire.TypeRegistered {
			return
		}
		data, err := json.MarshalIndent(msg, "", "  ")
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(w, string(data))
	}
}

func newOnCmd(a *app) *cobra.Command {
	var broadcast string
	cmd := &cobra.Command{
		Use:     "on",
		Short:   "Turn TV on (Wake-on-LAN)",
		GroupID: remote.GroupPower,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dev, err := a.loadDevice()
			if err != nil {
				return err
			}
			if dev.MAC == "" {
				return errMACRequired
			}
			if err := wol.Wake(cmd.Context(), dev.MAC, broadcast); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wake-on-LAN packet sent to %s (%s).\n", dev.Name, dev.MAC)
			return nil
		},
	}
	cmd.Flags().StringVar(&broadcast, "broadcast", wol.DefaultBroadcast, "Broadcast address and port for the magic packet")
	return cmd
}
