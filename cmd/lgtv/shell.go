package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/webos-remote/lgtv-go/cmd/lgtv/interactive"
	"github.com/webos-remote/lgtv-go/pkg/settings"
)

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "shell",
		Short:   "Interactive session with one TV",
		GroupID: "setup",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.newClient(nil)
			if err != nil {
				return err
			}
			defer client.Disconnect()

			ctx := cmd.Context()
			if err := client.Connect(ctx); err != nil {
				return fmt.Errorf("connect to %s (%s): %w", a.flags.name, client.Address(), err)
			}

			history := filepath.Join(filepath.Dir(settings.DefaultPath()), "history")
			sh, err := interactive.New(client, a.flags.name, history)
			if err != nil {
				return err
			}
			sh.Run(ctx)
			return nil
		},
	}
}
