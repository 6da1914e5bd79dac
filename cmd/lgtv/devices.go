package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/webos-remote/lgtv-go/pkg/persistence"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List configured TVs",
		GroupID: "setup",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			configs, err := a.store.LoadAll()
			if err != nil {
				return err
			}
			if len(configs) == 0 {
				fmt.Fprintln(out, "No TVs configured. Run 'lgtv scan' and 'lgtv auth' first.")
				return nil
			}

			rows := make([][]string, 0, len(configs))
			for _, c := range configs {
				paired := "no"
				if c.ClientKey != "" {
					paired = "yes"
				}
				rows = append(rows, []string{c.Name, c.IP, dash(c.MAC), dash(c.Hostname), paired})
			}
			printTable(out, []string{"NAME", "IP", "MAC", "HOSTNAME", "PAIRED"}, rows)
			return nil
		},
	}
}

func newForgetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "forget NAME",
		Short:   "Remove a TV's saved configuration",
		GroupID: "setup",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if _, err := a.store.Load(name); errors.Is(err, persistence.ErrNotFound) {
				return fmt.Errorf("no configuration for TV '%s'", name)
			}
			if err := a.store.Delete(name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %s.\n", name, a.store.Path())
			return nil
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
