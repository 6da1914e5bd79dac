// Command lgtv-log views and analyzes SSAP protocol captures.
//
// Captures are written by lgtv when run with --protocol-log (or the
// protocol_log setting).
//
// Usage:
//
//	lgtv-log <command> [flags] <file.cap>
//
// Examples:
//
//	# View all events
//	lgtv-log view lgtv.cap
//
//	# View only replies from the TV
//	lgtv-log view --direction in --category message lgtv.cap
//
//	# Export requests as CSV
//	lgtv-log export --format csv --type request lgtv.cap
//
//	# Keep one session in a new file
//	lgtv-log filter --conn-id 0f3c9a1e-... -o session.cap lgtv.cap
//
//	# Show statistics
//	lgtv-log stats lgtv.cap
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/webos-remote/lgtv-go/cmd/lgtv-log/commands"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "lgtv-log",
		Short:        "SSAP protocol capture analyzer",
		SilenceUsage: true,
	}
	root.AddCommand(newViewCmd(), newExportCmd(), newFilterCmd(), newStatsCmd())
	return root
}

// addFilterFlags registers the flags shared by view, export and filter.
func addFilterFlags(cmd *cobra.Command, opts *commands.FilterOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.ConnID, "conn-id", "", "Filter by connection ID")
	f.StringVar(&opts.Device, "device", "", "Filter by TV name")
	f.StringVar(&opts.MessageType, "type", "", "Filter by SSAP message type (register, request, response, ...)")
	f.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	f.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	f.StringVar(&opts.Layer, "layer", "", "Filter by layer (transport, wire, session)")
	f.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	f.StringVar(&opts.Category, "category", "", "Filter by category (message, control, state, error)")
}

func newViewCmd() *cobra.Command {
	var opts commands.FilterOptions
	cmd := &cobra.Command{
		Use:   "view [flags] <file.cap>",
		Short: "View capture in human-readable format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.Build()
			if err != nil {
				return err
			}
			return commands.RunView(args[0], filter, cmd.OutOrStdout())
		},
	}
	addFilterFlags(cmd, &opts)
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		opts   commands.FilterOptions
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export [flags] <file.cap>",
		Short: "Export capture to JSON lines or CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.Build()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return commands.RunExport(args[0], format, filter, w)
		},
	}
	cmd.Flags().StringVar(&format, "format", "jsonl", "Output format (jsonl, csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	addFilterFlags(cmd, &opts)
	return cmd
}

func newFilterCmd() *cobra.Command {
	var (
		opts   commands.FilterOptions
		output string
	)
	cmd := &cobra.Command{
		Use:   "filter [flags] <file.cap>",
		Short: "Filter capture and write matching events to a new file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.Build()
			if err != nil {
				return err
			}
			n, err := commands.RunFilter(args[0], output, filter)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Filtered %d events to %s\n", n, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (required)")
	_ = cmd.MarkFlagRequired("output")
	addFilterFlags(cmd, &opts)
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file.cap>",
		Short: "Show statistics about the capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunStats(args[0], cmd.OutOrStdout())
		},
	}
}
