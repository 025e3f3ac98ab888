package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/concordhq/concord/internal/client"
	"github.com/concordhq/concord/internal/delivery"
	"github.com/concordhq/concord/internal/export"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Server string
	Queue  string
	Rater  string
	Limit  int
	Out    string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export collected judgments as CSV",
		Long: `Write collected judgments as a BOM-prefixed CSV file for
spreadsheet tools.

The artifact is built from the server's stored judgments. When the
server is unreachable the export degrades to the local pending queue so
a sitting's work is never stranded.

Example:
  concord export --server http://localhost:3000 --out judgments.csv
  concord export --rater alice --out alice.csv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Server, "server", "http://localhost:3000", "judgment server base URL")
	cmd.Flags().StringVar(&opts.Queue, "queue", "pending.json", "path to the pending queue file")
	cmd.Flags().StringVar(&opts.Rater, "rater", "", "export a single rater's judgments (default all)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 10000, "maximum judgments to export")
	cmd.Flags().StringVar(&opts.Out, "out", "judgments.csv", "output file path")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	f, err := os.Create(opts.Out)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create output file", err)
	}
	defer f.Close()

	ctx := cmd.Context()
	src := client.New(opts.Server)

	err = export.FromSink(ctx, src, opts.Rater, opts.Limit, f)
	if client.IsStorageUnavailable(err) {
		slog.Warn("server unreachable, exporting local pending queue", "error", err)
		if err := export.FromLocalBuffer(delivery.NewFileQueue(opts.Queue), f); err != nil {
			return WrapExitError(ExitFailure, "local export failed", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(),
			"Server unreachable; wrote local pending judgments to %s.\n", opts.Out)
		return nil
	}
	if err != nil {
		return WrapExitError(ExitFailure, "export failed", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	return out.Successf("Wrote %s.", opts.Out)
}
