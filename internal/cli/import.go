package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/concordhq/concord/internal/ingest"
	"github.com/concordhq/concord/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
	Reset    bool
}

// importReport is the import command's result payload.
type importReport struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Cleared  int `json:"cleared,omitempty"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <csv-file-or-dir>",
		Short: "Load items into the pool",
		Long: `Load items from a CSV file, or every .csv file in a directory,
into the item pool.

Rows are: id, group key, text A, text B, optional date, optional usage
seed. Malformed rows are skipped and counted. With --reset the existing
pool is cleared first; collected judgments are never touched.

Example:
  concord import --db ./concord.db ./pool.csv
  concord import --db ./concord.db --reset ./data/`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().BoolVar(&opts.Reset, "reset", false, "clear the existing pool before loading")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	report := importReport{}

	if opts.Reset {
		cleared, err := st.ClearItems(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to clear pool", err)
		}
		report.Cleared = int(cleared)
		slog.Info("pool cleared", "removed", cleared)
	}

	result, err := ingest.ImportPath(ctx, st, path)
	if err != nil {
		return WrapExitError(ExitCommandError, "import failed", err)
	}
	report.Inserted = result.Inserted
	report.Skipped = result.Skipped

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return out.Success(report)
	}
	return out.Successf("Imported %d items (%d skipped).", report.Inserted, report.Skipped)
}
