package cli

import (
	"github.com/spf13/cobra"

	"github.com/concordhq/concord/internal/client"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Server string
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "stats",
		Short:         "Show aggregate judgment counts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Server, "server", "http://localhost:3000", "judgment server base URL")

	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
	stats, err := client.New(opts.Server).Stats(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to fetch stats", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return out.Success(stats)
	}
	return out.Successf("judgments: %d\nraters: %d\nitems judged: %d\naverage score: %.2f",
		stats.TotalJudgments, stats.UniqueRaters, stats.UniqueItems, stats.AverageScore)
}
