package cli

import (
	"github.com/spf13/cobra"

	"github.com/concordhq/concord/internal/client"
	"github.com/concordhq/concord/internal/delivery"
)

// RetryOptions holds flags for the retry command.
type RetryOptions struct {
	*RootOptions
	Server string
	Queue  string
}

// retryReport is the retry command's result payload.
type retryReport struct {
	Delivered int `json:"delivered"`
	Remaining int `json:"remaining"`
}

// NewRetryCommand creates the retry command.
func NewRetryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RetryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Re-deliver queued judgments",
		Long: `Attempt delivery of every judgment in the local pending queue,
newest first. Judgments that deliver are removed from the queue; the
rest stay for a later attempt.

Example:
  concord retry --server http://localhost:3000 --queue ./pending.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetry(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Server, "server", "http://localhost:3000", "judgment server base URL")
	cmd.Flags().StringVar(&opts.Queue, "queue", "pending.json", "path to the pending queue file")

	return cmd
}

func runRetry(opts *RetryOptions, cmd *cobra.Command) error {
	queue := delivery.NewFileQueue(opts.Queue)
	syncer := delivery.NewSyncer(client.New(opts.Server), queue)

	outcomes, err := syncer.RetryPersisted(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "retry pass failed", err)
	}

	report := retryReport{}
	for _, o := range outcomes {
		if o.Delivered {
			report.Delivered++
		} else {
			report.Remaining++
		}
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		if err := out.Success(report); err != nil {
			return err
		}
	} else if err := out.Successf("Delivered %d queued judgments, %d remaining.",
		report.Delivered, report.Remaining); err != nil {
		return err
	}

	if report.Remaining > 0 {
		return NewExitError(ExitFailure, "some judgments are still queued")
	}
	return nil
}
