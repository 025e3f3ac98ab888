package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/concordhq/concord/internal/client"
	"github.com/concordhq/concord/internal/delivery"
	"github.com/concordhq/concord/internal/session"
	"github.com/concordhq/concord/internal/survey"
)

// AnnotateOptions holds flags for the annotate command.
type AnnotateOptions struct {
	*RootOptions
	Server string
	Queue  string
	Rater  string
	Limit  int
}

// NewAnnotateCommand creates the annotate command.
func NewAnnotateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnnotateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Run an interactive judgment session",
		Long: `Fetch a batch of items and walk through them in the terminal.

Each item shows both texts and asks for a score from 1 to 5. Enter "b"
to go back one item (the previous score is discarded), or "q" to stop
early. Reaching the end of the batch asks for confirmation before the
session's judgments are delivered; answering "n" steps back instead.

Judgments that fail to deliver land in the local pending queue and are
retried at the start of the next session, or with "concord retry".

Example:
  concord annotate --rater alice --server http://localhost:3000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Server, "server", "http://localhost:3000", "judgment server base URL")
	cmd.Flags().StringVar(&opts.Queue, "queue", "pending.json", "path to the pending queue file")
	cmd.Flags().StringVar(&opts.Rater, "rater", "", "rater name (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", survey.DefaultSessionLimit, "maximum items per session")
	_ = cmd.MarkFlagRequired("rater")

	return cmd
}

// prompter reads rater answers line by line.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// ask prints the prompt and returns the trimmed, lowercased answer.
// Returns "q" on EOF so a closed stdin behaves like an early exit.
func (p *prompter) ask(prompt string) string {
	fmt.Fprint(p.out, prompt)
	if !p.in.Scan() {
		return "q"
	}
	return strings.ToLower(strings.TrimSpace(p.in.Text()))
}

func runAnnotate(opts *AnnotateOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	p := &prompter{in: bufio.NewScanner(cmd.InOrStdin()), out: out}

	c := client.New(opts.Server)
	queue := delivery.NewFileQueue(opts.Queue)
	syncer := delivery.NewSyncer(c, queue)

	// Drain anything stranded by a previous sitting before starting.
	if outcomes, err := syncer.RetryPersisted(ctx); err != nil {
		slog.Warn("startup retry pass failed", "error", err)
	} else if n := countDelivered(outcomes); n > 0 {
		fmt.Fprintf(out, "Delivered %d judgments from a previous session.\n", n)
	}

	runner := session.NewRunner(c, c, syncer, session.WithLimit(opts.Limit))

	ok, err := runner.Start(ctx, opts.Rater)
	if session.IsValidationError(err) {
		return WrapExitError(ExitCommandError, "cannot start session", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to fetch items", err)
	}
	if !ok {
		fmt.Fprintln(out, "No eligible items remain. You're done!")
		return nil
	}

	for {
		if err := annotateSession(ctx, runner, p, out); err != nil {
			return err
		}

		if p.ask("Continue with a new batch? [y/n]: ") != "y" {
			break
		}
		ok, err := runner.Continue(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to fetch items", err)
		}
		if !ok {
			fmt.Fprintln(out, "No eligible items remain. You're done!")
			break
		}
	}

	runner.WaitUsageAccounting()
	return nil
}

// annotateSession walks one loaded batch to a terminal state.
func annotateSession(ctx context.Context, runner *session.Runner, p *prompter, out io.Writer) error {
	for runner.State() == session.StateRunning {
		item, err := runner.Current()
		if err != nil {
			return WrapExitError(ExitFailure, "session error", err)
		}
		renderItem(out, runner, item)

		answer := p.ask("Score [1-5], b=back, q=quit: ")
		switch answer {
		case "q":
			return finishSession(ctx, runner, out, true)
		case "b":
			if err := runner.Retreat(); err != nil {
				fmt.Fprintln(out, "Already at the first item.")
			}
		default:
			score, err := strconv.Atoi(answer)
			if err != nil || score < 1 || score > 5 {
				fmt.Fprintln(out, "Please enter a score from 1 to 5.")
				continue
			}
			atEnd, err := runner.Advance(ctx, score)
			if err != nil {
				return WrapExitError(ExitFailure, "session error", err)
			}
			if atEnd {
				if p.ask("End of batch. Finish and submit? [y/n]: ") == "y" {
					return finishSession(ctx, runner, out, false)
				}
				// Declined: step back and re-show the last item.
				if _, err := runner.Confirm(ctx, false); err != nil {
					return WrapExitError(ExitFailure, "session error", err)
				}
			}
		}
	}
	return nil
}

// finishSession flushes the buffer via the confirmed path and reports
// delivery counts. Queued judgments are a warning, not a failure; the
// retry pass picks them up.
func finishSession(ctx context.Context, runner *session.Runner, out io.Writer, early bool) error {
	var outcomes []delivery.Outcome
	var err error
	if early {
		outcomes, err = runner.ExitEarly(ctx)
	} else {
		outcomes, err = runner.Confirm(ctx, true)
	}
	if err != nil {
		slog.Warn("flush finished with failures", "error", err)
	}

	delivered := countDelivered(outcomes)
	queued := len(outcomes) - delivered
	fmt.Fprintf(out, "Submitted %d judgments", delivered)
	if queued > 0 {
		fmt.Fprintf(out, " (%d queued locally for retry)", queued)
	}
	fmt.Fprintln(out, ".")
	return nil
}

// renderItem prints one text pair with session progress.
func renderItem(out io.Writer, runner *session.Runner, item survey.Item) {
	cursor, total := runner.Progress()
	fmt.Fprintf(out, "\n[%d/%d] %s\n", cursor+1, total, item.GroupKey)
	fmt.Fprintf(out, "--- A ---\n%s\n", item.TextA)
	fmt.Fprintf(out, "--- B ---\n%s\n", item.TextB)
}

func countDelivered(outcomes []delivery.Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Delivered {
			n++
		}
	}
	return n
}
