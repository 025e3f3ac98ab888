package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/concordhq/concord/internal/delivery"
	"github.com/concordhq/concord/internal/session"
	"github.com/concordhq/concord/internal/survey"
)

// Event is one entry in a scenario trace.
type Event struct {
	Event     string `json:"event"`
	Session   string `json:"session,omitempty"`
	Group     string `json:"group,omitempty"`
	Items     int    `json:"items,omitempty"`
	Item      string `json:"item,omitempty"`
	Score     int    `json:"score,omitempty"`
	AtEnd     bool   `json:"at_end,omitempty"`
	Delivered int    `json:"delivered,omitempty"`
	Queued    int    `json:"queued,omitempty"`
	Remaining int    `json:"remaining,omitempty"`
}

// Result captures a scenario execution.
type Result struct {
	Trace      []Event
	FinalState session.State
	Pending    []string // item ids still in the durable queue
	World      *world
}

// Run executes a scenario and returns its trace. Step errors abort the
// run: a scenario that drives the runner through an invalid transition
// is an authoring bug, not a test outcome.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()
	w := newWorld(scenario)
	queue := &memQueue{}
	syncer := delivery.NewSyncer(w, queue)

	tokens := make([]string, len(scenario.Steps)+1)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("s%d", i+1)
	}

	limit := scenario.Limit
	if limit == 0 {
		limit = survey.DefaultSessionLimit
	}

	clock := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	runner := session.NewRunner(w, w, syncer,
		session.WithLimit(limit),
		session.WithShuffler(session.IdentityShuffler),
		session.WithTokenGenerator(session.NewFixedGenerator(tokens...)),
		session.WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)

	var trace []Event
	record := func(e Event) {
		trace = append(trace, e)
	}

	started, err := runner.Start(ctx, scenario.Rater)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	recordStart(record, runner, started)

	for i, step := range scenario.Steps {
		if err := runStep(ctx, runner, syncer, step, record); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		// Usage accounting is detached in production; settle it per step
		// so eligibility in later steps is deterministic.
		runner.WaitUsageAccounting()
	}

	return &Result{
		Trace:      trace,
		FinalState: runner.State(),
		Pending:    queue.pendingIDs(),
		World:      w,
	}, nil
}

func recordStart(record func(Event), runner *session.Runner, started bool) {
	if !started {
		record(Event{Event: "pool_exhausted"})
		return
	}
	item, _ := runner.Current()
	_, total := runner.Progress()
	record(Event{
		Event:   "session_started",
		Session: runner.Token(),
		Group:   item.GroupKey,
		Items:   total,
	})
}

func runStep(ctx context.Context, runner *session.Runner, syncer *delivery.Syncer, step Step, record func(Event)) error {
	switch {
	case step.Score != 0:
		item, err := runner.Current()
		if err != nil {
			return err
		}
		atEnd, err := runner.Advance(ctx, step.Score)
		if err != nil {
			return err
		}
		record(Event{Event: "scored", Item: item.ID, Score: step.Score, AtEnd: atEnd})

	case step.Back:
		if err := runner.Retreat(); err != nil {
			return err
		}
		item, err := runner.Current()
		if err != nil {
			return err
		}
		record(Event{Event: "retreated", Item: item.ID})

	case step.Confirm != nil:
		if !*step.Confirm {
			if _, err := runner.Confirm(ctx, false); err != nil {
				return err
			}
			item, err := runner.Current()
			if err != nil {
				return err
			}
			record(Event{Event: "confirm_declined", Item: item.ID})
			return nil
		}
		outcomes, err := runner.Confirm(ctx, true)
		if err != nil {
			return err
		}
		delivered, queued := tally(outcomes)
		record(Event{Event: "session_completed", Delivered: delivered, Queued: queued})

	case step.Exit:
		outcomes, err := runner.ExitEarly(ctx)
		if err != nil {
			return err
		}
		delivered, queued := tally(outcomes)
		record(Event{Event: "session_exited", Delivered: delivered, Queued: queued})

	case step.Continue:
		started, err := runner.Continue(ctx)
		if err != nil {
			return err
		}
		recordStart(record, runner, started)

	case step.Retry:
		outcomes, err := syncer.RetryPersisted(ctx)
		if err != nil {
			return err
		}
		delivered, queued := tally(outcomes)
		record(Event{Event: "retry_pass", Delivered: delivered, Remaining: queued})
	}
	return nil
}

func tally(outcomes []delivery.Outcome) (delivered, failed int) {
	for _, o := range outcomes {
		if o.Delivered {
			delivered++
		} else {
			failed++
		}
	}
	return delivered, failed
}
