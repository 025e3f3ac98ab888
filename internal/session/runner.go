package session

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/concordhq/concord/internal/delivery"
	"github.com/concordhq/concord/internal/survey"
)

// State identifies the runner's position in its lifecycle.
type State int

const (
	// StateIdle means no batch is loaded; entered at startup and after an
	// exit without continuation.
	StateIdle State = iota
	// StateRunning means a shuffled batch is loaded and the cursor is live.
	StateRunning
	// StateCompleted means the rater confirmed stopping at the cap or the
	// end of the batch. Terminal until Continue.
	StateCompleted
	// StateExitedEarly means the rater stopped before the cap. Terminal
	// until Continue.
	StateExitedEarly
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateCompleted:
		return "Completed"
	case StateExitedEarly:
		return "ExitedEarly"
	default:
		return "Unknown"
	}
}

// Source supplies one session's worth of items. Implemented by the HTTP
// client in production; the server applies the exposure selector before
// responding. An empty batch is a valid "no more work" answer.
type Source interface {
	FetchBatch(ctx context.Context, raterName string, limit int) (survey.Batch, error)
}

// UsageRecorder accounts an item as shown. Best effort: the runner spawns
// the call detached and only logs failures.
type UsageRecorder interface {
	RecordShown(ctx context.Context, itemID string) error
}

// usageTimeout bounds a detached usage-increment call. The call outlives
// the rater action that spawned it, so it cannot inherit that context.
const usageTimeout = 10 * time.Second

// Runner drives one rater through selected items to completion, exit, or
// continuation. Not safe for concurrent use: the presentation layer must
// serialize rater actions (one in-flight transition at a time).
type Runner struct {
	source   Source
	recorder UsageRecorder
	syncer   *delivery.Syncer
	tokenGen TokenGenerator
	shuffle  Shuffler
	now      func() time.Time
	limit    int

	state  State
	rater  string
	token  string
	batch  survey.Batch
	perm   []int
	cursor int
	buf    *delivery.Buffer

	usageWG sync.WaitGroup
}

// Option configures a Runner.
type Option func(*Runner)

// WithLimit overrides the session cap (default 15).
func WithLimit(limit int) Option {
	return func(r *Runner) {
		r.limit = limit
	}
}

// Shuffler returns a presentation permutation of n batch indices.
type Shuffler func(n int) []int

// FisherYates builds a shuffler drawing from rng.
func FisherYates(rng *rand.Rand) Shuffler {
	return func(n int) []int {
		perm := make([]int, n)
		for i := range perm {
			perm[i] = i
		}
		for i := n - 1; i > 0; i-- {
			j := rng.Intn(i + 1)
			perm[i], perm[j] = perm[j], perm[i]
		}
		return perm
	}
}

// IdentityShuffler presents items in batch order. The scenario harness
// uses it for reproducible traces.
func IdentityShuffler(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	return perm
}

// WithRand sets the RNG used for the batch shuffle.
// Tests pass a seeded source for reproducible permutations.
func WithRand(rng *rand.Rand) Option {
	return func(r *Runner) {
		r.shuffle = FisherYates(rng)
	}
}

// WithShuffler replaces the shuffle outright.
func WithShuffler(s Shuffler) Option {
	return func(r *Runner) {
		r.shuffle = s
	}
}

// WithTokenGenerator overrides the session token generator (for testing).
func WithTokenGenerator(gen TokenGenerator) Option {
	return func(r *Runner) {
		r.tokenGen = gen
	}
}

// WithClock overrides the wall-clock source used to stamp judgments.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates an idle runner.
func NewRunner(source Source, recorder UsageRecorder, syncer *delivery.Syncer, opts ...Option) *Runner {
	r := &Runner{
		source:   source,
		recorder: recorder,
		syncer:   syncer,
		tokenGen: UUIDv7Generator{},
		shuffle:  FisherYates(rand.New(rand.NewSource(time.Now().UnixNano()))),
		now:      time.Now,
		limit:    survey.DefaultSessionLimit,
		state:    StateIdle,
		buf:      delivery.NewBuffer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	return r.state
}

// Token returns the current session token ("" while idle).
func (r *Runner) Token() string {
	return r.token
}

// Progress returns the cursor position and the session cap.
func (r *Runner) Progress() (cursor, total int) {
	return r.cursor, r.cap()
}

// BufferLen returns the number of judgments currently buffered.
func (r *Runner) BufferLen() int {
	return r.buf.Len()
}

// cap is min(batch size, limit).
func (r *Runner) cap() int {
	if len(r.batch.Items) < r.limit {
		return len(r.batch.Items)
	}
	return r.limit
}

// Start begins a session for raterName from Idle.
//
// Returns false with a nil error when the eligible pool is exhausted: "no
// more work", not a failure. A missing rater name is a ValidationError and
// leaves the state untouched.
func (r *Runner) Start(ctx context.Context, raterName string) (bool, error) {
	if r.state != StateIdle {
		return false, newStateError("start", r.state)
	}
	if raterName == "" {
		return false, &ValidationError{Field: "raterName", Message: "rater name is required"}
	}

	r.rater = raterName
	return r.loadBatch(ctx)
}

// Continue discards the finished session and requests a fresh batch.
// Valid from Completed and ExitedEarly. Returns false when no eligible
// items remain; the runner then stays in its terminal state.
func (r *Runner) Continue(ctx context.Context) (bool, error) {
	if r.state != StateCompleted && r.state != StateExitedEarly {
		return false, newStateError("continue", r.state)
	}
	return r.loadBatch(ctx)
}

// loadBatch fetches and shuffles a new batch, replacing any old session.
func (r *Runner) loadBatch(ctx context.Context) (bool, error) {
	batch, err := r.source.FetchBatch(ctx, r.rater, r.limit)
	if err != nil {
		return false, err
	}
	if batch.Empty() {
		slog.Info("eligible pool exhausted", "rater", r.rater)
		return false, nil
	}

	// The permutation is computed once per batch so Retreat always re-shows
	// the exact previous item.
	r.batch = batch
	r.perm = r.shuffle(len(batch.Items))
	r.cursor = 0
	r.buf = delivery.NewBuffer()
	r.token = r.tokenGen.Generate()
	r.state = StateRunning

	slog.Info("session started",
		"session", r.token,
		"rater", r.rater,
		"group", batch.GroupKey,
		"items", len(batch.Items),
	)
	return true, nil
}

// Current returns the item under the cursor.
func (r *Runner) Current() (survey.Item, error) {
	if r.state != StateRunning {
		return survey.Item{}, newStateError("current", r.state)
	}
	if r.cursor >= r.cap() {
		return survey.Item{}, &ValidationError{Field: "cursor", Message: "no item under cursor"}
	}
	return r.batch.Items[r.perm[r.cursor]], nil
}

// Advance scores the current item and moves the cursor forward.
//
// The judgment is appended to the buffer and the usage increment for the
// item is fired detached - its success or failure never rolls back the
// judgment or blocks the rater. Returns atEnd=true when the cursor reaches
// the cap or exhausts the batch; the caller then owns the confirm-to-stop
// decision (Confirm or ExitEarly).
func (r *Runner) Advance(ctx context.Context, score int) (atEnd bool, err error) {
	if r.state != StateRunning {
		return false, newStateError("advance", r.state)
	}
	if r.rater == "" {
		return false, &ValidationError{Field: "raterName", Message: "rater name is required"}
	}
	if r.cursor >= r.cap() {
		return false, &ValidationError{Field: "cursor", Message: "no item under cursor"}
	}

	item := r.batch.Items[r.perm[r.cursor]]
	r.buf.Enqueue(survey.NewJudgment(r.rater, item, score, r.now()))
	r.recordShown(item.ID)
	r.cursor++

	slog.Debug("judgment recorded",
		"session", r.token,
		"item_id", item.ID,
		"score", score,
		"cursor", r.cursor,
	)
	return r.cursor >= r.cap(), nil
}

// recordShown fires the usage increment without awaiting the outcome.
// The call deliberately outlives the triggering rater action.
func (r *Runner) recordShown(itemID string) {
	token := r.token
	r.usageWG.Add(1)
	go func() {
		defer r.usageWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), usageTimeout)
		defer cancel()
		if err := r.recorder.RecordShown(ctx, itemID); err != nil {
			slog.Warn("usage increment failed",
				"session", token,
				"item_id", itemID,
				"error", err,
			)
		}
	}()
}

// Retreat moves the cursor back one position and discards the most recent
// judgment from the buffer. Only valid while running with cursor > 0.
// Invoked when the rater declines the finish-now confirmation.
func (r *Runner) Retreat() error {
	if r.state != StateRunning {
		return newStateError("retreat", r.state)
	}
	if r.cursor == 0 {
		return &ValidationError{Field: "cursor", Message: "nothing to retreat past"}
	}

	r.cursor--
	dropped, _ := r.buf.DropLast()
	slog.Debug("judgment discarded",
		"session", r.token,
		"item_id", dropped.ItemID,
		"cursor", r.cursor,
	)
	return nil
}

// Confirm resolves the confirm-intent-to-stop decision point.
//
// A positive confirmation flushes the buffer and completes the session. A
// negative confirmation retreats one position and stays Running, re-showing
// the previous item.
func (r *Runner) Confirm(ctx context.Context, confirmed bool) ([]delivery.Outcome, error) {
	if r.state != StateRunning {
		return nil, newStateError("confirm", r.state)
	}

	if !confirmed {
		return nil, r.Retreat()
	}

	outcomes, err := r.syncer.Flush(ctx, r.buf)
	r.state = StateCompleted
	slog.Info("session completed",
		"session", r.token,
		"rater", r.rater,
		"judgments", len(outcomes),
	)
	return outcomes, err
}

// ExitEarly halts item presentation and flushes the buffer. Valid from
// Running at any cursor position.
func (r *Runner) ExitEarly(ctx context.Context) ([]delivery.Outcome, error) {
	if r.state != StateRunning {
		return nil, newStateError("exit", r.state)
	}

	outcomes, err := r.syncer.Flush(ctx, r.buf)
	r.state = StateExitedEarly
	slog.Info("session exited early",
		"session", r.token,
		"rater", r.rater,
		"judgments", len(outcomes),
	)
	return outcomes, err
}

// WaitUsageAccounting blocks until all detached usage increments have
// finished. Tests use this to assert on accounting side effects.
func (r *Runner) WaitUsageAccounting() {
	r.usageWG.Wait()
}
