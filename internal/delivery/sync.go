package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/concordhq/concord/internal/survey"
)

// Sink accepts judgments for durable storage. Implemented by the HTTP
// client in production and by scripted sinks in tests.
//
// Submit returns the sink-assigned identifier on success. Any error is
// treated as transient: the judgment moves to the durable queue.
type Sink interface {
	Submit(ctx context.Context, j survey.Judgment) (int64, error)
}

// Outcome records the per-judgment result of one delivery attempt.
type Outcome struct {
	Judgment   survey.Judgment
	Delivered  bool
	AssignedID int64 // sink-assigned id, only when Delivered
	Err        error // cause, only when queued
}

// Syncer drives the at-least-once delivery protocol between the in-memory
// buffer and the durable queue.
type Syncer struct {
	sink  Sink
	queue Queue
}

// NewSyncer creates a syncer delivering to sink and overflowing to queue.
func NewSyncer(sink Sink, queue Queue) *Syncer {
	return &Syncer{sink: sink, queue: queue}
}

// Flush attempts delivery of every buffered judgment, one at a time, in
// enqueue order. A judgment that fails to deliver is appended to the
// durable queue instead of being retried inline. The buffer is drained
// unconditionally: every judgment ends up delivered or durably queued.
//
// The queue slot is rewritten after every failed attempt so a crash
// between attempts loses at most the judgment currently in flight - and
// that one only when its delivery also failed.
//
// The returned error reports a queue persistence failure; delivery
// failures are per-item outcomes, not errors.
func (s *Syncer) Flush(ctx context.Context, buf *Buffer) ([]Outcome, error) {
	judgments := buf.drain()
	if len(judgments) == 0 {
		return nil, nil
	}

	pending, err := s.queue.Load()
	if err != nil {
		// The slot is unreadable; still attempt delivery so nothing in the
		// buffer is silently dropped, and start a fresh slot for failures.
		slog.Error("pending queue unreadable, starting fresh slot", "error", err)
		pending = []survey.Judgment{}
	}

	var saveErr error
	outcomes := make([]Outcome, 0, len(judgments))
	for _, j := range judgments {
		id, err := s.sink.Submit(ctx, j)
		if err != nil {
			slog.Warn("judgment delivery failed, queuing durably",
				"item_id", j.ItemID,
				"rater", j.RaterName,
				"error", err,
			)
			pending = append(pending, j)
			if err := s.queue.Save(pending); err != nil {
				saveErr = fmt.Errorf("persist pending queue: %w", err)
				slog.Error("pending queue save failed", "error", err)
			}
			outcomes = append(outcomes, Outcome{Judgment: j, Err: err})
			continue
		}

		slog.Debug("judgment delivered",
			"item_id", j.ItemID,
			"rater", j.RaterName,
			"assigned_id", id,
		)
		outcomes = append(outcomes, Outcome{Judgment: j, Delivered: true, AssignedID: id})
	}

	return outcomes, saveErr
}

// RetryPersisted re-attempts delivery of every entry in the durable queue,
// newest first, removing only the entries that succeed. Failures stay in
// place for the next startup. The pass is exhaustive: every entry gets
// exactly one attempt per call.
//
// Calling RetryPersisted on an empty queue is a no-op.
func (s *Syncer) RetryPersisted(ctx context.Context) ([]Outcome, error) {
	pending, err := s.queue.Load()
	if err != nil {
		return nil, fmt.Errorf("load pending queue: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	slog.Info("retrying persisted judgments", "count", len(pending))

	var outcomes []Outcome
	// Newest first, matching the order failures were most recently queued.
	for i := len(pending) - 1; i >= 0; i-- {
		j := pending[i]
		id, err := s.sink.Submit(ctx, j)
		if err != nil {
			slog.Warn("persisted judgment still undeliverable",
				"item_id", j.ItemID,
				"rater", j.RaterName,
				"error", err,
			)
			outcomes = append(outcomes, Outcome{Judgment: j, Err: err})
			continue
		}

		pending = append(pending[:i], pending[i+1:]...)
		if err := s.queue.Save(pending); err != nil {
			// Delivered but not yet removed from the slot: the entry will
			// be re-delivered on the next startup. Double delivery is the
			// accepted side of the at-least-once trade-off.
			slog.Error("pending queue save failed after delivery", "error", err)
		}
		outcomes = append(outcomes, Outcome{Judgment: j, Delivered: true, AssignedID: id})
	}

	if err := s.queue.Save(pending); err != nil {
		return outcomes, fmt.Errorf("persist pending queue: %w", err)
	}
	return outcomes, nil
}
