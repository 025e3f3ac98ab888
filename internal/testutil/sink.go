package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/concordhq/concord/internal/survey"
)

// ScriptedSink is a delivery.Sink whose per-attempt behavior is scripted.
//
// Attempts are numbered from 1 in call order. Any attempt number present
// in the fail set returns an error; every other attempt succeeds and is
// appended to Delivered with a sequential assigned id.
//
// This enables deterministic tests of the at-least-once protocol, e.g.
// "sink fails on attempt #7 only".
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex, so fire-and-forget goroutines in session tests can share a sink.
type ScriptedSink struct {
	mu        sync.Mutex
	attempts  int
	failOn    map[int]bool
	delivered []survey.Judgment
}

// NewScriptedSink creates a sink that fails on the given attempt numbers.
//
// Example:
//
//	sink := NewScriptedSink(7)  // attempt #7 fails, all others succeed
func NewScriptedSink(failOn ...int) *ScriptedSink {
	fails := make(map[int]bool, len(failOn))
	for _, n := range failOn {
		fails[n] = true
	}
	return &ScriptedSink{failOn: fails}
}

// Submit implements delivery.Sink.
func (s *ScriptedSink) Submit(_ context.Context, j survey.Judgment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
	if s.failOn[s.attempts] {
		return 0, fmt.Errorf("scripted failure on attempt %d", s.attempts)
	}

	s.delivered = append(s.delivered, j)
	return int64(len(s.delivered)), nil
}

// Delivered returns a copy of the successfully submitted judgments in
// delivery order.
func (s *ScriptedSink) Delivered() []survey.Judgment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]survey.Judgment, len(s.delivered))
	copy(out, s.delivered)
	return out
}

// Attempts returns the total number of Submit calls.
func (s *ScriptedSink) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// FailingSink is a delivery.Sink that rejects every submission.
type FailingSink struct{}

// Submit implements delivery.Sink.
func (FailingSink) Submit(context.Context, survey.Judgment) (int64, error) {
	return 0, fmt.Errorf("sink unavailable")
}
