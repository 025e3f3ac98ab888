// Package session implements the single-rater session state machine.
//
// States: Idle → Running → {Completed, ExitedEarly}, with a re-entry
// transition ("continue answering") that discards the old session and
// requests a fresh batch. A new session always replaces the old one; there
// is no merging.
//
// The runner owns the shuffled permutation of the current batch and the
// in-memory judgment buffer for the lifetime of one sitting. The
// permutation is computed once per batch with an unbiased Fisher-Yates
// shuffle and never recomputed mid-session, so retreating always re-shows
// the exact previous item.
//
// Execution is single-threaded cooperative: every transition is triggered
// by a discrete rater action and there is never more than one in-flight
// transition per session. The only spawned work is the fire-and-forget
// usage increment, whose outcome is observable via logging only - never
// via control flow back into the runner.
//
// Reaching the cap, exhausting the batch, and explicit early exit all
// route through the same confirm-intent-to-stop decision point. The
// Running → Completed transition happens only on an explicit positive
// confirmation; a negative confirmation is itself a valid transition back
// to the previous cursor.
package session
