// Package harness executes YAML session scenarios against an in-memory
// world and captures the resulting event trace.
//
// A scenario declares an item pool, a rater, scripted sink failures, and
// a sequence of rater actions (score, back, confirm, exit, continue,
// retry). The harness drives a real session.Runner and delivery.Syncer
// over fakes for the item source, usage recorder, sink, and queue, so a
// trace exercises the same state machine and delivery protocol as
// production.
//
// Traces are deterministic: items are presented in pool order and
// session tokens come from a fixed sequence, which makes golden-file
// comparison possible.
package harness
