// Package store provides SQLite-backed storage for the item pool and the
// collected judgments.
//
// Two tables:
//   - items: the annotatable pool, each row carrying a saturating
//     usage_count and a group_key
//   - judgments: append-only record of delivered judgments
//
// # Contracts
//
// Usage counters are incremented with a blind UPDATE ... SET usage_count =
// usage_count + 1. SQLite serializes single-row updates, so concurrent
// increments are never lost. The read-then-decide step in the selector runs
// on a stale snapshot and may overshoot the saturation threshold under
// concurrent selection; that overshoot is bounded and accepted. Do not add
// cross-session locking here.
//
// Judgments are never deduplicated on insert. A judgment delivered twice
// (client could not observe the first acknowledgment) produces two rows;
// that is a known data-quality gap, accepted rather than papered over with
// an invented dedup key.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
