// Package delivery implements the resilient judgment submission pipeline.
//
// Three pieces:
//   - Buffer: the in-memory, session-owned ordered sequence of judgments.
//     Retreat ("go back") drops the most recent entry entirely.
//   - Queue: the durable pending-submission slot, a JSON array persisted
//     outside process memory. Appended to on delivery failure, drained only
//     on confirmed delivery, rewritten after every attempt.
//   - Syncer: the at-least-once protocol. Flush attempts delivery of every
//     buffered judgment in enqueue order; a per-item failure moves that
//     judgment to the durable queue instead of retrying inline. Flush
//     always drains the buffer: by the time it returns, every judgment is
//     either confirmed delivered or durably queued, never dropped.
//
// RetryPersisted runs once at startup and re-attempts every queued entry,
// newest first, removing only the ones that succeed.
//
// Delivery is not deduplicated by the sink. A judgment delivered, then
// re-delivered because the client never observed the acknowledgment,
// produces two stored records. Known, accepted weak point of the design.
package delivery
