// Package survey provides the canonical domain types for concord.
//
// This package contains type definitions only. All other internal packages
// import survey; survey imports nothing internal. This keeps the domain
// model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Judgment is immutable once built; "going back" removes the most
//     recent judgment from the in-memory buffer rather than mutating it.
//   - Judgment carries the item texts verbatim, not by reference - the
//     underlying item may change after the judgment is captured.
//   - Item.UsageCount only ever increases. It approximates "times shown
//     across all raters", not "times judged".
//   - Timestamps on judgments are client-generated ISO-8601 strings; the
//     server records its own creation time separately.
package survey
