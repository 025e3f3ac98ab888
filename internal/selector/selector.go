// Package selector implements fair-exposure batch selection.
//
// Given the eligible snapshot for one rater (already filtered to items
// below the saturation threshold and never judged by that rater, ordered by
// usage then creation), Select partitions the snapshot by group key,
// computes each group's summed usage, and returns up to limit items from
// the single group with the minimum sum. Exhausting one under-served group
// at a time bounds cross-group fragmentation of a rater's attention and
// keeps usage balanced at the group granularity.
//
// Select is a pure read over the snapshot. It never mutates usage counters;
// the caller accounts usage as items are actually shown. Concurrent
// selections across raters may both spend an item's remaining usage budget.
// That overshoot is bounded by the number of concurrent sessions and is
// accepted.
package selector

import (
	"github.com/concordhq/concord/internal/survey"
)

// Select picks one session's worth of items from the eligible snapshot.
//
// The snapshot must already be in pool order (usage ASC, creation ASC);
// the returned batch preserves that order. Presentation-order shuffling is
// a session-local concern, not the selector's.
//
// Ties on summed usage break to the lexicographically smallest group key,
// which keeps selection deterministic across runs.
//
// An empty snapshot yields an empty batch: "no more work", not an error.
func Select(eligible []survey.Item, limit int) survey.Batch {
	if limit <= 0 {
		limit = survey.DefaultSessionLimit
	}
	if len(eligible) == 0 {
		return survey.Batch{}
	}

	groups := make(map[string][]survey.Item)
	usage := make(map[string]int)
	for _, item := range eligible {
		groups[item.GroupKey] = append(groups[item.GroupKey], item)
		usage[item.GroupKey] += item.UsageCount
	}

	selected := ""
	for key, sum := range usage {
		switch {
		case selected == "":
			selected = key
		case sum < usage[selected]:
			selected = key
		case sum == usage[selected] && key < selected:
			selected = key
		}
	}

	items := groups[selected]
	if len(items) > limit {
		items = items[:limit]
	}

	return survey.Batch{GroupKey: selected, Items: items}
}
