package harness

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/concordhq/concord/internal/delivery"
	"github.com/concordhq/concord/internal/selector"
	"github.com/concordhq/concord/internal/survey"
)

// world is the in-memory stand-in for the server side: item pool, usage
// counters, delivered judgments, and the scripted sink. It implements
// session.Source, session.UsageRecorder, and delivery.Sink.
//
// Mutex-guarded because usage recording arrives from detached goroutines.
type world struct {
	mu       sync.Mutex
	items    []survey.Item       // pool in creation order; usage mutated in place
	judged   map[string]bool     // rater + item pairs with a delivered judgment
	failures map[int]bool        // 1-based submit attempts that fail
	attempts int
	nextID   int64
}

func newWorld(scenario *Scenario) *world {
	w := &world{
		judged:   map[string]bool{},
		failures: map[int]bool{},
	}
	for _, p := range scenario.Pool {
		w.items = append(w.items, p.item())
	}
	for _, attempt := range scenario.FailSubmits {
		w.failures[attempt] = true
	}
	return w
}

func judgedKey(rater, itemID string) string {
	return rater + "\x00" + itemID
}

// FetchBatch mirrors the server's selection path: the eligible snapshot
// ordered by usage then creation, reduced to one group by the selector.
func (w *world) FetchBatch(_ context.Context, raterName string, limit int) (survey.Batch, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	type indexed struct {
		item survey.Item
		pos  int
	}
	var eligible []indexed
	for i, item := range w.items {
		if item.UsageCount >= survey.SaturationThreshold {
			continue
		}
		if w.judged[judgedKey(raterName, item.ID)] {
			continue
		}
		eligible = append(eligible, indexed{item: item, pos: i})
	}
	sort.SliceStable(eligible, func(a, b int) bool {
		if eligible[a].item.UsageCount != eligible[b].item.UsageCount {
			return eligible[a].item.UsageCount < eligible[b].item.UsageCount
		}
		return eligible[a].pos < eligible[b].pos
	})

	snapshot := make([]survey.Item, len(eligible))
	for i, e := range eligible {
		snapshot[i] = e.item
	}
	return selector.Select(snapshot, limit), nil
}

// RecordShown increments the item's usage counter. Unknown ids are
// ignored, matching the server's blind increment.
func (w *world) RecordShown(_ context.Context, itemID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.items {
		if w.items[i].ID == itemID {
			w.items[i].UsageCount++
			break
		}
	}
	return nil
}

// Submit delivers one judgment, failing on scripted attempts.
func (w *world) Submit(_ context.Context, j survey.Judgment) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.attempts++
	if w.failures[w.attempts] {
		return 0, &delivery.DeliveryError{ItemID: j.ItemID, StatusCode: 502}
	}

	w.nextID++
	w.judged[judgedKey(j.RaterName, j.ItemID)] = true
	return w.nextID, nil
}

// memQueue is an in-memory delivery.Queue.
type memQueue struct {
	mu      sync.Mutex
	pending []survey.Judgment
}

func (q *memQueue) Load() ([]survey.Judgment, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]survey.Judgment, len(q.pending))
	copy(out, q.pending)
	return out, nil
}

func (q *memQueue) Save(pending []survey.Judgment) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = make([]survey.Judgment, len(pending))
	copy(q.pending, pending)
	return nil
}

// pendingIDs lists the queued item ids, for trace snapshots.
func (q *memQueue) pendingIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var ids []string
	for _, j := range q.pending {
		ids = append(ids, j.ItemID)
	}
	return ids
}

// usageOf reports an item's current usage counter.
func (w *world) usageOf(itemID string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, item := range w.items {
		if item.ID == itemID {
			return item.UsageCount, nil
		}
	}
	return 0, fmt.Errorf("unknown item %s", itemID)
}
