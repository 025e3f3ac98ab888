package survey

import "time"

// SaturationThreshold is the usage count at which an item stops being
// offered to raters. Selection reads a point-in-time snapshot, so
// concurrent sessions may overshoot this by a bounded amount; that race
// is accepted (the counters are a soft fairness signal, not a ledger).
const SaturationThreshold = 3

// DefaultSessionLimit caps how many items one session presents.
const DefaultSessionLimit = 15

// Item is one annotatable pair of texts. GroupKey names the source entity
// the pair was drawn from; the selector balances exposure at that
// granularity.
type Item struct {
	ID         string    `json:"id"`
	GroupKey   string    `json:"groupKey"`
	TextA      string    `json:"textA"`
	TextB      string    `json:"textB"`
	Date       string    `json:"date,omitempty"`
	UsageCount int       `json:"usageCount"`
	CreatedAt  time.Time `json:"createdAt,omitzero"`
}

// Judgment is one rater's score for one item. The two texts are copied
// verbatim at judgment time. Timestamp is the client wall clock in
// ISO-8601; CreatedAt is assigned by the sink on insert.
type Judgment struct {
	ID        int64     `json:"id,omitempty"`
	RaterName string    `json:"raterName"`
	TextA     string    `json:"textA"`
	TextB     string    `json:"textB"`
	ItemID    string    `json:"itemId"`
	Score     int       `json:"score"`
	Timestamp string    `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// NewJudgment captures a judgment for item at the given wall-clock time.
func NewJudgment(rater string, item Item, score int, at time.Time) Judgment {
	return Judgment{
		RaterName: rater,
		TextA:     item.TextA,
		TextB:     item.TextB,
		ItemID:    item.ID,
		Score:     score,
		Timestamp: at.UTC().Format(time.RFC3339),
	}
}

// Batch is the ordered set of items returned by one selector call.
// Invariant: all items share a single group key.
type Batch struct {
	GroupKey string `json:"groupKey"`
	Items    []Item `json:"items"`
}

// Empty reports whether the batch holds no items. An empty batch means
// "no more work", never an error.
func (b Batch) Empty() bool {
	return len(b.Items) == 0
}

// Stats summarizes collected judgments.
type Stats struct {
	TotalJudgments int     `json:"totalJudgments"`
	UniqueRaters   int     `json:"uniqueRaters"`
	AverageScore   float64 `json:"averageScore"`
	UniqueItems    int     `json:"uniqueItems"`
}
