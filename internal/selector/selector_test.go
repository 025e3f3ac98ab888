package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concordhq/concord/internal/survey"
)

func item(id, group string, usage int) survey.Item {
	return survey.Item{ID: id, GroupKey: group, TextA: "a", TextB: "b", UsageCount: usage}
}

func TestSelect_EmptySnapshot(t *testing.T) {
	batch := Select(nil, 15)
	assert.True(t, batch.Empty(), "empty snapshot should yield empty batch")
	assert.Empty(t, batch.GroupKey)
}

func TestSelect_PicksMinimumSummedUsageGroup(t *testing.T) {
	// Pool scenario: group A has summed usage 1, group B's only item is
	// saturated so it never reaches the snapshot. Alice has no history.
	eligible := []survey.Item{
		item("itemA1", "A", 0),
		item("itemA2", "A", 1),
	}

	batch := Select(eligible, 15)

	require.Len(t, batch.Items, 2)
	assert.Equal(t, "A", batch.GroupKey)
	assert.Equal(t, "itemA1", batch.Items[0].ID)
	assert.Equal(t, "itemA2", batch.Items[1].ID)
}

func TestSelect_SingleGroupBatch(t *testing.T) {
	eligible := []survey.Item{
		item("a1", "A", 0),
		item("b1", "B", 0),
		item("a2", "A", 0),
		item("c1", "C", 2),
	}

	batch := Select(eligible, 15)

	require.NotEmpty(t, batch.Items)
	for _, it := range batch.Items {
		assert.Equal(t, batch.GroupKey, it.GroupKey,
			"every batch must contain items from exactly one group")
	}
}

func TestSelect_TieBreaksToLexicallySmallestGroup(t *testing.T) {
	eligible := []survey.Item{
		item("z1", "zebra", 1),
		item("m1", "mango", 1),
		item("a1", "apple", 1),
	}

	batch := Select(eligible, 15)

	assert.Equal(t, "apple", batch.GroupKey)
}

func TestSelect_AppliesLimit(t *testing.T) {
	var eligible []survey.Item
	for i := 0; i < 20; i++ {
		eligible = append(eligible, item(string(rune('a'+i)), "G", 0))
	}

	batch := Select(eligible, 15)

	assert.Len(t, batch.Items, 15)
}

func TestSelect_DefaultLimit(t *testing.T) {
	var eligible []survey.Item
	for i := 0; i < 30; i++ {
		eligible = append(eligible, item(string(rune('a'+i)), "G", 0))
	}

	batch := Select(eligible, 0)

	assert.Len(t, batch.Items, survey.DefaultSessionLimit)
}

func TestSelect_PreservesSnapshotOrder(t *testing.T) {
	// Snapshot arrives usage ASC, creation ASC; the selector must not
	// re-sort or shuffle.
	eligible := []survey.Item{
		item("first", "G", 0),
		item("second", "G", 1),
		item("third", "G", 2),
	}

	batch := Select(eligible, 15)

	require.Len(t, batch.Items, 3)
	assert.Equal(t, "first", batch.Items[0].ID)
	assert.Equal(t, "second", batch.Items[1].ID)
	assert.Equal(t, "third", batch.Items[2].ID)
}

func TestSelect_LowerSumWinsOverFewerItems(t *testing.T) {
	// Group A: 3 items summing to 3. Group B: 1 item summing to 2.
	// B wins on the sum even though A has more capacity left.
	eligible := []survey.Item{
		item("a1", "A", 1),
		item("a2", "A", 1),
		item("a3", "A", 1),
		item("b1", "B", 2),
	}

	batch := Select(eligible, 15)

	assert.Equal(t, "B", batch.GroupKey)
	assert.Len(t, batch.Items, 1)
}
