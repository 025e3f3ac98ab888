package delivery

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concordhq/concord/internal/survey"
)

// scriptedSink fails on scripted attempt numbers (1-based). Kept local
// and lock-free: flush is strictly sequential, and asserting on attempt
// counts reads better without the testutil indirection.
type scriptedSink struct {
	attempts  int
	failOn    map[int]bool
	delivered []survey.Judgment
}

func newScriptedSink(failOn ...int) *scriptedSink {
	fails := make(map[int]bool, len(failOn))
	for _, n := range failOn {
		fails[n] = true
	}
	return &scriptedSink{failOn: fails}
}

func (s *scriptedSink) Submit(_ context.Context, j survey.Judgment) (int64, error) {
	s.attempts++
	if s.failOn[s.attempts] {
		return 0, fmt.Errorf("scripted failure on attempt %d", s.attempts)
	}
	s.delivered = append(s.delivered, j)
	return int64(len(s.delivered)), nil
}

func judgment(itemID string, score int) survey.Judgment {
	return survey.Judgment{
		RaterName: "alice",
		TextA:     "strategy",
		TextB:     "sustainability",
		ItemID:    itemID,
		Score:     score,
		Timestamp: "2026-08-30T12:00:00Z",
	}
}

func newTestQueue(t *testing.T) *FileQueue {
	t.Helper()
	return NewFileQueue(filepath.Join(t.TempDir(), "pending.json"))
}

func TestFlush_DeliversInEnqueueOrder(t *testing.T) {
	sink := newScriptedSink()
	syncer := NewSyncer(sink, newTestQueue(t))

	buf := NewBuffer()
	for i := 1; i <= 3; i++ {
		buf.Enqueue(judgment(fmt.Sprintf("i%d", i), i))
	}

	outcomes, err := syncer.Flush(context.Background(), buf)
	require.NoError(t, err)

	require.Len(t, outcomes, 3)
	for i, o := range outcomes {
		assert.True(t, o.Delivered)
		assert.Equal(t, fmt.Sprintf("i%d", i+1), o.Judgment.ItemID)
	}
	assert.Equal(t, 0, buf.Len(), "flush must drain the buffer")
}

func TestFlush_FailureOnSeventhAttemptOnly(t *testing.T) {
	// 15 judgments, sink fails on attempt #7: 14 delivered, exactly 1
	// durably queued, none dropped.
	sink := newScriptedSink(7)
	queue := newTestQueue(t)
	syncer := NewSyncer(sink, queue)

	buf := NewBuffer()
	for i := 1; i <= 15; i++ {
		buf.Enqueue(judgment(fmt.Sprintf("i%d", i), i))
	}

	outcomes, err := syncer.Flush(context.Background(), buf)
	require.NoError(t, err)
	require.Len(t, outcomes, 15)

	delivered := 0
	for _, o := range outcomes {
		if o.Delivered {
			delivered++
		}
	}
	assert.Equal(t, 14, delivered)
	assert.Len(t, sink.delivered, 14)

	pending, err := queue.Load()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "i7", pending[0].ItemID)

	// A subsequent successful retry drains the queue to zero.
	outcomes, err = syncer.RetryPersisted(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Delivered)

	pending, err = queue.Load()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestFlush_NoLossUnderTotalFailure(t *testing.T) {
	syncer := NewSyncer(newScriptedSink(1, 2, 3), newTestQueue(t))

	buf := NewBuffer()
	for i := 1; i <= 3; i++ {
		buf.Enqueue(judgment(fmt.Sprintf("i%d", i), i))
	}

	outcomes, err := syncer.Flush(context.Background(), buf)
	require.NoError(t, err)

	// Every judgment is either confirmed delivered or durably queued.
	for _, o := range outcomes {
		assert.False(t, o.Delivered)
		assert.Error(t, o.Err)
	}
	pending, err := syncer.queue.Load()
	require.NoError(t, err)
	assert.Len(t, pending, 3)
	assert.Equal(t, 0, buf.Len())
}

func TestFlush_EmptyBufferIsNoop(t *testing.T) {
	sink := newScriptedSink()
	syncer := NewSyncer(sink, newTestQueue(t))

	outcomes, err := syncer.Flush(context.Background(), NewBuffer())
	require.NoError(t, err)
	assert.Nil(t, outcomes)
	assert.Equal(t, 0, sink.attempts)
}

func TestFlush_AppendsToExistingQueue(t *testing.T) {
	queue := newTestQueue(t)
	require.NoError(t, queue.Save([]survey.Judgment{judgment("old", 1)}))

	syncer := NewSyncer(newScriptedSink(1), queue)
	buf := NewBuffer()
	buf.Enqueue(judgment("new", 2))

	_, err := syncer.Flush(context.Background(), buf)
	require.NoError(t, err)

	pending, err := queue.Load()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "old", pending[0].ItemID)
	assert.Equal(t, "new", pending[1].ItemID)
}

func TestRetryPersisted_EmptyQueueIsNoop(t *testing.T) {
	sink := newScriptedSink()
	queue := newTestQueue(t)
	syncer := NewSyncer(sink, queue)

	outcomes, err := syncer.RetryPersisted(context.Background())
	require.NoError(t, err)
	assert.Nil(t, outcomes)
	assert.Equal(t, 0, sink.attempts)

	pending, err := queue.Load()
	require.NoError(t, err)
	assert.Empty(t, pending, "re-draining an empty queue must leave it empty")
}

func TestRetryPersisted_NewestFirstLeavesFailures(t *testing.T) {
	queue := newTestQueue(t)
	require.NoError(t, queue.Save([]survey.Judgment{
		judgment("oldest", 1),
		judgment("middle", 2),
		judgment("newest", 3),
	}))

	// Newest is attempted first; the second attempt (middle) fails.
	sink := newScriptedSink(2)
	syncer := NewSyncer(sink, queue)

	outcomes, err := syncer.RetryPersisted(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, "newest", outcomes[0].Judgment.ItemID)
	assert.True(t, outcomes[0].Delivered)
	assert.Equal(t, "middle", outcomes[1].Judgment.ItemID)
	assert.False(t, outcomes[1].Delivered)
	assert.Equal(t, "oldest", outcomes[2].Judgment.ItemID)
	assert.True(t, outcomes[2].Delivered)

	pending, err := queue.Load()
	require.NoError(t, err)
	require.Len(t, pending, 1, "failures stay in place for the next startup")
	assert.Equal(t, "middle", pending[0].ItemID)
}

func TestBuffer_DropLast(t *testing.T) {
	buf := NewBuffer()

	_, ok := buf.DropLast()
	assert.False(t, ok, "empty buffer has nothing to drop")

	buf.Enqueue(judgment("i1", 1))
	buf.Enqueue(judgment("i2", 2))

	dropped, ok := buf.DropLast()
	require.True(t, ok)
	assert.Equal(t, "i2", dropped.ItemID)
	assert.Equal(t, 1, buf.Len())
}

func TestFileQueue_SurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")

	q1 := NewFileQueue(path)
	require.NoError(t, q1.Save([]survey.Judgment{judgment("i1", 1), judgment("i1", 1)}))

	// A fresh queue instance (new process) sees the same entries, content
	// duplicates included - entries are never deduplicated.
	q2 := NewFileQueue(path)
	pending, err := q2.Load()
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestFileQueue_MissingFileIsEmpty(t *testing.T) {
	q := NewFileQueue(filepath.Join(t.TempDir(), "nope", "pending.json"))

	pending, err := q.Load()
	require.NoError(t, err)
	assert.NotNil(t, pending)
	assert.Empty(t, pending)
}
