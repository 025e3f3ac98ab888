package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concordhq/concord/internal/store"
	"github.com/concordhq/concord/internal/survey"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewServer(st, survey.DefaultSessionLimit), st
}

func seedItem(t *testing.T, st *store.Store, id, group string, usage int) {
	t.Helper()
	err := st.InsertItem(context.Background(), survey.Item{
		ID: id, GroupKey: group, TextA: "strategy " + id, TextB: "sustainability " + id,
		UsageCount: usage,
	})
	require.NoError(t, err)
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestSelectItems_RequiresRater(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/items", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelectItems_EmptyPoolReturnsEmptyArray(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/items?rater=alice", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var items []survey.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	assert.Empty(t, items, "empty pool is no-work, not an error")
}

func TestSelectItems_SingleLowestUsageGroup(t *testing.T) {
	s, st := newTestServer(t)
	seedItem(t, st, "itemA1", "A", 0)
	seedItem(t, st, "itemA2", "A", 1)
	seedItem(t, st, "itemB1", "B", survey.SaturationThreshold+2) // saturated

	w := doRequest(t, s, http.MethodGet, "/api/items?rater=alice", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var items []survey.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "itemA1", items[0].ID)
	assert.Equal(t, "itemA2", items[1].ID)
}

func TestSelectItems_ExcludesRaterHistory(t *testing.T) {
	s, st := newTestServer(t)
	seedItem(t, st, "i1", "G", 0)
	seedItem(t, st, "i2", "G", 0)

	w := doRequest(t, s, http.MethodPost, "/api/judgments", map[string]any{
		"raterName": "alice", "textA": "a", "textB": "b",
		"itemId": "i1", "score": 3, "timestamp": "2026-08-30T12:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, s, http.MethodGet, "/api/items?rater=alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []survey.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "i2", items[0].ID)

	// Another rater still sees both.
	w = doRequest(t, s, http.MethodGet, "/api/items?rater=bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	assert.Len(t, items, 2)
}

func TestSelectItems_RespectsLimitParameter(t *testing.T) {
	s, st := newTestServer(t)
	for i := 0; i < 10; i++ {
		seedItem(t, st, fmt.Sprintf("i%02d", i), "G", 0)
	}

	w := doRequest(t, s, http.MethodGet, "/api/items?rater=alice&limit=4", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var items []survey.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	assert.Len(t, items, 4)
}

func TestIncrementUsage(t *testing.T) {
	s, st := newTestServer(t)
	seedItem(t, st, "i1", "G", 0)

	w := doRequest(t, s, http.MethodPost, "/api/items/i1/increment-usage", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp["updated"])

	item, err := st.GetItem(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, 1, item.UsageCount)
}

func TestIncrementUsage_UnknownIDReportsZero(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/items/missing/increment-usage", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(0), resp["updated"])
}

func TestCreateJudgment_MissingFields(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/judgments", map[string]any{
		"raterName": "alice",
		"score":     3,
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Missing []string `json:"missing"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.ElementsMatch(t, []string{"textA", "textB", "itemId", "timestamp"}, resp.Missing)
}

func TestCreateJudgment_DuplicatesAccepted(t *testing.T) {
	s, _ := newTestServer(t)
	body := map[string]any{
		"raterName": "alice", "textA": "a", "textB": "b",
		"itemId": "i1", "score": 3, "timestamp": "2026-08-30T12:00:00Z",
	}

	w1 := doRequest(t, s, http.MethodPost, "/api/judgments", body)
	w2 := doRequest(t, s, http.MethodPost, "/api/judgments", body)

	require.Equal(t, http.StatusCreated, w1.Code)
	require.Equal(t, http.StatusCreated, w2.Code)

	var r1, r2 map[string]int64
	require.NoError(t, json.Unmarshal(w1.Body.Bytes(), &r1))
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &r2))
	assert.NotEqual(t, r1["id"], r2["id"], "re-delivery stores a second record")
}

func TestListJudgments(t *testing.T) {
	s, _ := newTestServer(t)
	for _, rater := range []string{"alice", "bob"} {
		w := doRequest(t, s, http.MethodPost, "/api/judgments", map[string]any{
			"raterName": rater, "textA": "a", "textB": "b",
			"itemId": "i1", "score": 2, "timestamp": "2026-08-30T12:00:00Z",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doRequest(t, s, http.MethodGet, "/api/judgments?rater=alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var judgments []survey.Judgment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &judgments))
	require.Len(t, judgments, 1)
	assert.Equal(t, "alice", judgments[0].RaterName)
}

func TestStats(t *testing.T) {
	s, _ := newTestServer(t)
	for _, score := range []int{1, 5} {
		w := doRequest(t, s, http.MethodPost, "/api/judgments", map[string]any{
			"raterName": "alice", "textA": "a", "textB": "b",
			"itemId": fmt.Sprintf("i%d", score), "score": score,
			"timestamp": "2026-08-30T12:00:00Z",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doRequest(t, s, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats survey.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalJudgments)
	assert.Equal(t, 1, stats.UniqueRaters)
	assert.Equal(t, 2, stats.UniqueItems)
	assert.Equal(t, 3.0, stats.AverageScore)
}
