package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/concordhq/concord/internal/selector"
	"github.com/concordhq/concord/internal/survey"
)

const defaultHistoryLimit = 1000

// handleSelectItems returns one session's worth of items for a rater:
// the eligible snapshot filtered and ordered by the store, reduced to a
// single group by the exposure selector.
//
// The response is the flat item list (empty array = no more work). The
// snapshot is point-in-time; concurrent raters may both spend an item's
// remaining usage budget, which is accepted.
func (s *Server) handleSelectItems(c *gin.Context) {
	rater := c.Query("rater")
	if rater == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rater parameter required"})
		return
	}

	limit := s.limit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		if n < limit {
			limit = n
		}
	}

	eligible, err := s.store.EligibleItems(c.Request.Context(), rater)
	if err != nil {
		slog.Error("eligible snapshot query failed", "rater", rater, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	batch := selector.Select(eligible, limit)
	if batch.Empty() {
		c.JSON(http.StatusOK, []survey.Item{})
		return
	}

	slog.Debug("batch selected",
		"rater", rater,
		"group", batch.GroupKey,
		"items", len(batch.Items),
	)
	c.JSON(http.StatusOK, batch.Items)
}

// handleIncrementUsage performs the blind usage increment for one item.
// Unknown ids report {updated: 0} rather than an error: the caller fires
// and forgets, and the pool may have been reloaded underneath it.
func (s *Server) handleIncrementUsage(c *gin.Context) {
	id := c.Param("id")

	updated, err := s.store.IncrementUsage(c.Request.Context(), id)
	if err != nil {
		slog.Error("usage increment failed", "item_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// judgmentRequest is the POST /api/judgments body.
type judgmentRequest struct {
	RaterName string `json:"raterName"`
	TextA     string `json:"textA"`
	TextB     string `json:"textB"`
	ItemID    string `json:"itemId"`
	Score     int    `json:"score"`
	Timestamp string `json:"timestamp"`
}

// missingFields lists the required fields absent from the request.
func (r judgmentRequest) missingFields() []string {
	var missing []string
	if r.RaterName == "" {
		missing = append(missing, "raterName")
	}
	if r.TextA == "" {
		missing = append(missing, "textA")
	}
	if r.TextB == "" {
		missing = append(missing, "textB")
	}
	if r.ItemID == "" {
		missing = append(missing, "itemId")
	}
	if r.Score == 0 {
		missing = append(missing, "score")
	}
	if r.Timestamp == "" {
		missing = append(missing, "timestamp")
	}
	return missing
}

// handleCreateJudgment stores one judgment and returns its assigned id.
// No dedup on re-delivery; the at-least-once client may legitimately send
// the same judgment twice.
func (s *Server) handleCreateJudgment(c *gin.Context) {
	var req judgmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	if missing := req.missingFields(); len(missing) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing required fields",
			"missing": missing,
		})
		return
	}

	id, err := s.store.InsertJudgment(c.Request.Context(), survey.Judgment{
		RaterName: req.RaterName,
		TextA:     req.TextA,
		TextB:     req.TextB,
		ItemID:    req.ItemID,
		Score:     req.Score,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		slog.Error("judgment insert failed",
			"rater", req.RaterName,
			"item_id", req.ItemID,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// handleListJudgments returns stored judgments, newest first.
func (s *Server) handleListJudgments(c *gin.Context) {
	rater := c.Query("rater")

	limit := defaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	judgments, err := s.store.ListJudgments(c.Request.Context(), rater, limit)
	if err != nil {
		slog.Error("judgment list query failed", "rater", rater, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, judgments)
}

// handleStats returns aggregate judgment counts.
func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		slog.Error("stats query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
