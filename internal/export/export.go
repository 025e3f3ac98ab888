// Package export produces the delimited judgment artifact.
//
// Output is RFC 4180 CSV (embedded delimiters, quotes and newlines are
// quote-escaped) with a UTF-8 byte order mark so spreadsheet tools detect
// the encoding - the texts are frequently non-ASCII.
//
// The artifact is normally built from the sink's historical data. When the
// sink is unreachable the caller degrades to the local pending buffer,
// which lacks sink-assigned ids and server timestamps.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/concordhq/concord/internal/delivery"
	"github.com/concordhq/concord/internal/survey"
)

// header is the artifact's first row.
var header = []string{
	"item_id", "rater_name", "text_a", "text_b", "score", "rater_timestamp", "server_timestamp",
}

// HistorySource serves historical judgments, newest first.
// Implemented by the HTTP client.
type HistorySource interface {
	History(ctx context.Context, raterName string, limit int) ([]survey.Judgment, error)
}

// Write renders judgments as BOM-prefixed CSV.
func Write(w io.Writer, judgments []survey.Judgment) error {
	bomWriter := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())

	cw := csv.NewWriter(bomWriter)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, j := range judgments {
		serverTS := ""
		if !j.CreatedAt.IsZero() {
			serverTS = j.CreatedAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			j.ItemID,
			j.RaterName,
			j.TextA,
			j.TextB,
			strconv.Itoa(j.Score),
			j.Timestamp,
			serverTS,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row for item %s: %w", j.ItemID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := bomWriter.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// FromSink writes the artifact from the sink's history.
// An empty raterName exports all raters.
func FromSink(ctx context.Context, src HistorySource, raterName string, limit int, w io.Writer) error {
	judgments, err := src.History(ctx, raterName, limit)
	if err != nil {
		return err
	}
	return Write(w, judgments)
}

// FromLocalBuffer writes the artifact from the durable pending queue -
// the degraded path when the sink is unreachable.
func FromLocalBuffer(queue delivery.Queue, w io.Writer) error {
	pending, err := queue.Load()
	if err != nil {
		return fmt.Errorf("load local buffer: %w", err)
	}
	return Write(w, pending)
}
