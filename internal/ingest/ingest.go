// Package ingest loads the item pool from delimited files.
//
// Input rows are: id, group key, text A, text B, optional date, optional
// usage seed. There is no header row. Quoted fields may span lines.
// Malformed rows are skipped and counted rather than aborting the load;
// source files are hand-assembled and a single bad row should not block
// the rest of the pool.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/concordhq/concord/internal/survey"
)

// ItemWriter is the destination pool. Implemented by the store.
type ItemWriter interface {
	InsertItem(ctx context.Context, item survey.Item) error
}

// Result counts the outcome of one load.
type Result struct {
	Inserted int
	Skipped  int
}

func (r Result) add(other Result) Result {
	return Result{
		Inserted: r.Inserted + other.Inserted,
		Skipped:  r.Skipped + other.Skipped,
	}
}

// ImportReader loads rows from r into the pool.
func ImportReader(ctx context.Context, dst ItemWriter, r io.Reader) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // row width is validated per row

	var result Result
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			slog.Warn("skipping unparseable row", "line", line, "error", err)
			result.Skipped++
			continue
		}

		item, ok := itemFromRecord(record)
		if !ok {
			slog.Warn("skipping incomplete row", "line", line, "columns", len(record))
			result.Skipped++
			continue
		}

		if err := dst.InsertItem(ctx, item); err != nil {
			slog.Warn("skipping row", "line", line, "item_id", item.ID, "error", err)
			result.Skipped++
			continue
		}
		result.Inserted++
	}
	return result, nil
}

// itemFromRecord maps one row to an item. A row needs at least four
// columns with a non-empty id and both texts; the group key may be empty.
func itemFromRecord(record []string) (survey.Item, bool) {
	if len(record) < 4 {
		return survey.Item{}, false
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	item := survey.Item{
		ID:       record[0],
		GroupKey: record[1],
		TextA:    record[2],
		TextB:    record[3],
	}
	if item.ID == "" || item.TextA == "" || item.TextB == "" {
		return survey.Item{}, false
	}

	if len(record) > 4 {
		item.Date = record[4]
	}
	if len(record) > 5 && record[5] != "" {
		if n, err := strconv.Atoi(record[5]); err == nil && n > 0 {
			item.UsageCount = n
		}
	}
	return item, true
}

// ImportFile loads one file into the pool.
func ImportFile(ctx context.Context, dst ItemWriter, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	result, err := ImportReader(ctx, dst, f)
	if err != nil {
		return result, fmt.Errorf("import %s: %w", path, err)
	}
	slog.Info("file imported",
		"path", path,
		"inserted", result.Inserted,
		"skipped", result.Skipped,
	)
	return result, nil
}

// ImportPath loads a file, or every .csv file in a directory, into the
// pool. Directory entries are processed in name order.
func ImportPath(ctx context.Context, dst ItemWriter, path string) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return ImportFile(ctx, dst, path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return Result{}, fmt.Errorf("read dir %s: %w", path, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	if len(files) == 0 {
		return Result{}, fmt.Errorf("no .csv files in %s", path)
	}
	sort.Strings(files)

	var total Result
	for _, f := range files {
		result, err := ImportFile(ctx, dst, f)
		total = total.add(result)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
