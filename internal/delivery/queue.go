package delivery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/concordhq/concord/internal/survey"
)

// Queue is the durable pending-submission slot: an ordered multiset of
// judgment-shaped records not yet known to have reached the sink.
//
// Load is called once at program start; Save rewrites the whole slot after
// every successful or failed delivery attempt. Entries are never
// deduplicated by content.
type Queue interface {
	Load() ([]survey.Judgment, error)
	Save([]survey.Judgment) error
}

// FileQueue persists the pending slot as a JSON array in a single file.
// A missing file reads as an empty queue.
type FileQueue struct {
	path string
}

// NewFileQueue creates a file-backed queue at path. The file is not
// created until the first Save.
func NewFileQueue(path string) *FileQueue {
	return &FileQueue{path: path}
}

// Path returns the backing file path.
func (q *FileQueue) Path() string {
	return q.path
}

// Load reads the persisted pending judgments.
// Returns an empty slice (not nil) when the file does not exist.
func (q *FileQueue) Load() ([]survey.Judgment, error) {
	data, err := os.ReadFile(q.path)
	if os.IsNotExist(err) {
		return []survey.Judgment{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pending queue: %w", err)
	}

	var pending []survey.Judgment
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, fmt.Errorf("decode pending queue: %w", err)
	}
	if pending == nil {
		pending = []survey.Judgment{}
	}
	return pending, nil
}

// Save rewrites the slot. Writes to a temp file and renames so a crash
// mid-write never corrupts the existing slot.
func (q *FileQueue) Save(pending []survey.Judgment) error {
	if pending == nil {
		pending = []survey.Judgment{}
	}

	data, err := json.MarshalIndent(pending, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pending queue: %w", err)
	}

	dir := filepath.Dir(q.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create queue directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".pending-*.json")
	if err != nil {
		return fmt.Errorf("create temp queue file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write pending queue: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close pending queue: %w", err)
	}

	if err := os.Rename(tmpName, q.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace pending queue: %w", err)
	}
	return nil
}
