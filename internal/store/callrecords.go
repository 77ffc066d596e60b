package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nvandessel/faqloop/internal/models"
	"go.uber.org/zap"
)

// CallRecords reads and patches the per-call source records, one JSON file
// per call id.
type CallRecords struct {
	dir    string
	logger *zap.Logger
}

// NewCallRecords creates a call record store rooted at dir.
func NewCallRecords(dir string, logger *zap.Logger) *CallRecords {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallRecords{dir: dir, logger: logger}
}

// Dir returns the directory holding the records.
func (c *CallRecords) Dir() string {
	return c.dir
}

// Path returns the file for callID, or "" if callID cannot name a file
// inside the record directory.
func (c *CallRecords) Path(callID string) string {
	if callID == "" || callID == "." || callID == ".." || strings.ContainsAny(callID, `/\`) {
		return ""
	}
	return filepath.Join(c.dir, callID+".json")
}

// Load reads the record for callID.
func (c *CallRecords) Load(callID string) (*models.CallRecord, error) {
	path := c.Path(callID)
	if path == "" {
		return nil, fmt.Errorf("%w: invalid call id %q", ErrMissingArtifact, callID)
	}
	return c.LoadFile(path)
}

// LoadFile reads a record from an explicit path.
func (c *CallRecords) LoadFile(path string) (*models.CallRecord, error) {
	var rec models.CallRecord
	if err := readJSONFile(path, &rec); err != nil {
		return nil, fmt.Errorf("load call record: %w", err)
	}
	return &rec, nil
}

// Save replaces the record for callID.
func (c *CallRecords) Save(callID string, rec *models.CallRecord) error {
	path := c.Path(callID)
	if path == "" {
		return fmt.Errorf("save call record: invalid call id %q", callID)
	}
	if err := writeJSONFile(path, rec); err != nil {
		return fmt.Errorf("save call record: %w", err)
	}
	return nil
}

// PatchAnswer sets the answer of the pair at the 1-based pairIndex. A missing
// record or an out-of-range index is not an error: it returns false.
func (c *CallRecords) PatchAnswer(callID string, pairIndex int, answer string) (bool, error) {
	path := c.Path(callID)
	if path == "" {
		return false, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}

	rec, err := c.LoadFile(path)
	if err != nil {
		return false, err
	}
	idx := pairIndex - 1
	if idx < 0 || idx >= len(rec.Pairs) {
		return false, nil
	}
	rec.Pairs[idx].A = answer

	if err := writeJSONFile(path, rec); err != nil {
		return false, fmt.Errorf("save call record: %w", err)
	}
	c.logger.Debug("call record patched",
		zap.String("call_id", callID),
		zap.Int("pair_index", pairIndex))
	return true, nil
}

// List returns every record file in name order.
func (c *CallRecords) List() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("list call records: %w: %s", ErrMissingArtifact, c.dir)
		}
		return nil, fmt.Errorf("list call records: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		files = append(files, filepath.Join(c.dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
