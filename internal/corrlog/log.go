// Package corrlog implements the append-only correction log and its derived
// SQLite index.
package corrlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/nvandessel/faqloop/internal/models"
	"go.uber.org/zap"
)

// Log is the JSONL correction log. One record per line, oldest first.
type Log struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// Snapshot is the result of reading the whole log.
type Snapshot struct {
	Records []models.CorrectionRecord

	// Malformed counts lines that could not be decoded and were skipped.
	Malformed int
}

// New returns a log backed by path. The file is created on first append.
func New(path string, logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{path: path, logger: logger}
}

// Path returns the backing file.
func (l *Log) Path() string {
	return l.path
}

// Append writes record unless it is identical to the last well-formed record
// already in the log. It reports whether a line was written.
func (l *Log) Append(record models.CorrectionRecord) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap, err := l.read()
	if err != nil {
		return false, err
	}
	if n := len(snap.Records); n > 0 && snap.Records[n-1].SameAs(record) {
		l.logger.Debug("correction already logged",
			zap.String("question", record.CanonicalQuestion),
			zap.String("type", string(record.Type)))
		return false, nil
	}

	line, err := encodeRecord(record)
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, fmt.Errorf("open correction log: %w", err)
	}
	defer f.Close()

	// A torn final line must not swallow the new record.
	if needsNewline(l.path) {
		line = append([]byte("\n"), line...)
	}
	if _, err := f.Write(line); err != nil {
		return false, fmt.Errorf("append correction: %w", err)
	}
	if err := f.Sync(); err != nil {
		return false, fmt.Errorf("sync correction log: %w", err)
	}

	l.logger.Info("correction logged",
		zap.String("question", record.CanonicalQuestion),
		zap.String("type", string(record.Type)),
		zap.String("at", record.Timestamp()))
	return true, nil
}

// Read returns every well-formed record in append order.
func (l *Log) Read() (*Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

// All returns every well-formed record in append order.
func (l *Log) All() ([]models.CorrectionRecord, error) {
	snap, err := l.Read()
	if err != nil {
		return nil, err
	}
	return snap.Records, nil
}

// Last returns the newest well-formed record, or nil for an empty log.
func (l *Log) Last() (*models.CorrectionRecord, error) {
	records, err := l.All()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	last := records[len(records)-1]
	return &last, nil
}

// LastFor returns the newest corrected record for question, or nil.
func (l *Log) LastFor(question string) (*models.CorrectionRecord, error) {
	records, err := l.All()
	if err != nil {
		return nil, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if r.CanonicalQuestion == question && r.Type == models.RecordCorrected {
			return &r, nil
		}
	}
	return nil, nil
}

// HistoryFor returns every record about question in append order.
func (l *Log) HistoryFor(question string) ([]models.CorrectionRecord, error) {
	records, err := l.All()
	if err != nil {
		return nil, err
	}
	var out []models.CorrectionRecord
	for _, r := range records {
		if r.CanonicalQuestion == question {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *Log) read() (*Snapshot, error) {
	snap := &Snapshot{}
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return snap, nil
		}
		return nil, fmt.Errorf("open correction log: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	lineNo := 0
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			l.decodeLine(snap, lineNo, line)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read correction log: %w", err)
		}
	}
	return snap, nil
}

func (l *Log) decodeLine(snap *Snapshot, lineNo int, line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	var r models.CorrectionRecord
	if err := json.Unmarshal(line, &r); err != nil {
		snap.Malformed++
		l.logger.Warn("skipping malformed correction line",
			zap.Int("line", lineNo),
			zap.Error(err))
		return
	}
	snap.Records = append(snap.Records, r)
}

func encodeRecord(record models.CorrectionRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return nil, fmt.Errorf("encode correction: %w", err)
	}
	return buf.Bytes(), nil
}

// needsNewline reports whether path is non-empty and lacks a trailing newline.
func needsNewline(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return false
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false
	}
	return last[0] != '\n'
}
