package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/nvandessel/faqloop/internal/models"
	"go.uber.org/zap"
)

// ErrMissingArtifact is returned when a collection's backing file does not
// exist. The operation that needed it cannot proceed.
var ErrMissingArtifact = errors.New("missing artifact")

// Records owns the knowledge base, the cluster list and the flat QA export.
// Every save replaces the whole file atomically; there is no locking, callers
// serialize operations.
type Records struct {
	paths  Paths
	logger *zap.Logger
}

// NewRecords creates a record store over paths.
func NewRecords(paths Paths, logger *zap.Logger) *Records {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Records{paths: paths, logger: logger}
}

// Paths returns the locations the store reads and writes.
func (s *Records) Paths() Paths {
	return s.paths
}

// LoadKB reads the knowledge base entry list.
func (s *Records) LoadKB() ([]models.KnowledgeBaseEntry, error) {
	var entries []models.KnowledgeBaseEntry
	if err := readJSONFile(s.paths.KB, &entries); err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}
	return entries, nil
}

// SaveKB replaces the knowledge base file.
func (s *Records) SaveKB(entries []models.KnowledgeBaseEntry) error {
	if entries == nil {
		entries = []models.KnowledgeBaseEntry{}
	}
	if err := writeJSONFile(s.paths.KB, entries); err != nil {
		return fmt.Errorf("save knowledge base: %w", err)
	}
	s.logger.Debug("knowledge base saved", zap.String("path", s.paths.KB), zap.Int("entries", len(entries)))
	return nil
}

// LoadClusters reads the deduplicated cluster list keyed by canonical question.
func (s *Records) LoadClusters() (*models.ClusterSet, error) {
	var clusters []models.FaqCluster
	if err := readJSONFile(s.paths.Clusters, &clusters); err != nil {
		return nil, fmt.Errorf("load clusters: %w", err)
	}
	return models.NewClusterSet(clusters), nil
}

// SaveClusters replaces the cluster file, preserving load order.
func (s *Records) SaveClusters(set *models.ClusterSet) error {
	clusters := set.List()
	if err := writeJSONFile(s.paths.Clusters, clusters); err != nil {
		return fmt.Errorf("save clusters: %w", err)
	}
	s.logger.Debug("clusters saved", zap.String("path", s.paths.Clusters), zap.Int("clusters", len(clusters)))
	return nil
}

// LoadQARows reads the flat export in file order. Blank lines are skipped;
// a malformed line is an error since the file is machine-written.
func (s *Records) LoadQARows() ([]models.QARow, error) {
	data, err := os.ReadFile(s.paths.QAExport)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("load qa export: %w: %s", ErrMissingArtifact, s.paths.QAExport)
		}
		return nil, fmt.Errorf("load qa export: %w", err)
	}

	var rows []models.QARow
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var row models.QARow
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("load qa export: line %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// SaveQARows replaces the flat export, one JSON object per line.
func (s *Records) SaveQARows(rows []models.QARow) error {
	data, err := encodeJSONL(rows)
	if err != nil {
		return fmt.Errorf("save qa export: %w", err)
	}
	if err := WriteFileAtomic(s.paths.QAExport, data, 0644); err != nil {
		return fmt.Errorf("save qa export: %w", err)
	}
	s.logger.Debug("qa export saved", zap.String("path", s.paths.QAExport), zap.Int("rows", len(rows)))
	return nil
}

// encodeJSONL renders rows as newline-delimited JSON.
func encodeJSONL(rows []models.QARow) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i := range rows {
		if err := enc.Encode(rows[i]); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissingArtifact, path)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return WriteFileAtomic(path, buf.Bytes(), 0644)
}
