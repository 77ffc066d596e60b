// Package export regenerates the flat question/answer export from the
// per-call records.
package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nvandessel/faqloop/internal/models"
	"github.com/nvandessel/faqloop/internal/roles"
	"github.com/nvandessel/faqloop/internal/store"
	"github.com/nvandessel/faqloop/internal/tagging"
	"go.uber.org/zap"
)

// Regenerator rebuilds the flat export after the per-call records change.
type Regenerator interface {
	Regenerate(ctx context.Context) error
}

// Exporter rebuilds the flat export in process.
type Exporter struct {
	calls      *store.CallRecords
	records    *store.Records
	classifier roles.Classifier
	root       string
	logger     *zap.Logger
}

// NewExporter creates an Exporter reading from calls and writing through
// records. Source file paths in rows are made relative to root when
// possible. A nil classifier uses the keyword heuristics.
func NewExporter(calls *store.CallRecords, records *store.Records, classifier roles.Classifier, root string, logger *zap.Logger) *Exporter {
	if classifier == nil {
		classifier = roles.NewKeywordClassifier()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		calls:      calls,
		records:    records,
		classifier: classifier,
		root:       root,
		logger:     logger,
	}
}

// Regenerate rebuilds and replaces the flat export. Review annotations of
// the current export survive by row key, and rows of calls that have no
// per-call record are kept as they are.
func (e *Exporter) Regenerate(ctx context.Context) error {
	rows, err := e.Build(ctx)
	if err != nil {
		return err
	}
	existing, err := e.records.LoadQARows()
	if err != nil && !errors.Is(err, store.ErrMissingArtifact) {
		return err
	}
	rows, kept := Merge(rows, existing)
	if err := e.records.SaveQARows(rows); err != nil {
		return err
	}
	e.logger.Info("flat export regenerated",
		zap.Int("rows", len(rows)),
		zap.Int("kept_without_source", kept))
	return nil
}

// Merge copies needs_review and review_notes from previous onto built rows
// with the same key and appends previous rows whose call is absent from
// built. It returns the merged rows and how many were appended.
func Merge(built, previous []models.QARow) ([]models.QARow, int) {
	byKey := make(map[models.RowKey]models.QARow, len(previous))
	for _, r := range previous {
		byKey[r.Key()] = r
	}
	calls := make(map[string]bool)
	for i := range built {
		calls[built[i].CallID] = true
		if old, ok := byKey[built[i].Key()]; ok {
			built[i].NeedsReview = old.NeedsReview
			built[i].ReviewNotes = old.ReviewNotes
		}
	}
	kept := 0
	for _, r := range previous {
		if !calls[r.CallID] {
			built = append(built, r)
			kept++
		}
	}
	return built, kept
}

// Build reads every per-call record in name order and returns the export
// rows. Pairs whose question and answer are both blank are skipped.
func (e *Exporter) Build(ctx context.Context) ([]models.QARow, error) {
	files, err := e.calls.List()
	if err != nil {
		return nil, fmt.Errorf("regenerate export: %w", err)
	}

	var rows []models.QARow
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := e.calls.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("regenerate export: %w", err)
		}
		rows = append(rows, e.rowsFor(path, rec)...)
	}
	return rows, nil
}

func (e *Exporter) rowsFor(path string, rec *models.CallRecord) []models.QARow {
	callID := rec.ConversationID
	if callID == "" {
		callID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	hashtags := tagging.NormalizeHashtags(rec.ClientIntent(), rec.Subtopics())
	if hashtags == nil {
		hashtags = []string{}
	}
	flags := rec.QualityFlags()
	if flags == nil {
		flags = []string{}
	}
	source := e.sourcePath(path)

	var rows []models.QARow
	for i, pair := range rec.Pairs {
		question := strings.TrimSpace(pair.Q)
		answer := strings.TrimSpace(pair.A)
		if question == "" && answer == "" {
			continue
		}
		rows = append(rows, models.QARow{
			CallID:          callID,
			PairIndex:       i + 1,
			Question:        question,
			Answer:          answer,
			QuestionSpeaker: questionSpeaker(pair.QuestionSpeaker()),
			AnswerSpeaker:   e.answerSpeaker(pair.AnswerSpeaker(), answer),
			Intent:          rec.ClientIntent(),
			Hashtags:        hashtags,
			QualityFlags:    flags,
			SourceFile:      source,
		})
	}
	return rows
}

// questionSpeaker keeps an explicit label and otherwise assumes the client
// asked. Greetings and company names are routine in client questions, so the
// classifier is never consulted here.
func questionSpeaker(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return models.SpeakerClient
}

// answerSpeaker keeps an explicit label, then asks the classifier, then
// falls back to the agent.
func (e *Exporter) answerSpeaker(explicit, text string) string {
	if explicit != "" {
		return explicit
	}
	if s, ok := e.classifier.Classify(text); ok {
		return s
	}
	return models.SpeakerAgent
}

func (e *Exporter) sourcePath(path string) string {
	if e.root != "" {
		if rel, err := filepath.Rel(e.root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}
