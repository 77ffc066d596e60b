package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/nvandessel/faqloop/internal/models"
	"github.com/nvandessel/faqloop/internal/sanitize"
	"go.uber.org/zap"
)

// UndoRequest reverts the most recent correction of an entry.
type UndoRequest struct {
	Question string `json:"question"`
	Reviewer string `json:"reviewer,omitempty"`
}

// Undo restores the answers recorded by the newest corrected record for the
// question: the entry and cluster get the previous answer back, the entry is
// marked pending review again, and every snapshotted row is restored and
// flagged for review. Undo is single level; a correction that was already
// undone cannot be undone again.
func (o *Orchestrator) Undo(ctx context.Context, req UndoRequest) (*models.CorrectionRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	question := strings.TrimSpace(req.Question)
	reviewer := sanitize.Reviewer(req.Reviewer)

	op := newOperation("undo", question, o.logger)
	if question == "" {
		return nil, op.fail(fmt.Errorf("%w: question is required", ErrInvalidInput))
	}

	history, err := o.log.HistoryFor(question)
	if err != nil {
		return nil, op.fail(err)
	}
	target, err := undoTarget(history)
	if err != nil {
		return nil, op.fail(err)
	}
	if target.PreviousKBAnswer == nil {
		return nil, op.fail(fmt.Errorf("%w: correction from %s", ErrNoPreviousAnswer, target.ReviewedAt))
	}

	entries, err := o.store.LoadKB()
	if err != nil {
		return nil, op.fail(err)
	}
	clusters, err := o.store.LoadClusters()
	if err != nil {
		return nil, op.fail(err)
	}
	var rows []models.QARow
	if len(target.PreviousRows) > 0 {
		if rows, err = o.store.LoadQARows(); err != nil {
			return nil, op.fail(err)
		}
	}

	if err := op.advance(StatePersisting); err != nil {
		return nil, op.fail(err)
	}
	previous := *target.PreviousKBAnswer
	if idx := findEntry(entries, question); idx >= 0 {
		entry := &entries[idx]
		entry.BestAnswer = previous
		entry.PendingReview = true
		entry.LastReviewedAt = target.ReviewedAt
		entry.LastReviewer = target.Reviewer
		entry.ReviewComment = fmt.Sprintf("Откат к версии от %s", target.ReviewedAt)
		if err := o.store.SaveKB(entries); err != nil {
			return nil, op.fail(err)
		}
	} else {
		op.logger.Warn("entry missing from knowledge base, restoring rows only")
	}
	if cluster := clusters.Get(question); cluster != nil {
		cluster.BestAnswer = previous
		if err := o.store.SaveClusters(clusters); err != nil {
			return nil, op.fail(err)
		}
	}

	note := fmt.Sprintf("Откат правки от %s (%s)", target.ReviewedAt, target.Reviewer)
	byKey := make(map[models.RowKey]int, len(rows))
	for i, r := range rows {
		byKey[r.Key()] = i
	}
	restored := 0
	for _, prev := range target.PreviousRows {
		if prev.CallID == "" || prev.PairIndex <= 0 {
			continue
		}
		i, ok := byKey[models.RowKey{CallID: prev.CallID, PairIndex: prev.PairIndex}]
		if !ok {
			op.logger.Debug("row no longer in export",
				zap.String("call_id", prev.CallID),
				zap.Int("pair_index", prev.PairIndex))
			continue
		}
		row := &rows[i]
		row.Answer = prev.PreviousAnswer
		row.NeedsReview = true
		row.ReviewNotes = note
		o.patchSource(op, *row, prev.PreviousAnswer)
		restored++
	}
	if restored > 0 {
		if err := o.store.SaveQARows(rows); err != nil {
			return nil, op.fail(err)
		}
		o.regenerate(ctx, op)
	}

	record := models.CorrectionRecord{
		CanonicalQuestion: question,
		Reviewer:          reviewer,
		UndoneAt:          o.timestamp(),
		UndoneRecord:      target.ReviewedAt,
		Type:              models.RecordUndo,
	}
	if _, err := o.log.Append(record); err != nil {
		return nil, op.fail(fmt.Errorf("log undo: %w", err))
	}
	if err := op.advance(StateLogged); err != nil {
		return nil, op.fail(err)
	}
	op.logger.Info("correction undone",
		zap.String("undone_record", target.ReviewedAt),
		zap.Int("rows_restored", restored))
	return &record, nil
}

// undoTarget returns the newest corrected record in history, unless an undo
// referencing it was logged after it.
func undoTarget(history []models.CorrectionRecord) (*models.CorrectionRecord, error) {
	for i := len(history) - 1; i >= 0; i-- {
		r := history[i]
		if r.Type != models.RecordCorrected {
			continue
		}
		for _, later := range history[i+1:] {
			if later.Type == models.RecordUndo && later.UndoneRecord == r.ReviewedAt {
				return nil, fmt.Errorf("%w: correction from %s was already undone", ErrNoCorrectionToUndo, r.ReviewedAt)
			}
		}
		return &r, nil
	}
	return nil, ErrNoCorrectionToUndo
}
