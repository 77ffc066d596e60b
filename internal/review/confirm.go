package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/nvandessel/faqloop/internal/models"
	"github.com/nvandessel/faqloop/internal/sanitize"
	"go.uber.org/zap"
)

// ConfirmRequest marks an entry as reviewed and correct.
type ConfirmRequest struct {
	Question string `json:"question"`
	Reviewer string `json:"reviewer"`
	Comment  string `json:"comment,omitempty"`
}

// Confirm clears pending_review on the entry, stamps the audit fields and
// logs a confirmed record. Rows are not touched.
func (o *Orchestrator) Confirm(ctx context.Context, req ConfirmRequest) (*models.CorrectionRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	question := strings.TrimSpace(req.Question)
	reviewer := sanitize.Reviewer(req.Reviewer)
	comment := sanitize.Comment(req.Comment)

	op := newOperation("confirm", question, o.logger)
	if question == "" || reviewer == "" {
		return nil, op.fail(fmt.Errorf("%w: question and reviewer are required", ErrInvalidInput))
	}

	entries, err := o.store.LoadKB()
	if err != nil {
		return nil, op.fail(err)
	}
	idx := findEntry(entries, question)
	if idx < 0 {
		return nil, op.fail(fmt.Errorf("%w: %q", ErrEntryNotFound, question))
	}

	if err := op.advance(StatePersisting); err != nil {
		return nil, op.fail(err)
	}
	ts := o.timestamp()
	entry := &entries[idx]
	entry.PendingReview = false
	entry.LastReviewedAt = ts
	entry.LastReviewer = reviewer
	entry.ReviewComment = comment
	if err := o.store.SaveKB(entries); err != nil {
		return nil, op.fail(err)
	}

	record := models.CorrectionRecord{
		CanonicalQuestion: question,
		ReviewedAt:        ts,
		Reviewer:          reviewer,
		Comment:           comment,
		Type:              models.RecordConfirmed,
	}
	if _, err := o.log.Append(record); err != nil {
		return nil, op.fail(fmt.Errorf("log confirmation: %w", err))
	}
	if err := op.advance(StateLogged); err != nil {
		return nil, op.fail(err)
	}
	op.logger.Info("entry confirmed", zap.String("reviewer", reviewer))
	return &record, nil
}
