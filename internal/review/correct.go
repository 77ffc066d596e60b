package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/nvandessel/faqloop/internal/candidates"
	"github.com/nvandessel/faqloop/internal/detect"
	"github.com/nvandessel/faqloop/internal/models"
	"github.com/nvandessel/faqloop/internal/rewrite"
	"github.com/nvandessel/faqloop/internal/sanitize"
	"go.uber.org/zap"
)

// CorrectRequest replaces an entry's answer and propagates it to rows.
type CorrectRequest struct {
	Question  string `json:"question"`
	NewAnswer string `json:"new_answer"`
	Reviewer  string `json:"reviewer"`
	Comment   string `json:"comment"`

	// Rows are indices into the flat export to propagate to. Nil resolves
	// the entry's candidates; an empty slice propagates nowhere.
	Rows []int `json:"rows,omitempty"`
}

// Correct updates the entry and its cluster, then asks the detector which
// candidate rows contradict the new answer and rewrites the flagged snippets,
// changing at most MaxRewrites rows. The knowledge base is saved before any
// row is touched and is not rolled back if later steps fail. Errors for one
// row or one detection batch are recorded in the diff trace and never abort
// the operation.
func (o *Orchestrator) Correct(ctx context.Context, req CorrectRequest) (*models.CorrectionRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	question := strings.TrimSpace(req.Question)
	answer := sanitize.Answer(req.NewAnswer)
	reviewer := sanitize.Reviewer(req.Reviewer)
	comment := sanitize.Comment(req.Comment)

	op := newOperation("correct", question, o.logger)
	if question == "" || answer == "" || reviewer == "" || comment == "" {
		return nil, op.fail(fmt.Errorf("%w: question, answer, reviewer and comment are required", ErrInvalidInput))
	}

	entries, err := o.store.LoadKB()
	if err != nil {
		return nil, op.fail(err)
	}
	clusters, err := o.store.LoadClusters()
	if err != nil {
		return nil, op.fail(err)
	}
	rows, err := o.store.LoadQARows()
	if err != nil {
		return nil, op.fail(err)
	}

	idx := findEntry(entries, question)
	if idx < 0 {
		return nil, op.fail(fmt.Errorf("%w: %q", ErrEntryNotFound, question))
	}
	selected := req.Rows
	if selected == nil {
		selected = candidates.Find(question, clusters, rows)
	}
	selected, err = normalizeRows(selected, len(rows))
	if err != nil {
		return nil, op.fail(err)
	}

	ts := o.timestamp()
	previousAnswer := entries[idx].BestAnswer
	previousRows := make([]models.PreviousRow, 0, len(selected))
	for _, i := range selected {
		previousRows = append(previousRows, models.PreviousRow{
			CallID:         rows[i].CallID,
			PairIndex:      rows[i].PairIndex,
			PreviousAnswer: rows[i].Answer,
		})
	}

	entry := &entries[idx]
	entry.BestAnswer = answer
	entry.LastReviewedAt = ts
	entry.LastReviewer = reviewer
	entry.ReviewComment = comment
	entry.PendingReview = false
	if err := o.store.SaveKB(entries); err != nil {
		return nil, op.fail(err)
	}
	if cluster := clusters.Get(question); cluster != nil {
		cluster.BestAnswer = answer
		if err := o.store.SaveClusters(clusters); err != nil {
			return nil, op.fail(err)
		}
	}

	if err := op.advance(StateDetecting); err != nil {
		return nil, op.fail(err)
	}
	detectRows := make([]detect.Row, len(selected))
	for n, i := range selected {
		detectRows[n] = detect.Row{ID: i, Question: rows[i].Question, Answer: rows[i].Answer}
	}
	verdicts := o.detector.Detect(ctx, detectRows, answer, comment)

	if err := op.advance(StateRewriting); err != nil {
		return nil, op.fail(err)
	}
	note := fmt.Sprintf("Исправлено %s (%s): %s", ts, reviewer, comment)
	var (
		diffs   = make([]models.RowDiff, 0, len(selected))
		updated []models.RowKey
		changed int
	)
	for _, i := range selected {
		row := &rows[i]
		verdict, ok := verdicts[i]
		if !ok {
			verdict = detect.Result{Reason: detect.ReasonNoChange}
		}
		diff := models.RowDiff{
			CallID:    row.CallID,
			PairIndex: row.PairIndex,
			Question:  row.Question,
			OldAnswer: row.Answer,
			NewAnswer: row.Answer,
			Reason:    verdict.Reason,
		}

		switch {
		case !verdict.NeedsEdit:
		case changed >= o.maxRewrites:
			diff.Reason = ReasonLimitReached
		case verdict.Snippet == "":
			diff.Reason = rewrite.ReasonNoSnippet
		default:
			res := o.rewriter.Rewrite(ctx, row.Answer, verdict.Snippet, answer, comment)
			diff.Reason = res.Reason
			// The only rule deciding whether a row is mutated.
			if res.Changed && res.Answer != row.Answer {
				diff.NewAnswer = res.Answer
				diff.Changed = true
				diff.LLMUsed = true
				changed++
			}
		}

		if diff.Changed {
			row.Answer = diff.NewAnswer
			row.NeedsReview = false
			row.ReviewNotes = note
			o.patchSource(op, *row, row.Answer)
			updated = append(updated, row.Key())
		}
		diffs = append(diffs, diff)
	}

	if err := op.advance(StatePersisting); err != nil {
		return nil, op.fail(err)
	}
	regenerated := false
	if changed > 0 {
		if err := o.store.SaveQARows(rows); err != nil {
			return nil, op.fail(err)
		}
		regenerated = o.regenerate(ctx, op)
	}

	record := models.CorrectionRecord{
		CanonicalQuestion: question,
		ReviewedAt:        ts,
		Reviewer:          reviewer,
		Comment:           comment,
		CorrectedAnswer:   answer,
		UpdatedRows:       updated,
		NLURegenerated:    regenerated,
		PreviousKBAnswer:  &previousAnswer,
		PreviousRows:      previousRows,
		LLMUsed:           changed > 0,
		RowDiffs:          diffs,
		Type:              models.RecordCorrected,
	}
	if _, err := o.log.Append(record); err != nil {
		return nil, op.fail(fmt.Errorf("log correction: %w", err))
	}
	if err := op.advance(StateLogged); err != nil {
		return nil, op.fail(err)
	}
	op.logger.Info("entry corrected",
		zap.String("reviewer", reviewer),
		zap.Int("candidates", len(selected)),
		zap.Int("changed", changed),
		zap.Bool("nlu_regenerated", regenerated))
	return &record, nil
}

// normalizeRows checks every index against n and drops repeats, keeping the
// first occurrence.
func normalizeRows(rows []int, n int) ([]int, error) {
	seen := make(map[int]bool, len(rows))
	out := make([]int, 0, len(rows))
	for _, i := range rows {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: row %d out of range [0,%d)", ErrInvalidInput, i, n)
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	return out, nil
}
