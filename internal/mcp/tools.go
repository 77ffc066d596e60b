package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/faqloop/internal/models"
	"github.com/nvandessel/faqloop/internal/review"
	"go.uber.org/zap"
)

// ListInput filters review_list.
type ListInput struct {
	PendingOnly bool `json:"pending_only,omitempty" jsonschema:"only return entries still pending review"`
}

// QuestionInput names the entry review_candidates reports on.
type QuestionInput struct {
	Question string `json:"question" jsonschema:"canonical question of the knowledge base entry"`
}

// HistoryInput selects an entry's records for review_history.
type HistoryInput struct {
	Question string `json:"question" jsonschema:"canonical question of the knowledge base entry"`
	Limit    int    `json:"limit,omitempty" jsonschema:"number of most recent records to return, 0 for all"`
}

// ConfirmInput is the review_confirm request.
type ConfirmInput struct {
	Question string `json:"question" jsonschema:"canonical question of the knowledge base entry"`
	Reviewer string `json:"reviewer" jsonschema:"name of the reviewer"`
	Comment  string `json:"comment,omitempty" jsonschema:"optional review comment"`
}

// CorrectInput is the review_correct request.
type CorrectInput struct {
	Question  string `json:"question" jsonschema:"canonical question of the knowledge base entry"`
	NewAnswer string `json:"new_answer" jsonschema:"the corrected authoritative answer"`
	Reviewer  string `json:"reviewer" jsonschema:"name of the reviewer"`
	Comment   string `json:"comment" jsonschema:"what changed and why, shown to the rewriting model"`
	Rows      []int  `json:"rows,omitempty" jsonschema:"flat export row indices to propagate to, defaults to the entry's candidates"`
}

// UndoInput is the review_undo request.
type UndoInput struct {
	Question string `json:"question" jsonschema:"canonical question of the knowledge base entry"`
	Reviewer string `json:"reviewer,omitempty" jsonschema:"name of the reviewer performing the undo"`
}

// entrySummary is the compact listing returned by review_list.
type entrySummary struct {
	CanonicalQuestion string `json:"canonical_question"`
	BestAnswer        string `json:"best_answer"`
	PendingReview     bool   `json:"pending_review"`
	LastReviewedAt    string `json:"last_reviewed_at,omitempty"`
	LastReviewer      string `json:"last_reviewer,omitempty"`
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "review_list",
		Description: "List knowledge base entries with their review status.",
	}, s.handleList)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "review_candidates",
		Description: "List flat export rows a correction of the entry would consider, with their row indices.",
	}, s.handleCandidates)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "review_confirm",
		Description: "Confirm that an entry's answer is correct. No rows are changed.",
	}, s.handleConfirm)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "review_correct",
		Description: "Replace an entry's answer and rewrite contradicting operator answers in the flat export. Returns the full correction record with per-row diffs.",
	}, s.handleCorrect)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "review_undo",
		Description: "Revert the most recent correction of an entry, restoring the previous answer and rows.",
	}, s.handleUndo)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "review_history",
		Description: "Show the correction log records of an entry, oldest first.",
	}, s.handleHistory)
}

func (s *Server) handleList(ctx context.Context, req *mcpsdk.CallToolRequest, in ListInput) (*mcpsdk.CallToolResult, any, error) {
	entries, err := s.svc.Entries()
	if err != nil {
		return errorResult(err)
	}
	out := make([]entrySummary, 0, len(entries))
	for _, e := range entries {
		if in.PendingOnly && !e.PendingReview {
			continue
		}
		out = append(out, entrySummary{
			CanonicalQuestion: e.CanonicalQuestion,
			BestAnswer:        e.BestAnswer,
			PendingReview:     e.PendingReview,
			LastReviewedAt:    e.LastReviewedAt,
			LastReviewer:      e.LastReviewer,
		})
	}
	return jsonResult(map[string]any{"entries": out, "count": len(out)})
}

func (s *Server) handleCandidates(ctx context.Context, req *mcpsdk.CallToolRequest, in QuestionInput) (*mcpsdk.CallToolResult, any, error) {
	cands, err := s.svc.Candidates(in.Question)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{"question": in.Question, "candidates": cands, "count": len(cands)})
}

func (s *Server) handleHistory(ctx context.Context, req *mcpsdk.CallToolRequest, in HistoryInput) (*mcpsdk.CallToolResult, any, error) {
	history, err := s.svc.History(in.Question, in.Limit)
	if err != nil {
		return errorResult(err)
	}
	if history == nil {
		history = []models.CorrectionRecord{}
	}
	return jsonResult(map[string]any{"question": in.Question, "history": history})
}

func (s *Server) handleConfirm(ctx context.Context, req *mcpsdk.CallToolRequest, in ConfirmInput) (*mcpsdk.CallToolResult, any, error) {
	rec, err := s.svc.Confirm(ctx, review.ConfirmRequest{
		Question: in.Question,
		Reviewer: in.Reviewer,
		Comment:  in.Comment,
	})
	return s.recordResult("review_confirm", rec, err)
}

func (s *Server) handleCorrect(ctx context.Context, req *mcpsdk.CallToolRequest, in CorrectInput) (*mcpsdk.CallToolResult, any, error) {
	rec, err := s.svc.Correct(ctx, review.CorrectRequest{
		Question:  in.Question,
		NewAnswer: in.NewAnswer,
		Reviewer:  in.Reviewer,
		Comment:   in.Comment,
		Rows:      in.Rows,
	})
	return s.recordResult("review_correct", rec, err)
}

func (s *Server) handleUndo(ctx context.Context, req *mcpsdk.CallToolRequest, in UndoInput) (*mcpsdk.CallToolResult, any, error) {
	rec, err := s.svc.Undo(ctx, review.UndoRequest{
		Question: in.Question,
		Reviewer: in.Reviewer,
	})
	return s.recordResult("review_undo", rec, err)
}

func (s *Server) recordResult(tool string, rec *models.CorrectionRecord, err error) (*mcpsdk.CallToolResult, any, error) {
	if err != nil {
		s.logger.Warn("tool failed", zap.String("tool", tool), zap.Error(err))
		return errorResult(err)
	}
	return jsonResult(rec)
}
