// Package handler exposes review operations over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nvandessel/faqloop/internal/models"
	"github.com/nvandessel/faqloop/internal/review"
	"github.com/nvandessel/faqloop/internal/store"
	"go.uber.org/zap"
)

// Service is the subset of the review orchestrator the API serves.
type Service interface {
	Entries() ([]models.KnowledgeBaseEntry, error)
	Entry(question string) (*review.EntryDetail, error)
	Candidates(question string) ([]review.Candidate, error)
	History(question string, limit int) ([]models.CorrectionRecord, error)
	Confirm(ctx context.Context, req review.ConfirmRequest) (*models.CorrectionRecord, error)
	Correct(ctx context.Context, req review.CorrectRequest) (*models.CorrectionRecord, error)
	Undo(ctx context.Context, req review.UndoRequest) (*models.CorrectionRecord, error)
}

// ReviewHandler serves the knowledge base review endpoints.
type ReviewHandler interface {
	ListEntries(c *gin.Context)
	GetEntry(c *gin.Context)
	GetCandidates(c *gin.Context)
	GetHistory(c *gin.Context)
	Confirm(c *gin.Context)
	Correct(c *gin.Context)
	Undo(c *gin.Context)
}

type reviewHandler struct {
	svc    Service
	logger *zap.Logger
}

// NewReviewHandler creates a ReviewHandler backed by svc.
func NewReviewHandler(svc Service, logger *zap.Logger) ReviewHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &reviewHandler{svc: svc, logger: logger}
}

// ConfirmRequest is the body of POST /confirm
type ConfirmRequest struct {
	Question string `json:"question" binding:"required"`
	Reviewer string `json:"reviewer" binding:"required"`
	Comment  string `json:"comment"`
}

// CorrectRequest is the body of POST /correct. Omitted rows resolve to the
// entry's candidates.
type CorrectRequest struct {
	Question  string `json:"question" binding:"required"`
	NewAnswer string `json:"new_answer" binding:"required"`
	Reviewer  string `json:"reviewer" binding:"required"`
	Comment   string `json:"comment" binding:"required"`
	Rows      []int  `json:"rows"`
}

// UndoRequest is the body of POST /undo
type UndoRequest struct {
	Question string `json:"question" binding:"required"`
	Reviewer string `json:"reviewer"`
}

// ListEntries handles GET /api/v1/entries
func (h *reviewHandler) ListEntries(c *gin.Context) {
	entries, err := h.svc.Entries()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// GetEntry handles GET /api/v1/entries/detail?q=
func (h *reviewHandler) GetEntry(c *gin.Context) {
	q, ok := h.question(c)
	if !ok {
		return
	}
	detail, err := h.svc.Entry(q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetCandidates handles GET /api/v1/entries/candidates?q=
func (h *reviewHandler) GetCandidates(c *gin.Context) {
	q, ok := h.question(c)
	if !ok {
		return
	}
	cands, err := h.svc.Candidates(q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": q, "candidates": cands, "count": len(cands)})
}

// GetHistory handles GET /api/v1/history?q=&limit=
func (h *reviewHandler) GetHistory(c *gin.Context) {
	q, ok := h.question(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	history, err := h.svc.History(q, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if history == nil {
		history = []models.CorrectionRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"question": q, "history": history})
}

// Confirm handles POST /api/v1/confirm
func (h *reviewHandler) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if !h.bind(c, &req) {
		return
	}
	rec, err := h.svc.Confirm(c.Request.Context(), review.ConfirmRequest{
		Question: req.Question,
		Reviewer: req.Reviewer,
		Comment:  req.Comment,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Correct handles POST /api/v1/correct
func (h *reviewHandler) Correct(c *gin.Context) {
	var req CorrectRequest
	if !h.bind(c, &req) {
		return
	}
	rec, err := h.svc.Correct(c.Request.Context(), review.CorrectRequest{
		Question:  req.Question,
		NewAnswer: req.NewAnswer,
		Reviewer:  req.Reviewer,
		Comment:   req.Comment,
		Rows:      req.Rows,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Undo handles POST /api/v1/undo
func (h *reviewHandler) Undo(c *gin.Context) {
	var req UndoRequest
	if !h.bind(c, &req) {
		return
	}
	rec, err := h.svc.Undo(c.Request.Context(), review.UndoRequest{
		Question: req.Question,
		Reviewer: req.Reviewer,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *reviewHandler) question(c *gin.Context) (string, bool) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return "", false
	}
	return q, true
}

func (h *reviewHandler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Debug("rejected request body", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (h *reviewHandler) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// StatusFor maps review and store errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, review.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, review.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, review.ErrNoCorrectionToUndo), errors.Is(err, review.ErrNoPreviousAnswer):
		return http.StatusConflict
	case errors.Is(err, store.ErrMissingArtifact):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
