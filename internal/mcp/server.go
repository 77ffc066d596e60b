// Package mcp exposes review operations as Model Context Protocol tools over
// stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/faqloop/internal/models"
	"github.com/nvandessel/faqloop/internal/review"
	"go.uber.org/zap"
)

// Service is the subset of the review orchestrator the tools call.
type Service interface {
	Entries() ([]models.KnowledgeBaseEntry, error)
	Candidates(question string) ([]review.Candidate, error)
	History(question string, limit int) ([]models.CorrectionRecord, error)
	Confirm(ctx context.Context, req review.ConfirmRequest) (*models.CorrectionRecord, error)
	Correct(ctx context.Context, req review.CorrectRequest) (*models.CorrectionRecord, error)
	Undo(ctx context.Context, req review.UndoRequest) (*models.CorrectionRecord, error)
}

// Config configures the MCP server.
type Config struct {
	Name    string
	Version string
	Service Service
	Logger  *zap.Logger

	// OnClose runs once when the server is closed, e.g. to release the
	// collaborator or the correction index.
	OnClose func() error
}

// Server wraps the SDK server with the review tools registered.
type Server struct {
	server *mcpsdk.Server
	svc    Service
	logger *zap.Logger

	closeOnce sync.Once
	onClose   func() error
}

// NewServer registers every review tool.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil || cfg.Service == nil {
		return nil, errors.New("mcp: a review service is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		server: mcpsdk.NewServer(&mcpsdk.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		svc:     cfg.Service,
		logger:  logger,
		onClose: cfg.OnClose,
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdin/stdout until the client disconnects or ctx ends.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting")
	return s.server.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close releases resources. It is safe to call more than once.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.onClose != nil {
			err = s.onClose()
		}
	})
	return err
}

func jsonResult(v any) (*mcpsdk.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, nil, nil
}

// errorResult reports a failed operation to the client as tool output so
// the model can read and react to it.
func errorResult(err error) (*mcpsdk.CallToolResult, any, error) {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
	}, nil, nil
}
