package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CommandClient implements Client by running a local command. The rendered
// transcript is written to its stdin and the reply is read from stdout, so
// any CLI that wraps a model can act as the collaborator.
type CommandClient struct {
	// argv is the command and its arguments
	argv []string

	// timeout is the maximum duration to wait for a reply
	timeout time.Duration

	logger *zap.Logger

	// available caches the result of executable detection
	availableOnce sync.Once
	available     bool
}

// CommandConfig configures the command client.
type CommandConfig struct {
	// Argv is the command line, e.g. ["llm", "-m", "gpt-4o-mini"]
	Argv []string

	// Timeout is the maximum duration for requests (default: 60s)
	Timeout time.Duration
}

// NewCommandClient creates a new CommandClient with the given configuration.
func NewCommandClient(cfg CommandConfig, logger *zap.Logger) *CommandClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandClient{
		argv:    cfg.Argv,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Available returns true if the configured executable can be found.
func (c *CommandClient) Available() bool {
	c.availableOnce.Do(func() {
		if len(c.argv) == 0 || c.argv[0] == "" {
			return
		}
		if _, err := exec.LookPath(c.argv[0]); err != nil {
			c.logger.Debug("collaborator command not found",
				zap.String("command", c.argv[0]))
			return
		}
		c.available = true
	})
	return c.available
}

// Generate runs the command with the rendered transcript on stdin.
func (c *CommandClient) Generate(ctx context.Context, messages []Message, _ Options) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.Stdin = strings.NewReader(RenderTranscript(messages))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("collaborator command timed out after %v", c.timeout)
		}
		return "", fmt.Errorf("collaborator command failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	response := strings.TrimSpace(stdout.String())
	if response == "" {
		return "", fmt.Errorf("collaborator command returned empty response")
	}
	return response, nil
}

// RenderTranscript flattens messages into a single prompt, system
// instructions first.
func RenderTranscript(messages []Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if m.Role == RoleAssistant {
			b.WriteString("Assistant: ")
		}
		b.WriteString(m.Content)
	}
	return b.String()
}
