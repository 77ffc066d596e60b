package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultCommand is the build target that regenerates the export.
var DefaultCommand = []string{"make", "nlu-export"}

// CommandRegenerator regenerates the export by running an external command
// in a working directory.
type CommandRegenerator struct {
	argv    []string
	dir     string
	timeout time.Duration
	logger  *zap.Logger
}

// NewCommandRegenerator creates a regenerator running argv in dir. An empty
// argv runs DefaultCommand.
func NewCommandRegenerator(argv []string, dir string, timeout time.Duration, logger *zap.Logger) *CommandRegenerator {
	if len(argv) == 0 {
		argv = DefaultCommand
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandRegenerator{argv: argv, dir: dir, timeout: timeout, logger: logger}
}

// Regenerate runs the command and reports its output on failure.
func (c *CommandRegenerator) Regenerate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.Dir = c.dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("export command timed out after %v", c.timeout)
		}
		return fmt.Errorf("export command %q failed: %w: %s", strings.Join(c.argv, " "), err, strings.TrimSpace(out.String()))
	}
	c.logger.Info("export command finished",
		zap.Strings("argv", c.argv),
		zap.Duration("took", time.Since(start)))
	return nil
}
