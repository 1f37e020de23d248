// Package testcheck runs a project's configured test command on demand.
package testcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

const defaultTimeout = 5 * time.Minute

// CommandFor resolves the test command for a project path. Empty means the
// project has no test command configured.
type CommandFor func(projectPath string) string

// Checker executes test commands through the shell and reports pass/fail.
// It backs the decision agent's require_tests_pass check.
type Checker struct {
	commandFor CommandFor
	timeout    time.Duration
	logger     *slog.Logger
}

func New(commandFor CommandFor, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		commandFor: commandFor,
		timeout:    defaultTimeout,
		logger:     logger,
	}
}

// Run executes the project's test command under projectPath. A non-zero exit
// means the tests fail; an error means the outcome could not be determined.
func (c *Checker) Run(ctx context.Context, projectPath string) (bool, error) {
	command := c.commandFor(projectPath)
	if command == "" {
		return false, fmt.Errorf("no test command configured for %s", projectPath)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = projectPath

	c.logger.Debug("running tests", "project", projectPath, "command", command)
	start := time.Now()
	out, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return false, fmt.Errorf("test command timed out after %s", c.timeout)
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			c.logger.Debug("tests failing",
				"project", projectPath,
				"duration", time.Since(start),
				"output", truncate(string(out), 400))
			return false, nil
		}
		return false, fmt.Errorf("run %q: %w", command, err)
	}

	c.logger.Debug("tests passing", "project", projectPath, "duration", time.Since(start))
	return true, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
