package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
)

// ClaudeCLI completes prompts by spawning the claude CLI non-interactively
// with JSON output.
type ClaudeCLI struct {
	model   string
	workdir string
	logger  *slog.Logger
}

type claudeResponse struct {
	Result       string  `json:"result"`
	IsError      bool    `json:"is_error"`
	DurationMs   int     `json:"duration_ms"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	SessionID    string  `json:"session_id"`
	NumTurns     int     `json:"num_turns"`
}

// NewClaudeCLI returns a provider running claude in workdir (empty inherits
// the process working directory).
func NewClaudeCLI(model, workdir string, logger *slog.Logger) *ClaudeCLI {
	return &ClaudeCLI{model: model, workdir: workdir, logger: logger}
}

func (c *ClaudeCLI) Name() string { return "claude-cli:" + c.model }

func (c *ClaudeCLI) Close() error { return nil }

func (c *ClaudeCLI) Complete(ctx context.Context, msgs []Message) (*Response, error) {
	prompt := flatten(msgs)
	args := []string{
		"-p", prompt,
		"--output-format", "json",
		"--no-session-persistence",
		"--dangerously-skip-permissions",
		"--model", c.model,
	}

	c.logger.Debug("spawning claude", "workdir", c.workdir, "prompt_len", len(prompt))

	cmd := exec.CommandContext(ctx, "claude", args...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("claude: %w\n%s", err, string(out))
	}
	return c.parse(out)
}

func (c *ClaudeCLI) parse(out []byte) (*Response, error) {
	var resp claudeResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		// Older CLI builds print the answer raw; treat it as the content.
		if len(out) == 0 {
			return nil, ErrEmptyResponse
		}
		return &Response{Content: string(out)}, nil
	}
	if resp.IsError {
		return nil, fmt.Errorf("claude reported error: %s", resp.Result)
	}
	if resp.Result == "" {
		return nil, ErrEmptyResponse
	}

	c.logger.Debug("claude completed",
		"duration_ms", resp.DurationMs,
		"cost_usd", resp.TotalCostUSD,
		"turns", resp.NumTurns,
		"session_id", resp.SessionID)

	return &Response{Content: resp.Result}, nil
}
