package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/devpilot-io/devpilot/internal/config"
)

// New builds the configured provider wrapped with the standard decorators
// (call timeout, debug logging).
func New(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (Client, error) {
	var base Client
	switch cfg.Provider {
	case "claude-cli":
		base = NewClaudeCLI(cfg.Model, "", logger)
	case "gemini":
		g, err := NewGemini(ctx, cfg.Model, cfg.Temperature)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		base = g
	case "fake":
		base = NewFake()
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	return Wrap(base, WithLogging(logger), WithTimeout(cfg.Timeout)), nil
}
