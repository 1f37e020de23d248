// Package llm provides the completion layer behind the decision agent: a
// small Client contract, the concrete providers, and decorators for the
// cross-cutting pieces (timeouts, logging).
package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned when a provider answers without content.
var ErrEmptyResponse = errors.New("llm: empty response from model")

// Message is one prompt message.
type Message struct {
	Role    string // system|user|assistant
	Content string
}

// Usage reports token accounting when the provider exposes it; zero values
// mean unreported.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is a completed model call.
type Response struct {
	Content string
	Usage   Usage
}

// Client is a completion provider. Implementations own their transport and
// any retry policy; callers bound calls through the context (or the timeout
// decorator) and treat every error as a provider failure.
type Client interface {
	Name() string
	Complete(ctx context.Context, msgs []Message) (*Response, error)
	Close() error
}

// flatten joins messages into one prompt string for providers that take a
// single text block. Message order is preserved; roles are not tagged.
func flatten(msgs []Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n\n")
}
