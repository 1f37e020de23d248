package llm

import (
	"context"
	"log/slog"
	"time"
)

// Middleware decorates a Client with a cross-cutting concern.
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order:
// Wrap(inner, A, B) == A(B(inner)).
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// WithTimeout bounds every Complete call with a deadline.
func WithTimeout(d time.Duration) Middleware {
	return func(next Client) Client {
		return &timeoutClient{next: next, d: d}
	}
}

type timeoutClient struct {
	next Client
	d    time.Duration
}

func (t *timeoutClient) Name() string { return t.next.Name() }
func (t *timeoutClient) Close() error { return t.next.Close() }

func (t *timeoutClient) Complete(ctx context.Context, msgs []Message) (*Response, error) {
	if t.d <= 0 {
		return t.next.Complete(ctx, msgs)
	}
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.Complete(ctx, msgs)
}

// WithLogging logs call duration and usage at debug, failures at warn.
func WithLogging(logger *slog.Logger) Middleware {
	return func(next Client) Client {
		return &loggingClient{next: next, logger: logger}
	}
}

type loggingClient struct {
	next   Client
	logger *slog.Logger
}

func (l *loggingClient) Name() string { return l.next.Name() }
func (l *loggingClient) Close() error { return l.next.Close() }

func (l *loggingClient) Complete(ctx context.Context, msgs []Message) (*Response, error) {
	start := time.Now()
	resp, err := l.next.Complete(ctx, msgs)
	if err != nil {
		l.logger.Warn("llm call failed", "provider", l.next.Name(), "duration", time.Since(start), "error", err)
		return nil, err
	}
	l.logger.Debug("llm call completed",
		"provider", l.next.Name(),
		"duration", time.Since(start),
		"content_len", len(resp.Content),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens)
	return resp, nil
}
