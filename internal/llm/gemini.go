package llm

import (
	"context"
	"time"

	genai "google.golang.org/genai"
)

const geminiAttempts = 3

// Gemini completes prompts through the Gemini API, always requesting JSON
// output. The API key comes from the environment (GEMINI_API_KEY or
// GOOGLE_API_KEY), loaded by the .env bootstrap in main.
type Gemini struct {
	cli         *genai.Client
	model       string
	temperature float64
}

func NewGemini(ctx context.Context, model string, temperature float64) (*Gemini, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return &Gemini{cli: cli, model: model, temperature: temperature}, nil
}

func (g *Gemini) Name() string { return "gemini:" + g.model }

func (g *Gemini) Close() error { return nil }

// Complete retries transient failures with exponential backoff before giving
// up; the retry policy lives here, never in the decision agent.
func (g *Gemini) Complete(ctx context.Context, msgs []Message) (*Response, error) {
	full := flatten(msgs)
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	if g.temperature > 0 {
		temp := float32(g.temperature)
		cfg.Temperature = &temp
	}

	var lastErr error
	for attempt := 0; attempt < geminiAttempts; attempt++ {
		resp, err := g.cli.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
			cfg,
		)
		switch {
		case err != nil:
			lastErr = err
		case len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0:
			lastErr = ErrEmptyResponse
		default:
			out := &Response{Content: resp.Candidates[0].Content.Parts[0].Text}
			if um := resp.UsageMetadata; um != nil {
				out.Usage = Usage{
					InputTokens:  int(um.PromptTokenCount),
					OutputTokens: int(um.CandidatesTokenCount),
				}
			}
			return out, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
		}
	}
	return nil, lastErr
}
