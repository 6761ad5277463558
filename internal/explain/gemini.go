package explain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

// Options configures the Gemini explainer.
type Options struct {
	APIKey string
	Model  string
	// Timeout bounds each attempt.
	Timeout    time.Duration
	MaxRetries int
	// BaseDelay is the first backoff; each retry doubles it.
	BaseDelay time.Duration
}

// generator is one round trip to the model.
type generator interface {
	generate(ctx context.Context, prompt string) (string, error)
}

// Gemini explains solutions through the Gemini API. Transient failures are
// retried with exponential backoff and jitter.
type Gemini struct {
	logger *slog.Logger
	opts   Options
	gen    generator

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGemini connects a Gemini client.
func NewGemini(ctx context.Context, logger *slog.Logger, opts Options) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: api key cannot be empty", ErrInvalidConfig)
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create client: %v", ErrInvalidConfig, err)
	}
	return newGemini(logger, opts, &genaiGenerator{client: client, model: opts.Model}), nil
}

func newGemini(logger *slog.Logger, opts Options, gen generator) *Gemini {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gemini{
		logger: logger,
		opts:   opts,
		gen:    gen,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *Gemini) Explain(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: empty prompt", ErrInvalidConfig)
	}

	maxRetries := g.opts.MaxRetries
	if maxRetries < 0 {
		g.logger.WarnContext(ctx, "invalid max retries, using default", "max_retries", 3)
		maxRetries = 3
	}
	base := g.opts.BaseDelay
	if base <= 0 {
		g.logger.WarnContext(ctx, "invalid retry delay, using default", "base_delay", time.Second)
		base = time.Second
	}

	for attempt := 0; ; attempt++ {
		text, err := g.attempt(ctx, prompt)
		if err == nil {
			g.logger.DebugContext(ctx, "explanation received", "attempt", attempt+1, "length", len(text))
			return text, nil
		}
		if errors.Is(err, ErrContentBlocked) || errors.Is(err, ErrInvalidResponse) {
			g.logger.WarnContext(ctx, "permanent explain error, not retrying", "error", err)
			return "", err
		}
		if attempt >= maxRetries {
			g.logger.WarnContext(ctx, "explain retries exhausted", "max_retries", maxRetries, "error", err)
			return "", fmt.Errorf("%w: after %d attempts: %v", ErrTransientFailure, attempt+1, err)
		}

		delay := g.backoff(base, attempt)
		g.logger.InfoContext(ctx, "retrying explain call", "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
		}
	}
}

func (g *Gemini) attempt(ctx context.Context, prompt string) (string, error) {
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}
	return g.gen.generate(ctx, prompt)
}

// backoff is base * 2^attempt scaled by a jitter factor in [0.5, 1).
func (g *Gemini) backoff(base time.Duration, attempt int) time.Duration {
	g.mu.Lock()
	jitter := 0.5 + g.rng.Float64()*0.5
	g.mu.Unlock()
	return time.Duration(float64(base) * math.Pow(2, float64(attempt)) * jitter)
}

type genaiGenerator struct {
	client *genai.Client
	model  string
}

func (c *genaiGenerator) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrInvalidResponse)
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return "", ErrContentBlocked
	}
	if cand.Content == nil {
		return "", fmt.Errorf("%w: empty content", ErrInvalidResponse)
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("%w: empty text", ErrInvalidResponse)
	}
	return text, nil
}
