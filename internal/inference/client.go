// Package inference wraps a single text-generation and embedding endpoint with
// bounded retries and typed failure reporting.
package inference

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/rahul/decisioncalm/internal/observability"
	"github.com/rahul/decisioncalm/pkg/config"
)

// Generator is the chat-completion half of an llms.Model.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Embedder produces embedding vectors.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Request is a single completion call.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int  // 0 leaves the provider default
	JSON        bool // ask the provider for a JSON object response
}

// Options tunes the client. Zero values fall back to the defaults below.
type Options struct {
	Model               string
	EmbeddingModel      string
	EmbeddingDimensions int
	MaxAttempts         int
	BaseDelay           time.Duration
	MaxDelay            time.Duration
	RequestsPerSecond   float64
}

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 2 * time.Second
	defaultMaxDelay    = 10 * time.Second
)

// Client is safe for concurrent use: it holds only immutable configuration
// plus a rate limiter that does its own locking.
type Client struct {
	gen     Generator
	emb     Embedder
	opts    Options
	limiter *rate.Limiter
	logger  *observability.Logger
}

// New builds a client over any generator/embedder pair.
func New(gen Generator, emb Embedder, opts Options, logger *observability.Logger) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = defaultMaxDelay
	}
	if logger == nil {
		logger = observability.NewNop()
	}
	c := &Client{gen: gen, emb: emb, opts: opts, logger: logger}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

// NewOpenAI builds a client backed by an OpenAI-compatible endpoint.
func NewOpenAI(p config.ProviderConfig, r config.RetryConfig, logger *observability.Logger) (*Client, error) {
	opts := []openai.Option{
		openai.WithToken(p.APIKey),
		openai.WithModel(p.Model),
		openai.WithEmbeddingModel(p.EmbeddingModel),
		openai.WithHTTPClient(&http.Client{Timeout: p.Timeout}),
	}
	if p.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(p.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return New(llm, llm, Options{
		Model:               p.Model,
		EmbeddingModel:      p.EmbeddingModel,
		EmbeddingDimensions: p.EmbeddingDimensions,
		MaxAttempts:         r.MaxAttempts,
		BaseDelay:           r.BaseDelay,
		MaxDelay:            r.MaxDelay,
		RequestsPerSecond:   p.RequestsPerSecond,
	}, logger), nil
}

// Model returns the completion model name.
func (c *Client) Model() string { return c.opts.Model }

// Complete sends a system + user message pair and returns the first choice.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.System),
		llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt),
	}
	callOpts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if c.opts.Model != "" {
		callOpts = append(callOpts, llms.WithModel(c.opts.Model))
	}
	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.JSON {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	var content string
	err := c.retry(ctx, "complete", c.opts.Model, func(ctx context.Context) error {
		resp, err := c.gen.GenerateContent(ctx, messages, callOpts...)
		if err != nil {
			return err
		}
		if resp == nil || len(resp.Choices) == 0 {
			return errEmptyResponse
		}
		choice := resp.Choices[0]
		c.logger.LogCost(c.opts.Model, intInfo(choice.GenerationInfo, "PromptTokens"), intInfo(choice.GenerationInfo, "CompletionTokens"))
		content = choice.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.emb == nil {
		return nil, &UnavailableError{Model: c.opts.EmbeddingModel, Err: fmt.Errorf("no embedder configured")}
	}
	var vec []float32
	err := c.retry(ctx, "embed", c.opts.EmbeddingModel, func(ctx context.Context) error {
		vecs, err := c.emb.CreateEmbedding(ctx, []string{text})
		if err != nil {
			return err
		}
		if len(vecs) == 0 {
			return errEmptyResponse
		}
		if want := c.opts.EmbeddingDimensions; want > 0 && len(vecs[0]) != want {
			return Permanent(fmt.Errorf("embedding has %d dimensions, want %d", len(vecs[0]), want))
		}
		vec = vecs[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

func (c *Client) retry(ctx context.Context, op, model string, fn func(context.Context) error) error {
	var lastErr error
	attempt := 0
	for attempt < c.opts.MaxAttempts {
		attempt++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("%s: waiting for rate limiter: %w", op, err)
			}
		}

		start := time.Now()
		err := fn(ctx)
		c.logger.LogLLM(op, model, attempt, time.Since(start), err)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", op, ctxErr)
		}
		lastErr = err
		if isPermanent(err) {
			break
		}
		if attempt < c.opts.MaxAttempts {
			if err := sleep(ctx, c.backoff(attempt)); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}
	}
	return &UnavailableError{Model: model, Attempts: attempt, Err: lastErr}
}

// backoff doubles from BaseDelay after each failed attempt, capped at MaxDelay.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= c.opts.MaxDelay {
			return c.opts.MaxDelay
		}
	}
	if d > c.opts.MaxDelay {
		return c.opts.MaxDelay
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func intInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
