// Package answer runs questions about a paper through a completion model
// and parses the structured answers the model returns.
package answer

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Olivia98106/semi-code/internal/prompt"
	"github.com/Olivia98106/semi-code/internal/resilience"
	"github.com/Olivia98106/semi-code/pkg/anthropic"
	"github.com/Olivia98106/semi-code/pkg/openai"
)

// Fallback is the answer text recorded when the upstream model could not be
// reached. Kept verbatim for compatibility with existing label exports.
const Fallback = "failed to get result from openai"

// ErrUpstream indicates the completion provider failed after retries.
var ErrUpstream = eris.New("answer: upstream completion failed")

// Completer produces a completion for a system and user message pair.
// Implementations wrap a specific provider.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Engine asks questions against a paper's text through a Completer, with
// client-side rate limiting and bounded retries on transient failures.
type Engine struct {
	completer Completer
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRequestsPerMinute caps the model call rate. Zero disables limiting.
func WithRequestsPerMinute(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(float64(n)/60.0), 1)
		}
	}
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) EngineOption {
	return func(e *Engine) {
		e.retry = cfg
	}
}

// NewEngine creates an Engine around the given Completer.
func NewEngine(c Completer, opts ...EngineOption) *Engine {
	e := &Engine{
		completer: c,
		retry:     resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ask sends a question about the paper and returns the raw model output.
// The paper text is framed as already-read context; the question should
// come from prompt.Build so the answer arrives as JSON.
func (e *Engine) Ask(ctx context.Context, paperText, question string) (string, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "answer: wait for rate limiter")
		}
	}

	system := prompt.SystemPersona + "\n" + paperText

	raw, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (string, error) {
		return e.completer.Complete(ctx, system, question)
	})
	if err != nil {
		zap.L().Warn("model call failed after retries", zap.Error(err))
		return "", eris.Wrap(ErrUpstream, err.Error())
	}
	return raw, nil
}

// openaiCompleter adapts the OpenAI chat client to Completer.
type openaiCompleter struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAICompleter wraps an OpenAI client as a Completer.
func NewOpenAICompleter(client openai.Client, model string, maxTokens int) Completer {
	return &openaiCompleter{client: client, model: model, maxTokens: maxTokens}
}

func (c *openaiCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// anthropicCompleter adapts the Anthropic client to Completer.
type anthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicCompleter wraps an Anthropic client as a Completer.
func NewAnthropicCompleter(client anthropic.Client, model string, maxTokens int64) Completer {
	return &anthropicCompleter{client: client, model: model, maxTokens: maxTokens}
}

func (c *anthropicCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
