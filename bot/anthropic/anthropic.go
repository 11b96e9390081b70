// Package anthropic adapts the Anthropic Messages API into botgate chunk
// producers.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/botgate/stream"
)

// Options configures the Anthropic producer (temperature, model id, max
// tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Producer wraps the Anthropic client for prompt-in, text-chunks-out usage.
type Producer struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic producer using the official client
func New(optFns ...func(o *Options)) *Producer {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Producer{
		client: &client,
		opts:   opts,
	}
}

// NewFromClient creates a new Anthropic producer from an existing client
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Producer {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Producer{
		client: client,
		opts:   opts,
	}
}

// Stream starts a streaming message for prompt. Text deltas arrive on the
// chunk channel in emission order; an API failure is delivered on the error
// channel before the chunks close.
func (p *Producer) Stream(ctx context.Context, prompt string) stream.Source {
	out := make(chan string, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		s := p.client.Messages.NewStreaming(ctx, p.buildParams(prompt))
		for s.Next() {
			event := s.Current()
			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch deltaVariant := eventVariant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if deltaVariant.Text == "" {
						continue
					}
					select {
					case out <- deltaVariant.Text:
					case <-ctx.Done():
						return
					}
				}
			}
		}
		if err := s.Err(); err != nil {
			errCh <- fmt.Errorf("anthropic streaming error: %w", err)
		}
	}()

	return stream.Source{Chunks: out, Errs: errCh}
}

// Complete runs a non-streaming message and returns the concatenated text
// blocks, for utility tasks backed by a model.
func (p *Producer) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Messages.New(ctx, p.buildParams(prompt))
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}

	return text, nil
}

func (p *Producer) buildParams(prompt string) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:       p.opts.Model,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		MaxTokens:   p.opts.MaxTokens,
		Temperature: anthropic.Float(p.opts.Temperature),
	}
}
