// Package openai adapts the OpenAI Chat Completions API into botgate chunk
// producers. Stream returns the channel-pair shape the stream package
// consumes directly, so an executor can hand the result straight back from
// StreamRun.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/botgate/stream"
)

// Options configure the OpenAI producer. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Producer wraps the OpenAI client for prompt-in, text-chunks-out usage. The
// client reads its API key from the environment.
type Producer struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI producer using the official client
func New(optFns ...func(o *Options)) *Producer {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI producer from an existing client
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Producer {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Producer{client: client, opts: opts}
}

// Stream starts a streaming completion for prompt. Text deltas arrive on the
// chunk channel in emission order; an API failure is delivered on the error
// channel before the chunks close.
func (p *Producer) Stream(ctx context.Context, prompt string) stream.Source {
	out := make(chan string, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		s := p.client.Chat.Completions.NewStreaming(ctx, p.buildParams(prompt))
		for s.Next() {
			chunk := s.Current()
			for _, choice := range chunk.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				select {
				case out <- choice.Delta.Content:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := s.Err(); err != nil {
			errCh <- fmt.Errorf("openai streaming error: %w", err)
		}
	}()

	return stream.Source{Chunks: out, Errs: errCh}
}

// Complete runs a non-streaming completion and returns the full text, for
// utility tasks backed by a model.
func (p *Producer) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(prompt))
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *Producer) buildParams(prompt string) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Messages:            []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Model:               p.opts.Model,
		Temperature:         openai.Float(p.opts.Temperature),
		MaxCompletionTokens: openai.Int(p.opts.MaxCompletionTokens),
	}
}
