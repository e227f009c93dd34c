package llm

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/reposcope/reposcope/internal/modelstream"
)

// OpenAIClient streams generations through any OpenAI-compatible endpoint.
// Completion deltas carry only text, so every chunk is the flat shape and no
// progress summaries are produced for this backend.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClient creates an OpenAI-compatible stream client. An empty
// endpoint uses the provider default.
func NewOpenAIClient(apiKey, endpoint, model string, timeout time.Duration) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	client := openai.NewClient(opts...)
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIClient{
		client:  &client,
		model:   model,
		timeout: timeout,
	}
}

// Name returns the backend name
func (a *OpenAIClient) Name() string {
	return "openai-" + a.model
}

// Ping sends a minimal request to verify connection
func (a *OpenAIClient) Ping(ctx context.Context) error {
	slog.Info("checking llm connection...")
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("hello"),
		},
		MaxTokens: openai.Int(1),
	}
	if _, err := a.client.Chat.Completions.New(ctx, params); err != nil {
		return fmt.Errorf("llm ping failed: %w", classifyError(err))
	}
	slog.Info("llm connection verified")
	return nil
}

// GenerateStream issues one streamed chat completion. The schema and thinking
// options have no OpenAI equivalent here: structured phases rely on the
// prompt's JSON instruction, and thought parts are never produced.
func (a *OpenAIClient) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) iter.Seq2[*modelstream.Chunk, error] {
	model := opts.Model
	if model == "" {
		model = a.model
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(float64(*opts.Temperature))
	}

	return func(yield func(*modelstream.Chunk, error) bool) {
		streamCtx := ctx
		if a.timeout > 0 {
			var cancel context.CancelFunc
			streamCtx, cancel = context.WithTimeout(ctx, a.timeout)
			defer cancel()
		}

		stream := a.client.Chat.Completions.NewStreaming(streamCtx, params)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !yield(&modelstream.Chunk{Text: delta}, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield(nil, classifyError(fmt.Errorf("openai stream: %w", err)))
		}
	}
}
