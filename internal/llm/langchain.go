package llm

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/reposcope/reposcope/internal/modelstream"
)

// LangChainClient streams generations through LangChainGo. Useful for
// self-hosted OpenAI-compatible gateways; like the OpenAI backend it has no
// thought channel and emits flat chunks.
type LangChainClient struct {
	llm   *lcopenai.LLM
	model string
}

// NewLangChainClient creates a LangChainGo-backed stream client.
func NewLangChainClient(apiKey, endpoint, model string) (*LangChainClient, error) {
	opts := []lcopenai.Option{
		lcopenai.WithToken(apiKey),
		lcopenai.WithModel(model),
	}
	if endpoint != "" {
		opts = append(opts, lcopenai.WithBaseURL(endpoint))
	}
	llmClient, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain llm: %w", err)
	}
	return &LangChainClient{llm: llmClient, model: model}, nil
}

// Name returns the backend name
func (c *LangChainClient) Name() string {
	return "langchain-" + c.model
}

// Ping sends a minimal request to verify connection
func (c *LangChainClient) Ping(ctx context.Context) error {
	slog.Info("checking langchain llm connection...")
	if _, err := llms.GenerateFromSinglePrompt(ctx, c.llm, "ping", llms.WithMaxTokens(1)); err != nil {
		return fmt.Errorf("langchain ping failed: %w", classifyError(err))
	}
	slog.Info("langchain llm connection verified")
	return nil
}

// GenerateStream bridges LangChainGo's push-style streaming callback into the
// pull-style chunk sequence the consumer expects.
func (c *LangChainClient) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) iter.Seq2[*modelstream.Chunk, error] {
	return func(yield func(*modelstream.Chunk, error) bool) {
		fragments := make(chan string, 16)
		done := make(chan error, 1)

		go func() {
			defer close(fragments)
			callOpts := []llms.CallOption{
				llms.WithStreamingFunc(func(cbCtx context.Context, chunk []byte) error {
					select {
					case fragments <- string(chunk):
						return nil
					case <-cbCtx.Done():
						return cbCtx.Err()
					}
				}),
			}
			if opts.Temperature != nil {
				callOpts = append(callOpts, llms.WithTemperature(float64(*opts.Temperature)))
			}
			if opts.ResponseSchema != nil {
				callOpts = append(callOpts, llms.WithJSONMode())
			}
			_, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, callOpts...)
			done <- err
		}()

		for text := range fragments {
			if text == "" {
				continue
			}
			if !yield(&modelstream.Chunk{Text: text}, nil) {
				// Abandoned mid-stream: drain so the producer goroutine can
				// finish once its context is cancelled.
				go func() {
					for range fragments {
					}
				}()
				return
			}
		}
		if err := <-done; err != nil {
			yield(nil, classifyError(fmt.Errorf("langchain stream: %w", err)))
		}
	}
}
