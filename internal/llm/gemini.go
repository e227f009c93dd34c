package llm

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"google.golang.org/genai"

	"github.com/reposcope/reposcope/internal/modelstream"
)

// GeminiClient streams generations through the Google Gen AI SDK. It is the
// only backend that produces structured chunks with a thought channel.
type GeminiClient struct {
	client         *genai.Client
	model          string
	thinkingBudget int32
}

// NewGeminiClient creates a Gemini-backed stream client.
func NewGeminiClient(ctx context.Context, apiKey, model string, thinkingBudget int32) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{
		client:         client,
		model:          model,
		thinkingBudget: thinkingBudget,
	}, nil
}

// Name returns the backend name
func (g *GeminiClient) Name() string {
	return "gemini-" + g.model
}

// Ping sends a minimal request to verify the credential and connectivity
func (g *GeminiClient) Ping(ctx context.Context) error {
	slog.Info("checking gemini connection...")
	_, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text("ping"), &genai.GenerateContentConfig{
		MaxOutputTokens: 1,
	})
	if err != nil {
		return fmt.Errorf("gemini ping failed: %w", classifyError(err))
	}
	slog.Info("gemini connection verified")
	return nil
}

// GenerateStream issues one streamed generation. Thought parts arrive when
// opts.IncludeThoughts is set; schema-constrained phases additionally get
// JSON decoding enforced by the provider.
func (g *GeminiClient) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) iter.Seq2[*modelstream.Chunk, error] {
	model := opts.Model
	if model == "" {
		model = g.model
	}

	cfg := &genai.GenerateContentConfig{}
	if opts.Temperature != nil {
		cfg.Temperature = opts.Temperature
	}
	if opts.IncludeThoughts {
		cfg.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
		if g.thinkingBudget > 0 {
			cfg.ThinkingConfig.ThinkingBudget = genai.Ptr(g.thinkingBudget)
		}
	}
	if opts.ResponseSchema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = opts.ResponseSchema
	}

	return func(yield func(*modelstream.Chunk, error) bool) {
		for resp, err := range g.client.Models.GenerateContentStream(ctx, model, genai.Text(prompt), cfg) {
			if err != nil {
				yield(nil, classifyError(err))
				return
			}
			chunk := chunkFromResponse(resp)
			if chunk == nil {
				continue
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// chunkFromResponse flattens one streamed response into a chunk, dropping
// empty parts. Returns nil when the response carries no text at all.
func chunkFromResponse(resp *genai.GenerateContentResponse) *modelstream.Chunk {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	chunk := &modelstream.Chunk{}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		chunk.Parts = append(chunk.Parts, modelstream.Part{
			Thought: part.Thought,
			Text:    part.Text,
		})
	}
	if len(chunk.Parts) == 0 {
		return nil
	}
	return chunk
}
