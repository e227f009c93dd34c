// Package llm provides streaming model backends behind a single interface.
// Gemini is the primary backend and the only one with a thought channel;
// OpenAI-compatible and LangChainGo backends emit flat text chunks.
package llm

import (
	"context"
	"iter"

	"google.golang.org/genai"

	"github.com/reposcope/reposcope/internal/modelstream"
)

// GenerateOptions controls one streamed generation.
type GenerateOptions struct {
	// Model overrides the client's configured model when non-empty. The
	// identifier is passed through uninterpreted.
	Model string
	// Temperature, when set, is forwarded to the backend.
	Temperature *float32
	// ResponseSchema constrains the output to a JSON value of this shape.
	// Only the Gemini backend enforces it at decode time; the other backends
	// rely on the prompt's JSON instruction and enable JSON mode where the
	// provider supports it.
	ResponseSchema *genai.Schema
	// IncludeThoughts asks the backend to stream reasoning narration as
	// thought parts. Backends without a thought channel ignore it.
	IncludeThoughts bool
}

// StreamClient is the model-calling collaborator: one prompt in, a finite
// single-pass chunk stream out. The stream is not restartable.
type StreamClient interface {
	// GenerateStream issues one generation and returns its chunk stream.
	// Errors (including credential errors, already classified) surface as
	// the stream's error value.
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) iter.Seq2[*modelstream.Chunk, error]
	// Ping verifies connectivity with a minimal request.
	Ping(ctx context.Context) error
	// Name returns the backend name for logging.
	Name() string
}
