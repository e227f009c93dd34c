package modelstream

import (
	"context"
	"iter"
	"strings"

	"github.com/reposcope/reposcope/internal/metrics"
	"github.com/reposcope/reposcope/internal/thought"
)

// Consumer drives one single-pass traversal of a model-response stream. It
// owns a fresh thought parser and answer accumulator, so each analysis phase
// gets its own Consumer and nothing leaks between phases.
type Consumer struct {
	parser *thought.Parser
	answer strings.Builder
}

// NewConsumer returns a consumer with an empty parser and accumulator.
func NewConsumer() *Consumer {
	return &Consumer{parser: thought.NewParser()}
}

// Consume traverses the chunk stream exactly once. Thought parts are fed to
// the parser; answer parts are appended in arrival order. After each chunk
// that carried at least one thought part, onProgress is invoked exactly once
// with the parser's current summary (even if it did not change: clients
// re-render idempotently). On exhaustion the full accumulated answer is
// returned. Upstream errors propagate unchanged; no retry happens here.
func (c *Consumer) Consume(ctx context.Context, stream iter.Seq2[*Chunk, error], onProgress func(string)) (string, error) {
	for chunk, err := range stream {
		if err != nil {
			return "", err
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if chunk == nil {
			continue
		}

		sawThought := false
		if len(chunk.Parts) > 0 {
			for _, part := range chunk.Parts {
				if part.Text == "" {
					continue
				}
				if part.Thought {
					c.parser.AddChunk(part.Text)
					sawThought = true
					metrics.ModelParts.WithLabelValues("thought").Inc()
				} else {
					c.answer.WriteString(part.Text)
					metrics.ModelParts.WithLabelValues("answer").Inc()
				}
			}
		} else if chunk.Text != "" {
			// Flat-shape chunk: no thought channel to route.
			c.answer.WriteString(chunk.Text)
			metrics.ModelParts.WithLabelValues("answer").Inc()
		}

		if sawThought && onProgress != nil {
			onProgress(c.parser.LatestSummary())
		}
	}
	return c.answer.String(), nil
}
