// Package analysis drives the two-phase model pipeline: a freeform overview
// generation followed by a schema-constrained review generation, with rolling
// progress summaries extracted from the model's thinking text.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"google.golang.org/genai"

	"github.com/reposcope/reposcope/internal/config"
	"github.com/reposcope/reposcope/internal/llm"
	"github.com/reposcope/reposcope/internal/metrics"
	"github.com/reposcope/reposcope/internal/modelstream"
	"github.com/reposcope/reposcope/internal/types"
)

// reviewTemperature keeps the schema-constrained review phase near
// deterministic. The overview phase uses the provider default.
const reviewTemperature float32 = 0.2

var (
	// ErrNoContent means the fetched file set had nothing usable. Fatal and
	// non-retryable: nothing downstream can proceed.
	ErrNoContent = errors.New("no reviewable content")

	// ErrBadReviewFormat means the phase-2 answer was not the expected JSON.
	// No repair is attempted: a malformed findings array cannot be trusted.
	ErrBadReviewFormat = errors.New("review response was not in the expected format")
)

// Request is one resolved analysis: the already-fetched file set plus the
// read-only options the pipeline needs. Scope and mode are resolved upstream.
type Request struct {
	RepoName    string // "owner/repo", used in prompt wording only
	Scope       string // config.ScopeRepository or config.ScopeFile
	Files       []types.SourceFile
	Model       string // passed through uninterpreted; empty uses the backend default
	CustomRules string // empty means the default review focus
}

// Orchestrator runs the two sequential model phases for one request at a
// time. It holds no per-run state: each Run owns disposable consumers.
type Orchestrator struct {
	llm          llm.StreamClient
	maxFileChars int
}

// New creates an orchestrator on top of a model backend.
func New(client llm.StreamClient, maxFileChars int) *Orchestrator {
	return &Orchestrator{llm: client, maxFileChars: maxFileChars}
}

// Run executes the full pipeline and returns the combined result. onProgress
// receives every thought-summary tick plus the fixed phase-boundary message;
// it is called synchronously, so the run paces itself to the caller's writes.
// Any failure aborts the whole run: there is no partial result.
func (o *Orchestrator) Run(ctx context.Context, req Request, onProgress func(string)) (*types.AnalysisResult, error) {
	if onProgress == nil {
		onProgress = func(string) {}
	}

	start := time.Now()
	metricResult := "error"
	defer func() {
		metrics.AnalysisDuration.WithLabelValues(metricResult).Observe(time.Since(start).Seconds())
	}()

	content := AssembleContent(req.Files, o.maxFileChars)
	if strings.TrimSpace(content) == "" {
		metrics.AnalysisTotal.WithLabelValues("no_content").Inc()
		return nil, ErrNoContent
	}

	overviewPrompt := buildOverviewPrompt(req, content)
	reviewPrompt := buildReviewPrompt(req, content)

	slog.Info("analysis phase 1 starting", "repo", req.RepoName, "files", len(req.Files), "content_bytes", len(content))

	// Phase 1: freeform overview with thinking enabled. The accumulated
	// answer is the overview text, no parsing needed.
	consumer := modelstream.NewConsumer()
	stream := o.llm.GenerateStream(ctx, overviewPrompt, llm.GenerateOptions{
		Model:           req.Model,
		IncludeThoughts: true,
	})
	overview, err := consumer.Consume(ctx, stream, onProgress)
	if err != nil {
		metrics.AnalysisTotal.WithLabelValues(statusForError(err)).Inc()
		return nil, fmt.Errorf("overview generation: %w", err)
	}

	// Fixed literal so the client can segment the phases even if phase 2
	// takes a moment to start streaming.
	onProgress(config.ProgressReviewPhase)

	slog.Info("analysis phase 2 starting", "repo", req.RepoName, "overview_bytes", len(overview))

	// Phase 2: low-temperature, schema-constrained review. A fresh consumer
	// and parser: phase-1 thought summaries must not leak into phase 2.
	consumer = modelstream.NewConsumer()
	stream = o.llm.GenerateStream(ctx, reviewPrompt, llm.GenerateOptions{
		Model:           req.Model,
		Temperature:     genai.Ptr(reviewTemperature),
		ResponseSchema:  findingsSchema(),
		IncludeThoughts: true,
	})
	reviewText, err := consumer.Consume(ctx, stream, onProgress)
	if err != nil {
		metrics.AnalysisTotal.WithLabelValues(statusForError(err)).Inc()
		return nil, fmt.Errorf("review generation: %w", err)
	}

	findings, err := parseFindings(reviewText)
	if err != nil {
		slog.Error("review parse failed", "error", err, "preview", preview(reviewText, 200))
		metrics.AnalysisTotal.WithLabelValues("bad_format").Inc()
		return nil, err
	}

	metricResult = "success"
	metrics.AnalysisTotal.WithLabelValues("success").Inc()
	slog.Info("analysis completed", "repo", req.RepoName, "findings", len(findings), "duration", time.Since(start))

	return &types.AnalysisResult{
		Overview: strings.TrimSpace(overview),
		Review:   findings,
	}, nil
}

// parseFindings parses the phase-2 accumulated answer. Markdown fences are
// stripped first; beyond that the answer must already be valid JSON. Models
// on the non-schema backends sometimes wrap the array in an object, which is
// still valid JSON and accepted.
func parseFindings(raw string) ([]types.Finding, error) {
	cleaned := types.CleanJSONFromMarkdown(raw)
	if cleaned == "" || !gjson.Valid(cleaned) {
		return nil, ErrBadReviewFormat
	}

	var findings []types.Finding
	if err := json.Unmarshal([]byte(cleaned), &findings); err == nil {
		return findings, nil
	}

	if arr := gjson.Get(cleaned, "findings"); arr.IsArray() {
		if err := json.Unmarshal([]byte(arr.Raw), &findings); err == nil {
			return findings, nil
		}
	}
	return nil, ErrBadReviewFormat
}

func statusForError(err error) string {
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "error"
}

func preview(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
