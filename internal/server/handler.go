package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/reposcope/reposcope/internal/analysis"
	"github.com/reposcope/reposcope/internal/config"
	"github.com/reposcope/reposcope/internal/githubapi"
	"github.com/reposcope/reposcope/internal/metrics"
	"github.com/reposcope/reposcope/internal/storage"
	"github.com/reposcope/reposcope/internal/types"
)

// Analyzer runs one two-phase analysis, forwarding progress ticks.
type Analyzer interface {
	Run(ctx context.Context, req analysis.Request, onProgress func(string)) (*types.AnalysisResult, error)
}

// FileResolver resolves the file set for a repository reference and scope.
type FileResolver interface {
	ResolveFiles(ctx context.Context, ref githubapi.RepoRef, opts githubapi.FetchOptions) ([]types.SourceFile, error)
}

// analyzeRequest is the POST /api/analyze body.
type analyzeRequest struct {
	RepoURL     string `json:"repoUrl"`
	Scope       string `json:"scope"`    // repository (default) or file
	FilePath    string `json:"filePath"` // required when scope is file
	Mode        string `json:"mode"`     // fast (default) or deep
	Model       string `json:"model"`
	CustomRules string `json:"customRules"`
}

// AnalyzeHandler streams NDJSON analysis frames for POST /api/analyze.
type AnalyzeHandler struct {
	analyzer Analyzer
	resolver FileResolver
	store    storage.Repository // optional, best-effort history
	config   *config.Config
	sem      chan struct{} // Semaphore to limit concurrent analyses
}

// NewAnalyzeHandler creates the streaming analysis handler. store may be nil.
func NewAnalyzeHandler(cfg *config.Config, analyzer Analyzer, resolver FileResolver, store storage.Repository) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer: analyzer,
		resolver: resolver,
		store:    store,
		config:   cfg,
		sem:      make(chan struct{}, cfg.Server.ConcurrencyLimit),
	}
}

// ServeHTTP handles one analysis request end to end. Every failure inside the
// flow is converted to a single error frame here; exactly one terminal frame
// is written per request unless the client disconnected first.
func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.Server.MaxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Warn("read body failed", "error", err)
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}

	var req analyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := normalizeRequest(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Check capacity before streaming starts so the client gets a clean 429
	// instead of a broken stream.
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		slog.Warn("concurrency limit, request dropped")
		http.Error(w, "Server busy, please retry later", http.StatusTooManyRequests)
		return
	}

	metrics.ActiveAnalyses.Inc()
	defer metrics.ActiveAnalyses.Dec()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	flusher, _ := w.(http.Flusher)
	fw := NewFrameWriter(w, flusher)

	ctx := r.Context()

	// Single failure boundary: panics and errors below become one error
	// frame, unless the client is already gone.
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic recovered in analyze handler",
				"panic", rec,
				"stack", string(debug.Stack()))
			h.writeFailure(ctx, fw, config.ErrMsgInternal)
		}
	}()

	h.stream(ctx, fw, req)
}

func (h *AnalyzeHandler) stream(ctx context.Context, fw *FrameWriter, req analyzeRequest) {
	start := time.Now()

	ref, err := githubapi.ParseRepoRef(req.RepoURL)
	if err != nil {
		fw.WriteError(fmt.Sprintf("Invalid repository reference: %v", err))
		return
	}

	if err := fw.WriteProgress(config.ProgressFetching); err != nil {
		// Client is not reachable; nothing else to do.
		slog.Debug("progress write failed", "error", err)
		return
	}

	files, err := h.resolver.ResolveFiles(ctx, ref, githubapi.FetchOptions{
		Scope:    req.Scope,
		FilePath: req.FilePath,
		Mode:     req.Mode,
	})
	if err != nil {
		slog.Error("file resolution failed", "repo", ref.String(), "error", err)
		h.writeFailure(ctx, fw, fmt.Sprintf("Could not fetch repository content: %v", err))
		return
	}

	result, err := h.analyzer.Run(ctx, analysis.Request{
		RepoName:    ref.String(),
		Scope:       req.Scope,
		Files:       files,
		Model:       req.Model,
		CustomRules: req.CustomRules,
	}, func(message string) {
		fw.WriteProgress(message)
	})
	if err != nil {
		slog.Error("analysis failed", "repo", ref.String(), "error", err)
		h.writeFailure(ctx, fw, errorMessage(err))
		h.saveRecord(ref, req, nil, time.Since(start), "error")
		return
	}

	if err := fw.WriteResult(result); err != nil {
		slog.Warn("result write failed", "repo", ref.String(), "error", err)
		return
	}
	h.saveRecord(ref, req, result, time.Since(start), "success")
}

// writeFailure emits the error frame unless the client already disconnected;
// a departed client gets nothing, per the cancellation contract.
func (h *AnalyzeHandler) writeFailure(ctx context.Context, fw *FrameWriter, message string) {
	if ctx.Err() != nil {
		slog.Info("client disconnected, skipping error frame")
		return
	}
	if err := fw.WriteError(message); err != nil {
		slog.Warn("error frame write failed", "error", err)
	}
}

// saveRecord persists the run to history. Failures are logged and ignored:
// history must never affect the response stream.
func (h *AnalyzeHandler) saveRecord(ref githubapi.RepoRef, req analyzeRequest, result *types.AnalysisResult, elapsed time.Duration, status string) {
	if h.store == nil {
		return
	}

	record := &storage.AnalysisRecord{
		ID:         fmt.Sprintf("%s-%s-%d", ref.Owner, ref.Name, time.Now().UnixNano()),
		Repo:       ref.String(),
		Scope:      req.Scope,
		Model:      req.Model,
		Findings:   []types.Finding{},
		CreatedAt:  time.Now().UTC(),
		DurationMs: elapsed.Milliseconds(),
		Status:     status,
	}
	if result != nil {
		record.Overview = result.Overview
		record.Findings = result.Review
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Storage.Timeout)
	defer cancel()
	if err := h.store.SaveAnalysis(ctx, record); err != nil {
		slog.Warn("save analysis record failed", "repo", record.Repo, "error", err)
	}
}

func normalizeRequest(req *analyzeRequest) error {
	if strings.TrimSpace(req.RepoURL) == "" {
		return fmt.Errorf("repoUrl is required")
	}
	switch req.Scope {
	case "":
		req.Scope = config.ScopeRepository
	case config.ScopeRepository, config.ScopeFile:
	default:
		return fmt.Errorf("scope must be %q or %q", config.ScopeRepository, config.ScopeFile)
	}
	if req.Scope == config.ScopeFile && strings.TrimSpace(req.FilePath) == "" {
		return fmt.Errorf("filePath is required for file scope")
	}
	switch req.Mode {
	case "":
		req.Mode = config.ModeFast
	case config.ModeFast, config.ModeDeep:
	default:
		return fmt.Errorf("mode must be %q or %q", config.ModeFast, config.ModeDeep)
	}
	return nil
}

// errorMessage maps pipeline errors to the short phrases shown to the client.
func errorMessage(err error) string {
	var credErr *types.CredentialError
	switch {
	case errors.As(err, &credErr):
		return config.ErrMsgCredential
	case errors.Is(err, analysis.ErrNoContent):
		return config.ErrMsgNoContent
	case errors.Is(err, analysis.ErrBadReviewFormat):
		return config.ErrMsgBadFormat
	default:
		return config.ErrMsgInternal
	}
}
