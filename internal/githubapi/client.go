// Package githubapi fetches repository file contents over the GitHub REST
// API: resolve the default branch, list the tree, filter to reviewable text
// files under the mode's cap, and pull raw contents with bounded concurrency.
package githubapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/reposcope/reposcope/internal/config"
	"github.com/reposcope/reposcope/internal/metrics"
	"github.com/reposcope/reposcope/internal/types"
)

const (
	acceptJSON = "application/vnd.github+json"
	acceptRaw  = "application/vnd.github.raw+json"

	// Caps a single API response read; tree listings of huge repos can be
	// large but are still bounded well under this.
	maxResponseBytes = 16 * 1024 * 1024
)

// tokenRoundTripper injects the Authorization header on every request.
type tokenRoundTripper struct {
	base  http.RoundTripper
	token string
}

func (t *tokenRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	if t.base == nil {
		return http.DefaultTransport.RoundTrip(req)
	}
	return t.base.RoundTrip(req)
}

// FetchOptions selects what to fetch for one analysis request.
type FetchOptions struct {
	Scope    string // config.ScopeRepository or config.ScopeFile
	FilePath string // required for file scope
	Mode     string // config.ModeFast or config.ModeDeep
}

// Client is a GitHub REST client scoped to content fetching.
type Client struct {
	httpClient *http.Client
	apiBase    string
	cfg        config.GitHubConfig
}

// NewClient creates a client from configuration. A token is optional; it
// raises the rate limit and grants access to higher request quotas.
func NewClient(cfg config.GitHubConfig) *Client {
	base := strings.TrimSuffix(cfg.APIBase, "/")
	if base == "" {
		base = "https://api.github.com"
	}
	return &Client{
		httpClient: &http.Client{
			Transport: &tokenRoundTripper{base: http.DefaultTransport, token: cfg.Token},
			Timeout:   30 * time.Second,
		},
		apiBase: base,
		cfg:     cfg,
	}
}

// ResolveFiles resolves the file set for one request: the single named file
// for file scope, or the tree listing filtered and capped for repo scope,
// then fetches raw contents. The returned slice preserves tree order.
func (c *Client) ResolveFiles(ctx context.Context, ref RepoRef, opts FetchOptions) ([]types.SourceFile, error) {
	if opts.Scope == config.ScopeFile {
		if opts.FilePath == "" {
			return nil, fmt.Errorf("file scope requires a file path")
		}
		content, err := c.fetchRaw(ctx, ref, opts.FilePath, "")
		if err != nil {
			return nil, err
		}
		return []types.SourceFile{{Path: opts.FilePath, Content: content}}, nil
	}

	branch, err := c.defaultBranch(ctx, ref)
	if err != nil {
		return nil, err
	}

	paths, err := c.listTree(ctx, ref, branch, c.maxFiles(opts.Mode))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}

	files := make([]types.SourceFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	concurrency := c.cfg.FetchConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	g.SetLimit(concurrency)

	for i, path := range paths {
		g.Go(func() error {
			content, err := c.fetchRaw(gctx, ref, path, branch)
			if err != nil {
				// A single unreadable blob should not sink the analysis.
				slog.Warn("fetch file failed", "repo", ref.String(), "path", path, "error", err)
				return nil
			}
			files[i] = types.SourceFile{Path: path, Content: content}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Compact out the files that failed to fetch.
	out := files[:0]
	for _, f := range files {
		if f.Path != "" {
			out = append(out, f)
		}
	}
	return out, nil
}

func (c *Client) maxFiles(mode string) int {
	if mode == config.ModeDeep {
		if c.cfg.DeepModeMaxFiles > 0 {
			return c.cfg.DeepModeMaxFiles
		}
		return 120
	}
	if c.cfg.FastModeMaxFiles > 0 {
		return c.cfg.FastModeMaxFiles
	}
	return 30
}

func (c *Client) defaultBranch(ctx context.Context, ref RepoRef) (string, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/repos/%s/%s", c.apiBase, ref.Owner, ref.Name), acceptJSON)
	if err != nil {
		return "", fmt.Errorf("resolve repository %s: %w", ref, err)
	}
	branch := gjson.GetBytes(body, "default_branch").String()
	if branch == "" {
		return "", fmt.Errorf("repository %s has no default branch", ref)
	}
	return branch, nil
}

func (c *Client) listTree(ctx context.Context, ref RepoRef, branch string, maxFiles int) ([]string, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		c.apiBase, ref.Owner, ref.Name, url.PathEscape(branch))
	body, err := c.get(ctx, u, acceptJSON)
	if err != nil {
		return nil, fmt.Errorf("list tree for %s: %w", ref, err)
	}

	var paths []string
	gjson.GetBytes(body, "tree").ForEach(func(_, entry gjson.Result) bool {
		if entry.Get("type").String() != "blob" {
			return true
		}
		path := entry.Get("path").String()
		if !isReviewablePath(path) {
			return true
		}
		if max := c.cfg.MaxFileBytes; max > 0 && entry.Get("size").Int() > max {
			return true
		}
		paths = append(paths, path)
		return len(paths) < maxFiles
	})
	return paths, nil
}

func (c *Client) fetchRaw(ctx context.Context, ref RepoRef, path, branch string) (string, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.apiBase, ref.Owner, ref.Name, escapePath(path))
	if branch != "" {
		u += "?ref=" + url.QueryEscape(branch)
	}
	body, err := c.get(ctx, u, acceptRaw)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", path, err)
	}
	return string(body), nil
}

// get performs a GET with retry-and-backoff on transient failures.
func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	attempts := c.cfg.Retry.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := c.cfg.Retry.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		body, err := c.doGet(ctx, url, accept)
		if err == nil {
			metrics.GitHubRequests.WithLabelValues("success").Inc()
			return body, nil
		}
		lastErr = err

		var retryable *types.RetryableError
		if !errors.As(err, &retryable) {
			metrics.GitHubRequests.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.GitHubRequests.WithLabelValues("retryable").Inc()
		slog.Debug("github request retry", "url", url, "attempt", i+1, "error", err)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
		if max := c.cfg.Retry.MaxBackoff; max > 0 && backoff > max {
			backoff = max
		}
	}
	return nil, lastErr
}

func (c *Client) doGet(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, types.NewRetryableError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, types.NewRetryableError(err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, types.NewRetryableError(fmt.Errorf("github api: status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("github api: not found")
	case resp.StatusCode == http.StatusForbidden && strings.Contains(string(body), "rate limit"):
		return nil, types.NewRetryableError(fmt.Errorf("github api: rate limited"))
	default:
		return nil, fmt.Errorf("github api: status %d: %s", resp.StatusCode, previewBody(body))
	}
}

func previewBody(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

// escapePath escapes each path segment while keeping the separators.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
