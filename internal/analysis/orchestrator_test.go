package analysis

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/reposcope/reposcope/internal/config"
	"github.com/reposcope/reposcope/internal/llm"
	"github.com/reposcope/reposcope/internal/modelstream"
	"github.com/reposcope/reposcope/internal/thought"
	"github.com/reposcope/reposcope/internal/types"
)

// fakeStreamClient replays one scripted chunk sequence per GenerateStream
// call, in order, and records the prompts and options it was given.
type fakeStreamClient struct {
	scripts [][]*modelstream.Chunk
	errs    []error
	calls   int
	prompts []string
	opts    []llm.GenerateOptions
}

func (f *fakeStreamClient) GenerateStream(_ context.Context, prompt string, opts llm.GenerateOptions) iter.Seq2[*modelstream.Chunk, error] {
	idx := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	return func(yield func(*modelstream.Chunk, error) bool) {
		if idx < len(f.scripts) {
			for _, c := range f.scripts[idx] {
				if !yield(c, nil) {
					return
				}
			}
		}
		if idx < len(f.errs) && f.errs[idx] != nil {
			yield(nil, f.errs[idx])
		}
	}
}

func (f *fakeStreamClient) Ping(context.Context) error { return nil }
func (f *fakeStreamClient) Name() string               { return "fake" }

func thoughtChunk(text string) *modelstream.Chunk {
	return &modelstream.Chunk{Parts: []modelstream.Part{{Thought: true, Text: text}}}
}

func answerChunk(text string) *modelstream.Chunk {
	return &modelstream.Chunk{Parts: []modelstream.Part{{Text: text}}}
}

func testFiles() []types.SourceFile {
	return []types.SourceFile{{Path: "main.go", Content: "package main\n"}}
}

func TestRunHappyPath(t *testing.T) {
	reviewJSON := `[{"fileName":"main.go","severity":"High","finding":"Unchecked error",` +
		`"explanation":[{"type":"text","content":"The error is dropped."},{"type":"code","content":"if err != nil { return err }"}],` +
		`"startLine":3,"endLine":3}]`

	client := &fakeStreamClient{scripts: [][]*modelstream.Chunk{
		{
			thoughtChunk("**Scanning files**"),
			answerChunk("This project "),
			answerChunk("is a CLI tool."),
		},
		{
			thoughtChunk("**Writing findings**"),
			answerChunk(reviewJSON),
		},
	}}

	var progress []string
	o := New(client, 0)
	result, err := o.Run(context.Background(), Request{
		RepoName: "octo/tool",
		Scope:    config.ScopeRepository,
		Files:    testFiles(),
	}, func(msg string) { progress = append(progress, msg) })
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Overview != "This project is a CLI tool." {
		t.Errorf("unexpected overview: %q", result.Overview)
	}
	if len(result.Review) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(result.Review))
	}
	f := result.Review[0]
	if f.FileName != "main.go" || f.Severity != types.SeverityHigh || f.StartLine != 3 {
		t.Errorf("unexpected finding: %+v", f)
	}
	if len(f.Explanation) != 2 || f.Explanation[1].Type != "code" {
		t.Errorf("unexpected explanation: %+v", f.Explanation)
	}

	want := []string{"Scanning files", config.ProgressReviewPhase, "Writing findings"}
	if len(progress) != len(want) {
		t.Fatalf("expected progress %v, got %v", want, progress)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Errorf("progress[%d] = %q, want %q", i, progress[i], want[i])
		}
	}

	if client.calls != 2 {
		t.Errorf("expected exactly 2 model calls, got %d", client.calls)
	}

	// Phase settings: overview is freeform with thinking, review is
	// low-temperature and schema-constrained with thinking.
	if client.opts[0].ResponseSchema != nil || !client.opts[0].IncludeThoughts {
		t.Errorf("unexpected phase-1 options: %+v", client.opts[0])
	}
	if client.opts[1].ResponseSchema == nil || client.opts[1].Temperature == nil || !client.opts[1].IncludeThoughts {
		t.Errorf("unexpected phase-2 options: %+v", client.opts[1])
	}
}

func TestRunNoContentRejectsBeforeModelCall(t *testing.T) {
	client := &fakeStreamClient{}
	o := New(client, 0)

	progressCalls := 0
	cases := [][]types.SourceFile{
		nil,
		{},
		{{Path: "empty.go", Content: "   \n\t"}},
	}
	for _, files := range cases {
		_, err := o.Run(context.Background(), Request{RepoName: "octo/tool", Files: files},
			func(string) { progressCalls++ })
		if !errors.Is(err, ErrNoContent) {
			t.Errorf("files=%v: expected ErrNoContent, got %v", files, err)
		}
	}
	if client.calls != 0 {
		t.Errorf("expected zero model calls, got %d", client.calls)
	}
	if progressCalls != 0 {
		t.Errorf("expected zero progress events, got %d", progressCalls)
	}
}

func TestRunMalformedReviewJSON(t *testing.T) {
	client := &fakeStreamClient{scripts: [][]*modelstream.Chunk{
		{answerChunk("An overview.")},
		{answerChunk("not json")},
	}}

	o := New(client, 0)
	result, err := o.Run(context.Background(), Request{RepoName: "octo/tool", Files: testFiles()}, nil)
	if !errors.Is(err, ErrBadReviewFormat) {
		t.Fatalf("expected ErrBadReviewFormat, got %v", err)
	}
	if result != nil {
		t.Error("expected nil result on parse failure, overview must not leak")
	}
}

func TestRunFlatChunksNoProgress(t *testing.T) {
	client := &fakeStreamClient{scripts: [][]*modelstream.Chunk{
		{{Text: "Overview via "}, {Text: "flat chunks."}},
		{{Text: "[]"}},
	}}

	var progress []string
	o := New(client, 0)
	result, err := o.Run(context.Background(), Request{RepoName: "octo/tool", Files: testFiles()},
		func(msg string) { progress = append(progress, msg) })
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Overview != "Overview via flat chunks." {
		t.Errorf("unexpected overview: %q", result.Overview)
	}
	if len(result.Review) != 0 {
		t.Errorf("expected empty findings, got %v", result.Review)
	}
	// Only the fixed phase-boundary message: flat chunks carry no thoughts.
	if len(progress) != 1 || progress[0] != config.ProgressReviewPhase {
		t.Errorf("expected only the phase-boundary progress, got %v", progress)
	}
}

func TestRunPhaseTwoParserStartsFresh(t *testing.T) {
	client := &fakeStreamClient{scripts: [][]*modelstream.Chunk{
		{thoughtChunk("**Phase one summary**"), answerChunk("overview")},
		// Phase-2 thought matches no heuristic; a leaked phase-1 buffer
		// would report "Phase one summary" here instead of the fallback.
		{thoughtChunk("fragment without structure"), answerChunk("[]")},
	}}

	var progress []string
	o := New(client, 0)
	if _, err := o.Run(context.Background(), Request{RepoName: "octo/tool", Files: testFiles()},
		func(msg string) { progress = append(progress, msg) }); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(progress) != 3 {
		t.Fatalf("expected 3 progress events, got %v", progress)
	}
	if progress[2] != thought.FallbackSummary {
		t.Errorf("phase-2 summary leaked from phase 1: %q", progress[2])
	}
}

func TestRunUpstreamErrorAborts(t *testing.T) {
	upstream := errors.New("rate limited")
	client := &fakeStreamClient{
		scripts: [][]*modelstream.Chunk{{answerChunk("partial ov")}},
		errs:    []error{upstream},
	}

	o := New(client, 0)
	_, err := o.Run(context.Background(), Request{RepoName: "octo/tool", Files: testFiles()}, nil)
	if !errors.Is(err, upstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if client.calls != 1 {
		t.Errorf("expected no phase-2 call after phase-1 failure, got %d calls", client.calls)
	}
}

func TestPromptWording(t *testing.T) {
	client := &fakeStreamClient{scripts: [][]*modelstream.Chunk{
		{answerChunk("ov")},
		{answerChunk("[]")},
	}}

	o := New(client, 0)
	files := []types.SourceFile{{Path: "pkg/parser.go", Content: "package pkg\n"}}
	_, err := o.Run(context.Background(), Request{
		RepoName:    "octo/tool",
		Scope:       config.ScopeFile,
		Files:       files,
		CustomRules: "Only flag concurrency bugs.",
	}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !strings.Contains(client.prompts[0], "the file pkg/parser.go") {
		t.Errorf("overview prompt missing single-file wording:\n%s", client.prompts[0])
	}
	if !strings.Contains(client.prompts[1], "Only flag concurrency bugs.") {
		t.Errorf("review prompt missing custom rules:\n%s", client.prompts[1])
	}
	if !strings.Contains(client.prompts[1], "pkg/parser.go") {
		t.Error("review prompt missing file content header")
	}
}

func TestParseFindings(t *testing.T) {
	valid := `[{"fileName":"a.go","severity":"Low","finding":"x","explanation":[]}]`

	t.Run("fenced", func(t *testing.T) {
		findings, err := parseFindings("```json\n" + valid + "\n```")
		if err != nil || len(findings) != 1 {
			t.Errorf("expected fenced JSON to parse, got %v / %v", findings, err)
		}
	})

	t.Run("object wrap", func(t *testing.T) {
		findings, err := parseFindings(`{"findings":` + valid + `}`)
		if err != nil || len(findings) != 1 {
			t.Errorf("expected wrapped array to parse, got %v / %v", findings, err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, raw := range []string{"", "not json", "{", `{"findings":"nope"}`} {
			if _, err := parseFindings(raw); !errors.Is(err, ErrBadReviewFormat) {
				t.Errorf("parseFindings(%q): expected ErrBadReviewFormat, got %v", raw, err)
			}
		}
	})
}

func TestAssembleContent(t *testing.T) {
	files := []types.SourceFile{
		{Path: "a.go", Content: "0123456789"},
		{Path: "b.go", Content: "   "},
		{Path: "c.go", Content: "short"},
	}
	out := AssembleContent(files, 4)

	if !strings.Contains(out, "--- FILE: a.go ---\n0123"+config.MarkerFileTruncated) {
		t.Errorf("expected truncated a.go with marker, got:\n%s", out)
	}
	if strings.Contains(out, "b.go") {
		t.Error("whitespace-only file should be dropped")
	}
	if !strings.Contains(out, "--- FILE: c.go ---\nshort") {
		t.Errorf("expected untruncated c.go, got:\n%s", out)
	}
}
