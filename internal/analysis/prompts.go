package analysis

import (
	"fmt"
	"strings"

	"github.com/reposcope/reposcope/internal/config"
)

const defaultReviewFocus = "Focus on correctness bugs, security issues, " +
	"performance problems, and maintainability concerns. Skip purely stylistic nitpicks."

// buildOverviewPrompt constructs the phase-1 prompt. Wording differs between
// single-file and whole-repository scope.
func buildOverviewPrompt(req Request, content string) string {
	var sb strings.Builder
	if req.Scope == config.ScopeFile && len(req.Files) == 1 {
		sb.WriteString(fmt.Sprintf(
			"You are a senior software engineer. Write a concise overview of the file %s from the repository %s: what it does, how it is structured, and how it fits into the project.\n\n",
			req.Files[0].Path, req.RepoName))
	} else {
		sb.WriteString(fmt.Sprintf(
			"You are a senior software engineer. Write a concise overview of the repository %s: its purpose, architecture, key components, and how they interact.\n\n",
			req.RepoName))
	}
	sb.WriteString("Use short paragraphs and markdown headings. Do not list every file.\n\n")
	sb.WriteString("## Source\n\n")
	sb.WriteString(content)
	return sb.String()
}

// buildReviewPrompt constructs the phase-2 prompt: the concatenated content
// plus the review directives and the exact output contract.
func buildReviewPrompt(req Request, content string) string {
	var sb strings.Builder
	sb.WriteString("You are a senior software engineer performing a code review.\n\n")

	sb.WriteString("## Review focus\n")
	if strings.TrimSpace(req.CustomRules) != "" {
		sb.WriteString(strings.TrimSpace(req.CustomRules))
	} else {
		sb.WriteString(defaultReviewFocus)
	}
	sb.WriteString("\n\n")

	sb.WriteString("## Output contract\n")
	sb.WriteString("Report findings as a JSON array. Each finding is an object with:\n")
	sb.WriteString("- \"fileName\": path of the affected file\n")
	sb.WriteString("- \"severity\": one of \"Critical\", \"High\", \"Medium\", \"Low\"\n")
	sb.WriteString("- \"finding\": a short title for the issue\n")
	sb.WriteString("- \"explanation\": ordered steps, each {\"type\": \"text\"|\"code\", \"content\": \"...\"}\n")
	sb.WriteString("- optional \"startLine\" and \"endLine\" integers\n")
	sb.WriteString("Output the JSON array only, no prose around it. An empty array is valid.\n\n")

	sb.WriteString("## Source\n\n")
	sb.WriteString(content)
	return sb.String()
}
