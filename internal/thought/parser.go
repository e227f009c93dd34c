// Package thought extracts a rolling one-line progress summary from the
// incremental "thinking" text a model streams alongside its answer.
package thought

import (
	"regexp"
	"strings"
)

// FallbackSummary is returned before any heuristic has matched.
const FallbackSummary = "Processing..."

var (
	// A bolded span with no nested asterisks: models narrating a plan tend
	// to bold the current action ("**Analyzing the authentication flow**").
	boldRe = regexp.MustCompile(`\*\*([^*]+)\*\*`)

	// A complete list line: leading -, * or "1."-style marker, terminated by
	// a newline. The newline requirement excludes the in-progress tail of
	// the buffer.
	listItemRe = regexp.MustCompile(`(?m)^[ \t]*(?:[-*]|\d+\.)[ \t]+(.+)\n`)

	// Sentence boundaries: a terminator followed by whitespace.
	sentenceSplitRe = regexp.MustCompile(`[.!?][ \t\r\n]+`)
)

// Parser accumulates thought-text fragments and keeps the best current
// summary of what the model is doing. It is single-consumer: one parser per
// model-call phase, never shared.
type Parser struct {
	buf     strings.Builder
	summary string
}

// NewParser returns an empty parser whose summary is the fallback literal.
func NewParser() *Parser {
	return &Parser{}
}

// AddChunk appends a thought fragment and re-evaluates the summary. The whole
// accumulated buffer is rescanned because an extraction pattern may span a
// chunk boundary. Buffers are single thought segments of a few KB, so the
// rescan cost is immaterial.
func (p *Parser) AddChunk(text string) {
	if text == "" {
		return
	}
	p.buf.WriteString(text)

	candidate := extractSummary(p.buf.String())
	if candidate != "" && candidate != p.summary {
		p.summary = candidate
	}
}

// LatestSummary returns the best known summary, or the fallback literal if no
// heuristic has matched yet. Once a summary is set it never reverts: a round
// with no match leaves the previous value in place.
func (p *Parser) LatestSummary() string {
	if p.summary == "" {
		return FallbackSummary
	}
	return p.summary
}

// extractSummary applies the heuristic waterfall in fixed priority order and
// returns the first non-empty candidate, or "" when nothing matched.
func extractSummary(buf string) string {
	for _, h := range []func(string) string{lastBoldSpan, lastCompleteListItem, lastSentence} {
		if candidate := strings.TrimSpace(h(buf)); candidate != "" {
			return candidate
		}
	}
	return ""
}

func lastBoldSpan(buf string) string {
	matches := boldRe.FindAllStringSubmatch(buf, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1][1]
}

func lastCompleteListItem(buf string) string {
	matches := listItemRe.FindAllStringSubmatch(buf, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1][1]
}

func lastSentence(buf string) string {
	trimmed := strings.TrimSpace(buf)
	if trimmed == "" {
		return ""
	}
	last := trimmed[len(trimmed)-1]
	if last != '.' && last != '!' && last != '?' {
		return ""
	}
	parts := sentenceSplitRe.Split(trimmed, -1)
	return parts[len(parts)-1]
}
