package types

// Severity is the impact level of a review finding.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// Rank returns the ordering weight of a severity, highest first.
// Unknown severities rank below Low so malformed model output sorts last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ExplanationStep is one step of a finding's explanation, either prose or code.
type ExplanationStep struct {
	Type    string `json:"type"` // "text" or "code"
	Content string `json:"content"`
}

// Finding is a single structured review item produced by the review phase.
type Finding struct {
	FileName    string            `json:"fileName"`
	Severity    Severity          `json:"severity"`
	Finding     string            `json:"finding"`
	Explanation []ExplanationStep `json:"explanation"`
	StartLine   int               `json:"startLine,omitempty"`
	EndLine     int               `json:"endLine,omitempty"`
}

// AnalysisResult is the combined output of one analysis run.
type AnalysisResult struct {
	Overview string    `json:"overview"`
	Review   []Finding `json:"review"`
}

// SourceFile is one fetched repository file: path plus raw text content.
type SourceFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}
