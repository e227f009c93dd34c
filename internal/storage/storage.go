package storage

import (
	"context"
	"time"

	"github.com/reposcope/reposcope/internal/types"
)

// AnalysisRecord is one completed (or failed) analysis run.
type AnalysisRecord struct {
	ID         string          `json:"id"`
	Repo       string          `json:"repo"`
	Scope      string          `json:"scope"`
	Model      string          `json:"model"`
	Overview   string          `json:"overview"`
	Findings   []types.Finding `json:"findings"`
	CreatedAt  time.Time       `json:"created_at"`
	DurationMs int64           `json:"duration_ms"`
	Status     string          `json:"status"` // success, error
}

// Repository Storage interface
type Repository interface {
	SaveAnalysis(ctx context.Context, record *AnalysisRecord) error
	GetAnalysis(ctx context.Context, id string) (*AnalysisRecord, error)
	ListRecentAnalyses(ctx context.Context, limit int) ([]*AnalysisRecord, error)
	Close() error
}
