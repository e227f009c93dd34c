package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalysisTotal counts completed analysis runs, labeled by status.
	AnalysisTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reposcope_analyses_total",
		Help: "The total number of analysis runs",
	}, []string{"status"}) // status: success, error, no_content, bad_format, canceled

	// AnalysisDuration measures end-to-end analysis time.
	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reposcope_analysis_duration_seconds",
		Help:    "Time taken to run a full two-phase analysis",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"result"}) // result: success, error

	// FramesWritten counts NDJSON frames written to clients.
	FramesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reposcope_frames_written_total",
		Help: "The total number of NDJSON frames written",
	}, []string{"kind"}) // kind: progress, result, error

	// ModelParts counts streamed model response parts by channel.
	ModelParts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reposcope_model_parts_total",
		Help: "The total number of streamed model response parts consumed",
	}, []string{"channel"}) // channel: thought, answer

	// ActiveAnalyses tracks in-flight analysis streams.
	ActiveAnalyses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reposcope_active_analyses",
		Help: "Number of analysis streams currently open",
	})

	// GitHubRequests counts outbound GitHub API calls, labeled by outcome.
	GitHubRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reposcope_github_requests_total",
		Help: "The total number of GitHub API requests",
	}, []string{"status"}) // status: success, retryable, error
)
