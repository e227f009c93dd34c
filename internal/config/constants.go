package config

// Model backend types
const (
	BackendGemini    = "gemini"
	BackendOpenAI    = "openai"
	BackendLangChain = "langchain"
)

// Analysis scope values, resolved by the request handler before fetching
const (
	ScopeRepository = "repository"
	ScopeFile       = "file"
)

// Analysis mode values, controlling the file-count cap
const (
	ModeFast = "fast"
	ModeDeep = "deep"
)

// Content assembly markers
const (
	MarkerFileTruncated = "\n\n[... file truncated ...]"
	FileHeaderFormat    = "--- FILE: %s ---\n"
	FileSeparator       = "\n\n"
)

// Fixed progress messages emitted by the handler and orchestrator, not derived
// from model output
const (
	ProgressFetching    = "Fetching repository files..."
	ProgressReviewPhase = "Overview complete. Generating detailed review..."
)

// User-facing error messages for the error frame
const (
	ErrMsgNoContent  = "No reviewable content found in the selected scope."
	ErrMsgBadFormat  = "The model response was not in the expected format."
	ErrMsgCredential = "The model rejected the API key. Check the configured credential."
	ErrMsgInternal   = "Analysis failed due to an internal error."
)
