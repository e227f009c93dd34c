package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values
const (
	DefaultMaxBodySize int64 = 64 * 1024 // analyze requests are small JSON bodies
	DefaultConfigPath        = "config.yaml"
)

// RetryConfig holds retry parameters for outbound HTTP calls
type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// GitHubConfig holds configuration for the GitHub content fetcher
type GitHubConfig struct {
	APIBase          string      `yaml:"api_base"` // default: https://api.github.com
	Token            string      `yaml:"-"`        // From Env (GITHUB_TOKEN)
	FetchConcurrency int         `yaml:"fetch_concurrency"`
	MaxFileBytes     int64       `yaml:"max_file_bytes"`      // blobs larger than this are skipped entirely
	FastModeMaxFiles int         `yaml:"fast_mode_max_files"` // file-count cap for fast analyses
	DeepModeMaxFiles int         `yaml:"deep_mode_max_files"` // file-count cap for deep analyses
	Retry            RetryConfig `yaml:"retry"`
}

// LLMConfig holds configuration for the model backend
type LLMConfig struct {
	Backend        string        `yaml:"backend"` // gemini, openai, langchain (default: by model name)
	Model          string        `yaml:"model"`
	Endpoint       string        `yaml:"endpoint"` // OpenAI-compatible base URL, backend-dependent
	APIKey         string        `yaml:"api_key"`  // From YAML or Env
	Timeout        time.Duration `yaml:"timeout"`
	ThinkingBudget int32         `yaml:"thinking_budget"` // Gemini thinking token budget, 0 = provider default
}

// AnalysisConfig holds configuration for content assembly
type AnalysisConfig struct {
	MaxFileChars int `yaml:"max_file_chars"` // per-file cap before the truncation marker
}

// StorageConfig holds configuration for analysis persistence
type StorageConfig struct {
	Driver  string        `yaml:"driver"`  // sqlite
	DSN     string        `yaml:"dsn"`     // Connection string
	Timeout time.Duration `yaml:"timeout"` // Timeout for storage operations (default: 5s)
}

// Config holds the configuration for the repository analysis service
type Config struct {
	Log struct {
		Level    string `yaml:"level"`  // DEBUG, INFO, WARN, ERROR
		Format   string `yaml:"format"` // text, json
		Output   string `yaml:"output"` // stdout, stderr, /path/to/file
		Rotation struct {
			MaxSize    int  `yaml:"max_size"`    // Megabytes
			MaxBackups int  `yaml:"max_backups"` // Number of old files to keep
			MaxAge     int  `yaml:"max_age"`     // Days to keep
			Compress   bool `yaml:"compress"`
		} `yaml:"rotation"`
	} `yaml:"log"`

	Server struct {
		Port             int           `yaml:"port"`
		ConcurrencyLimit int64         `yaml:"concurrency_limit"` // concurrent analysis streams
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		// WriteTimeout is left zero by default: analysis responses are
		// long-lived NDJSON streams paced by the model, not by the server.
		WriteTimeout time.Duration `yaml:"write_timeout"`
		MaxBodySize  int64         `yaml:"max_body_size"`
	} `yaml:"server"`

	LLM LLMConfig `yaml:"llm"`

	GitHub GitHubConfig `yaml:"github"`

	Analysis AnalysisConfig `yaml:"analysis"`

	Storage StorageConfig `yaml:"storage"`
}

// GetLogLevel returns the slog.Level based on Log.Level string
func (c *Config) GetLogLevel() slog.Level {
	switch strings.ToUpper(c.Log.Level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadConfig loads configuration from YAML file and supplements with environment variables
func LoadConfig() *Config {
	cfg := &Config{}

	// Set some defaults before loading
	cfg.Log.Level = "INFO"
	cfg.Log.Format = "text"
	cfg.Log.Output = "stdout"
	cfg.Server.Port = 8080
	cfg.Server.ConcurrencyLimit = 4
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.MaxBodySize = DefaultMaxBodySize
	cfg.LLM.Model = "gemini-2.5-flash"
	cfg.LLM.Timeout = 120 * time.Second
	cfg.GitHub.APIBase = "https://api.github.com"
	cfg.GitHub.FetchConcurrency = 8
	cfg.GitHub.MaxFileBytes = 200 * 1024
	cfg.GitHub.FastModeMaxFiles = 30
	cfg.GitHub.DeepModeMaxFiles = 120
	cfg.GitHub.Retry.Attempts = 3
	cfg.GitHub.Retry.Backoff = 1 * time.Second
	cfg.GitHub.Retry.MaxBackoff = 30 * time.Second
	cfg.Analysis.MaxFileChars = 24000

	// Log Rotation defaults
	cfg.Log.Rotation.MaxSize = 100
	cfg.Log.Rotation.MaxBackups = 10
	cfg.Log.Rotation.MaxAge = 7
	cfg.Log.Rotation.Compress = true

	// Storage defaults
	cfg.Storage.Timeout = 5 * time.Second

	// Try to load from YAML
	configPath := getEnv("CONFIG_PATH", DefaultConfigPath)
	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			slog.Error("unmarshal config failed", "error", err, "path", configPath)
			os.Exit(1)
		}
		slog.Info("config loaded", "path", configPath)
	} else {
		if !os.IsNotExist(err) {
			slog.Error("read config failed", "error", err, "path", configPath)
			os.Exit(1)
		}
		slog.Info("config not found, using defaults", "path", configPath)
	}

	// Always supplement/override with environment variables for secrets and critical items
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.APIKey = getEnv("GEMINI_API_KEY", cfg.LLM.APIKey)
	cfg.GitHub.Token = getEnv("GITHUB_TOKEN", cfg.GitHub.Token)

	if envPort := getEnvInt("PORT", 0); envPort != 0 {
		cfg.Server.Port = envPort
	}
	if envModel := os.Getenv("LLM_MODEL"); envModel != "" {
		cfg.LLM.Model = envModel
	}
	if envLogLevel := os.Getenv("LOG_LEVEL"); envLogLevel != "" {
		cfg.Log.Level = envLogLevel
	}
	if envLogFormat := os.Getenv("LOG_FORMAT"); envLogFormat != "" {
		cfg.Log.Format = envLogFormat
	}
	if envLogOutput := getEnv("LOG_OUTPUT", ""); envLogOutput != "" {
		cfg.Log.Output = envLogOutput
	}

	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if c.LLM.APIKey == "" {
		errs = append(errs, "GEMINI_API_KEY or LLM_API_KEY is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid server port: %d", c.Server.Port))
	}

	switch c.LLM.Backend {
	case "", BackendGemini, BackendOpenAI, BackendLangChain:
	default:
		errs = append(errs, fmt.Sprintf("unknown llm backend: %q", c.LLM.Backend))
	}

	if c.GitHub.FastModeMaxFiles < 1 || c.GitHub.DeepModeMaxFiles < c.GitHub.FastModeMaxFiles {
		errs = append(errs, "github file caps invalid: need deep_mode_max_files >= fast_mode_max_files >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Helper functions for reading environment variables

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
