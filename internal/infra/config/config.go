package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the app.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	LLM     LLMConfig     `yaml:"llm"`
	Capture CaptureConfig `yaml:"capture"`
	History HistoryConfig `yaml:"history"`
	Archive ArchiveConfig `yaml:"archive"`
	Session SessionConfig `yaml:"session"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Retry          RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// LLMConfig contains Gemini settings for vision analysis and speech.
type LLMConfig struct {
	APIKey      string  `yaml:"apiKey"`
	BaseURL     string  `yaml:"baseUrl"`
	VisionModel string  `yaml:"visionModel"`
	SpeechModel string  `yaml:"speechModel"`
	SpeechVoice string  `yaml:"speechVoice"`
	Temperature float32 `yaml:"temperature"`
}

// CaptureConfig bounds the photo pipeline and points at optional live cameras.
type CaptureConfig struct {
	MaxDimension int    `yaml:"maxDimension"`
	JPEGQuality  int    `yaml:"jpegQuality"`
	FrontURL     string `yaml:"frontUrl"`
	BackURL      string `yaml:"backUrl"`
}

// HistoryConfig selects and configures the history store backend.
type HistoryConfig struct {
	Backend  string         `yaml:"backend"`
	FilePath string         `yaml:"filePath"`
	Valkey   ValkeyConfig   `yaml:"valkey"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// ValkeyConfig contains connection information for the valkey slot store.
type ValkeyConfig struct {
	Addr string `yaml:"addr"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ArchiveConfig points at the optional S3-compatible capture archive.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// SessionConfig controls per-client session lifetime.
type SessionConfig struct {
	IdleTTL time.Duration `yaml:"idleTtl"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_VISION_MODEL"); v != "" {
		cfg.LLM.VisionModel = v
	}
	if v := os.Getenv("LLM_SPEECH_MODEL"); v != "" {
		cfg.LLM.SpeechModel = v
	}
	if v := os.Getenv("LLM_SPEECH_VOICE"); v != "" {
		cfg.LLM.SpeechVoice = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("CAPTURE_MAX_DIMENSION"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Capture.MaxDimension = parsed
		}
	}
	if v := os.Getenv("CAPTURE_JPEG_QUALITY"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Capture.JPEGQuality = parsed
		}
	}
	if v := os.Getenv("CAPTURE_FRONT_URL"); v != "" {
		cfg.Capture.FrontURL = v
	}
	if v := os.Getenv("CAPTURE_BACK_URL"); v != "" {
		cfg.Capture.BackURL = v
	}
	if v := os.Getenv("HISTORY_BACKEND"); v != "" {
		cfg.History.Backend = v
	}
	if v := os.Getenv("HISTORY_FILE_PATH"); v != "" {
		cfg.History.FilePath = v
	}
	if v := os.Getenv("HISTORY_VALKEY_ADDR"); v != "" {
		cfg.History.Valkey.Addr = v
	}
	if v := os.Getenv("HISTORY_POSTGRES_DSN"); v != "" {
		cfg.History.Postgres.DSN = v
	}
	if v := os.Getenv("HISTORY_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.History.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("HISTORY_POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.History.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("ARCHIVE_ENABLED"); v != "" {
		cfg.Archive.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("ARCHIVE_ENDPOINT"); v != "" {
		cfg.Archive.Endpoint = v
	}
	if v := os.Getenv("ARCHIVE_ACCESS_KEY"); v != "" {
		cfg.Archive.AccessKey = v
	}
	if v := os.Getenv("ARCHIVE_SECRET_KEY"); v != "" {
		cfg.Archive.SecretKey = v
	}
	if v := os.Getenv("ARCHIVE_BUCKET"); v != "" {
		cfg.Archive.Bucket = v
	}
	if v := os.Getenv("ARCHIVE_REGION"); v != "" {
		cfg.Archive.Region = v
	}
	if v := os.Getenv("SESSION_IDLE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Session.IdleTTL = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_ENABLED"); v != "" {
		cfg.HTTP.Retry.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("HTTP_RETRY_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Retry.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_BASE_BACKOFF"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.Retry.BaseBackoff = parsed
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				// Per-session endpoints dispatch state transitions and must
				// run once. Session creation stays retryable.
				Exclude: []string{
					"/api/v1/sessions/",
				},
			},
		},
		LLM: LLMConfig{
			VisionModel: "gemini-2.5-flash",
			SpeechModel: "gemini-2.5-flash-preview-tts",
			SpeechVoice: "Kore",
			Temperature: 0.2,
		},
		Capture: CaptureConfig{
			MaxDimension: 1280,
			JPEGQuality:  80,
		},
		History: HistoryConfig{
			Backend:  "file",
			FilePath: "data/mealsnap_history_v1.json",
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
		Session: SessionConfig{
			IdleTTL: 30 * time.Minute,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.LLM.VisionModel) == "" {
		return errors.New("llm.visionModel cannot be empty")
	}
	if strings.TrimSpace(c.LLM.SpeechModel) == "" {
		return errors.New("llm.speechModel cannot be empty")
	}
	if c.Capture.MaxDimension <= 0 {
		return errors.New("capture.maxDimension must be positive")
	}
	if c.Capture.JPEGQuality <= 0 || c.Capture.JPEGQuality > 100 {
		return errors.New("capture.jpegQuality must be within 1..100")
	}
	switch c.History.Backend {
	case "memory", "file", "valkey", "postgres":
	default:
		return fmt.Errorf("history.backend %q is not supported", c.History.Backend)
	}
	if c.History.Backend == "file" && strings.TrimSpace(c.History.FilePath) == "" {
		return errors.New("history.filePath cannot be empty for the file backend")
	}
	if c.History.Backend == "valkey" && strings.TrimSpace(c.History.Valkey.Addr) == "" {
		return errors.New("history.valkey.addr cannot be empty for the valkey backend")
	}
	if c.History.Backend == "postgres" && strings.TrimSpace(c.History.Postgres.DSN) == "" {
		return errors.New("history.postgres.dsn cannot be empty for the postgres backend")
	}
	if c.Archive.Enabled {
		if strings.TrimSpace(c.Archive.Endpoint) == "" {
			return errors.New("archive.endpoint cannot be empty when the archive is enabled")
		}
		if strings.TrimSpace(c.Archive.Bucket) == "" {
			return errors.New("archive.bucket cannot be empty when the archive is enabled")
		}
	}
	if c.Session.IdleTTL <= 0 {
		return errors.New("session.idleTtl must be positive")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	return nil
}
