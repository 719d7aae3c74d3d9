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

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	FAQ       FAQConfig       `yaml:"faq"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Voice     VoiceConfig     `yaml:"voice"`
	Auth      AuthConfig      `yaml:"auth"`
	SMS       SMSConfig       `yaml:"sms"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Valkey    ValkeyConfig    `yaml:"valkey"`
	Storage   StorageConfig   `yaml:"storage"`
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

// LLMConfig contains OpenAI-compatible completion settings. APIKeys holds the
// credential pool used to spread rate-limit exposure during bulk generation.
type LLMConfig struct {
	APIKeys     []string `yaml:"apiKeys"`
	BaseURL     string   `yaml:"baseUrl"`
	Model       string   `yaml:"model"`
	Temperature float32  `yaml:"temperature"`
}

// EmbeddingConfig selects the embedding model and vector dimensionality.
type EmbeddingConfig struct {
	Model         string `yaml:"model"`
	Dim           int    `yaml:"dim"`
	Deterministic bool   `yaml:"deterministic"`
}

// FAQConfig controls question answering behavior.
type FAQConfig struct {
	Prompt              string        `yaml:"prompt"`
	SimilarityThreshold float64       `yaml:"similarityThreshold"`
	CacheTTL            time.Duration `yaml:"cacheTtl"`
}

// KnowledgeConfig names the vector collection holding FAQ entries.
type KnowledgeConfig struct {
	Collection string `yaml:"collection"`
}

// IngestConfig bounds document extraction and chunked generation.
type IngestConfig struct {
	MaxFileBytes     int64  `yaml:"maxFileBytes"`
	ChunkTokenBudget int    `yaml:"chunkTokenBudget"`
	MinPairsPerChunk int    `yaml:"minPairsPerChunk"`
	MaxPairsPerChunk int    `yaml:"maxPairsPerChunk"`
	GenerationPrompt string `yaml:"generationPrompt"`
}

// VoiceConfig configures audio transcription.
type VoiceConfig struct {
	Model         string `yaml:"model"`
	MaxAudioBytes int64  `yaml:"maxAudioBytes"`
}

// AuthConfig drives token issuance and verification codes.
type AuthConfig struct {
	Secret          string        `yaml:"secret"`
	TokenTTL        time.Duration `yaml:"tokenTtl"`
	RefreshTokenTTL time.Duration `yaml:"refreshTokenTtl"`
	CodeTTL         time.Duration `yaml:"codeTtl"`
}

// SMSConfig contains Twilio credentials for verification delivery.
type SMSConfig struct {
	AccountSID string `yaml:"accountSid"`
	AuthToken  string `yaml:"authToken"`
	FromNumber string `yaml:"fromNumber"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ValkeyConfig contains connection information for the answer cache.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// StorageConfig configures the S3-compatible blob store for uploads.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
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
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("LLM_API_KEYS"); v != "" {
		cfg.LLM.APIKeys = splitList(v)
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" && len(cfg.LLM.APIKeys) == 0 {
		cfg.LLM.APIKeys = []string{v}
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("EMBEDDING_DIM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dim = parsed
		}
	}
	if v := os.Getenv("EMBEDDING_DETERMINISTIC"); v != "" {
		cfg.Embedding.Deterministic = isTrue(v)
	}
	if v := os.Getenv("FAQ_PROMPT"); v != "" {
		cfg.FAQ.Prompt = v
	}
	if v := os.Getenv("FAQ_SIMILARITY_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.FAQ.SimilarityThreshold = parsed
		}
	}
	if v := os.Getenv("FAQ_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.FAQ.CacheTTL = parsed
		}
	}
	if v := os.Getenv("KNOWLEDGE_COLLECTION"); v != "" {
		cfg.Knowledge.Collection = v
	}
	if v := os.Getenv("INGEST_MAX_FILE_BYTES"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Ingest.MaxFileBytes = parsed
		}
	}
	if v := os.Getenv("INGEST_CHUNK_TOKEN_BUDGET"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.ChunkTokenBudget = parsed
		}
	}
	if v := os.Getenv("VOICE_MODEL"); v != "" {
		cfg.Voice.Model = v
	}
	if v := os.Getenv("AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("AUTH_TOKEN_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Auth.TokenTTL = parsed
		}
	}
	if v := os.Getenv("AUTH_CODE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Auth.CodeTTL = parsed
		}
	}
	if v := os.Getenv("SMS_ACCOUNT_SID"); v != "" {
		cfg.SMS.AccountSID = v
	}
	if v := os.Getenv("SMS_AUTH_TOKEN"); v != "" {
		cfg.SMS.AuthToken = v
	}
	if v := os.Getenv("SMS_FROM_NUMBER"); v != "" {
		cfg.SMS.FromNumber = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("VALKEY_ENABLED"); v != "" {
		cfg.Valkey.Enabled = isTrue(v)
	}
	if v := os.Getenv("VALKEY_ADDR"); v != "" {
		cfg.Valkey.Addr = v
	}
	if v := os.Getenv("STORAGE_ENDPOINT"); v != "" {
		cfg.Storage.Endpoint = v
	}
	if v := os.Getenv("STORAGE_ACCESS_KEY"); v != "" {
		cfg.Storage.AccessKey = v
	}
	if v := os.Getenv("STORAGE_SECRET_KEY"); v != "" {
		cfg.Storage.SecretKey = v
	}
	if v := os.Getenv("STORAGE_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("STORAGE_REGION"); v != "" {
		cfg.Storage.Region = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = isTrue(v)
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
		cfg.HTTP.Retry.Enabled = isTrue(v)
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
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 120 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				Exclude: []string{
					"/api/v1/documents/extract",
					"/api/v1/voice/recognize",
				},
			},
		},
		LLM: LLMConfig{
			Model:       "llama-3.3-70b-versatile",
			Temperature: 0.2,
		},
		Embedding: EmbeddingConfig{
			Model: "all-MiniLM-L6-v2",
			Dim:   384,
		},
		FAQ: FAQConfig{
			Prompt:              "You are a helpful assistant for university students. Answer the question clearly and concisely.",
			SimilarityThreshold: 0.7,
			CacheTTL:            time.Hour,
		},
		Knowledge: KnowledgeConfig{
			Collection: "student_faqs",
		},
		Ingest: IngestConfig{
			MaxFileBytes:     20 << 20,
			ChunkTokenBudget: 4000,
			MinPairsPerChunk: 5,
			MaxPairsPerChunk: 7,
		},
		Voice: VoiceConfig{
			Model:         "whisper-large-v3",
			MaxAudioBytes: 25 << 20,
		},
		Auth: AuthConfig{
			TokenTTL:        time.Hour,
			RefreshTokenTTL: 30 * 24 * time.Hour,
			CodeTTL:         10 * time.Minute,
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
		},
	}
}

// Validate ensures the configuration is safe to use. Knowledge-store and
// credential problems are fatal here rather than surfacing per request.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if len(c.LLM.APIKeys) == 0 {
		return errors.New("llm.apiKeys requires at least one credential")
	}
	for _, key := range c.LLM.APIKeys {
		if strings.TrimSpace(key) == "" {
			return errors.New("llm.apiKeys cannot contain blank entries")
		}
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if strings.TrimSpace(c.Embedding.Model) == "" {
		return errors.New("embedding.model cannot be empty")
	}
	if c.Embedding.Dim <= 0 {
		return errors.New("embedding.dim must be positive")
	}
	if c.FAQ.SimilarityThreshold < 0 || c.FAQ.SimilarityThreshold > 1 {
		return errors.New("faq.similarityThreshold must be within [0,1]")
	}
	if c.FAQ.CacheTTL < 0 {
		return errors.New("faq.cacheTtl cannot be negative")
	}
	if strings.TrimSpace(c.Knowledge.Collection) == "" {
		return errors.New("knowledge.collection cannot be empty")
	}
	if c.Ingest.MaxFileBytes <= 0 {
		return errors.New("ingest.maxFileBytes must be positive")
	}
	if c.Ingest.ChunkTokenBudget <= 0 {
		return errors.New("ingest.chunkTokenBudget must be positive")
	}
	if c.Ingest.MinPairsPerChunk <= 0 || c.Ingest.MaxPairsPerChunk < c.Ingest.MinPairsPerChunk {
		return errors.New("ingest pairs-per-chunk bounds are inconsistent")
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("auth.secret cannot be empty")
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("auth token TTLs must be positive")
	}
	if c.Auth.CodeTTL <= 0 {
		return errors.New("auth.codeTtl must be positive")
	}
	if c.Valkey.Enabled && strings.TrimSpace(c.Valkey.Addr) == "" {
		return errors.New("valkey.addr cannot be empty when valkey is enabled")
	}
	if c.SMS.AccountSID != "" && c.SMS.FromNumber == "" {
		return errors.New("sms.fromNumber is required when sms credentials are set")
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

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func isTrue(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}
