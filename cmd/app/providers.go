package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkoukk/tiktoken-go"
	"github.com/valkey-io/valkey-go"

	"github.com/deepscalers/student-assistant/internal/domain/auth"
	"github.com/deepscalers/student-assistant/internal/domain/faq"
	"github.com/deepscalers/student-assistant/internal/domain/ingest"
	"github.com/deepscalers/student-assistant/internal/domain/knowledge"
	"github.com/deepscalers/student-assistant/internal/domain/question"
	"github.com/deepscalers/student-assistant/internal/domain/voice"
	"github.com/deepscalers/student-assistant/internal/infra/authrepo"
	"github.com/deepscalers/student-assistant/internal/infra/chunker"
	"github.com/deepscalers/student-assistant/internal/infra/config"
	"github.com/deepscalers/student-assistant/internal/infra/embedder"
	"github.com/deepscalers/student-assistant/internal/infra/faqcache"
	"github.com/deepscalers/student-assistant/internal/infra/kb"
	"github.com/deepscalers/student-assistant/internal/infra/llm/chatgpt"
	"github.com/deepscalers/student-assistant/internal/infra/pdfextract"
	"github.com/deepscalers/student-assistant/internal/infra/questionrepo"
	"github.com/deepscalers/student-assistant/internal/infra/sms"
	"github.com/deepscalers/student-assistant/internal/infra/storage"
)

func provideFAQConfig(cfg *config.Config) faq.Config {
	return faq.Config{
		Model:               cfg.LLM.Model,
		Temperature:         cfg.LLM.Temperature,
		Prompt:              cfg.FAQ.Prompt,
		SimilarityThreshold: cfg.FAQ.SimilarityThreshold,
		CacheTTL:            cfg.FAQ.CacheTTL,
	}
}

func provideIngestConfig(cfg *config.Config) ingest.Config {
	return ingest.Config{
		MaxFileBytes:     cfg.Ingest.MaxFileBytes,
		MinPairsPerChunk: cfg.Ingest.MinPairsPerChunk,
		MaxPairsPerChunk: cfg.Ingest.MaxPairsPerChunk,
		Model:            cfg.LLM.Model,
		Temperature:      cfg.LLM.Temperature,
		GenerationPrompt: cfg.Ingest.GenerationPrompt,
	}
}

func provideVoiceConfig(cfg *config.Config) voice.Config {
	return voice.Config{
		Model:         cfg.Voice.Model,
		MaxAudioBytes: cfg.Voice.MaxAudioBytes,
	}
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:          cfg.Auth.Secret,
		TokenTTL:        cfg.Auth.TokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		CodeTTL:         cfg.Auth.CodeTTL,
	}
}

func provideChatPool(cfg *config.Config) (*chatgpt.Pool, error) {
	return chatgpt.NewPool(cfg.LLM.APIKeys, cfg.LLM.BaseURL)
}

// providePostgresPool returns nil when no DSN is configured; consumers fall
// back to their memory implementations. A configured DSN that cannot be
// parsed or pinged aborts startup rather than serving an empty store.
func providePostgresPool(cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory stores")
		return nil, nil
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres pool: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	logger.Info("postgres enabled")
	return pool, nil
}

func provideKnowledgeStore(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) knowledge.Store {
	if pool == nil {
		return kb.NewMemoryStore()
	}
	logger.Info("knowledge store backed by pgvector", "collection", cfg.Knowledge.Collection)
	return kb.NewPostgresStore(pool, cfg.Knowledge.Collection)
}

func provideEmbedder(cfg *config.Config, pool *chatgpt.Pool, logger *slog.Logger) knowledge.Embedder {
	if cfg.Embedding.Deterministic {
		logger.Info("using deterministic embedder", "dim", cfg.Embedding.Dim)
		return embedder.NewDeterministicEmbedder(cfg.Embedding.Dim)
	}
	return embedder.NewChatGPTEmbedder(pool, cfg.Embedding.Model, logger)
}

func provideKnowledgeService(cfg *config.Config, store knowledge.Store, emb knowledge.Embedder, logger *slog.Logger) (knowledge.Service, error) {
	return knowledge.NewService(context.Background(), knowledge.Config{VectorDim: cfg.Embedding.Dim}, store, emb, logger)
}

func provideAnswerCache(cfg *config.Config, logger *slog.Logger) faq.AnswerCache {
	if cfg.Valkey.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
			return faqcache.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
			return faqcache.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory cache", "error", err)
		} else {
			logger.Info("faq valkey cache enabled", "addr", cfg.Valkey.Addr)
			return faqcache.NewValkeyStore(client, "faq")
		}
	}
	return faqcache.NewMemoryStore()
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	if strings.Contains(cfg.Valkey.Addr, "://") {
		return valkey.ParseURL(cfg.Valkey.Addr)
	}
	return valkey.ClientOption{InitAddress: []string{cfg.Valkey.Addr}}, nil
}

// authStore groups the two repository views every auth backend implements.
type authStore interface {
	auth.UserRepository
	auth.VerificationRepository
}

func provideAuthStore(pool *pgxpool.Pool) (authStore, error) {
	if pool == nil {
		return authrepo.NewMemoryRepository(), nil
	}
	repo := authrepo.NewPostgresRepository(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repo.Init(ctx); err != nil {
		return nil, fmt.Errorf("auth schema init failed: %w", err)
	}
	return repo, nil
}

func provideQuestionConfig(cfg *config.Config) question.Config {
	return question.Config{SimilarityThreshold: cfg.FAQ.SimilarityThreshold}
}

func provideQuestionRepository(pool *pgxpool.Pool) (question.Repository, error) {
	if pool == nil {
		return questionrepo.NewMemoryRepository(), nil
	}
	repo := questionrepo.NewPostgresRepository(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repo.Init(ctx); err != nil {
		return nil, fmt.Errorf("question schema init failed: %w", err)
	}
	return repo, nil
}

func provideUserRepository(store authStore) auth.UserRepository { return store }

func provideVerificationRepository(store authStore) auth.VerificationRepository { return store }

func provideCodeSender(cfg *config.Config, logger *slog.Logger) auth.CodeSender {
	if strings.TrimSpace(cfg.SMS.AccountSID) == "" {
		logger.Warn("sms credentials not set, verification codes will be logged")
		return sms.NewLogSender(logger)
	}
	return sms.NewTwilioSender(cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.FromNumber)
}

// blobStorage groups the storage views the upload-handling domains consume.
type blobStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

func provideBlobStorage(cfg *config.Config, logger *slog.Logger) blobStorage {
	if strings.TrimSpace(cfg.Storage.Endpoint) == "" {
		logger.Info("storage endpoint not set, using memory object store")
		return storage.NewMemoryStorage()
	}
	store, err := storage.NewS3Storage(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.Region, logger)
	if err != nil {
		logger.Error("failed to initialize s3 storage, using memory object store", "error", err)
		return storage.NewMemoryStorage()
	}
	return store
}

func provideIngestStorage(store blobStorage) ingest.ObjectStorage { return store }

func provideVoiceStorage(store blobStorage) voice.ObjectStorage { return store }

func provideTokenCounter(logger *slog.Logger) chunker.TokenCounter {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, using character estimate", "error", err)
		return chunker.EstimateTokens
	}
	return func(text string) int {
		return len(encoding.Encode(text, nil, nil))
	}
}

func provideChunker(cfg *config.Config, counter chunker.TokenCounter) ingest.Chunker {
	return chunker.New(cfg.Ingest.ChunkTokenBudget, counter)
}

func providePDFExtractor() ingest.Extractor {
	return pdfextract.NewExtractor()
}
