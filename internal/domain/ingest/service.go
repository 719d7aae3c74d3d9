package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/deepscalers/student-assistant/internal/domain/knowledge"
	"github.com/deepscalers/student-assistant/internal/infra/llm/chatgpt"
	apperrors "github.com/deepscalers/student-assistant/pkg/errors"
)

// Config holds the knobs for document ingestion.
type Config struct {
	MaxFileBytes     int64
	MinPairsPerChunk int
	MaxPairsPerChunk int
	Model            string
	Temperature      float32
	GenerationPrompt string
}

// Service turns uploaded documents into knowledge base entries.
type Service interface {
	ExtractAndIngest(ctx context.Context, userID int64, upload Upload) (Result, error)
}

type service struct {
	cfg       Config
	extractor Extractor
	chunker   Chunker
	storage   ObjectStorage
	pool      ChatPool
	ingestor  Ingestor
	logger    *slog.Logger
}

// NewService wires up the ingestion pipeline.
func NewService(cfg Config, extractor Extractor, chunker Chunker, storage ObjectStorage, pool ChatPool, ingestor Ingestor, logger *slog.Logger) Service {
	return &service{
		cfg:       cfg,
		extractor: extractor,
		chunker:   chunker,
		storage:   storage,
		pool:      pool,
		ingestor:  ingestor,
		logger:    logger.With("component", "ingest.service"),
	}
}

func (s *service) ExtractAndIngest(ctx context.Context, userID int64, upload Upload) (Result, error) {
	if len(upload.Content) == 0 {
		return Result{}, apperrors.Wrap("invalid_input", "uploaded file is empty", nil)
	}
	if s.cfg.MaxFileBytes > 0 && int64(len(upload.Content)) > s.cfg.MaxFileBytes {
		return Result{}, apperrors.Wrap("invalid_input",
			fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileBytes), nil)
	}

	extraction, err := s.extractor.Extract(ctx, upload.Filename, upload.Content)
	if err != nil {
		return Result{}, apperrors.Wrap("document_error", "could not extract text from document", err)
	}
	if strings.TrimSpace(extraction.Text) == "" {
		return Result{}, apperrors.Wrap("document_error", "document contains no extractable text", nil)
	}

	result := Result{
		Text:  extraction.Text,
		Pages: len(extraction.Pages),
	}

	key := path.Join("documents", fmt.Sprintf("%d", userID), uuid.NewString(), upload.Filename)
	if err := s.storage.Put(ctx, key, upload.Content, upload.ContentType); err != nil {
		// The extraction already succeeded; losing the archive copy is
		// not worth failing the whole request over.
		s.logger.Warn("failed to archive uploaded document", "key", key, "error", err)
	} else {
		result.Uploaded = true
	}

	chunks := s.chunker.Split(extraction.Text)
	if len(chunks) == 0 {
		return Result{}, apperrors.Wrap("document_error", "document produced no usable chunks", nil)
	}
	result.Chunks = len(chunks)

	pairs, err := s.generatePairs(ctx, chunks)
	if err != nil {
		return Result{}, err
	}
	if pairs == nil {
		pairs = []knowledge.QAPair{}
	}
	result.Pairs = pairs

	if len(pairs) > 0 {
		count, err := s.ingestor.IngestPairs(ctx, pairs)
		if err != nil {
			return Result{}, apperrors.Wrap("upstream_error", "failed to store generated pairs", err)
		}
		result.Ingested = count
	}

	s.logger.Info("document ingested",
		"user_id", userID,
		"filename", upload.Filename,
		"pages", result.Pages,
		"chunks", result.Chunks,
		"pairs", len(result.Pairs),
	)
	return result, nil
}

// generatePairs fans chunks out across the credential pool. Each worker slot
// sticks to its own credential so one rate-limited key cannot stall the
// others. Failed chunks are skipped; the run only fails when every chunk
// does. A chunk whose completion parses to zero pairs is not a failure, it
// just contributes nothing.
func (s *service) generatePairs(ctx context.Context, chunks []Chunk) ([]knowledge.QAPair, error) {
	perChunk := make([][]knowledge.QAPair, len(chunks))
	failures := make([]error, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.pool.Size())
	for i, chunk := range chunks {
		g.Go(func() error {
			pairs, err := s.generateChunk(gctx, i, chunk)
			if err != nil {
				s.logger.Warn("chunk generation failed", "chunk", chunk.Index, "error", err)
				failures[i] = err
				return nil
			}
			perChunk[i] = pairs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.Wrap("upstream_error", "pair generation aborted", err)
	}

	var (
		merged    []knowledge.QAPair
		succeeded int
	)
	for i := range perChunk {
		if failures[i] == nil {
			succeeded++
		}
		merged = append(merged, perChunk[i]...)
	}
	if succeeded == 0 {
		return nil, apperrors.Wrap("upstream_error", "pair generation failed for every chunk", failures[0])
	}
	return merged, nil
}

func (s *service) generateChunk(ctx context.Context, slot int, chunk Chunk) ([]knowledge.QAPair, error) {
	resp, err := s.pool.CreateChatCompletionOn(ctx, slot, chatgpt.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []chatgpt.Message{
			{Role: "system", Content: s.generationPrompt()},
			{Role: "user", Content: chunk.Content},
		},
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chunk %d: completion returned no choices", chunk.Index)
	}
	pairs := ParsePairs(resp.Choices[0].Message.Content)
	if len(pairs) == 0 {
		s.logger.Warn("chunk yielded no question/answer pairs", "chunk", chunk.Index)
	}
	return pairs, nil
}

func (s *service) generationPrompt() string {
	prompt := strings.TrimSpace(s.cfg.GenerationPrompt)
	if prompt == "" {
		prompt = "You create study questions and answers from course material."
	}
	minPairs, maxPairs := s.cfg.MinPairsPerChunk, s.cfg.MaxPairsPerChunk
	if minPairs <= 0 {
		minPairs = 3
	}
	if maxPairs < minPairs {
		maxPairs = minPairs + 2
	}
	return fmt.Sprintf(
		"%s\n\nGenerate between %d and %d question and answer pairs from the text you are given. "+
			"Write each question on its own line prefixed with %q and each answer on the following line prefixed with %q. "+
			"Do not number the pairs or add any other commentary.",
		prompt, minPairs, maxPairs, questionPrefix, answerPrefix)
}
