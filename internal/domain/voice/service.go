package voice

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/deepscalers/student-assistant/internal/infra/llm/chatgpt"
	apperrors "github.com/deepscalers/student-assistant/pkg/errors"
)

// Audio is an uploaded voice recording.
type Audio struct {
	Filename    string
	ContentType string
	Content     []byte
	Language    string
}

// Transcript is the recognized speech.
type Transcript struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// Config holds transcription knobs.
type Config struct {
	Model         string
	MaxAudioBytes int64
}

// Transcriber is the slice of the LLM client the voice domain needs.
type Transcriber interface {
	CreateTranscription(ctx context.Context, req chatgpt.TranscriptionRequest) (chatgpt.TranscriptionResponse, error)
}

// ObjectStorage archives the original recordings.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Service turns voice recordings into text.
type Service interface {
	Recognize(ctx context.Context, userID int64, audio Audio) (Transcript, error)
}

type service struct {
	cfg         Config
	transcriber Transcriber
	storage     ObjectStorage
	logger      *slog.Logger
}

// NewService wires up the voice domain.
func NewService(cfg Config, transcriber Transcriber, storage ObjectStorage, logger *slog.Logger) Service {
	return &service{
		cfg:         cfg,
		transcriber: transcriber,
		storage:     storage,
		logger:      logger.With("component", "voice.service"),
	}
}

func (s *service) Recognize(ctx context.Context, userID int64, audio Audio) (Transcript, error) {
	if len(audio.Content) == 0 {
		return Transcript{}, apperrors.Wrap("invalid_input", "audio file is empty", nil)
	}
	if s.cfg.MaxAudioBytes > 0 && int64(len(audio.Content)) > s.cfg.MaxAudioBytes {
		return Transcript{}, apperrors.Wrap("invalid_input",
			fmt.Sprintf("audio exceeds the %d byte limit", s.cfg.MaxAudioBytes), nil)
	}

	key := path.Join("voice", fmt.Sprintf("%d", userID), uuid.NewString(), audio.Filename)
	if err := s.storage.Put(ctx, key, audio.Content, audio.ContentType); err != nil {
		s.logger.Warn("failed to archive recording", "key", key, "error", err)
	}

	resp, err := s.transcriber.CreateTranscription(ctx, chatgpt.TranscriptionRequest{
		Model:    s.cfg.Model,
		Filename: audio.Filename,
		Audio:    audio.Content,
		Language: audio.Language,
	})
	if err != nil {
		return Transcript{}, apperrors.Wrap("transcription_error", "speech recognition failed", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return Transcript{}, apperrors.Wrap("transcription_error", "no speech recognized in recording", nil)
	}

	s.logger.Info("recording transcribed", "user_id", userID, "bytes", len(audio.Content))
	return Transcript{Text: text, Language: resp.Language}, nil
}
