//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/deepscalers/student-assistant/internal/bootstrap"
	"github.com/deepscalers/student-assistant/internal/domain/auth"
	"github.com/deepscalers/student-assistant/internal/domain/faq"
	"github.com/deepscalers/student-assistant/internal/domain/ingest"
	"github.com/deepscalers/student-assistant/internal/domain/knowledge"
	"github.com/deepscalers/student-assistant/internal/domain/question"
	"github.com/deepscalers/student-assistant/internal/domain/voice"
	"github.com/deepscalers/student-assistant/internal/infra/config"
	"github.com/deepscalers/student-assistant/internal/infra/llm/chatgpt"
	httpiface "github.com/deepscalers/student-assistant/internal/interface/http"
	"github.com/deepscalers/student-assistant/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideFAQConfig,
		provideIngestConfig,
		provideVoiceConfig,
		provideAuthConfig,
		provideChatPool,
		providePostgresPool,
		provideKnowledgeStore,
		provideEmbedder,
		provideKnowledgeService,
		provideAnswerCache,
		provideAuthStore,
		provideQuestionConfig,
		provideQuestionRepository,
		provideUserRepository,
		provideVerificationRepository,
		provideCodeSender,
		provideBlobStorage,
		provideIngestStorage,
		provideVoiceStorage,
		provideTokenCounter,
		provideChunker,
		providePDFExtractor,
		faq.NewService,
		ingest.NewService,
		question.NewService,
		voice.NewService,
		auth.NewService,
		wire.Bind(new(faq.ChatClient), new(*chatgpt.Pool)),
		wire.Bind(new(faq.KnowledgeSearcher), new(knowledge.Service)),
		wire.Bind(new(ingest.ChatPool), new(*chatgpt.Pool)),
		wire.Bind(new(ingest.Ingestor), new(knowledge.Service)),
		wire.Bind(new(question.KnowledgeSearcher), new(knowledge.Service)),
		wire.Bind(new(question.Ingestor), new(knowledge.Service)),
		wire.Bind(new(voice.Transcriber), new(*chatgpt.Pool)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
