package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deepscalers/student-assistant/internal/domain/auth"
	"github.com/deepscalers/student-assistant/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, authSvc auth.Service, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		rateLimitMiddleware(cfg.HTTP.RateLimit, logger),
		errorHandlingMiddleware(logger),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/faq/ask", handler.AskFAQ)
		api.POST("/knowledge-base/search", handler.SearchKnowledge)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/send-verification", handler.SendVerification)
			authGroup.POST("/verify-code", handler.VerifyCode)
			authGroup.POST("/refresh", handler.RefreshToken)
			authGroup.GET("/profile", authMiddleware(authSvc), handler.Profile)
		}

		protected := api.Group("", authMiddleware(authSvc))
		{
			protected.POST("/knowledge-base/entries", handler.CreateEntry)
			protected.POST("/documents/extract", handler.ExtractDocument)
			protected.POST("/questions", handler.SubmitQuestion)
			protected.GET("/questions", handler.ListQuestions)
			protected.POST("/questions/:id/answers", handler.AnswerQuestion)
			protected.POST("/questions/:id/reject", handler.RejectQuestion)
			protected.POST("/voice/recognize", handler.RecognizeVoice)
		}
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds())
	}
}
