package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/deepscalers/student-assistant/internal/domain/auth"
	"github.com/deepscalers/student-assistant/internal/domain/faq"
	"github.com/deepscalers/student-assistant/internal/domain/ingest"
	"github.com/deepscalers/student-assistant/internal/domain/knowledge"
	"github.com/deepscalers/student-assistant/internal/domain/question"
	"github.com/deepscalers/student-assistant/internal/domain/voice"
	apperrors "github.com/deepscalers/student-assistant/pkg/errors"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	faqSvc       faq.Service
	knowledgeSvc knowledge.Service
	ingestSvc    ingest.Service
	questionSvc  question.Service
	voiceSvc     voice.Service
	authSvc      auth.Service
	logger       *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(faqSvc faq.Service, knowledgeSvc knowledge.Service, ingestSvc ingest.Service, questionSvc question.Service, voiceSvc voice.Service, authSvc auth.Service, logger *slog.Logger) *Handler {
	return &Handler{
		faqSvc:       faqSvc,
		knowledgeSvc: knowledgeSvc,
		ingestSvc:    ingestSvc,
		questionSvc:  questionSvc,
		voiceSvc:     voiceSvc,
		authSvc:      authSvc,
		logger:       logger.With("component", "http.handler"),
	}
}

// AskFAQ answers a student question from the knowledge base or the LLM.
func (h *Handler) AskFAQ(c *gin.Context) {
	var req faq.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.faqSvc.Answer(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		code := "faq_failed"
		switch {
		case apperrors.IsCode(err, "invalid_input"):
			status = http.StatusBadRequest
			code = "invalid_request"
		case apperrors.IsCode(err, "upstream_error"):
			status = http.StatusBadGateway
			code = "upstream_error"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

type searchRequest struct {
	Question string `json:"question" binding:"required"`
	Limit    int    `json:"limit"`
}

// SearchKnowledge returns the closest knowledge base entries for a question.
func (h *Handler) SearchKnowledge(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	if req.Limit <= 0 {
		req.Limit = 5
	}

	matches, err := h.knowledgeSvc.Search(c.Request.Context(), req.Question, req.Limit)
	if err != nil {
		status := http.StatusBadGateway
		code := "upstream_error"
		if apperrors.IsCode(err, "invalid_input") {
			status = http.StatusBadRequest
			code = "invalid_request"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

type entryRequest struct {
	Question   string  `json:"question" binding:"required"`
	Answer     string  `json:"answer" binding:"required"`
	Confidence float64 `json:"confidence"`
}

// CreateEntry adds one question/answer pair to the knowledge base.
func (h *Handler) CreateEntry(c *gin.Context) {
	var req entryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	if err := h.knowledgeSvc.Ingest(c.Request.Context(), req.Question, req.Answer, req.Confidence); err != nil {
		status := http.StatusBadGateway
		code := "upstream_error"
		if apperrors.IsCode(err, "invalid_input") {
			status = http.StatusBadRequest
			code = "invalid_request"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "created"})
}

// ExtractDocument turns an uploaded document into knowledge base entries.
func (h *Handler) ExtractDocument(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing auth claims", nil))
		return
	}

	upload, err := readUpload(c, "file")
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	result, err := h.ingestSvc.ExtractAndIngest(c.Request.Context(), claims.UserID, ingest.Upload{
		Filename:    upload.filename,
		ContentType: upload.contentType,
		Content:     upload.content,
	})
	if err != nil {
		status := http.StatusInternalServerError
		code := "extract_failed"
		switch {
		case apperrors.IsCode(err, "invalid_input"):
			status = http.StatusBadRequest
			code = "invalid_request"
		case apperrors.IsCode(err, "document_error"):
			status = http.StatusBadRequest
			code = "document_error"
		case apperrors.IsCode(err, "upstream_error"):
			status = http.StatusBadGateway
			code = "upstream_error"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}

	c.JSON(http.StatusOK, result)
}

type submitQuestionRequest struct {
	Text string `json:"text" binding:"required"`
}

// SubmitQuestion files a student question, auto-answering it when the
// knowledge base already covers it.
func (h *Handler) SubmitQuestion(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing auth claims", nil))
		return
	}

	var req submitQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	submission, err := h.questionSvc.Submit(c.Request.Context(), claims.UserID, req.Text)
	if err != nil {
		status := http.StatusInternalServerError
		code := "question_failed"
		switch {
		case apperrors.IsCode(err, "invalid_input"):
			status = http.StatusBadRequest
			code = "invalid_request"
		case apperrors.IsCode(err, "upstream_error"):
			status = http.StatusBadGateway
			code = "upstream_error"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}

	c.JSON(http.StatusCreated, submission)
}

// ListQuestions returns the authenticated user's questions.
func (h *Handler) ListQuestions(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing auth claims", nil))
		return
	}

	questions, err := h.questionSvc.ListForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadGateway, "upstream_error", errMessage(err), err))
		return
	}
	if questions == nil {
		questions = []question.Question{}
	}

	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

type answerQuestionRequest struct {
	Text     string `json:"text" binding:"required"`
	Verified bool   `json:"verified"`
}

// AnswerQuestion records a faculty answer and feeds it into the knowledge base.
func (h *Handler) AnswerQuestion(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing auth claims", nil))
		return
	}

	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "invalid question id", err))
		return
	}

	var req answerQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	answer, err := h.questionSvc.Answer(c.Request.Context(), questionID, claims.UserID, req.Text, req.Verified)
	if err != nil {
		status := http.StatusInternalServerError
		code := "answer_failed"
		switch {
		case apperrors.IsCode(err, "invalid_input"):
			status = http.StatusBadRequest
			code = "invalid_request"
		case apperrors.IsCode(err, "not_found"):
			status = http.StatusNotFound
			code = "not_found"
		case apperrors.IsCode(err, "upstream_error"):
			status = http.StatusBadGateway
			code = "upstream_error"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}

	c.JSON(http.StatusCreated, answer)
}

// RejectQuestion marks a pending question as rejected.
func (h *Handler) RejectQuestion(c *gin.Context) {
	if _, ok := getClaims(c); !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing auth claims", nil))
		return
	}

	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "invalid question id", err))
		return
	}

	rejected, err := h.questionSvc.Reject(c.Request.Context(), questionID)
	if err != nil {
		status := http.StatusInternalServerError
		code := "reject_failed"
		switch {
		case apperrors.IsCode(err, "invalid_input"):
			status = http.StatusBadRequest
			code = "invalid_request"
		case apperrors.IsCode(err, "not_found"):
			status = http.StatusNotFound
			code = "not_found"
		case apperrors.IsCode(err, "upstream_error"):
			status = http.StatusBadGateway
			code = "upstream_error"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}

	c.JSON(http.StatusOK, rejected)
}

// RecognizeVoice transcribes an uploaded audio recording.
func (h *Handler) RecognizeVoice(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing auth claims", nil))
		return
	}

	upload, err := readUpload(c, "audio")
	if err != nil {
		upload, err = readUpload(c, "file")
	}
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	transcript, err := h.voiceSvc.Recognize(c.Request.Context(), claims.UserID, voice.Audio{
		Filename:    upload.filename,
		ContentType: upload.contentType,
		Content:     upload.content,
		Language:    c.PostForm("language"),
	})
	if err != nil {
		status := http.StatusBadGateway
		code := "transcription_error"
		if apperrors.IsCode(err, "invalid_input") {
			status = http.StatusBadRequest
			code = "invalid_request"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}

	c.JSON(http.StatusOK, transcript)
}

// SendVerification texts a verification code to a phone number.
func (h *Handler) SendVerification(c *gin.Context) {
	var req auth.SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	if err := h.authSvc.SendCode(c.Request.Context(), req.PhoneNumber); err != nil {
		status := http.StatusInternalServerError
		code := "send_failed"
		switch {
		case apperrors.IsCode(err, "invalid_input"):
			status = http.StatusBadRequest
			code = "invalid_request"
		case apperrors.IsCode(err, "sms_error"):
			status = http.StatusBadGateway
			code = "sms_error"
		case apperrors.IsCode(err, "upstream_error"):
			status = http.StatusBadGateway
			code = "upstream_error"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// VerifyCode exchanges a verification code for a token pair.
func (h *Handler) VerifyCode(c *gin.Context) {
	var req auth.VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.authSvc.VerifyCode(c.Request.Context(), req.PhoneNumber, req.Code)
	if err != nil {
		status := http.StatusInternalServerError
		code := "verify_failed"
		switch {
		case apperrors.IsCode(err, "invalid_input"), apperrors.IsCode(err, "invalid_code"):
			status = http.StatusBadRequest
			code = apperrors.CodeOf(err)
		case apperrors.IsCode(err, "upstream_error"):
			status = http.StatusBadGateway
			code = "upstream_error"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RefreshToken exchanges a refresh token for a new pair.
func (h *Handler) RefreshToken(c *gin.Context) {
	var req auth.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", errMessage(err), err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Profile returns the authenticated user's account.
func (h *Handler) Profile(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing auth claims", nil))
		return
	}

	user, err := h.authSvc.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		status := http.StatusInternalServerError
		code := "profile_failed"
		if apperrors.IsCode(err, "unauthorized") {
			status = http.StatusUnauthorized
			code = "unauthorized"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}

	c.JSON(http.StatusOK, user)
}

type multipartUpload struct {
	filename    string
	contentType string
	content     []byte
}

func readUpload(c *gin.Context, field string) (multipartUpload, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return multipartUpload{}, err
	}
	file, err := fileHeader.Open()
	if err != nil {
		return multipartUpload{}, err
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return multipartUpload{}, err
	}
	return multipartUpload{
		filename:    fileHeader.Filename,
		contentType: fileHeader.Header.Get("Content-Type"),
		content:     content,
	}, nil
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
