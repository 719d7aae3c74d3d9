package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/deepscalers/student-assistant/internal/domain/auth"
	"github.com/deepscalers/student-assistant/internal/domain/faq"
	"github.com/deepscalers/student-assistant/internal/domain/ingest"
	"github.com/deepscalers/student-assistant/internal/domain/knowledge"
	"github.com/deepscalers/student-assistant/internal/domain/question"
	"github.com/deepscalers/student-assistant/internal/domain/voice"
	"github.com/deepscalers/student-assistant/internal/infra/config"
	apperrors "github.com/deepscalers/student-assistant/pkg/errors"
)

const testToken = "good-token"

func TestRouter_AskFAQSuccess(t *testing.T) {
	resp := faq.Response{Question: "q", Answer: "a", Matched: true, Source: faq.SourceFAQ, Confidence: 0.9}
	services := newStubServices()
	services.faq.answerFn = func(_ context.Context, req faq.Request) (faq.Response, error) {
		require.Equal(t, "when is enrollment?", req.Question)
		return resp, nil
	}

	rec := performJSON(t, newRouterUnderTest(t, services), "/api/v1/faq/ask", `{"question":"when is enrollment?"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got faq.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, resp, got)
}

func TestRouter_AskFAQInvalidJSON(t *testing.T) {
	rec := performJSON(t, newRouterUnderTest(t, newStubServices()), "/api/v1/faq/ask", `{"question":123}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
}

func TestRouter_AskFAQUpstreamFailure(t *testing.T) {
	services := newStubServices()
	services.faq.answerFn = func(_ context.Context, _ faq.Request) (faq.Response, error) {
		return faq.Response{}, apperrors.Wrap("upstream_error", "knowledge lookup failed", nil)
	}

	rec := performJSON(t, newRouterUnderTest(t, services), "/api/v1/faq/ask", `{"question":"x"}`, "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "upstream_error", errBody["error"]["code"])
}

func TestRouter_KnowledgeSearch(t *testing.T) {
	services := newStubServices()
	services.knowledge.searchFn = func(_ context.Context, question string, limit int) ([]knowledge.Match, error) {
		require.Equal(t, "deadlines", question)
		require.Equal(t, 5, limit, "limit defaults when omitted")
		return []knowledge.Match{{Score: 0.8}}, nil
	}

	rec := performJSON(t, newRouterUnderTest(t, services), "/api/v1/knowledge-base/search", `{"question":"deadlines"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CreateEntryRequiresAuth(t *testing.T) {
	server := newRouterUnderTest(t, newStubServices())

	rec := performJSON(t, server, "/api/v1/knowledge-base/entries", `{"question":"q","answer":"a"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = performJSON(t, server, "/api/v1/knowledge-base/entries", `{"question":"q","answer":"a"}`, testToken)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestRouter_ExtractDocument(t *testing.T) {
	services := newStubServices()
	services.ingest.extractFn = func(_ context.Context, userID int64, upload ingest.Upload) (ingest.Result, error) {
		require.Equal(t, int64(7), userID)
		require.Equal(t, "syllabus.pdf", upload.Filename)
		return ingest.Result{Pages: 3, Ingested: 12}, nil
	}

	rec := performMultipart(t, newRouterUnderTest(t, services), "/api/v1/documents/extract", "file", "syllabus.pdf", []byte("%PDF"), testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var got ingest.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, 12, got.Ingested)
}

func TestRouter_ExtractDocumentBadFile(t *testing.T) {
	services := newStubServices()
	services.ingest.extractFn = func(_ context.Context, _ int64, _ ingest.Upload) (ingest.Result, error) {
		return ingest.Result{}, apperrors.Wrap("document_error", "could not extract text from document", nil)
	}

	rec := performMultipart(t, newRouterUnderTest(t, services), "/api/v1/documents/extract", "file", "junk.pdf", []byte("junk"), testToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "document_error", errBody["error"]["code"])
}

func TestRouter_RecognizeVoice(t *testing.T) {
	services := newStubServices()
	services.voice.recognizeFn = func(_ context.Context, _ int64, audio voice.Audio) (voice.Transcript, error) {
		require.Equal(t, "q.ogg", audio.Filename)
		return voice.Transcript{Text: "when is the exam"}, nil
	}

	rec := performMultipart(t, newRouterUnderTest(t, services), "/api/v1/voice/recognize", "audio", "q.ogg", []byte("OggS"), testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var got voice.Transcript
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "when is the exam", got.Text)
}

func TestRouter_RecognizeVoiceLegacyFieldName(t *testing.T) {
	services := newStubServices()
	services.voice.recognizeFn = func(_ context.Context, _ int64, audio voice.Audio) (voice.Transcript, error) {
		require.Equal(t, "q.ogg", audio.Filename)
		return voice.Transcript{Text: "when is the exam"}, nil
	}

	rec := performMultipart(t, newRouterUnderTest(t, services), "/api/v1/voice/recognize", "file", "q.ogg", []byte("OggS"), testToken)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SubmitQuestion(t *testing.T) {
	services := newStubServices()
	services.question.submitFn = func(_ context.Context, userID int64, text string) (question.Submission, error) {
		require.Equal(t, int64(7), userID)
		require.Equal(t, "how do I defer an exam?", text)
		return question.Submission{
			Question:     question.Question{ID: uuid.New(), UserID: userID, Text: text, Status: question.StatusAnswered},
			Answer:       &question.Answer{Text: "file a deferral form"},
			AutoAnswered: true,
		}, nil
	}

	rec := performJSON(t, newRouterUnderTest(t, services), "/api/v1/questions", `{"text":"how do I defer an exam?"}`, testToken)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got question.Submission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.True(t, got.AutoAnswered)
	require.NotNil(t, got.Answer)
}

func TestRouter_SubmitQuestionRequiresAuth(t *testing.T) {
	rec := performJSON(t, newRouterUnderTest(t, newStubServices()), "/api/v1/questions", `{"text":"x"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ListQuestionsEmpty(t *testing.T) {
	server := newRouterUnderTest(t, newStubServices())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/questions", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string][]question.Question
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got["questions"])
	require.Empty(t, got["questions"])
}

func TestRouter_AnswerQuestionNotFound(t *testing.T) {
	services := newStubServices()
	services.question.answerFn = func(_ context.Context, _ uuid.UUID, _ int64, _ string, _ bool) (question.Answer, error) {
		return question.Answer{}, apperrors.Wrap("not_found", "question not found", nil)
	}

	path := "/api/v1/questions/" + uuid.NewString() + "/answers"
	rec := performJSON(t, newRouterUnderTest(t, services), path, `{"text":"see the handbook"}`, testToken)
	require.Equal(t, http.StatusNotFound, rec.Code)
	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "not_found", errBody["error"]["code"])
}

func TestRouter_AnswerQuestionBadID(t *testing.T) {
	rec := performJSON(t, newRouterUnderTest(t, newStubServices()), "/api/v1/questions/not-a-uuid/answers", `{"text":"x"}`, testToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_RejectQuestion(t *testing.T) {
	services := newStubServices()
	id := uuid.New()
	services.question.rejectFn = func(_ context.Context, questionID uuid.UUID) (question.Question, error) {
		require.Equal(t, id, questionID)
		return question.Question{ID: id, Status: question.StatusRejected}, nil
	}

	rec := performJSON(t, newRouterUnderTest(t, services), "/api/v1/questions/"+id.String()+"/reject", `{}`, testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var got question.Question
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, question.StatusRejected, got.Status)
}

func TestRouter_SendVerification(t *testing.T) {
	services := newStubServices()
	rec := performJSON(t, newRouterUnderTest(t, services), "/api/v1/auth/send-verification", `{"phone_number":"+15551234567"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SendVerificationSMSFailure(t *testing.T) {
	services := newStubServices()
	services.auth.sendCodeFn = func(_ context.Context, _ string) error {
		return apperrors.Wrap("sms_error", "failed to deliver verification code", nil)
	}

	rec := performJSON(t, newRouterUnderTest(t, services), "/api/v1/auth/send-verification", `{"phone_number":"+15551234567"}`, "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "sms_error", errBody["error"]["code"])
}

func TestRouter_VerifyCodeRejected(t *testing.T) {
	services := newStubServices()
	services.auth.verifyCodeFn = func(_ context.Context, _, _ string) (auth.LoginResponse, error) {
		return auth.LoginResponse{}, apperrors.Wrap("invalid_code", "verification code is invalid or expired", nil)
	}

	rec := performJSON(t, newRouterUnderTest(t, services), "/api/v1/auth/verify-code", `{"phone_number":"+15551234567","code":"111111"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "invalid_code", errBody["error"]["code"])
}

func TestRouter_Profile(t *testing.T) {
	server := newRouterUnderTest(t, newStubServices())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got auth.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, int64(7), got.ID)
}

func TestRouter_Healthz(t *testing.T) {
	server := newRouterUnderTest(t, newStubServices())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

type stubServices struct {
	faq       *stubFAQ
	knowledge *stubKnowledge
	ingest    *stubIngest
	question  *stubQuestion
	voice     *stubVoice
	auth      *stubAuth
}

func newStubServices() *stubServices {
	return &stubServices{
		faq:       &stubFAQ{},
		knowledge: &stubKnowledge{},
		ingest:    &stubIngest{},
		question:  &stubQuestion{},
		voice:     &stubVoice{},
		auth:      &stubAuth{},
	}
}

type stubFAQ struct {
	answerFn func(ctx context.Context, req faq.Request) (faq.Response, error)
}

func (s *stubFAQ) Answer(ctx context.Context, req faq.Request) (faq.Response, error) {
	if s.answerFn != nil {
		return s.answerFn(ctx, req)
	}
	return faq.Response{}, nil
}

type stubKnowledge struct {
	searchFn func(ctx context.Context, question string, limit int) ([]knowledge.Match, error)
}

func (s *stubKnowledge) Ingest(_ context.Context, _, _ string, _ float64) error { return nil }

func (s *stubKnowledge) IngestPairs(_ context.Context, pairs []knowledge.QAPair) (int, error) {
	return len(pairs), nil
}

func (s *stubKnowledge) Search(ctx context.Context, question string, limit int) ([]knowledge.Match, error) {
	if s.searchFn != nil {
		return s.searchFn(ctx, question, limit)
	}
	return nil, nil
}

type stubIngest struct {
	extractFn func(ctx context.Context, userID int64, upload ingest.Upload) (ingest.Result, error)
}

func (s *stubIngest) ExtractAndIngest(ctx context.Context, userID int64, upload ingest.Upload) (ingest.Result, error) {
	if s.extractFn != nil {
		return s.extractFn(ctx, userID, upload)
	}
	return ingest.Result{}, nil
}

type stubQuestion struct {
	submitFn func(ctx context.Context, userID int64, text string) (question.Submission, error)
	answerFn func(ctx context.Context, questionID uuid.UUID, authorID int64, text string, verified bool) (question.Answer, error)
	rejectFn func(ctx context.Context, questionID uuid.UUID) (question.Question, error)
	listFn   func(ctx context.Context, userID int64) ([]question.Question, error)
}

func (s *stubQuestion) Submit(ctx context.Context, userID int64, text string) (question.Submission, error) {
	if s.submitFn != nil {
		return s.submitFn(ctx, userID, text)
	}
	return question.Submission{}, nil
}

func (s *stubQuestion) Answer(ctx context.Context, questionID uuid.UUID, authorID int64, text string, verified bool) (question.Answer, error) {
	if s.answerFn != nil {
		return s.answerFn(ctx, questionID, authorID, text, verified)
	}
	return question.Answer{}, nil
}

func (s *stubQuestion) Reject(ctx context.Context, questionID uuid.UUID) (question.Question, error) {
	if s.rejectFn != nil {
		return s.rejectFn(ctx, questionID)
	}
	return question.Question{}, nil
}

func (s *stubQuestion) ListForUser(ctx context.Context, userID int64) ([]question.Question, error) {
	if s.listFn != nil {
		return s.listFn(ctx, userID)
	}
	return nil, nil
}

type stubVoice struct {
	recognizeFn func(ctx context.Context, userID int64, audio voice.Audio) (voice.Transcript, error)
}

func (s *stubVoice) Recognize(ctx context.Context, userID int64, audio voice.Audio) (voice.Transcript, error) {
	if s.recognizeFn != nil {
		return s.recognizeFn(ctx, userID, audio)
	}
	return voice.Transcript{}, nil
}

type stubAuth struct {
	sendCodeFn   func(ctx context.Context, phone string) error
	verifyCodeFn func(ctx context.Context, phone, code string) (auth.LoginResponse, error)
}

func (s *stubAuth) SendCode(ctx context.Context, phone string) error {
	if s.sendCodeFn != nil {
		return s.sendCodeFn(ctx, phone)
	}
	return nil
}

func (s *stubAuth) VerifyCode(ctx context.Context, phone, code string) (auth.LoginResponse, error) {
	if s.verifyCodeFn != nil {
		return s.verifyCodeFn(ctx, phone, code)
	}
	return auth.LoginResponse{}, nil
}

func (s *stubAuth) Refresh(_ context.Context, _ string) (auth.LoginResponse, error) {
	return auth.LoginResponse{}, nil
}

func (s *stubAuth) ValidateToken(token string) (auth.Claims, error) {
	if token != testToken {
		return auth.Claims{}, apperrors.Wrap("unauthorized", "token is invalid or expired", nil)
	}
	return auth.Claims{UserID: 7, PhoneNumber: "+15551234567", TokenType: auth.TokenTypeAccess}, nil
}

func (s *stubAuth) Profile(_ context.Context, userID int64) (auth.User, error) {
	return auth.User{ID: userID, PhoneNumber: "+15551234567", IsVerified: true}, nil
}

func newRouterUnderTest(t *testing.T, services *stubServices) *http.Server {
	t.Helper()
	handler := NewHandler(services.faq, services.knowledge, services.ingest, services.question, services.voice, services.auth, newTestLogger())
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
	return NewRouter(cfg, handler, services.auth, newTestLogger())
}

func performJSON(t *testing.T, server *http.Server, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func performMultipart(t *testing.T, server *http.Server, path, field, filename string, content []byte, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}
