package chatgpt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// TranscriptionRequest carries one audio upload to the transcription API.
type TranscriptionRequest struct {
	Model    string
	Filename string
	Audio    []byte
	Language string
}

// TranscriptionResponse captures the verbose transcription payload.
type TranscriptionResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// CreateTranscription sends audio to the whisper-style endpoint and returns
// the recognized text.
func (c *Client) CreateTranscription(ctx context.Context, req TranscriptionRequest) (TranscriptionResponse, error) {
	var out TranscriptionResponse
	if len(req.Audio) == 0 {
		return out, errors.New("transcription audio cannot be empty")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", req.Filename)
	if err != nil {
		return out, fmt.Errorf("build transcription form: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return out, fmt.Errorf("write transcription audio: %w", err)
	}
	if err := writer.WriteField("model", req.Model); err != nil {
		return out, fmt.Errorf("write transcription model: %w", err)
	}
	if req.Language != "" {
		if err := writer.WriteField("language", req.Language); err != nil {
			return out, fmt.Errorf("write transcription language: %w", err)
		}
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return out, fmt.Errorf("write transcription format: %w", err)
	}
	if err := writer.Close(); err != nil {
		return out, fmt.Errorf("finalize transcription form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return out, fmt.Errorf("build transcription request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return out, fmt.Errorf("request transcription: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return out, fmt.Errorf("transcription failed: status=%d body=%s", resp.StatusCode, string(payload))
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("read transcription response: %w", err)
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, fmt.Errorf("decode transcription response: %w", err)
	}
	return out, nil
}
