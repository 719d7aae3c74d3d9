package ingest

import (
	"context"

	"github.com/deepscalers/student-assistant/internal/domain/knowledge"
	"github.com/deepscalers/student-assistant/internal/infra/llm/chatgpt"
)

// Upload is a document received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Extraction is the text pulled out of a document, page by page.
type Extraction struct {
	Pages []string
	Text  string
}

// Chunk is one generation-sized slice of extracted text.
type Chunk struct {
	Index      int
	Content    string
	TokenCount int
}

// Result summarizes one extract-and-ingest run.
type Result struct {
	Text     string             `json:"text"`
	Pages    int                `json:"pages"`
	Chunks   int                `json:"chunks"`
	Pairs    []knowledge.QAPair `json:"qa_pairs"`
	Ingested int                `json:"ingested"`
	Uploaded bool               `json:"uploaded"`
}

// Extractor pulls plain text from a raw document.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (Extraction, error)
}

// Chunker splits extracted text into generation-sized pieces.
type Chunker interface {
	Split(text string) []Chunk
}

// ObjectStorage archives the original uploads.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Ingestor feeds generated pairs into the knowledge base.
type Ingestor interface {
	IngestPairs(ctx context.Context, pairs []knowledge.QAPair) (int, error)
}

// ChatPool runs completions pinned to individual credentials.
type ChatPool interface {
	Size() int
	CreateChatCompletionOn(ctx context.Context, slot int, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}
