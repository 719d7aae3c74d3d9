package pdfextract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRejectsGarbage(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), "notes.pdf", []byte("this is not a pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notes.pdf")
}

func TestExtractRejectsEmptyInput(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), "empty.pdf", nil)
	require.Error(t, err)
}

func TestExtractRejectsTruncatedHeader(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), "trunc.pdf", []byte("%PDF-1.7\n"))
	require.Error(t, err)
}
