package openai

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbeddingAPI struct {
	embedding []float32
	err       error
	lastInput []string
}

func (s *stubEmbeddingAPI) CreateEmbeddings(_ context.Context, reqConv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	req := reqConv.Convert()
	s.lastInput = req.Input.([]string)
	if s.err != nil {
		return openai.EmbeddingResponse{}, s.err
	}
	return openai.EmbeddingResponse{
		Data: []openai.Embedding{{Embedding: s.embedding}},
	}, nil
}

func TestGenerateEmbedding(t *testing.T) {
	api := &stubEmbeddingAPI{embedding: make([]float32, 4)}
	embedder := NewEmbedderWithAPI(api, 4)

	embedding, err := embedder.GenerateEmbedding(context.Background(), "ransomware advisory")
	require.NoError(t, err)
	assert.Len(t, embedding, 4)
	assert.Equal(t, []string{"ransomware advisory"}, api.lastInput)
}

func TestGenerateEmbeddingEmptyText(t *testing.T) {
	embedder := NewEmbedderWithAPI(&stubEmbeddingAPI{}, 4)
	_, err := embedder.GenerateEmbedding(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestGenerateEmbeddingWrongDimensions(t *testing.T) {
	api := &stubEmbeddingAPI{embedding: make([]float32, 3)}
	embedder := NewEmbedderWithAPI(api, 4)
	_, err := embedder.GenerateEmbedding(context.Background(), "text")
	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestGenerateEmbeddingAPIError(t *testing.T) {
	api := &stubEmbeddingAPI{err: errors.New("rate limited")}
	embedder := NewEmbedderWithAPI(api, 4)
	_, err := embedder.GenerateEmbedding(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create embedding")
}
