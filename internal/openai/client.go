// Package openai wraps the OpenAI API for the two model calls the
// pipelines make: text embeddings and summary generation.
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the model used for document embeddings.
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the dimension ada-002 produces.
	DefaultEmbeddingDimensions = 1536
)

var (
	// ErrEmptyText is returned when the input text is empty.
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has an unexpected size.
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// EmbeddingAPI is the slice of the OpenAI surface the embedder needs.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Embedder turns document text into vectors for the vector-store fan-out.
type Embedder struct {
	api        EmbeddingAPI
	model      openai.EmbeddingModel
	dimensions int
}

type EmbedderConfig struct {
	APIKey     string
	Model      openai.EmbeddingModel
	Dimensions int
}

func NewEmbedder(cfg EmbedderConfig) *Embedder {
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Embedder{
		api:        openai.NewClient(cfg.APIKey),
		model:      model,
		dimensions: dimensions,
	}
}

// NewEmbedderWithAPI is used by tests to substitute the OpenAI client.
func NewEmbedderWithAPI(api EmbeddingAPI, dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Embedder{api: api, model: DefaultEmbeddingModel, dimensions: dimensions}
}

// GenerateEmbedding embeds one text and validates the returned dimension.
func (e *Embedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	resp, err := e.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	embedding := resp.Data[0].Embedding
	if len(embedding) != e.dimensions {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrWrongDimensions, len(embedding), e.dimensions)
	}
	return embedding, nil
}
