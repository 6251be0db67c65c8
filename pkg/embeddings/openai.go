package embeddings

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

func init() {
	Register("openai", NewOpenAI)
}

// openAIModelDims maps known models to their native embedding width.
var openAIModelDims = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbeddings implements Service on the OpenAI embeddings API.
type OpenAIEmbeddings struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAI creates a new OpenAIEmbeddings instance.
func NewOpenAI(config Config) (Service, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai api_key is required")
	}
	model := config.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	dims, known := openAIModelDims[model]
	if config.Dimensions > 0 {
		dims = config.Dimensions
	} else if !known {
		dims = 1536
	}

	return &OpenAIEmbeddings{
		client:     openai.NewClient(config.APIKey),
		model:      model,
		dimensions: dims,
	}, nil
}

// Embed generates an embedding for a single text.
func (o *OpenAIEmbeddings) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (o *OpenAIEmbeddings) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}
	for i, t := range texts {
		if t == "" {
			return nil, fmt.Errorf("text at index %d is empty", i)
		}
	}

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(o.model),
	}
	resp, err := o.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("creating embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Dimensions returns the embedding width.
func (o *OpenAIEmbeddings) Dimensions() int {
	return o.dimensions
}

// ModelName returns the model in use.
func (o *OpenAIEmbeddings) ModelName() string {
	return o.model
}
