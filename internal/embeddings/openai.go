package embeddings

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Supported OpenAI embedding models.
const (
	ModelTextEmbedding3Small = "text-embedding-3-small"
	ModelTextEmbedding3Large = "text-embedding-3-large"
)

// embedBatchSize caps how many inputs go into a single embeddings request.
const embedBatchSize = 100

var openAIModelDims = map[string]int{
	ModelTextEmbedding3Small: 1536,
	ModelTextEmbedding3Large: 3072,
}

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API,
// batching large inputs into multiple requests.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dims   int
}

// NewOpenAIEmbedder creates an embedder for the given model. Unknown model
// names fall back to the small model's dimensionality.
func NewOpenAIEmbedder(apiKey, model string) *OpenAIEmbedder {
	dims, ok := openAIModelDims[model]
	if !ok {
		dims = openAIModelDims[ModelTextEmbedding3Small]
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  model,
		dims:   dims,
	}
}

func (e *OpenAIEmbedder) Name() string    { return e.model }
func (e *OpenAIEmbedder) Dimensions() int { return e.dims }

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts[start:end],
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return nil, fmt.Errorf("openai embeddings: %w", err)
		}
		if got, want := len(resp.Data), end-start; got != want {
			return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", got, want)
		}

		for _, d := range resp.Data {
			out = append(out, d.Embedding)
		}
	}
	return out, nil
}
