package embeddings

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"

	atlaserrors "github.com/inherent-design/atlas-sub010/internal/errors"
	"github.com/inherent-design/atlas-sub010/internal/retry"
)

// OpenAIBackend embeds text via the OpenAI embeddings endpoint. It
// serves both text-embedding and code-embedding capabilities, since
// OpenAI's embedding models are used the same way for either input.
type OpenAIBackend struct {
	client *openai.Client
	model  openai.EmbeddingModel
	name   string
	dims   int
}

// NewOpenAIBackend constructs a backend around model (e.g.
// "text-embedding-3-small"), with dims the model's declared output
// dimensionality used to validate responses.
func NewOpenAIBackend(apiKey, model string, dims int) *OpenAIBackend {
	return &OpenAIBackend{
		client: openai.NewClient(apiKey),
		model:  openai.EmbeddingModel(model),
		name:   "openai:" + model,
		dims:   dims,
	}
}

func (b *OpenAIBackend) Name() string { return b.name }

func (b *OpenAIBackend) Capabilities() []Capability {
	return []Capability{CapabilityTextEmbedding, CapabilityCodeEmbedding}
}

func (b *OpenAIBackend) EmbedText(ctx context.Context, inputs []string) (*Result, error) {
	if len(inputs) == 0 {
		return &Result{Model: b.name, Dimensions: b.dims}, nil
	}

	var resp openai.EmbeddingResponse
	retryCfg := retry.NewConfigWithOptions(
		retry.WithMaxAttempts(3),
		retry.WithDelay(1*time.Second),
		retry.WithMaxDelay(8*time.Second),
		retry.WithMultiplier(2),
	)
	result := retry.New(retryCfg).Do(ctx, func(ctx context.Context) error {
		r, err := b.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: inputs,
			Model: b.model,
		})
		if err != nil {
			return atlaserrors.Transient(err)
		}
		resp = r
		return nil
	})
	if result.Err != nil {
		return nil, atlaserrors.Fatal(result.Err)
	}

	if len(resp.Data) != len(inputs) {
		return nil, atlaserrors.Validation("embedding backend returned %d vectors for %d inputs", len(resp.Data), len(inputs))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if b.dims != 0 && len(d.Embedding) != b.dims {
			return nil, atlaserrors.Validation("embedding dimension mismatch: got %d, want %d", len(d.Embedding), b.dims)
		}
		vectors[d.Index] = d.Embedding
	}

	return &Result{
		Embeddings: vectors,
		Model:      string(b.model),
		Dimensions: b.dims,
		Usage: &Usage{
			PromptTokens: resp.Usage.PromptTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}
