package llm

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"

	atlaserrors "github.com/inherent-design/atlas-sub010/internal/errors"
	"github.com/inherent-design/atlas-sub010/internal/retry"
)

// OpenAIBackend completes prompts via OpenAI's chat completion
// endpoint with JSON response-format enforcement, as a second,
// independently selectable JSON-LLM backend alongside Anthropic.
type OpenAIBackend struct {
	client *openai.Client
	model  string
	name   string
}

func NewOpenAIBackend(apiKey, model string) *OpenAIBackend {
	return &OpenAIBackend{
		client: openai.NewClient(apiKey),
		model:  model,
		name:   "openai:" + model,
	}
}

func (b *OpenAIBackend) Name() string { return b.name }

func (b *OpenAIBackend) Capabilities() []Capability {
	return []Capability{CapabilityJSONCompletion, CapabilityQNTMGeneration, CapabilityTextCompletion}
}

func (b *OpenAIBackend) CompleteJSON(ctx context.Context, prompt string) ([]byte, error) {
	var content string

	retryCfg := retry.NewConfigWithOptions(
		retry.WithMaxAttempts(3),
		retry.WithDelay(1*time.Second),
		retry.WithMaxDelay(8*time.Second),
		retry.WithMultiplier(2),
	)
	result := retry.New(retryCfg).Do(ctx, func(ctx context.Context) error {
		resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: b.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		})
		if err != nil {
			return atlaserrors.Transient(err)
		}
		if len(resp.Choices) == 0 {
			return atlaserrors.Validation("openai backend returned no choices")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if result.Err != nil {
		return nil, atlaserrors.Fatal(result.Err)
	}
	if content == "" {
		return nil, atlaserrors.Validation("openai backend returned empty completion")
	}
	return []byte(content), nil
}
