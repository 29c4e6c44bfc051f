package llm

import (
	"context"
	"regexp"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	atlaserrors "github.com/inherent-design/atlas-sub010/internal/errors"
	"github.com/inherent-design/atlas-sub010/internal/retry"
)

// AnthropicBackend completes prompts via the Anthropic Messages API,
// instructing the model to answer with JSON only and stripping any
// markdown code fence the model wraps its answer in.
type AnthropicBackend struct {
	client    anthropic.Client
	model     anthropic.Model
	name      string
	maxTokens int64
}

func NewAnthropicBackend(apiKey, model string) *AnthropicBackend {
	return &AnthropicBackend{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		name:      "anthropic:" + model,
		maxTokens: 2048,
	}
}

func (b *AnthropicBackend) Name() string { return b.name }

func (b *AnthropicBackend) Capabilities() []Capability {
	return []Capability{CapabilityJSONCompletion, CapabilityQNTMGeneration, CapabilityTextCompletion}
}

var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

func (b *AnthropicBackend) CompleteJSON(ctx context.Context, prompt string) ([]byte, error) {
	var text string

	retryCfg := retry.NewConfigWithOptions(
		retry.WithMaxAttempts(3),
		retry.WithDelay(1*time.Second),
		retry.WithMaxDelay(8*time.Second),
		retry.WithMultiplier(2),
	)
	result := retry.New(retryCfg).Do(ctx, func(ctx context.Context) error {
		resp, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     b.model,
			MaxTokens: b.maxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt + "\n\nRespond with JSON only, no prose.")),
			},
		})
		if err != nil {
			return atlaserrors.Transient(err)
		}
		for _, block := range resp.Content {
			if block.Type == "text" {
				text += block.Text
			}
		}
		return nil
	})
	if result.Err != nil {
		return nil, atlaserrors.Fatal(result.Err)
	}

	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if text == "" {
		return nil, atlaserrors.Validation("anthropic backend returned empty completion")
	}
	return []byte(text), nil
}
