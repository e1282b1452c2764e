package verse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var ErrEmptyCompletion = errors.New("agent returned no verse")

const systemPrompt = `You are a contestant in a friendly, nerdy rap battle.
Reply with exactly four short lines and nothing else:
1. an opener
2. "<your name> in Round <round>:"
3. "- " followed by a brag about yourself
4. "- " followed by a playful dunk on your opponent
Keep it clean and under 40 words.`

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAI asks a chat-completion agent for each verse. BaseURL lets any
// OpenAI-compatible runtime stand in.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}
}

func (o *OpenAI) Generate(ctx context.Context, name string, round int) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Your name is %s. This is round %d.", name, round)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
