package ai

import (
	"context"
	"github.com/myrjola/kastor/internal/episode"
	"github.com/myrjola/kastor/internal/errors"
	"github.com/sashabaranov/go-openai"
	"log/slog"
)

// MaxTokens caps the length of a companion reply.
const MaxTokens = 512

// OpenAI completes chat turns with the OpenAI chat completions API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI completer. baseURL overrides the API endpoint when non-empty.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Complete implements [episode.Completer].
func (c *OpenAI) Complete(ctx context.Context, instruction string, turns []episode.Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	messages = append(messages, openai.ChatCompletionMessage{ //nolint:exhaustruct // this is better for readability
		Role:    openai.ChatMessageRoleSystem,
		Content: instruction,
	})
	for _, turn := range turns {
		role := openai.ChatMessageRoleUser
		if turn.Role == episode.SpeakerAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{ //nolint:exhaustruct // this is better for readability
			Role:    role,
			Content: turn.Content,
		})
	}

	completion, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:     c.model,
			MaxTokens: MaxTokens,
			Messages:  messages,
		},
	)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion", slog.String("model", c.model))
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("chat completion without choices", slog.String("model", c.model))
	}
	return completion.Choices[0].Message.Content, nil
}
