package ai

import (
	"context"
	"github.com/myrjola/kastor/internal/episode"
	"github.com/myrjola/kastor/internal/errors"
	"google.golang.org/genai"
	"log/slog"
)

// Gemini completes chat turns with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini completer.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{ //nolint:exhaustruct // defaults are fine
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create genai client")
	}
	return &Gemini{client: client, model: model}, nil
}

// Complete implements [episode.Completer].
func (g *Gemini) Complete(ctx context.Context, instruction string, turns []episode.Turn) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, geminiContents(turns),
		&genai.GenerateContentConfig{ //nolint:exhaustruct // defaults are fine
			SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
			MaxOutputTokens:   MaxTokens,
		})
	if err != nil {
		return "", errors.Wrap(err, "generate content", slog.String("model", g.model))
	}
	return resp.Text(), nil
}

// geminiContents maps transcript turns to Gemini roles. Gemini calls the assistant "model".
func geminiContents(turns []episode.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := genai.Role(genai.RoleUser)
		if turn.Role == episode.SpeakerAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	return contents
}
