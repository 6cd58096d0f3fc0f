package ai

import (
	"context"
	"github.com/myrjola/kastor/internal/episode"
	"github.com/myrjola/kastor/internal/errors"
	"log/slog"
)

const (
	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"
	ProviderOffline = "offline"
)

var (
	// ErrProviderDisabled is returned by the offline completer for every request.
	ErrProviderDisabled = errors.NewSentinel("chat provider disabled")
	ErrUnknownProvider  = errors.NewSentinel("unknown chat provider")
)

// Config selects and configures a chat provider.
type Config struct {
	Provider      string
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
	GeminiKey     string
	GeminiModel   string
}

// Offline never answers. Players can still progress through the predefined choices and skip failed chat turns.
type Offline struct{}

// Complete implements [episode.Completer].
func (Offline) Complete(_ context.Context, _ string, _ []episode.Turn) (string, error) {
	return "", ErrProviderDisabled
}

// NewCompleter returns the completer configured by cfg.
func NewCompleter(ctx context.Context, cfg Config, logger *slog.Logger) (episode.Completer, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, errors.New("OpenAI API key missing")
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "using OpenAI", slog.String("model", cfg.OpenAIModel))
		return NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil
	case ProviderGemini:
		if cfg.GeminiKey == "" {
			return nil, errors.New("Gemini API key missing")
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "using Gemini", slog.String("model", cfg.GeminiModel))
		completer, err := NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, errors.Wrap(err, "new gemini")
		}
		return completer, nil
	case ProviderOffline:
		logger.LogAttrs(ctx, slog.LevelWarn, "chat provider disabled, free text will not be answered")
		return Offline{}, nil
	default:
		return nil, errors.Wrap(ErrUnknownProvider, "select provider", slog.String("provider", cfg.Provider))
	}
}
