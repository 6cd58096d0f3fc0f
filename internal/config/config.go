// Package config holds the environment configuration shared by the kastor binaries.
package config

import (
	"github.com/myrjola/kastor/internal/ai"
	"github.com/myrjola/kastor/internal/envstruct"
	"github.com/myrjola/kastor/internal/errors"
	"time"
)

type Config struct {
	// Addr is the address the web server listens on.
	Addr string `env:"KASTOR_ADDR" envDefault:"localhost:4000"`
	// PprofAddr enables the pprof server on the given loopback address when non-empty.
	PprofAddr string `env:"KASTOR_PPROF_ADDR" envDefault:""`
	// SqliteURL is the path to the SQLite database file or ":memory:".
	SqliteURL string `env:"KASTOR_SQLITE_URL" envDefault:"./kastor.sqlite"`
	// Script names an embedded episode script or a path to a YAML file.
	Script string `env:"KASTOR_SCRIPT" envDefault:"shadow-anomaly"`

	AIProvider    string `env:"KASTOR_AI_PROVIDER" envDefault:"offline"`
	OpenAIKey     string `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIModel   string `env:"KASTOR_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL string `env:"KASTOR_OPENAI_BASE_URL" envDefault:""`
	GeminiKey     string `env:"GEMINI_API_KEY" envDefault:""`
	GeminiModel   string `env:"KASTOR_GEMINI_MODEL" envDefault:"gemini-2.0-flash"`

	// CompletionTimeout bounds a single companion reply.
	CompletionTimeout time.Duration `env:"KASTOR_COMPLETION_TIMEOUT" envDefault:"20s"`
	SessionLifetime   time.Duration `env:"KASTOR_SESSION_LIFETIME" envDefault:"12h"`
	// PlaythroughIdle evicts play-throughs that have not been touched for this long.
	PlaythroughIdle time.Duration `env:"KASTOR_PLAYTHROUGH_IDLE" envDefault:"1h"`
}

// Load reads the configuration with lookupEnv, which has the same signature as [os.LookupEnv].
func Load(lookupEnv func(string) (string, bool)) (Config, error) {
	var cfg Config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return Config{}, errors.Wrap(err, "populate config")
	}
	return cfg, nil
}

// AI returns the chat provider configuration.
func (c Config) AI() ai.Config {
	return ai.Config{
		Provider:      c.AIProvider,
		OpenAIKey:     c.OpenAIKey,
		OpenAIModel:   c.OpenAIModel,
		OpenAIBaseURL: c.OpenAIBaseURL,
		GeminiKey:     c.GeminiKey,
		GeminiModel:   c.GeminiModel,
	}
}
