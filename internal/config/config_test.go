package config_test

import (
	"github.com/myrjola/kastor/internal/config"
	"github.com/myrjola/kastor/internal/envstruct"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func lookupEnvFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := config.Load(lookupEnvFrom(nil))
		require.NoError(t, err)
		assert.Equal(t, "localhost:4000", cfg.Addr)
		assert.Empty(t, cfg.PprofAddr)
		assert.Equal(t, "offline", cfg.AIProvider)
		assert.Equal(t, 20*time.Second, cfg.CompletionTimeout)
		assert.Equal(t, time.Hour, cfg.PlaythroughIdle)
	})

	t.Run("overrides", func(t *testing.T) {
		cfg, err := config.Load(lookupEnvFrom(map[string]string{
			"KASTOR_ADDR":               "localhost:0",
			"KASTOR_AI_PROVIDER":        "openai",
			"OPENAI_API_KEY":            "secret",
			"KASTOR_COMPLETION_TIMEOUT": "2s",
		}))
		require.NoError(t, err)
		assert.Equal(t, "localhost:0", cfg.Addr)
		assert.Equal(t, 2*time.Second, cfg.CompletionTimeout)
		aiCfg := cfg.AI()
		assert.Equal(t, "openai", aiCfg.Provider)
		assert.Equal(t, "secret", aiCfg.OpenAIKey)
		assert.Equal(t, "gpt-4o-mini", aiCfg.OpenAIModel)
	})

	t.Run("malformed duration", func(t *testing.T) {
		_, err := config.Load(lookupEnvFrom(map[string]string{"KASTOR_PLAYTHROUGH_IDLE": "soon"}))
		require.ErrorIs(t, err, envstruct.ErrInvalidValue)
	})
}
