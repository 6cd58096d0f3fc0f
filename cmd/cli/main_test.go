package main

import (
	"bytes"
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLookupEnv(key string) (string, bool) {
	switch key {
	case "KASTOR_AI_PROVIDER":
		return "offline", true
	default:
		return "", false
	}
}

// execute runs the CLI with args and input and returns what it printed.
func execute(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(testLookupEnv)
	var out, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func Test_play(t *testing.T) {
	out, err := execute(t, "Jimin\n1\n/hint\nwhat am I looking at?\n/skip\n/quit\n", "play")
	require.NoError(t, err)

	assert.Contains(t, out, "Kastor: Hey there, rookie!")
	assert.Contains(t, out, "Nice to meet you, Jimin!")
	assert.Contains(t, out, "* 📊 Evidence unlocked: Character stats")
	assert.Contains(t, out, "[First look at the data · 20% · score 10 · hypotheses 0 · hints left 2]")
	assert.Contains(t, out, "💡 Compare Shadow's win rate")
	assert.Contains(t, out, "! Kastor didn't answer.")
	assert.Contains(t, out, `/retry or /skip "what am I looking at?"`)
	assert.Contains(t, out, "Sorry Jimin, my connection dropped")
	assert.Equal(t, 1, strings.Count(out, "Hey there, rookie!"), "transcript lines are printed once")
}

func Test_play_happyPath(t *testing.T) {
	out, err := execute(t, "Jimin\n1\n1\n1\n3\n3\n2\n", "play")
	require.NoError(t, err)
	assert.Contains(t, out, "Case closed with 95 points and 5 badges.")
}

func Test_play_rejected(t *testing.T) {
	out, err := execute(t, "9\n/dance\n/retry\n/quit\n", "play")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "! That's not possible right now."))
}

func Test_play_restart(t *testing.T) {
	out, err := execute(t, "Jimin\n1\n/restart\n/quit\n", "play")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "Hey there, rookie!"))
	assert.Contains(t, out, "[Briefing room · 0% · score 0 · hypotheses 0 · hints left 0]")
}

func Test_scriptValidate(t *testing.T) {
	broken := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("id: broken\ninitial: nowhere\n"), 0o600))
	unbacked := filepath.Join(t.TempDir(), "unbacked.yaml")
	require.NoError(t, os.WriteFile(unbacked, []byte(`id: unbacked
title: Unbacked
initial: start
panels:
  - id: diary
    title: Diary
stages:
  - id: start
    title: Start
    panels: [diary]
    actions:
      - id: go
        label: Go
        next: end
  - id: end
    title: End
    terminal: true
    panels: [diary]
`), 0o600))

	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr bool
	}{
		{
			name:    "configured script",
			args:    []string{"script", "validate"},
			want:    []string{"✓ shadow-anomaly: Episode 1: The Shadow Anomaly"},
			wantErr: false,
		},
		{
			name:    "broken file",
			args:    []string{"script", "validate", "shadow-anomaly", broken},
			want:    []string{"✓ shadow-anomaly", "✗ " + broken},
			wantErr: true,
		},
		{
			name:    "panel without evidence table",
			args:    []string{"script", "validate", unbacked},
			want:    []string{"✗ " + unbacked, "unknown evidence panel"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", tt.args...)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
		})
	}
}

func Test_scriptStages(t *testing.T) {
	out, err := execute(t, "", "script", "stages")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Greater(t, len(lines), 1)
	assert.True(t, strings.HasPrefix(lines[1], "intro"))
	assert.Contains(t, out, "confirm_tampering→conclusion")
}
