package episode_test

import (
	"github.com/myrjola/kastor/internal/episode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const tinyScript = `
id: tiny
title: Tiny
initial: start
skip_apology: sorry
panels:
  - id: a
    title: A
  - id: b
    title: B
badges:
  - id: win
    title: Win
stages:
  - id: start
    title: Start
    free_chat: true
    panels: [a]
    actions:
      - id: go
        label: Go
        next: end
        score: 1
        badges: [win]
  - id: end
    title: End
    terminal: true
    panels: [a, b]
`

func TestLoadScript_Default(t *testing.T) {
	script, err := episode.LoadScript(episode.DefaultScript)
	require.NoError(t, err)

	assert.Equal(t, episode.StageID("intro"), script.InitialStage())
	assert.Equal(t, episode.StageID("conclusion"), script.TerminalStage())
	assert.Empty(t, script.VisiblePanels("intro"))
	assert.Empty(t, script.VisiblePanels("no-such-stage"))
	assert.Len(t, script.HintLadder("timeline"), 3)
	assert.Empty(t, script.HintLadder("intro"))
	assert.Equal(t, 0, script.Ordinal("intro"))
	assert.Equal(t, -1, script.Ordinal("no-such-stage"))

	conclusion, err := script.Stage("conclusion")
	require.NoError(t, err)
	assert.Equal(t, 100, conclusion.Progress)
	assert.Empty(t, conclusion.Actions)
	assert.Len(t, script.VisiblePanels("conclusion"), len(script.Panels()))

	_, err = script.Stage("no-such-stage")
	require.ErrorIs(t, err, episode.ErrUnknownStage)
}

func TestLoadScript_Unknown(t *testing.T) {
	_, err := episode.LoadScript("no-such-episode")
	require.Error(t, err)
}

func TestLoadScriptFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "tiny.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(tinyScript), 0o600))
	script, err := episode.LoadScriptFile(filename)
	require.NoError(t, err)
	assert.Equal(t, "tiny", script.ID())
	assert.Equal(t, []episode.PanelID{"a"}, script.VisiblePanels("start"))

	script, err = episode.OpenScript(filename)
	require.NoError(t, err)
	assert.Equal(t, "tiny", script.ID())
	script, err = episode.OpenScript(episode.DefaultScript)
	require.NoError(t, err)
	assert.Equal(t, episode.DefaultScript, script.ID())
}

func TestParseScript_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr bool
	}{
		{
			name:    "valid",
			mutate:  func(s string) string { return s },
			wantErr: false,
		},
		{
			name: "name capture from free chat stage",
			mutate: func(s string) string {
				return strings.Replace(s, "stages:\n", `name_capture:
  next: end
  greeting: Hi {name}
  reprompt: Name?
  min_length: 1
stages:
`, 1)
			},
			wantErr: false,
		},
		{
			name:    "unknown field",
			mutate:  func(s string) string { return s + "unexpected: true\n" },
			wantErr: true,
		},
		{
			name:    "undefined initial stage",
			mutate:  func(s string) string { return strings.Replace(s, "initial: start", "initial: nowhere", 1) },
			wantErr: true,
		},
		{
			name:    "transition to undefined stage",
			mutate:  func(s string) string { return strings.Replace(s, "next: end", "next: nowhere", 1) },
			wantErr: true,
		},
		{
			name:    "negative score delta",
			mutate:  func(s string) string { return strings.Replace(s, "score: 1", "score: -1", 1) },
			wantErr: true,
		},
		{
			name:    "undefined badge",
			mutate:  func(s string) string { return strings.Replace(s, "badges: [win]", "badges: [lose]", 1) },
			wantErr: true,
		},
		{
			name:    "undefined panel",
			mutate:  func(s string) string { return strings.Replace(s, "panels: [a, b]", "panels: [a, c]", 1) },
			wantErr: true,
		},
		{
			name:    "panel hidden by forward transition",
			mutate:  func(s string) string { return strings.Replace(s, "panels: [a, b]", "panels: [b]", 1) },
			wantErr: true,
		},
		{
			name:    "no terminal stage",
			mutate:  func(s string) string { return strings.Replace(s, "terminal: true", "terminal: false", 1) },
			wantErr: true,
		},
		{
			name: "terminal stage with actions",
			mutate: func(s string) string {
				return s + `    actions:
      - id: again
        label: Again
        next: start
`
			},
			wantErr: true,
		},
		{
			name: "unreachable and dead end stage",
			mutate: func(s string) string {
				return s + `  - id: island
    title: Island
`
			},
			wantErr: true,
		},
		{
			name:    "progress out of range",
			mutate:  func(s string) string { return strings.Replace(s, "title: End", "title: End\n    progress: 120", 1) },
			wantErr: true,
		},
		{
			name: "name capture without free chat",
			mutate: func(s string) string {
				s = strings.Replace(s, "    free_chat: true\n", "", 1)
				s = strings.Replace(s, "stages:\n", `name_capture:
  next: named
  greeting: Hi {name}
  reprompt: Name?
  min_length: 1
stages:
`, 1)
				return s + `  - id: named
    title: Named
    panels: [a, b]
    actions:
      - id: finish
        label: Finish
        next: end
`
			},
			wantErr: true,
		},
		{
			name: "unknown on enter speaker",
			mutate: func(s string) string {
				return strings.Replace(s, "    panels: [a]\n", `    panels: [a]
    on_enter:
      - speaker: narrator
        text: Once upon a time
`, 1)
			},
			wantErr: true,
		},
		{
			name: "resolution without result",
			mutate: func(s string) string {
				return strings.Replace(s, "        score: 1\n", `        score: 1
        resolve:
          verified: true
`, 1)
			},
			wantErr: true,
		},
		{
			name:    "reserved action id",
			mutate:  func(s string) string { return strings.Replace(s, "      - id: go\n", "      - id: hint\n", 1) },
			wantErr: true,
		},
		{
			name:    "free chat without apology",
			mutate:  func(s string) string { return strings.Replace(s, "skip_apology: sorry", "", 1) },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script, err := episode.ParseScript([]byte(tt.mutate(tinyScript)))
			if tt.wantErr {
				require.ErrorIs(t, err, episode.ErrInvalidScript)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, script)
		})
	}
}

func TestScript_PanelsNeverShrink(t *testing.T) {
	script, err := episode.LoadScript(episode.DefaultScript)
	require.NoError(t, err)
	for _, stage := range script.Stages() {
		for _, rule := range stage.Actions {
			if rule.Next == stage.ID {
				continue
			}
			next := script.VisiblePanels(rule.Next)
			for _, panel := range script.VisiblePanels(stage.ID) {
				assert.Contains(t, next, panel, "%s -> %s hides %s", stage.ID, rule.Next, panel)
			}
		}
	}
}
