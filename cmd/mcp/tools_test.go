package main

import (
	"context"
	"encoding/json"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/myrjola/kastor/internal/episode"
	"github.com/myrjola/kastor/internal/repositories"
	"github.com/myrjola/kastor/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func testLookupEnv(key string) (string, bool) {
	switch key {
	case "KASTOR_SQLITE_URL":
		return ":memory:", true
	case "KASTOR_AI_PROVIDER":
		return "offline", true
	default:
		return "", false
	}
}

func connectInMemory(t *testing.T) (context.Context, *mcp.ClientSession) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, testhelpers.NewLogger(io.Discard), testLookupEnv, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil) //nolint:exhaustruct // name and version are enough
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		<-done
	})
	return ctx, session
}

// callTool calls the tool and decodes its text result into out. It returns whether the call was a tool error.
func callTool(ctx context.Context, t *testing.T, session *mcp.ClientSession, name string, args map[string]any, out any) bool {
	t.Helper()
	res, err := session.CallTool(ctx, &mcp.CallToolParams{ //nolint:exhaustruct // name and arguments are enough
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err, "call %s", name)
	if res.IsError {
		return true
	}
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "text content")
	require.NoError(t, json.Unmarshal([]byte(text.Text), out))
	return false
}

func TestServer_tools(t *testing.T) {
	ctx, session := connectInMemory(t)

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"start_episode", "view", "choose", "say", "hint", "retry", "skip", "restart", "evidence",
	}, names)
}

func TestServer_playthrough(t *testing.T) {
	ctx, session := connectInMemory(t)

	var out actionOutput
	require.False(t, callTool(ctx, t, session, "start_episode", map[string]any{}, &out))
	id := out.PlaythroughID
	require.NotEmpty(t, id)
	assert.Equal(t, episode.StageID("intro"), out.View.Stage)

	out = actionOutput{}
	require.False(t, callTool(ctx, t, session, "say", map[string]any{"playthrough_id": id, "message": "Jimin"}, &out))
	assert.Equal(t, episode.StageID("briefing"), out.View.Stage)
	assert.Equal(t, "Jimin", out.View.UserName)
	require.NotEmpty(t, out.Emitted)
	assert.Equal(t, episode.Message{Speaker: episode.SpeakerUser, Text: "Jimin"}, out.Emitted[0])

	out = actionOutput{}
	require.False(t, callTool(ctx, t, session, "choose",
		map[string]any{"playthrough_id": id, "choice": "start_exploring"}, &out))
	assert.Equal(t, 10, out.View.Score)

	var evidence evidenceOutput
	require.False(t, callTool(ctx, t, session, "evidence", map[string]any{"playthrough_id": id}, &evidence))
	require.Len(t, evidence.Panels, 1)
	assert.Equal(t, "Character stats", evidence.Panels[0].Title)
	assert.Equal(t, "Shadow", evidence.Panels[0].Rows[0][0])

	t.Run("failed chat turn is pending until skipped", func(t *testing.T) {
		out = actionOutput{}
		require.False(t, callTool(ctx, t, session, "say", map[string]any{"playthrough_id": id, "message": "hello?"}, &out))
		assert.NotEmpty(t, out.Notice)
		assert.Equal(t, "hello?", out.Pending)
		assert.Empty(t, out.Emitted)

		out = actionOutput{}
		require.False(t, callTool(ctx, t, session, "skip", map[string]any{"playthrough_id": id}, &out))
		assert.Empty(t, out.Pending)
		assert.Contains(t, out.Emitted[len(out.Emitted)-1].Text, "Sorry Jimin")
	})

	t.Run("rejected actions are tool errors", func(t *testing.T) {
		assert.True(t, callTool(ctx, t, session, "choose",
			map[string]any{"playthrough_id": id, "choice": "confirm_tampering"}, &out))
		assert.True(t, callTool(ctx, t, session, "retry", map[string]any{"playthrough_id": id}, &out))
		assert.True(t, callTool(ctx, t, session, "view", map[string]any{"playthrough_id": "missing"}, &out))
	})

	t.Run("restart", func(t *testing.T) {
		out = actionOutput{}
		require.False(t, callTool(ctx, t, session, "restart", map[string]any{"playthrough_id": id}, &out))
		assert.Equal(t, episode.StageID("intro"), out.View.Stage)
		assert.Zero(t, out.View.Score)
	})
}

func Test_run_unbackedPanel(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "unbacked.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(`id: unbacked
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
	lookupEnv := func(key string) (string, bool) {
		if key == "KASTOR_SCRIPT" {
			return filename, true
		}
		return testLookupEnv(key)
	}

	serverTransport, _ := mcp.NewInMemoryTransports()
	err := run(context.Background(), testhelpers.NewLogger(io.Discard), lookupEnv, serverTransport)
	require.ErrorIs(t, err, repositories.ErrUnknownPanel)
}
