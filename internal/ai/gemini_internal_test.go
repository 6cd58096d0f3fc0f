package ai

import (
	"github.com/myrjola/kastor/internal/episode"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
	"testing"
)

func Test_geminiContents(t *testing.T) {
	contents := geminiContents([]episode.Turn{
		{Role: episode.SpeakerAssistant, Content: "What should I call you?"},
		{Role: episode.SpeakerUser, Content: "Jimin"},
	})
	require.Len(t, contents, 2)
	require.Equal(t, genai.RoleModel, contents[0].Role)
	require.Equal(t, genai.RoleUser, contents[1].Role)
	require.Equal(t, "Jimin", contents[1].Parts[0].Text)
}
