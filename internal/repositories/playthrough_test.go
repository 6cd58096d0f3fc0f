package repositories_test

import (
	"context"
	"github.com/myrjola/kastor/internal/models"
	"github.com/myrjola/kastor/internal/repositories"
	"github.com/myrjola/kastor/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
)

func TestPlaythroughRepository(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewPlaythroughRepository(newTestDB(t), testhelpers.NewLogger(io.Discard))

	results := []models.PlaythroughResult{
		{ID: "a", ScriptID: "shadow-anomaly", PlayerName: "Jimin", Score: 95, Badges: 5, FinishedAt: ""},
		{ID: "b", ScriptID: "shadow-anomaly", PlayerName: "Sora", Score: 60, Badges: 3, FinishedAt: ""},
		{ID: "c", ScriptID: "other", PlayerName: "Jun", Score: 100, Badges: 1, FinishedAt: ""},
	}
	for _, result := range results {
		require.NoError(t, repo.Record(ctx, result))
	}
	// Recording twice keeps the first result.
	require.NoError(t, repo.Record(ctx, models.PlaythroughResult{
		ID: "a", ScriptID: "shadow-anomaly", PlayerName: "Jimin", Score: 0, Badges: 0, FinishedAt: "",
	}))

	top, err := repo.TopScores(ctx, "shadow-anomaly", 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "Jimin", top[0].PlayerName)
	require.Equal(t, 95, top[0].Score)
	require.NotEmpty(t, top[0].FinishedAt)
	require.Equal(t, "Sora", top[1].PlayerName)

	top, err = repo.TopScores(ctx, "shadow-anomaly", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
}
