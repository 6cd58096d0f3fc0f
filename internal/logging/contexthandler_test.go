package logging_test

import (
	"bytes"
	"context"
	"github.com/myrjola/kastor/internal/logging"
	"github.com/stretchr/testify/assert"
	"log/slog"
	"testing"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(&buf, nil)))

	ctx := logging.WithAttrs(context.Background(), slog.String("playthrough_id", "p1"))
	ctx = logging.WithAttrs(ctx, slog.String("stage", "intro"))
	logger.LogAttrs(ctx, slog.LevelInfo, "applied action")

	assert.Contains(t, buf.String(), "playthrough_id=p1")
	assert.Contains(t, buf.String(), "stage=intro")

	buf.Reset()
	logger.LogAttrs(context.Background(), slog.LevelInfo, "no attrs")
	assert.NotContains(t, buf.String(), "playthrough_id")
}
