// Command mcp exposes episode play-throughs as MCP tools over stdio so that agents can play and test episodes.
package main

import (
	"context"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/myrjola/kastor/internal/ai"
	"github.com/myrjola/kastor/internal/config"
	"github.com/myrjola/kastor/internal/episode"
	"github.com/myrjola/kastor/internal/errors"
	"github.com/myrjola/kastor/internal/logging"
	"github.com/myrjola/kastor/internal/playthrough"
	"github.com/myrjola/kastor/internal/repositories"
	"github.com/myrjola/kastor/internal/sqlite"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"time"
)

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool), transport mcp.Transport) error {
	cfg, err := config.Load(lookupEnv)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	var script *episode.Script
	if script, err = episode.OpenScript(cfg.Script); err != nil {
		return errors.Wrap(err, "open script", slog.String("script", cfg.Script))
	}
	if err = repositories.CheckPanels(script); err != nil {
		return errors.Wrap(err, "check evidence panels", slog.String("script", cfg.Script))
	}

	var completer episode.Completer
	if completer, err = ai.NewCompleter(ctx, cfg.AI(), logger); err != nil {
		return errors.Wrap(err, "new completer")
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "connect to database", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close database", errors.SlogError(closeErr))
		}
	}()

	engine := episode.NewEngine(script, completer, cfg.CompletionTimeout, logger)
	registry := playthrough.NewRegistry(engine, cfg.PlaythroughIdle, logger)
	go registry.RunJanitor(ctx, time.Minute)

	srv := newServer(registry, repositories.NewEvidenceRepository(db, logger), logger)
	logger.LogAttrs(ctx, slog.LevelInfo, "serving MCP", slog.String("script", script.ID()))
	if err = srv.Run(ctx, transport); err != nil {
		return errors.Wrap(err, "run MCP server")
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Stdout carries the protocol so logs go to stderr.
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelInfo,
		ReplaceAttr: nil,
	})))

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelError, "failed to load .env", errors.SlogError(err))
		os.Exit(1) //nolint:gocritic // nothing to clean up yet
	}

	if err := run(ctx, logger, os.LookupEnv, &mcp.StdioTransport{}); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure running MCP server", errors.SlogError(err))
		stop()
		os.Exit(1)
	}
}
