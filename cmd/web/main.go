package main

import (
	"context"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/donseba/go-htmx"
	"github.com/joho/godotenv"
	"github.com/myrjola/kastor/internal/ai"
	"github.com/myrjola/kastor/internal/config"
	"github.com/myrjola/kastor/internal/episode"
	"github.com/myrjola/kastor/internal/errors"
	"github.com/myrjola/kastor/internal/logging"
	"github.com/myrjola/kastor/internal/playthrough"
	"github.com/myrjola/kastor/internal/pprofserver"
	"github.com/myrjola/kastor/internal/repositories"
	"github.com/myrjola/kastor/internal/sqlite"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"time"
)

type application struct {
	logger         *slog.Logger
	sessionManager *scs.SessionManager
	htmx           *htmx.HTMX
	templates      map[string]*template.Template
	registry       *playthrough.Registry
	evidence       *repositories.EvidenceRepository
	playthroughs   *repositories.PlaythroughRepository
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	cfg, err := config.Load(lookupEnv)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	if cfg.PprofAddr != "" {
		// Listen on loopback so that it's not open to the world.
		pprofserver.Launch(ctx, cfg.PprofAddr, logger)
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

	sessionStore := sqlite3store.NewWithCleanupInterval(db.ReadWrite, 24*time.Hour) //nolint:mnd // once a day
	defer sessionStore.StopCleanup()
	sessionManager := scs.New()
	sessionManager.Store = sessionStore
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Cookie.Secure = true

	var templates map[string]*template.Template
	if templates, err = parseTemplates(); err != nil {
		return errors.Wrap(err, "parse templates")
	}

	engine := episode.NewEngine(script, completer, cfg.CompletionTimeout, logger)
	registry := playthrough.NewRegistry(engine, cfg.PlaythroughIdle, logger)
	go registry.RunJanitor(ctx, time.Minute)

	app := application{
		logger:         logger,
		sessionManager: sessionManager,
		htmx:           htmx.New(),
		templates:      templates,
		registry:       registry,
		evidence:       repositories.NewEvidenceRepository(db, logger),
		playthroughs:   repositories.NewPlaythroughRepository(db, logger),
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "episode loaded",
		slog.String("script", script.ID()), slog.Int("stages", len(script.Stages())))

	if err = app.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   true,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)

	// The .env file is optional, real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.LogAttrs(ctx, slog.LevelError, "failed to load .env", errors.SlogError(err))
		os.Exit(1)
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
