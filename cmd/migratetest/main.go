package main

import (
	"context"
	"fmt"
	"github.com/myrjola/kastor/internal/errors"
	"github.com/myrjola/kastor/internal/sqlite"
	"github.com/myrjola/kastor/internal/testhelpers"
	"log/slog"
	"os"
	"time"
)

// evidenceTables must all contain fixture rows after the migration.
var evidenceTables = []string{
	"characters",
	"win_rate_hourly",
	"patch_notes",
	"access_logs",
	"player_profiles",
	"match_sessions",
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("KASTOR_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "KASTOR_SQLITE_URL not set")
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	// Count the evidence rows as a simple smoke test.
	for _, table := range evidenceTables {
		var count int
		row := db.ReadOnly.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
		if err = row.Scan(&count); err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "error counting rows",
				slog.String("table", table), errors.SlogError(err))
			os.Exit(1)
		}
		if count == 0 {
			logger.LogAttrs(ctx, slog.LevelError, "no evidence found, something is likely wrong",
				slog.String("table", table))
			os.Exit(1)
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "evidence rows", slog.String("table", table), slog.Int("count", count))
	}

	var finished int
	if err = db.ReadOnly.QueryRowContext(ctx, "SELECT COUNT(*) FROM playthroughs").Scan(&finished); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error counting play-throughs", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "finished play-throughs", slog.Int("count", finished))

	if err = db.Close(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error closing database", errors.SlogError(err))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
	os.Exit(0)
}
