package repositories

import (
	"context"
	"database/sql"
	"github.com/jmoiron/sqlx"
	"github.com/myrjola/kastor/internal/errors"
	"github.com/myrjola/kastor/internal/models"
	"github.com/myrjola/kastor/internal/sqlite"
	"log/slog"
)

// PlaythroughRepository stores finished play-throughs for the leaderboard.
type PlaythroughRepository struct {
	dbs    *sqlite.Database
	reader *sqlx.DB
	logger *slog.Logger
}

func NewPlaythroughRepository(database *sqlite.Database, logger *slog.Logger) *PlaythroughRepository {
	return &PlaythroughRepository{
		dbs:    database,
		reader: sqlx.NewDb(database.ReadOnly, "sqlite3"),
		logger: logger.With("source", "PlaythroughRepository"),
	}
}

// Record stores a finished play-through. Recording the same id again is a no-op.
func (r *PlaythroughRepository) Record(ctx context.Context, result models.PlaythroughResult) error {
	stmt := `INSERT INTO playthroughs (id, script_id, player_name, score, badges)
VALUES (@id, @script_id, @player_name, @score, @badges)
ON CONFLICT (id) DO NOTHING`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt,
		sql.Named("id", result.ID),
		sql.Named("script_id", result.ScriptID),
		sql.Named("player_name", result.PlayerName),
		sql.Named("score", result.Score),
		sql.Named("badges", result.Badges),
	); err != nil {
		return errors.Wrap(err, "insert playthrough", slog.String("playthrough_id", result.ID))
	}
	return nil
}

// TopScores lists the best finished play-throughs of the script, highest score first.
func (r *PlaythroughRepository) TopScores(ctx context.Context, scriptID string, limit int) (
	[]models.PlaythroughResult,
	error,
) {
	var results []models.PlaythroughResult
	if err := r.reader.SelectContext(ctx, &results, `SELECT id, script_id, player_name, score, badges, finished_at
FROM playthroughs
WHERE script_id = ?
ORDER BY score DESC, finished_at
LIMIT ?`, scriptID, limit); err != nil {
		return nil, errors.Wrap(err, "select top scores", slog.String("script_id", scriptID))
	}
	return results, nil
}
