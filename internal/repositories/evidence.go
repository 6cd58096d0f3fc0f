package repositories

import (
	"context"
	"fmt"
	"github.com/jmoiron/sqlx"
	"github.com/myrjola/kastor/internal/episode"
	"github.com/myrjola/kastor/internal/errors"
	"github.com/myrjola/kastor/internal/models"
	"github.com/myrjola/kastor/internal/sqlite"
	"log/slog"
	"strconv"
)

var ErrUnknownPanel = errors.NewSentinel("unknown evidence panel")

// EvidenceRepository reads the tabular evidence shown in the episode panels.
type EvidenceRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewEvidenceRepository(database *sqlite.Database, logger *slog.Logger) *EvidenceRepository {
	return &EvidenceRepository{
		db:     sqlx.NewDb(database.ReadOnly, "sqlite3"),
		logger: logger.With("source", "EvidenceRepository"),
	}
}

type panelQuery func(r *EvidenceRepository, ctx context.Context) (models.Table, error)

func panelQueries() map[episode.PanelID]panelQuery {
	return map[episode.PanelID]panelQuery{
		"character_stats":   (*EvidenceRepository).characters,
		"win_rate_timeline": (*EvidenceRepository).hourlyWinRates,
		"patch_notes":       (*EvidenceRepository).patchNotes,
		"access_logs":       (*EvidenceRepository).accessLogs,
		"player_profile":    (*EvidenceRepository).playerProfiles,
		"match_sessions":    (*EvidenceRepository).matchSessions,
	}
}

// CheckPanels reports every panel declared by the script that has no backing table.
func CheckPanels(script *episode.Script) error {
	queries := panelQueries()
	var problems []error
	for _, panel := range script.Panels() {
		if _, ok := queries[panel.ID]; !ok {
			problems = append(problems, errors.Wrap(ErrUnknownPanel, "check panel", slog.String("panel", string(panel.ID))))
		}
	}
	return errors.Join(problems...)
}

// Panel returns the table backing the panel. The caller sets the title from the script.
func (r *EvidenceRepository) Panel(ctx context.Context, id episode.PanelID) (models.Table, error) {
	query, ok := panelQueries()[id]
	if !ok {
		return models.Table{}, errors.Wrap(ErrUnknownPanel, "lookup panel", slog.String("panel", string(id)))
	}
	table, err := query(r, ctx)
	if err != nil {
		return models.Table{}, errors.Wrap(err, "query panel", slog.String("panel", string(id)))
	}
	return table, nil
}

func (r *EvidenceRepository) characters(ctx context.Context) (models.Table, error) {
	var rows []models.Character
	if err := r.db.SelectContext(ctx, &rows, `SELECT name, role, win_rate, pick_rate, damage_multiplier
FROM characters
ORDER BY win_rate DESC`); err != nil {
		return models.Table{}, errors.Wrap(err, "select characters")
	}
	table := models.Table{
		Title:   "",
		Columns: []string{"Character", "Role", "Win rate", "Pick rate", "Skill damage"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, c := range rows {
		table.Rows = append(table.Rows, []string{
			c.Name, c.Role, percent(c.WinRate), percent(c.PickRate), fmt.Sprintf("×%.1f", c.DamageMultiplier),
		})
	}
	return table, nil
}

func (r *EvidenceRepository) hourlyWinRates(ctx context.Context) (models.Table, error) {
	var rows []models.HourlyWinRate
	if err := r.db.SelectContext(ctx, &rows, `SELECT character, hour, win_rate, matches
FROM win_rate_hourly
ORDER BY hour, character`); err != nil {
		return models.Table{}, errors.Wrap(err, "select hourly win rates")
	}
	table := models.Table{
		Title:   "",
		Columns: []string{"Hour", "Character", "Win rate", "Matches"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, w := range rows {
		table.Rows = append(table.Rows, []string{w.Hour, w.Character, percent(w.WinRate), strconv.Itoa(w.Matches)})
	}
	return table, nil
}

func (r *EvidenceRepository) patchNotes(ctx context.Context) (models.Table, error) {
	var rows []models.PatchNote
	if err := r.db.SelectContext(ctx, &rows, `SELECT version, released_at, summary
FROM patch_notes
ORDER BY released_at DESC`); err != nil {
		return models.Table{}, errors.Wrap(err, "select patch notes")
	}
	table := models.Table{
		Title:   "",
		Columns: []string{"Version", "Released", "Changes"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, p := range rows {
		table.Rows = append(table.Rows, []string{p.Version, p.ReleasedAt, p.Summary})
	}
	return table, nil
}

func (r *EvidenceRepository) accessLogs(ctx context.Context) (models.Table, error) {
	var rows []models.AccessLog
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, logged_at, account, ip, action, target, detail
FROM access_logs
ORDER BY logged_at`); err != nil {
		return models.Table{}, errors.Wrap(err, "select access logs")
	}
	table := models.Table{
		Title:   "",
		Columns: []string{"Time", "Account", "IP", "Action", "Target", "Detail"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, l := range rows {
		table.Rows = append(table.Rows, []string{l.LoggedAt, l.Account, l.IP, l.Action, l.Target, l.Detail})
	}
	return table, nil
}

func (r *EvidenceRepository) playerProfiles(ctx context.Context) (models.Table, error) {
	var rows []models.PlayerProfile
	if err := r.db.SelectContext(ctx, &rows, `SELECT account, created_at, device_id, team, main
FROM player_profiles
ORDER BY account`); err != nil {
		return models.Table{}, errors.Wrap(err, "select player profiles")
	}
	table := models.Table{
		Title:   "",
		Columns: []string{"Account", "Created", "Device ID", "Team", "Main"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, p := range rows {
		table.Rows = append(table.Rows, []string{p.Account, p.CreatedAt, p.DeviceID, p.Team, p.Main})
	}
	return table, nil
}

func (r *EvidenceRepository) matchSessions(ctx context.Context) (models.Table, error) {
	var rows []models.MatchSession
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, account, character, started_at, won
FROM match_sessions
ORDER BY started_at`); err != nil {
		return models.Table{}, errors.Wrap(err, "select match sessions")
	}
	table := models.Table{
		Title:   "",
		Columns: []string{"Match", "Account", "Character", "Started", "Result"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, m := range rows {
		result := "loss"
		if m.Won {
			result = "win"
		}
		table.Rows = append(table.Rows, []string{
			"#" + strconv.FormatInt(m.ID, 10), m.Account, m.Character, m.StartedAt, result,
		})
	}
	return table, nil
}

func percent(rate float64) string {
	return fmt.Sprintf("%.0f%%", rate*100) //nolint:mnd // percentage
}
