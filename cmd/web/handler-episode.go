package main

import (
	"context"
	"github.com/myrjola/kastor/internal/contexthelpers"
	"github.com/myrjola/kastor/internal/episode"
	"github.com/myrjola/kastor/internal/errors"
	"github.com/myrjola/kastor/internal/logging"
	"github.com/myrjola/kastor/internal/models"
	"github.com/myrjola/kastor/internal/playthrough"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"
)

const (
	leaderboardSize = 5
	// maxMessageLength bounds the free text sent to the companion, counted in characters like the form's maxlength.
	maxMessageLength = 500
)

// currentPlaythrough returns the play-through bound to the session, creating one on the first visit.
//
// The session carries a snapshot so that a play-through evicted from memory, or lost in a restart, resumes where it
// left off.
func (app *application) currentPlaythrough(ctx context.Context) *playthrough.Playthrough {
	id := app.sessionManager.GetString(ctx, string(playthroughIDSessionKey))
	snapshot, ok := app.sessionManager.Get(ctx, string(snapshotSessionKey)).(playthrough.Snapshot)
	if id == "" || !ok {
		p := app.registry.Create()
		app.sessionManager.Put(ctx, string(playthroughIDSessionKey), p.ID())
		app.sessionManager.Put(ctx, string(snapshotSessionKey), p.Snapshot())
		return p
	}
	return app.registry.Open(id, snapshot)
}

func (app *application) episode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := app.currentPlaythrough(ctx)
	ctx = logging.WithAttrs(ctx, slog.String("playthrough_id", p.ID()))

	data, err := app.episodeTemplateData(ctx, p)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "episode", data)
}

func (app *application) episodeTemplateData(ctx context.Context, p *playthrough.Playthrough) (episodeTemplateData, error) {
	view := p.View()
	data := episodeTemplateData{
		BaseTemplateData: BaseTemplateData{Title: view.EpisodeTitle},
		View:             view,
		Evidence:         make([]panelTemplateData, 0, len(view.Panels)),
		Pending:          p.Pending(),
		Flash:            app.sessionManager.PopString(ctx, string(flashSessionKey)),
		Leaderboard:      nil,
	}

	for _, panel := range view.Panels {
		table, err := app.evidence.Panel(ctx, panel.ID)
		if err != nil {
			return data, errors.Wrap(err, "load panel", slog.String("panel", string(panel.ID)))
		}
		data.Evidence = append(data.Evidence, panelTemplateData{
			ID:          panel.ID,
			Title:       panel.Title,
			Highlighted: panel.Highlighted,
			Table:       table,
		})
	}

	var err error
	scriptID := app.registry.Engine().Script().ID()
	if data.Leaderboard, err = app.playthroughs.TopScores(ctx, scriptID, leaderboardSize); err != nil {
		return data, errors.Wrap(err, "top scores")
	}
	return data, nil
}

// act runs do against the session's play-through and answers with the refreshed episode.
//
// Rejected actions and failed companion replies are shown as a flash message. Full page requests are redirected
// back to the episode while htmx requests get the re-rendered episode directly.
func (app *application) act(
	w http.ResponseWriter,
	r *http.Request,
	do func(ctx context.Context, p *playthrough.Playthrough) error,
) {
	ctx := r.Context()
	p := app.currentPlaythrough(ctx)
	ctx = logging.WithAttrs(ctx, slog.String("playthrough_id", p.ID()))

	err := do(ctx, p)
	app.sessionManager.Put(ctx, string(snapshotSessionKey), p.Snapshot())

	switch {
	case err == nil:
	case errors.Is(err, playthrough.ErrBusy):
		app.clientError(w, r, http.StatusConflict)
		return
	case errors.Is(err, episode.ErrCompletionFailed):
		app.sessionManager.Put(ctx, string(flashSessionKey),
			"Kastor didn't answer this time. Try again or skip ahead.")
	case errors.Is(err, episode.ErrNoMoreHints):
		app.sessionManager.Put(ctx, string(flashSessionKey), "No more hints for this step. You've got this!")
	case errors.Is(err, episode.ErrIllegalAction), errors.Is(err, playthrough.ErrNothingPending):
		app.logger.LogAttrs(ctx, slog.LevelDebug, "rejected action", errors.SlogError(err))
		app.sessionManager.Put(ctx, string(flashSessionKey), "That's not possible right now.")
	default:
		app.serverError(w, r, err)
		return
	}

	if err = app.recordFinished(ctx, p); err != nil {
		app.serverError(w, r, err)
		return
	}

	if !contexthelpers.IsHTMX(ctx) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	data, err := app.episodeTemplateData(ctx, p)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.render(w, r.WithContext(ctx), http.StatusOK, "episode", data)
}

// recordFinished puts a play-through that reached the terminal stage on the leaderboard once.
func (app *application) recordFinished(ctx context.Context, p *playthrough.Playthrough) error {
	view := p.View()
	if !view.Terminal || app.sessionManager.GetBool(ctx, string(recordedSessionKey)) {
		return nil
	}
	result := models.PlaythroughResult{
		ID:         p.ID(),
		ScriptID:   app.registry.Engine().Script().ID(),
		PlayerName: view.UserName,
		Score:      view.Score,
		Badges:     len(view.Badges),
		FinishedAt: "",
	}
	if err := app.playthroughs.Record(ctx, result); err != nil {
		return errors.Wrap(err, "record play-through")
	}
	app.sessionManager.Put(ctx, string(recordedSessionKey), true)
	app.logger.LogAttrs(ctx, slog.LevelInfo, "play-through finished",
		slog.Int("score", result.Score), slog.Int("badges", result.Badges))
	return nil
}

func (app *application) choose(w http.ResponseWriter, r *http.Request) {
	id := episode.ActionID(r.PostFormValue("action"))
	app.act(w, r, func(ctx context.Context, p *playthrough.Playthrough) error {
		_, err := p.Dispatch(ctx, episode.Choose(id))
		return err
	})
}

func (app *application) chat(w http.ResponseWriter, r *http.Request) {
	message := strings.TrimSpace(r.PostFormValue("message"))
	if message == "" || utf8.RuneCountInString(message) > maxMessageLength {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}
	app.act(w, r, func(ctx context.Context, p *playthrough.Playthrough) error {
		_, err := p.Dispatch(ctx, episode.Say(message))
		return err
	})
}

func (app *application) hint(w http.ResponseWriter, r *http.Request) {
	app.act(w, r, func(ctx context.Context, p *playthrough.Playthrough) error {
		_, err := p.Dispatch(ctx, episode.RequestHint())
		return err
	})
}

func (app *application) retry(w http.ResponseWriter, r *http.Request) {
	app.act(w, r, func(ctx context.Context, p *playthrough.Playthrough) error {
		_, err := p.Retry(ctx)
		return err
	})
}

func (app *application) skip(w http.ResponseWriter, r *http.Request) {
	app.act(w, r, func(ctx context.Context, p *playthrough.Playthrough) error {
		_, err := p.SkipPending(ctx)
		return err
	})
}

// restart abandons the current play-through and starts a new one, so that the new run can reach the leaderboard
// on its own.
func (app *application) restart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if id := app.sessionManager.GetString(ctx, string(playthroughIDSessionKey)); id != "" {
		app.registry.Remove(id)
	}
	app.sessionManager.Remove(ctx, string(snapshotSessionKey))
	app.sessionManager.Remove(ctx, string(recordedSessionKey))
	app.act(w, r, func(ctx context.Context, p *playthrough.Playthrough) error {
		_, err := p.Dispatch(ctx, episode.Restart())
		return err
	})
}
