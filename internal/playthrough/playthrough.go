// Package playthrough serializes the actions of a play-through and keeps the live play-throughs in memory.
package playthrough

import (
	"context"
	"github.com/myrjola/kastor/internal/episode"
	"github.com/myrjola/kastor/internal/errors"
	"github.com/myrjola/kastor/internal/logging"
	"golang.org/x/sync/semaphore"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrBusy is returned when an action is dispatched while the previous one is still in flight.
	ErrBusy = errors.NewSentinel("play-through busy")
	// ErrNothingPending is returned by retry and skip when no chat turn has failed.
	ErrNothingPending = errors.NewSentinel("no failed chat turn")
)

// Snapshot is the persistable part of a play-through.
type Snapshot struct {
	State episode.SessionState
	// Pending is the text of the last chat turn the companion failed to answer.
	Pending string
}

// Playthrough is a single player's run through an episode. At most one action is in flight at a time.
type Playthrough struct {
	id     string
	engine *episode.Engine
	logger *slog.Logger
	flight *semaphore.Weighted
	clock  func() time.Time

	mu      sync.Mutex
	state   episode.SessionState
	pending string
	touched time.Time
}

func newPlaythrough(
	id string,
	engine *episode.Engine,
	snapshot Snapshot,
	clock func() time.Time,
	logger *slog.Logger,
) *Playthrough {
	return &Playthrough{
		id:      id,
		engine:  engine,
		logger:  logger,
		flight:  semaphore.NewWeighted(1),
		clock:   clock,
		mu:      sync.Mutex{},
		state:   snapshot.State,
		pending: snapshot.Pending,
		touched: clock(),
	}
}

func (p *Playthrough) ID() string {
	return p.id
}

// Dispatch applies action to the play-through.
//
// It fails fast with [ErrBusy] when another action is in flight. A failed chat turn is remembered so that it can be
// retried with [Playthrough.Retry] or skipped with [Playthrough.SkipPending].
func (p *Playthrough) Dispatch(ctx context.Context, action episode.Action) ([]episode.Message, error) {
	if !p.flight.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer p.flight.Release(1)
	return p.dispatch(ctx, action)
}

func (p *Playthrough) dispatch(ctx context.Context, action episode.Action) ([]episode.Message, error) {
	ctx = logging.WithAttrs(ctx, slog.String("playthrough_id", p.id))

	p.mu.Lock()
	current := p.state
	p.touched = p.clock()
	p.mu.Unlock()

	next, emitted, err := p.engine.Apply(ctx, current, action)
	if err != nil {
		if errors.Is(err, episode.ErrCompletionFailed) && action.Kind == episode.ActionSay {
			p.mu.Lock()
			p.pending = action.Text
			p.mu.Unlock()
			p.logger.LogAttrs(ctx, slog.LevelWarn, "companion failed to answer", errors.SlogError(err))
		}
		return nil, errors.Wrap(err, "apply action", slog.String("action_kind", string(action.Kind)))
	}

	p.mu.Lock()
	p.state = next
	if action.Kind != episode.ActionHint {
		p.pending = ""
	}
	p.mu.Unlock()
	return emitted, nil
}

// Retry resubmits the chat turn that previously failed.
func (p *Playthrough) Retry(ctx context.Context) ([]episode.Message, error) {
	if !p.flight.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer p.flight.Release(1)
	pending := p.Pending()
	if pending == "" {
		return nil, ErrNothingPending
	}
	return p.dispatch(ctx, episode.Say(pending))
}

// SkipPending gives up on the failed chat turn and lets the companion apologise instead.
func (p *Playthrough) SkipPending(ctx context.Context) ([]episode.Message, error) {
	if !p.flight.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer p.flight.Release(1)
	pending := p.Pending()
	if pending == "" {
		return nil, ErrNothingPending
	}
	return p.dispatch(ctx, episode.Skip(pending))
}

// Pending returns the text of the failed chat turn or an empty string.
func (p *Playthrough) Pending() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Snapshot returns a copy of the play-through for persisting.
func (p *Playthrough) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{State: p.state.Clone(), Pending: p.pending}
}

// View renders the current state.
func (p *Playthrough) View() episode.View {
	p.mu.Lock()
	state := p.state
	p.mu.Unlock()
	return p.engine.View(state)
}

// idleSince reports whether the play-through has been untouched since cutoff and no action is in flight.
func (p *Playthrough) idleSince(cutoff time.Time) bool {
	if !p.flight.TryAcquire(1) {
		return false
	}
	defer p.flight.Release(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.touched.Before(cutoff)
}
