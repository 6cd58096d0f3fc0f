package playthrough

import (
	"context"
	"github.com/google/uuid"
	"github.com/myrjola/kastor/internal/episode"
	"github.com/myrjola/kastor/internal/errors"
	"log/slog"
	"sync"
	"time"
)

var ErrNotFound = errors.NewSentinel("play-through not found")

// Registry holds the live play-throughs by id and evicts the idle ones.
type Registry struct {
	engine *episode.Engine
	idle   time.Duration
	logger *slog.Logger
	clock  func() time.Time

	mu      sync.Mutex
	entries map[string]*Playthrough
}

// NewRegistry creates a registry evicting play-throughs that have been idle longer than idle.
func NewRegistry(engine *episode.Engine, idle time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		engine:  engine,
		idle:    idle,
		logger:  logger.With("source", "playthrough.Registry"),
		clock:   time.Now,
		mu:      sync.Mutex{},
		entries: make(map[string]*Playthrough),
	}
}

func (r *Registry) Engine() *episode.Engine {
	return r.engine
}

// Create starts a fresh play-through with a random id.
func (r *Registry) Create() *Playthrough {
	return r.Open(uuid.NewString(), Snapshot{State: r.engine.NewSession(), Pending: ""})
}

// Open returns the play-through with id, restoring it from snapshot if it is not live.
func (r *Registry) Open(id string, snapshot Snapshot) *Playthrough {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.entries[id]; ok {
		return p
	}
	p := newPlaythrough(id, r.engine, snapshot, r.clock, r.logger)
	r.entries[id] = p
	return p
}

func (r *Registry) Get(id string) (*Playthrough, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[id]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, "get play-through", slog.String("playthrough_id", id))
	}
	return p, nil
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// EvictIdle removes the play-throughs idle for longer than the configured duration and returns how many it removed.
func (r *Registry) EvictIdle(ctx context.Context) int {
	cutoff := r.clock().Add(-r.idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, p := range r.entries {
		if p.idleSince(cutoff) {
			delete(r.entries, id)
			evicted++
		}
	}
	if evicted > 0 {
		r.logger.LogAttrs(ctx, slog.LevelInfo, "evicted idle play-throughs",
			slog.Int("evicted", evicted), slog.Int("live", len(r.entries)))
	}
	return evicted
}

// RunJanitor evicts idle play-throughs every interval until ctx is cancelled.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.EvictIdle(ctx)
		}
	}
}
