package playthrough_test

import (
	"context"
	"github.com/myrjola/kastor/internal/episode"
	"github.com/myrjola/kastor/internal/errors"
	"github.com/myrjola/kastor/internal/playthrough"
	"github.com/myrjola/kastor/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"sync"
	"testing"
	"time"
)

// switchCompleter fails until it is switched on.
type switchCompleter struct {
	mu sync.Mutex
	on bool
}

func (c *switchCompleter) Complete(_ context.Context, _ string, turns []episode.Turn) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.on {
		return "", errors.New("provider unavailable")
	}
	return "You said: " + turns[len(turns)-1].Content, nil
}

func (c *switchCompleter) set(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.on = on
}

// blockingCompleter blocks until released.
type blockingCompleter struct {
	started chan struct{}
	release chan struct{}
}

func (c *blockingCompleter) Complete(ctx context.Context, _ string, _ []episode.Turn) (string, error) {
	close(c.started)
	select {
	case <-c.release:
		return "finally", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func newRegistry(t *testing.T, completer episode.Completer) *playthrough.Registry {
	t.Helper()
	script, err := episode.LoadScript(episode.DefaultScript)
	require.NoError(t, err)
	logger := testhelpers.NewLogger(io.Discard)
	engine := episode.NewEngine(script, completer, time.Second, logger)
	return playthrough.NewRegistry(engine, time.Hour, logger)
}

// briefed returns a play-through past the name capture where free text reaches the companion.
func briefed(t *testing.T, registry *playthrough.Registry) *playthrough.Playthrough {
	t.Helper()
	p := registry.Create()
	_, err := p.Dispatch(context.Background(), episode.Say("Jimin"))
	require.NoError(t, err)
	require.Equal(t, episode.StageID("briefing"), p.View().Stage)
	return p
}

func TestPlaythrough_RetryAfterFailure(t *testing.T) {
	completer := &switchCompleter{mu: sync.Mutex{}, on: false}
	p := briefed(t, newRegistry(t, completer))
	ctx := context.Background()
	before := p.Snapshot()

	_, err := p.Dispatch(ctx, episode.Say("Why Shadow?"))
	require.ErrorIs(t, err, episode.ErrCompletionFailed)
	assert.Equal(t, "Why Shadow?", p.Pending())
	assert.Equal(t, before.State, p.Snapshot().State, "failed turn leaves the state untouched")

	completer.set(true)
	emitted, err := p.Retry(ctx)
	require.NoError(t, err)
	require.Len(t, emitted, 2)
	assert.Equal(t, "Why Shadow?", emitted[0].Text)
	assert.Equal(t, "You said: Why Shadow?", emitted[1].Text)
	assert.Empty(t, p.Pending())

	_, err = p.Retry(ctx)
	require.ErrorIs(t, err, playthrough.ErrNothingPending)
}

func TestPlaythrough_SkipPending(t *testing.T) {
	p := briefed(t, newRegistry(t, &switchCompleter{mu: sync.Mutex{}, on: false}))
	ctx := context.Background()

	_, err := p.SkipPending(ctx)
	require.ErrorIs(t, err, playthrough.ErrNothingPending)

	_, err = p.Dispatch(ctx, episode.Say("hello?"))
	require.ErrorIs(t, err, episode.ErrCompletionFailed)

	emitted, err := p.SkipPending(ctx)
	require.NoError(t, err)
	require.Len(t, emitted, 2)
	assert.Equal(t, episode.SpeakerUser, emitted[0].Speaker)
	assert.Contains(t, emitted[1].Text, "Sorry Jimin")
	assert.Empty(t, p.Pending())
	assert.Equal(t, episode.StageID("briefing"), p.View().Stage)
}

func TestPlaythrough_HintKeepsPending(t *testing.T) {
	p := briefed(t, newRegistry(t, &switchCompleter{mu: sync.Mutex{}, on: false}))
	ctx := context.Background()
	_, err := p.Dispatch(ctx, episode.Choose("start_exploring"))
	require.NoError(t, err)
	_, err = p.Dispatch(ctx, episode.Say("which row?"))
	require.Error(t, err)

	_, err = p.Dispatch(ctx, episode.RequestHint())
	require.NoError(t, err)
	assert.Equal(t, "which row?", p.Pending())
}

func TestPlaythrough_Busy(t *testing.T) {
	completer := &blockingCompleter{started: make(chan struct{}), release: make(chan struct{})}
	p := briefed(t, newRegistry(t, completer))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := p.Dispatch(ctx, episode.Say("slow question"))
		done <- err
	}()
	<-completer.started

	_, err := p.Dispatch(ctx, episode.RequestHint())
	require.ErrorIs(t, err, playthrough.ErrBusy)
	_, err = p.Retry(ctx)
	require.ErrorIs(t, err, playthrough.ErrBusy)

	close(completer.release)
	require.NoError(t, <-done)
	assert.Equal(t, "finally", p.View().Messages[len(p.View().Messages)-1].Text)
}

func TestRegistry(t *testing.T) {
	registry := newRegistry(t, &switchCompleter{mu: sync.Mutex{}, on: true})

	p := registry.Create()
	require.NotEmpty(t, p.ID())
	got, err := registry.Get(p.ID())
	require.NoError(t, err)
	assert.Same(t, p, got)

	// Opening a live id ignores the snapshot.
	assert.Same(t, p, registry.Open(p.ID(), playthrough.Snapshot{}))

	restored := registry.Open("from-session", playthrough.Snapshot{
		State:   registry.Engine().NewSession(),
		Pending: "lost words",
	})
	assert.Equal(t, "lost words", restored.Pending())
	assert.Equal(t, 2, registry.Len())

	registry.Remove(p.ID())
	_, err = registry.Get(p.ID())
	require.ErrorIs(t, err, playthrough.ErrNotFound)
}
