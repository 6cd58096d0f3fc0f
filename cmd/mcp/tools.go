package main

import (
	"context"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/myrjola/kastor/internal/episode"
	"github.com/myrjola/kastor/internal/errors"
	"github.com/myrjola/kastor/internal/logging"
	"github.com/myrjola/kastor/internal/models"
	"github.com/myrjola/kastor/internal/playthrough"
	"github.com/myrjola/kastor/internal/repositories"
	"log/slog"
)

// server answers the episode tools from the live play-throughs of the registry.
type server struct {
	registry *playthrough.Registry
	evidence *repositories.EvidenceRepository
	logger   *slog.Logger
}

func newServer(
	registry *playthrough.Registry,
	evidence *repositories.EvidenceRepository,
	logger *slog.Logger,
) *mcp.Server {
	s := &server{registry: registry, evidence: evidence, logger: logger.With("source", "mcp")}
	srv := mcp.NewServer(&mcp.Implementation{ //nolint:exhaustruct // name and version are enough
		Name:    "kastor",
		Version: "v0.1.0",
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{ //nolint:exhaustruct // name and description are enough
		Name:        "start_episode",
		Description: "Start a new play-through of the episode. Returns its id and the opening view.",
	}, s.startEpisode)
	mcp.AddTool(srv, &mcp.Tool{ //nolint:exhaustruct // name and description are enough
		Name:        "view",
		Description: "Show the current stage, transcript, score, badges, hypotheses and the available choices.",
	}, s.view)
	mcp.AddTool(srv, &mcp.Tool{ //nolint:exhaustruct // name and description are enough
		Name:        "choose",
		Description: "Take one of the choices listed in the view by its id.",
	}, s.choose)
	mcp.AddTool(srv, &mcp.Tool{ //nolint:exhaustruct // name and description are enough
		Name: "say",
		Description: "Send a free-text message to Kastor. The first message of a play-through is taken as the " +
			"player's name. When Kastor fails to answer the message becomes pending, call retry or skip.",
	}, s.say)
	mcp.AddTool(srv, &mcp.Tool{ //nolint:exhaustruct // name and description are enough
		Name:        "hint",
		Description: "Ask for the next hint of the current stage.",
	}, s.hint)
	mcp.AddTool(srv, &mcp.Tool{ //nolint:exhaustruct // name and description are enough
		Name:        "retry",
		Description: "Resend the pending message Kastor failed to answer.",
	}, s.retry)
	mcp.AddTool(srv, &mcp.Tool{ //nolint:exhaustruct // name and description are enough
		Name:        "skip",
		Description: "Give up on the pending message and continue with the evidence.",
	}, s.skip)
	mcp.AddTool(srv, &mcp.Tool{ //nolint:exhaustruct // name and description are enough
		Name:        "restart",
		Description: "Start the play-through over from the first stage.",
	}, s.restart)
	mcp.AddTool(srv, &mcp.Tool{ //nolint:exhaustruct // name and description are enough
		Name:        "evidence",
		Description: "Return the data tables of the evidence panels visible in the current stage.",
	}, s.panels)
	return srv
}

// --- Tool input/output types ---

type startInput struct{}

type playthroughInput struct {
	PlaythroughID string `json:"playthrough_id" jsonschema:"id returned by start_episode"`
}

type chooseInput struct {
	PlaythroughID string `json:"playthrough_id" jsonschema:"id returned by start_episode"`
	Choice        string `json:"choice"         jsonschema:"id of one of the choices in the view"`
}

type sayInput struct {
	PlaythroughID string `json:"playthrough_id" jsonschema:"id returned by start_episode"`
	Message       string `json:"message"        jsonschema:"free-text message to Kastor"`
}

type actionOutput struct {
	PlaythroughID string `json:"playthrough_id"`
	// Emitted are the transcript lines added by the action.
	Emitted []episode.Message `json:"emitted"`
	Pending string            `json:"pending,omitempty"`
	Notice  string            `json:"notice,omitempty"`
	View    episode.View      `json:"view"`
}

type evidenceOutput struct {
	PlaythroughID string         `json:"playthrough_id"`
	Panels        []models.Table `json:"panels"`
}

// --- Handlers ---

func (s *server) startEpisode(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ startInput,
) (*mcp.CallToolResult, actionOutput, error) {
	p := s.registry.Create()
	view := p.View()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "started play-through", slog.String("playthrough_id", p.ID()))
	return nil, actionOutput{
		PlaythroughID: p.ID(),
		Emitted:       view.Messages,
		Pending:       "",
		Notice:        "",
		View:          view,
	}, nil
}

func (s *server) view(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input playthroughInput,
) (*mcp.CallToolResult, actionOutput, error) {
	p, err := s.registry.Get(input.PlaythroughID)
	if err != nil {
		return nil, actionOutput{}, err //nolint:exhaustruct // error result
	}
	return nil, actionOutput{
		PlaythroughID: p.ID(),
		Emitted:       []episode.Message{},
		Pending:       p.Pending(),
		Notice:        "",
		View:          p.View(),
	}, nil
}

func (s *server) choose(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input chooseInput,
) (*mcp.CallToolResult, actionOutput, error) {
	return s.act(ctx, input.PlaythroughID, func(ctx context.Context, p *playthrough.Playthrough) ([]episode.Message, error) {
		return p.Dispatch(ctx, episode.Choose(episode.ActionID(input.Choice)))
	})
}

func (s *server) say(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input sayInput,
) (*mcp.CallToolResult, actionOutput, error) {
	return s.act(ctx, input.PlaythroughID, func(ctx context.Context, p *playthrough.Playthrough) ([]episode.Message, error) {
		return p.Dispatch(ctx, episode.Say(input.Message))
	})
}

func (s *server) hint(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input playthroughInput,
) (*mcp.CallToolResult, actionOutput, error) {
	return s.act(ctx, input.PlaythroughID, func(ctx context.Context, p *playthrough.Playthrough) ([]episode.Message, error) {
		return p.Dispatch(ctx, episode.RequestHint())
	})
}

func (s *server) retry(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input playthroughInput,
) (*mcp.CallToolResult, actionOutput, error) {
	return s.act(ctx, input.PlaythroughID, func(ctx context.Context, p *playthrough.Playthrough) ([]episode.Message, error) {
		return p.Retry(ctx)
	})
}

func (s *server) skip(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input playthroughInput,
) (*mcp.CallToolResult, actionOutput, error) {
	return s.act(ctx, input.PlaythroughID, func(ctx context.Context, p *playthrough.Playthrough) ([]episode.Message, error) {
		return p.SkipPending(ctx)
	})
}

func (s *server) restart(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input playthroughInput,
) (*mcp.CallToolResult, actionOutput, error) {
	return s.act(ctx, input.PlaythroughID, func(ctx context.Context, p *playthrough.Playthrough) ([]episode.Message, error) {
		return p.Dispatch(ctx, episode.Restart())
	})
}

// act runs do against the play-through. A failed companion reply is reported as a notice, not as a tool error, so
// that the caller sees the pending message.
func (s *server) act(
	ctx context.Context,
	id string,
	do func(context.Context, *playthrough.Playthrough) ([]episode.Message, error),
) (*mcp.CallToolResult, actionOutput, error) {
	p, err := s.registry.Get(id)
	if err != nil {
		return nil, actionOutput{}, err //nolint:exhaustruct // error result
	}
	ctx = logging.WithAttrs(ctx, slog.String("playthrough_id", id))

	out := actionOutput{
		PlaythroughID: id,
		Emitted:       []episode.Message{},
		Pending:       "",
		Notice:        "",
		View:          episode.View{}, //nolint:exhaustruct // filled below
	}
	emitted, err := do(ctx, p)
	switch {
	case err == nil:
		out.Emitted = append(out.Emitted, emitted...)
	case errors.Is(err, episode.ErrCompletionFailed):
		out.Notice = "Kastor failed to answer. Call retry to resend the message or skip to move on."
	default:
		s.logger.LogAttrs(ctx, slog.LevelDebug, "tool call rejected", errors.SlogError(err))
		return nil, actionOutput{}, err //nolint:exhaustruct // error result
	}
	out.Pending = p.Pending()
	out.View = p.View()
	return nil, out, nil
}

func (s *server) panels(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input playthroughInput,
) (*mcp.CallToolResult, evidenceOutput, error) {
	p, err := s.registry.Get(input.PlaythroughID)
	if err != nil {
		return nil, evidenceOutput{}, err //nolint:exhaustruct // error result
	}
	out := evidenceOutput{PlaythroughID: p.ID(), Panels: []models.Table{}}
	for _, panel := range p.View().Panels {
		table, panelErr := s.evidence.Panel(ctx, panel.ID)
		if panelErr != nil {
			return nil, evidenceOutput{}, errors.Wrap(panelErr, "load panel", //nolint:exhaustruct // error result
				slog.String("panel", string(panel.ID)))
		}
		table.Title = panel.Title
		out.Panels = append(out.Panels, table)
	}
	return nil, out, nil
}
