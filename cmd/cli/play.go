package main

import (
	"bufio"
	"context"
	"fmt"
	"github.com/myrjola/kastor/internal/ai"
	"github.com/myrjola/kastor/internal/config"
	"github.com/myrjola/kastor/internal/episode"
	"github.com/myrjola/kastor/internal/errors"
	"github.com/myrjola/kastor/internal/logging"
	"github.com/myrjola/kastor/internal/playthrough"
	"github.com/spf13/cobra"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

var playGroup = &cobra.Group{
	ID:    "play",
	Title: "Playing",
}

var (
	errUnknownCommand = errors.NewSentinel("unknown command")
	errNoSuchChoice   = errors.NewSentinel("no such choice")
)

func newPlayCmd(lookupEnv func(string) (string, bool)) *cobra.Command {
	return &cobra.Command{ //nolint:exhaustruct // defaults are fine
		Use:     "play",
		GroupID: playGroup.ID,
		Short:   "Play an episode",
		Long: `Plays an episode in the terminal.

Type a message to chat with Kastor or the number of a choice to take it. Commands:
  /hint     ask for a hint
  /retry    resend the message Kastor failed to answer
  /skip     give up on the message Kastor failed to answer
  /restart  start the episode over
  /quit     leave`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(lookupEnv)
			if err != nil {
				return errors.Wrap(err, "load config")
			}
			logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				AddSource:   false,
				Level:       slog.LevelWarn,
				ReplaceAttr: nil,
			})))

			ref := scriptRef(cmd, cfg)
			var script *episode.Script
			if script, err = episode.OpenScript(ref); err != nil {
				return errors.Wrap(err, "open script", slog.String("script", ref))
			}
			var completer episode.Completer
			if completer, err = ai.NewCompleter(ctx, cfg.AI(), logger); err != nil {
				return errors.Wrap(err, "new completer")
			}

			engine := episode.NewEngine(script, completer, cfg.CompletionTimeout, logger)
			registry := playthrough.NewRegistry(engine, cfg.PlaythroughIdle, logger)
			return newConsole(registry.Create(), cmd.InOrStdin(), cmd.OutOrStdout()).run(ctx)
		},
	}
}

// console drives a play-through from line-based input.
type console struct {
	p   *playthrough.Playthrough
	in  *bufio.Scanner
	out io.Writer
	// shown is the number of transcript messages already printed.
	shown int
}

func newConsole(p *playthrough.Playthrough, in io.Reader, out io.Writer) *console {
	return &console{p: p, in: bufio.NewScanner(in), out: out, shown: 0}
}

func (c *console) run(ctx context.Context) error {
	c.print(c.p.View())
	for c.in.Scan() {
		line := strings.TrimSpace(c.in.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return nil
		}

		err := c.handle(ctx, line)
		switch {
		case err == nil:
		case errors.Is(err, episode.ErrCompletionFailed):
			c.printf("! Kastor didn't answer. Type /retry to try again or /skip to move on.\n")
		case errors.Is(err, episode.ErrNoMoreHints):
			c.printf("! No more hints for this step.\n")
		case errors.Is(err, episode.ErrIllegalAction),
			errors.Is(err, playthrough.ErrNothingPending),
			errors.Is(err, errUnknownCommand),
			errors.Is(err, errNoSuchChoice):
			c.printf("! That's not possible right now.\n")
		default:
			return err
		}

		view := c.p.View()
		c.print(view)
		if view.Terminal {
			c.printf("Case closed with %d points and %d badges.\n", view.Score, len(view.Badges))
			return nil
		}
	}
	if err := c.in.Err(); err != nil {
		return errors.Wrap(err, "read input")
	}
	return nil
}

func (c *console) handle(ctx context.Context, line string) error {
	var err error
	switch {
	case line == "/hint":
		_, err = c.p.Dispatch(ctx, episode.RequestHint())
	case line == "/retry":
		_, err = c.p.Retry(ctx)
	case line == "/skip":
		_, err = c.p.SkipPending(ctx)
	case line == "/restart":
		if _, err = c.p.Dispatch(ctx, episode.Restart()); err == nil {
			c.shown = 0
		}
	case strings.HasPrefix(line, "/"):
		err = errors.Wrap(errUnknownCommand, "handle", slog.String("command", line))
	default:
		n, convErr := strconv.Atoi(line)
		if convErr != nil {
			_, err = c.p.Dispatch(ctx, episode.Say(line))
			break
		}
		choices := c.p.View().Choices
		if n < 1 || n > len(choices) {
			return errNoSuchChoice
		}
		_, err = c.p.Dispatch(ctx, episode.Choose(choices[n-1].ID))
	}
	return err
}

// print writes the new transcript lines followed by the status line and the available choices.
func (c *console) print(view episode.View) {
	for _, msg := range view.Messages[min(c.shown, len(view.Messages)):] {
		switch msg.Speaker {
		case episode.SpeakerAssistant:
			c.printf("Kastor: %s\n", msg.Text)
		case episode.SpeakerUser:
			c.printf("You: %s\n", msg.Text)
		case episode.SpeakerSystem:
			c.printf("* %s\n", msg.Text)
		}
	}
	c.shown = len(view.Messages)

	if view.Terminal {
		return
	}
	c.printf("[%s · %d%% · score %d · hypotheses %d · hints left %d]\n",
		view.StageTitle, view.Progress, view.Score, len(view.Hypotheses), view.HintsRemaining)
	for i, choice := range view.Choices {
		c.printf("  %d) %s\n", i+1, choice.Label)
	}
	if pending := c.p.Pending(); pending != "" {
		c.printf("  /retry or /skip %q\n", pending)
	}
}

func (c *console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}
