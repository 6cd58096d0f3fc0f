package main

import (
	"fmt"
	"github.com/myrjola/kastor/internal/config"
	"github.com/myrjola/kastor/internal/episode"
	"github.com/myrjola/kastor/internal/errors"
	"github.com/myrjola/kastor/internal/repositories"
	"github.com/spf13/cobra"
	"log/slog"
	"strings"
	"text/tabwriter"
)

var scriptGroup = &cobra.Group{
	ID:    "script",
	Title: "Episode scripts",
}

var errInvalidScripts = errors.NewSentinel("invalid scripts")

func newScriptCmd(lookupEnv func(string) (string, bool)) *cobra.Command {
	cmd := &cobra.Command{ //nolint:exhaustruct // defaults are fine
		Use:     "script",
		GroupID: scriptGroup.ID,
		Short:   "Inspect episode scripts",
	}
	cmd.AddCommand(
		&cobra.Command{ //nolint:exhaustruct // defaults are fine
			Use:   "validate [script...]",
			Short: "Validate episode scripts",
			Long: `Loads each script and checks its stage graph, choices, badges and panels.
Without arguments the configured script is validated.`,
			RunE: func(cmd *cobra.Command, args []string) error {
				if len(args) == 0 {
					cfg, err := config.Load(lookupEnv)
					if err != nil {
						return errors.Wrap(err, "load config")
					}
					args = []string{scriptRef(cmd, cfg)}
				}
				out := cmd.OutOrStdout()
				invalid := 0
				for _, ref := range args {
					script, err := episode.OpenScript(ref)
					if err == nil {
						err = repositories.CheckPanels(script)
					}
					if err != nil {
						invalid++
						_, _ = fmt.Fprintf(out, "✗ %s: %v\n", ref, err)
						continue
					}
					_, _ = fmt.Fprintf(out, "✓ %s: %s (%d stages)\n", ref, script.Title(), len(script.Stages()))
				}
				if invalid > 0 {
					return errors.Wrap(errInvalidScripts, "validate", slog.Int("invalid", invalid))
				}
				return nil
			},
		},
		&cobra.Command{ //nolint:exhaustruct // defaults are fine
			Use:   "stages",
			Short: "List the stages of the configured script",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load(lookupEnv)
				if err != nil {
					return errors.Wrap(err, "load config")
				}
				ref := scriptRef(cmd, cfg)
				script, err := episode.OpenScript(ref)
				if err != nil {
					return errors.Wrap(err, "open script", slog.String("script", ref))
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd // two spaces of padding
				_, _ = fmt.Fprintln(w, "STAGE\tPROGRESS\tCHAT\tHINTS\tNEXT")
				for _, stage := range script.Stages() {
					next := make([]string, 0, len(stage.Actions))
					for _, rule := range stage.Actions {
						next = append(next, fmt.Sprintf("%s→%s", rule.ID, rule.Next))
					}
					_, _ = fmt.Fprintf(w, "%s\t%d%%\t%t\t%d\t%s\n",
						stage.ID, stage.Progress, stage.FreeChat, len(stage.Hints), strings.Join(next, " "))
				}
				if err = w.Flush(); err != nil {
					return errors.Wrap(err, "flush")
				}
				return nil
			},
		},
	)
	return cmd
}
