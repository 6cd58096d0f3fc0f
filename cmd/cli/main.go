package main

import (
	"context"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/myrjola/kastor/internal/config"
	"github.com/myrjola/kastor/internal/episode"
	"github.com/myrjola/kastor/internal/errors"
	"github.com/spf13/cobra"
	"io/fs"
	"os"
	"os/signal"
)

func newRootCmd(lookupEnv func(string) (string, bool)) *cobra.Command {
	root := &cobra.Command{ //nolint:exhaustruct // defaults are fine
		Use:          "kastor",
		Long:         `Play and inspect Kastor Data Academy episodes from the terminal.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("script", "", "embedded episode name or path to a YAML script (default $KASTOR_SCRIPT)")
	root.AddGroup(playGroup, scriptGroup)
	root.AddCommand(newPlayCmd(lookupEnv), newScriptCmd(lookupEnv))
	return root
}

// scriptRef returns the --script flag, falling back to the configured script.
func scriptRef(cmd *cobra.Command, cfg config.Config) string {
	if ref, err := cmd.Flags().GetString("script"); err == nil && ref != "" {
		return ref
	}
	if cfg.Script != "" {
		return cfg.Script
	}
	return episode.DefaultScript
}

func main() {
	// The .env file is optional, real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd(os.LookupEnv).ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1) //nolint:gocritic // stop is called explicitly above
	}
}
