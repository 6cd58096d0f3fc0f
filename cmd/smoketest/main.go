package main

import (
	"context"
	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/kastor/internal/e2etest"
	"github.com/myrjola/kastor/internal/errors"
	"github.com/myrjola/kastor/internal/logging"
	"log/slog"
	"net/url"
	"os"
	"time"
)

// happyPath is the shortest sequence of choices that closes the case.
var happyPath = []string{
	"start_exploring",
	"suspect_patch",
	"check_timeline",
	"spike_at_0800",
	"flag_unknown_account",
	"confirm_tampering",
}

// TestEpisode plays the episode to the end without free chat so that it works with the companion disabled.
func TestEpisode(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second) //nolint:mnd // 30 seconds
	defer cancel()
	var (
		err error
		doc *goquery.Document
	)

	if doc, err = client.SubmitForm(ctx, "/", "/episode/restart", nil); err != nil {
		return errors.Wrap(err, "restart")
	}
	for _, action := range happyPath {
		if doc, err = client.SubmitForm(ctx, "/", "/episode/choose", url.Values{"action": {action}}); err != nil {
			return errors.Wrap(err, "choose", slog.String("action", action))
		}
	}
	if stage := doc.Find(".stage").AttrOr("data-stage", ""); stage != "conclusion" {
		return errors.New("episode not finished", slog.String("stage", stage))
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		url      = "https://" + hostname
		client   *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestEpisode(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error playing episode", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
