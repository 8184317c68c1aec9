package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/spacesedan/photobot/config"
	"github.com/spacesedan/photobot/internal/app"
	"github.com/spacesedan/photobot/internal/logging"
)

// Options are interpreted by github.com/jessevdk/go-flags.
type Options struct {
	Env   string `short:"e" long:"env" env:"APP_ENV" default:"dev" description:"environment file suffix under config/envs"`
	Topic string `short:"t" long:"topic" description:"curated topic to post about (random when empty)"`
	Count int    `short:"n" long:"count" default:"1" description:"number of photos in the post (1-4)"`
}

func main() {
	opts := &Options{}
	parser := flags.NewParser(opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts *Options) error {
	config.LoadEnv(opts.Env)
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer bot.Close()

	// a one-shot post ignores BOT_ENABLED
	bot.Runner.Enable()
	outcome, err := bot.Runner.RunNow(ctx, opts.Topic, opts.Count)
	if err != nil {
		return err
	}
	if !outcome.Success {
		return fmt.Errorf("post failed (%s): %w", outcome.Kind, outcome.Err)
	}

	slog.Info("[PostOnce] Post created",
		slog.String("post_id", outcome.PostID),
		slog.String("topic", outcome.Topic),
		slog.String("persona", outcome.PersonaID))
	return nil
}
