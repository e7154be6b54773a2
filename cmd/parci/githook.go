package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeramey/parci/internal/config"
	"github.com/jeramey/parci/internal/githook"
	"github.com/jeramey/parci/internal/storage"
)

func cmdGitHook(args []string) error {
	fs := flag.NewFlagSet("git-hook", flag.ExitOnError)
	schedule := fs.String("schedule", "", "poll continuously on a cron schedule instead of once")
	if err := fs.Parse(args); err != nil {
		return err
	}

	repo := fs.Arg(0)
	if repo == "" {
		repo = os.Getenv("GIT_DIR")
	}
	if repo == "" {
		return fmt.Errorf("git-hook: repository is required")
	}

	cfg := config.Load()
	db, err := storage.Open(cfg.GitHookStateDB)
	if err != nil {
		return fmt.Errorf("open hook state db: %w", err)
	}
	defer db.Close()

	hook := &githook.Hook{
		Repo:  repo,
		State: db.Table(repo),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *schedule != "" {
		return hook.Watch(ctx, *schedule)
	}
	return hook.Poll(ctx)
}
