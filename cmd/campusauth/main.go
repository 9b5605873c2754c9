package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := run(context.Background(), os.Environ(), os.Getwd, os.Args[1:]); err != nil {
		slog.Error("service stopped with error", "error", err.Error())
		os.Exit(1)
	}
}

// Load config from .env, environment and flags (later overrides earlier), then serve until ctx done or signal received
func run(ctx context.Context, environ []string, getwd func() (string, error), args []string) error {
	c := NewConfig()

	if err := c.LoadDotEnv(getwd); err != nil {
		return fmt.Errorf("can't load .env. Err: %w", err)
	}
	if err := c.LoadEnv(environ); err != nil {
		return err
	}
	if err := c.ParseFlags(args); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config. Err: %w", err)
	}

	// Initialize context that cancelled on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewServerApp(ctx, c)
	if err != nil {
		return fmt.Errorf("can't initialize app, sorry. Err: %w", err)
	}

	return app.Run(ctx)
}
