package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"flowdesk/internal/app"
	"flowdesk/internal/infrastructure/config"
	"flowdesk/pkg/logger"
)

var version = "0.1.0"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "flowctl",
		Short:         "Flowdesk operator CLI",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.toml (default: search ./, ./config, /etc/flowdesk)")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newSequenceCmd(opts),
		newInvoicesCmd(opts),
		newTokenCmd(opts),
		newAuditCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: true, Service: "flowctl"})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// withApp runs fn with a fully wired App and a logger in ctx.
func (o *rootOptions) withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, log, err := o.load()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	ctx = logger.WithLogger(ctx, log)

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return fn(ctx, a)
}
