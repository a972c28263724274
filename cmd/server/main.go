package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"dealflow/internal/platform/config"
)

// main wires the dealflow binary. Business logic lives in internal service
// packages; commands here only assemble and run them.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:                  "dealflow",
		EnableShellCompletion: true,
		Usage:                 "Real-estate transaction workflow and conditions engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			newServeCommand(),
			newMigrateCommand(),
			newRelayCommand(),
			newTokenCommand(),
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies flag overrides shared by every command.
func loadConfig(command *cli.Command) (config.Server, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return config.Server{}, err
	}
	if command.IsSet("log-level") {
		cfg.LogLevel = command.String("log-level")
	}
	if command.IsSet("database-url") {
		cfg.Database.URL = command.String("database-url")
	}
	return cfg, nil
}

func databaseURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "database-url",
		Usage: "Postgres connection URL (defaults to DATABASE_URL; empty uses in-memory stores)",
	}
}
