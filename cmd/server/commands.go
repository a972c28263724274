package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	cli "github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"dealflow/internal/activity/publisher"
	"dealflow/internal/activity/relay"
	"dealflow/internal/activity/sweep"
	jwttoken "dealflow/internal/jwt_token"
	"dealflow/internal/platform/httpserver"
	"dealflow/internal/platform/kafka"
	"dealflow/internal/platform/logger"
	"dealflow/internal/platform/postgres"
	id "dealflow/pkg/domain"
	"dealflow/pkg/platform/circuit"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			databaseURLFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to DEALFLOW_ADDR)",
			},
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "Apply pending migrations before serving",
			},
			&cli.BoolFlag{
				Name:  "with-relay",
				Usage: "Also run the outbox relay and overdue sweep in this process",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := loadConfig(command)
			if err != nil {
				return err
			}
			if command.IsSet("addr") {
				cfg.Addr = command.String("addr")
			}
			log := logger.New(cfg.LogLevel)

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer shutdown(a, log)

			if command.Bool("migrate") {
				if err := migrate(ctx, a, log); err != nil {
					return err
				}
			}

			srv := httpserver.New(cfg.Addr, a.router())
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.InfoContext(gctx, "starting dealflow", "addr", cfg.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			if command.Bool("with-relay") {
				startBackground(gctx, g, a, log)
			}
			return g.Wait()
		},
	}
}

func newMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations and exit",
		Flags: []cli.Flag{databaseURLFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := loadConfig(command)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("migrate needs DATABASE_URL or --database-url")
			}
			log := logger.New(cfg.LogLevel)
			db, err := postgres.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			return runMigrations(ctx, db, log)
		},
	}
}

func newRelayCommand() *cli.Command {
	return &cli.Command{
		Name:  "relay",
		Usage: "Publish the activity outbox to Kafka and run the overdue sweep",
		Flags: []cli.Flag{
			databaseURLFlag(),
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Listen address for /metrics and /health",
				Value: ":9091",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := loadConfig(command)
			if err != nil {
				return err
			}
			log := logger.New(cfg.LogLevel)
			if cfg.Database.URL == "" {
				return errors.New("relay needs a database; set DATABASE_URL or --database-url")
			}

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer shutdown(a, log)

			srv := httpserver.New(command.String("metrics-addr"), a.router())
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("metrics server error: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			startBackground(gctx, g, a, log)
			return g.Wait()
		},
	}
}

func newTokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Mint a bearer token for local development",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "user",
				Usage: "User ID to embed (random when empty)",
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Token lifetime",
				Value: time.Hour,
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			cfg, err := loadConfig(command)
			if err != nil {
				return err
			}
			userID := id.NewUserID()
			if raw := command.String("user"); raw != "" {
				if userID, err = id.ParseUserID(raw); err != nil {
					return err
				}
			}
			jwt := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)
			token, err := jwt.GenerateAccessToken(userID, command.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(command.Root().Writer, token)
			return nil
		},
	}
}

// startBackground runs the outbox relay when Kafka is configured and the
// overdue sweep unless it is disabled.
func startBackground(ctx context.Context, g *errgroup.Group, a *app, log *slog.Logger) {
	client, err := kafka.New(ctx, a.cfg.Kafka)
	switch {
	case err != nil:
		log.ErrorContext(ctx, "kafka unavailable, activity relay disabled", "error", err)
	case client == nil:
		log.WarnContext(ctx, "KAFKA_BROKERS not set, activity relay disabled")
	default:
		pub := publisher.NewKafka(client, a.cfg.Kafka.ActivityTopic, log)
		if err := pub.EnsureTopic(ctx, 3, 1); err != nil {
			log.WarnContext(ctx, "could not ensure activity topic", "error", err)
		}
		r := relay.New(a.activity, pub,
			relay.WithLogger(log),
			relay.WithMetrics(a.activityMetrics),
			relay.WithPollInterval(a.cfg.Relay.PollInterval),
			relay.WithBatchSize(a.cfg.Relay.BatchSize),
			relay.WithBreaker(circuit.New("activity-relay")),
		)
		g.Go(func() error {
			defer client.Close()
			return r.Run(ctx)
		})
	}

	if a.cfg.Relay.SweepDisabled {
		return
	}
	scheduler, err := sweep.New(a.cfg.Relay.SweepSchedule, a.workflow, log, a.activityMetrics)
	if err != nil {
		g.Go(func() error { return err })
		return
	}
	g.Go(func() error {
		scheduler.Start(ctx)
		return nil
	})
}

func migrate(ctx context.Context, a *app, log *slog.Logger) error {
	if a.db == nil {
		log.WarnContext(ctx, "--migrate ignored without a database")
		return nil
	}
	return runMigrations(ctx, a.db, log)
}

func runMigrations(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	manager, err := postgres.NewMigrationManager(log, db)
	if err != nil {
		return err
	}
	applied, err := manager.Run(ctx)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "migrations applied", "count", applied)
	return nil
}

func shutdown(a *app, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.close(ctx); err != nil {
		log.ErrorContext(ctx, "shutdown failed", "error", err)
	}
}
