package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/migrations"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
	"github.com/zatekoja/tutorscheduler/backend/pkg/config"
)

const usage = `Usage: migrate <command>

Commands:
  up       apply all pending migrations
  down     roll back the most recent migration
  status   print the state of every migration
  version  print the current schema version
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	command := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("tutorscheduler-migrate", cfg.Server.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, command); err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("Migration failed")
	}
}

func run(ctx context.Context, cfg *config.Config, command string) error {
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	migrator, err := migrations.NewMigrator(pgClient.DB())
	if err != nil {
		return err
	}

	switch command {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx)
	case "status":
		err = migrator.Status(ctx)
	case "version":
		var version int64
		version, err = migrator.Version(ctx)
		if err == nil {
			fmt.Println(version)
		}
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		return err
	}

	log.Info().Str("command", command).Msg("Migration command complete")
	return nil
}
