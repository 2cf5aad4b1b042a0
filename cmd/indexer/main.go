package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/tutorscheduler/backend/internal/adapters/database"
	"github.com/zatekoja/tutorscheduler/backend/internal/adapters/search"
	"github.com/zatekoja/tutorscheduler/backend/internal/application/services"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
	"github.com/zatekoja/tutorscheduler/backend/pkg/config"
)

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete the tutors collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("tutorscheduler-indexer", cfg.Server.Environment)

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("Invalid interval")
		}
		if interval <= 0 {
			log.Fatal().Str("interval", intervalValue).Msg("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, cfg, reset); err != nil {
			log.Error().Err(err).Msg("Reindex failed")
		}

		if interval <= 0 {
			break
		}

		reset = false
		log.Info().Dur("next_run_in", interval).Msg("Reindex complete")

		select {
		case <-ctx.Done():
			log.Info().Msg("Reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, cfg *config.Config, reset bool) error {
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Info().Str("collection", typesense.TutorsCollection).Msg("Deleting collection before reindex")
		if _, err := tsClient.Client().Collection(typesense.TutorsCollection).Delete(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to delete collection")
		}
	}

	index := search.NewTypesenseAdapter(tsClient)
	if err := index.InitSchema(ctx); err != nil {
		return err
	}

	users := database.NewUserAdapter(pgClient, nil)
	indexSync := services.NewIndexSyncService(users, index, nil)

	start := time.Now()
	n, err := indexSync.ReindexAll(ctx)
	if err != nil {
		return err
	}

	log.Info().Int("tutors", n).Dur("took", time.Since(start)).Msg("Indexed tutors")
	return nil
}
