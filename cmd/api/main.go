package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/tutorscheduler/backend/internal/adapters/cache"
	"github.com/zatekoja/tutorscheduler/backend/internal/adapters/database"
	"github.com/zatekoja/tutorscheduler/backend/internal/adapters/events"
	"github.com/zatekoja/tutorscheduler/backend/internal/adapters/memory"
	"github.com/zatekoja/tutorscheduler/backend/internal/adapters/search"
	"github.com/zatekoja/tutorscheduler/backend/internal/api/handlers"
	"github.com/zatekoja/tutorscheduler/backend/internal/api/middleware"
	"github.com/zatekoja/tutorscheduler/backend/internal/api/routes"
	"github.com/zatekoja/tutorscheduler/backend/internal/application/services"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/providers"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/auth"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/migrations"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
	"github.com/zatekoja/tutorscheduler/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Environment)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Warn().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize metrics")
	}

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing resource")
			}
		}
	}()

	// Cache and event bus: Redis when enabled, otherwise in-process
	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis, falling back to in-process cache and events")
		} else {
			closers = append(closers, redisClient)
			cacheProvider = cache.NewRedisAdapter(redisClient)
			eventBus = events.NewRedisEventBus(redisClient)
			log.Info().Str("host", cfg.Redis.Host).Msg("Connected to Redis")
		}
	}
	if cacheProvider == nil {
		cacheProvider = cache.NewMemoryAdapter()
		eventBus = events.NewLocalEventBus()
	}
	defer func() {
		if err := eventBus.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing event bus")
		}
	}()

	users, bookings, err := openStores(ctx, cfg, cacheProvider, metrics, &closers)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to open record store")
	}

	// Search index is optional; search falls back to the record store without it
	var index repositories.TutorSearchRepository
	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Typesense, searching the record store")
		} else {
			adapter := search.NewTypesenseAdapter(tsClient)
			if err := adapter.InitSchema(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to initialize Typesense schema, searching the record store")
			} else {
				index = adapter
			}
		}
	}

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	queryTimeout := cfg.Database.QueryTimeout

	identityService := services.NewIdentityService(users, hasher, tokens, eventBus, queryTimeout)
	tutorService := services.NewTutorService(users, eventBus, queryTimeout)
	searchService := services.NewSearchService(users, index, queryTimeout)
	bookingService := services.NewBookingService(
		bookings,
		users,
		eventBus,
		metrics,
		repositories.BookingOptions{PreventDoubleBooking: cfg.Booking.PreventDoubleBooking},
		queryTimeout,
	)

	// Writes update the index and evict cached searches in line; the event
	// workers catch writes made by other instances
	var changeHandlers []services.TutorChangeHandler
	if index != nil {
		indexSync := services.NewIndexSyncService(users, index, eventBus)
		changeHandlers = append(changeHandlers, indexSync)
		if err := indexSync.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start search index sync")
		} else {
			defer indexSync.Stop()
		}
		go func() {
			n, err := indexSync.ReindexAll(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("Initial tutor reindex failed")
				return
			}
			log.Info().Int("tutors", n).Msg("Initial tutor reindex complete")
		}()
	}

	invalidationService := services.NewCacheInvalidationService(cacheProvider, eventBus)
	changeHandlers = append(changeHandlers, invalidationService)
	if err := invalidationService.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start cache invalidation service")
	} else {
		defer invalidationService.Stop()
	}

	tutorService.OnTutorChange(changeHandlers...)
	identityService.OnTutorChange(changeHandlers...)

	var adminHandler *handlers.AdminHandler
	if cfg.Auth.AdminAPIKey != "" {
		adminHandler = handlers.NewAdminHandler(identityService)
	} else {
		log.Info().Msg("ADMIN_API_KEY not set, admin routes disabled")
	}

	sseHandler := handlers.NewSSEHandler(eventBus, handlers.DefaultHeartbeatInterval)

	router := routes.NewRouter(routes.Config{
		AuthHandler:     handlers.NewAuthHandler(identityService),
		TutorHandler:    handlers.NewTutorHandler(tutorService, searchService),
		BookingHandler:  handlers.NewBookingHandler(bookingService),
		AdminHandler:    adminHandler,
		SSEHandler:      sseHandler,
		Tokens:          tokens,
		Users:           users,
		AdminAPIKey:     cfg.Auth.AdminAPIKey,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		CacheMiddleware: middleware.NewCacheMiddleware(cacheProvider, metrics, middleware.DefaultCacheRoutes()),
		Metrics:         metrics,
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	server.RegisterOnShutdown(sseHandler.Close)

	go func() {
		log.Info().
			Str("addr", serverAddr).
			Str("storage", cfg.Storage.Driver).
			Bool("prevent_double_booking", cfg.Booking.PreventDoubleBooking).
			Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Server stopped")
}

// openStores builds the user and booking repositories for the configured driver.
// Postgres connections are appended to closers.
func openStores(
	ctx context.Context,
	cfg *config.Config,
	cacheProvider providers.CacheProvider,
	metrics *observability.Metrics,
	closers *[]io.Closer,
) (repositories.UserRepository, repositories.BookingRepository, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		store := memory.NewStore()
		log.Info().Msg("Using in-memory record store")
		return store.Users(), store.Bookings(), nil

	case config.StoragePostgres:
		pgClient, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		*closers = append(*closers, pgClient)

		if cfg.Database.AutoMigrate {
			migrator, err := migrations.NewMigrator(pgClient.DB())
			if err != nil {
				return nil, nil, err
			}
			if err := migrator.Up(ctx); err != nil {
				return nil, nil, fmt.Errorf("auto-migrate: %w", err)
			}
		}

		users := database.NewCachedUserAdapter(database.NewUserAdapter(pgClient, metrics), cacheProvider, metrics)
		log.Info().Str("host", cfg.Database.Host).Str("database", cfg.Database.Database).Msg("Connected to PostgreSQL")
		return users, database.NewBookingAdapter(pgClient, metrics), nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
