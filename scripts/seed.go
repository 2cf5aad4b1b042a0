package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/tutorscheduler/backend/internal/adapters/database"
	"github.com/zatekoja/tutorscheduler/backend/internal/adapters/search"
	"github.com/zatekoja/tutorscheduler/backend/internal/application/services"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/auth"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/migrations"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
	"github.com/zatekoja/tutorscheduler/backend/pkg/config"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

const seedPassword = "password123"

type seedTutor struct {
	first, last string
	courses     []string
	slots       []services.SlotInput
}

var tutors = []seedTutor{
	{
		first: "Grace", last: "Hopper",
		courses: []string{"COP 3502", "COP 3530"},
		slots: []services.SlotInput{
			{Day: "Monday", StartTime: "09:00", EndTime: "10:00"},
			{Day: "Wednesday", StartTime: "09:00", EndTime: "10:00"},
		},
	},
	{
		first: "Ada", last: "Lovelace",
		courses: []string{"MAC 2311", "MAC 2312", "MAC 2313"},
		slots: []services.SlotInput{
			{Day: "Tuesday", StartTime: "13:00", EndTime: "14:30"},
			{Day: "Thursday", StartTime: "13:00", EndTime: "14:30"},
		},
	},
	{
		first: "Alan", last: "Turing",
		courses: []string{"COT 3100", "COP 3530"},
		slots: []services.SlotInput{
			{Day: "Monday", StartTime: "15:00", EndTime: "16:00"},
			{Day: "Friday", StartTime: "10:00", EndTime: "11:00"},
		},
	},
}

var students = [][2]string{
	{"Barbara", "Liskov"},
	{"Donald", "Knuth"},
}

func email(first, last string) string {
	return fmt.Sprintf("%s.%s@example.edu", first, last)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("tutorscheduler-seed", cfg.Server.Environment)

	ctx := context.Background()
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer pgClient.Close()

	migrator, err := migrations.NewMigrator(pgClient.DB())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrator")
	}
	if err := migrator.Up(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate")
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		if _, err := pgClient.DB().ExecContext(ctx, `TRUNCATE TABLE bookings, availability_slots, users`); err != nil {
			log.Fatal().Err(err).Msg("Failed to reset tables")
		}
	}

	users := database.NewUserAdapter(pgClient, nil)
	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, time.Minute)
	identity := services.NewIdentityService(users, auth.NewBcryptHasher(cfg.Auth.BcryptCost), tokens, nil, cfg.Database.QueryTimeout)
	tutorService := services.NewTutorService(users, nil, cfg.Database.QueryTimeout)

	for _, t := range tutors {
		result, err := identity.Signup(ctx, services.SignupInput{
			FirstName: t.first,
			LastName:  t.last,
			Email:     email(t.first, t.last),
			Password:  seedPassword,
			Role:      entities.RoleTutor,
		})
		if apperrors.IsConflict(err) {
			log.Info().Str("email", email(t.first, t.last)).Msg("Tutor already seeded, skipping")
			continue
		}
		if err != nil {
			log.Fatal().Err(err).Str("tutor", t.last).Msg("Failed to create tutor")
		}

		actor, err := identity.Authenticate(result.Token)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to authenticate seeded tutor")
		}
		for _, course := range t.courses {
			if _, err := tutorService.AddCourse(ctx, actor, actor.UserID, course); err != nil {
				log.Fatal().Err(err).Str("course", course).Msg("Failed to add course")
			}
		}
		for _, slot := range t.slots {
			if _, err := tutorService.AddAvailability(ctx, actor, actor.UserID, slot); err != nil {
				log.Fatal().Err(err).Str("day", slot.Day).Msg("Failed to add availability")
			}
		}
		log.Info().Str("tutor", result.User.FullName()).Int("courses", len(t.courses)).Msg("Seeded tutor")
	}

	for _, s := range students {
		_, err := identity.Signup(ctx, services.SignupInput{
			FirstName: s[0],
			LastName:  s[1],
			Email:     email(s[0], s[1]),
			Password:  seedPassword,
			Role:      entities.RoleStudent,
		})
		if err != nil && !apperrors.IsConflict(err) {
			log.Fatal().Err(err).Str("student", s[1]).Msg("Failed to create student")
		}
	}
	log.Info().Int("students", len(students)).Msg("Seeded students")

	if !cfg.Typesense.Enabled {
		return
	}
	tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
	if err != nil {
		log.Warn().Err(err).Msg("Typesense unavailable, skipping reindex")
		return
	}
	index := search.NewTypesenseAdapter(tsClient)
	if err := index.InitSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Typesense schema")
		return
	}
	n, err := services.NewIndexSyncService(users, index, nil).ReindexAll(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Reindex failed")
		return
	}
	log.Info().Int("tutors", n).Msg("Indexed tutors")
}
