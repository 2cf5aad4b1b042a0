package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/tutorscheduler/backend/internal/application/validation"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/providers"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

// SignupInput carries the fields of a new account. Passwords are capped at
// 72 bytes, the most bcrypt will hash.
type SignupInput struct {
	FirstName string        `json:"firstName" validate:"required,notblank"`
	LastName  string        `json:"lastName" validate:"required,notblank"`
	Email     string        `json:"email" validate:"required,email"`
	Password  string        `json:"password" validate:"required,min=6,maxbytes=72"`
	Role      entities.Role `json:"role" validate:"required,role"`
}

// AuthResult is returned by signup and login
type AuthResult struct {
	User  *entities.User
	Token string
}

// IdentityService handles accounts and sessions
type IdentityService struct {
	users        repositories.UserRepository
	hasher       providers.PasswordHasher
	tokens       providers.TokenManager
	notifier     tutorNotifier
	queryTimeout time.Duration
}

// NewIdentityService creates a new identity service
func NewIdentityService(
	users repositories.UserRepository,
	hasher providers.PasswordHasher,
	tokens providers.TokenManager,
	eventBus providers.EventBus,
	queryTimeout time.Duration,
) *IdentityService {
	return &IdentityService{
		users:        users,
		hasher:       hasher,
		tokens:       tokens,
		notifier:     tutorNotifier{bus: eventBus},
		queryTimeout: queryTimeout,
	}
}

// OnTutorChange registers handlers run in line after a tutor signs up or is deleted.
// Call before serving requests.
func (s *IdentityService) OnTutorChange(handlers ...TutorChangeHandler) {
	s.notifier.handlers = append(s.notifier.handlers, handlers...)
}

// Signup registers a user and opens a session.
// Tutors start with no courses and no availability.
func (s *IdentityService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	now := time.Now().UTC()
	user := &entities.User{
		ID:           uuid.NewString(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Courses:      []string{},
		Availability: []entities.Slot{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("user_id", user.ID).
		Str("role", string(user.Role)).
		Msg("User signed up")

	if user.IsTutor() {
		s.notifier.notify(ctx, user.ID, entities.TutorEventTypeCoursesUpdated)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	if blank(email) || password == "" {
		return nil, apperrors.NewUnauthorizedError(entities.MsgInvalidCredentials)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if apperrors.IsNotFound(err) {
		return nil, apperrors.NewUnauthorizedError(entities.MsgInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorizedError(entities.MsgInvalidCredentials)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Authenticate resolves a session token to its principal
func (s *IdentityService) Authenticate(token string) (*entities.Principal, error) {
	return s.tokens.Parse(token)
}

// Me returns the user behind the session
func (s *IdentityService) Me(ctx context.Context, actor *entities.Principal) (*entities.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	user, err := s.users.GetByID(ctx, actor.UserID)
	if apperrors.IsNotFound(err) {
		return nil, apperrors.NewUnauthorizedError("account no longer exists")
	}
	return user, err
}

// ListUsers returns every account
func (s *IdentityService) ListUsers(ctx context.Context) ([]*entities.User, error) {
	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.users.List(ctx)
}

// DeleteUser removes an account by id. Bookings referencing it are kept.
func (s *IdentityService) DeleteUser(ctx context.Context, id string) error {
	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	user, err := s.users.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.afterDelete(ctx, user)
	return nil
}

// DeleteUserByEmail removes an account by email
func (s *IdentityService) DeleteUserByEmail(ctx context.Context, email string) error {
	ctx, cancel := withQueryTimeout(ctx, s.queryTimeout)
	defer cancel()

	user, err := s.users.DeleteByEmail(ctx, email)
	if err != nil {
		return err
	}
	s.afterDelete(ctx, user)
	return nil
}

func (s *IdentityService) afterDelete(ctx context.Context, user *entities.User) {
	observability.LoggerFromContext(ctx).Info().
		Str("user_id", user.ID).
		Str("role", string(user.Role)).
		Msg("User deleted")

	if user.IsTutor() {
		s.notifier.notify(ctx, user.ID, entities.TutorEventTypeUserDeleted)
	}
}
