package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

var userColumns = []interface{}{
	"id", "first_name", "last_name", "email", "password_hash", "role", "courses", "created_at", "updated_at",
}

var slotColumns = []interface{}{"id", "tutor_id", "day", "start_time", "end_time", "position"}

// UserAdapter implements the UserRepository interface
type UserAdapter struct {
	client  *postgres.Client
	metrics *observability.Metrics
}

// NewUserAdapter creates a new user adapter. metrics may be nil.
func NewUserAdapter(client *postgres.Client, metrics *observability.Metrics) repositories.UserRepository {
	return &UserAdapter{
		client:  client,
		metrics: metrics,
	}
}

// Create creates a new user
func (a *UserAdapter) Create(ctx context.Context, user *entities.User) error {
	defer observe(ctx, a.metrics, "users.create", time.Now())

	if user.Courses == nil {
		user.Courses = []string{}
	}
	if user.Availability == nil {
		user.Availability = []entities.Slot{}
	}

	record := goqu.Record{
		"id":            user.ID,
		"first_name":    user.FirstName,
		"last_name":     user.LastName,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"role":          string(user.Role),
		"courses":       pq.Array(user.Courses),
		"created_at":    user.CreatedAt,
		"updated_at":    user.UpdatedAt,
	}

	return a.client.WithTx(ctx, func(tx *sql.Tx) error {
		query, args, err := dialect.Insert(usersTable).Prepared(true).Rows(record).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build insert query", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return apperrors.NewConflictError(entities.MsgUserAlreadyExists)
			}
			return apperrors.NewInternalError("failed to create user", err)
		}

		for i := range user.Availability {
			user.Availability[i].Position = i
			if err := insertSlot(ctx, tx, user.ID, &user.Availability[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID retrieves a user by ID
func (a *UserAdapter) GetByID(ctx context.Context, id string) (*entities.User, error) {
	defer observe(ctx, a.metrics, "users.get", time.Now())

	if !validID(id) {
		return nil, apperrors.NewNotFoundError(entities.MsgUserNotFound)
	}
	return getUser(ctx, a.client.DB(), goqu.C("id").Eq(id), false)
}

// GetByIDs retrieves the users that exist among ids
func (a *UserAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.User, error) {
	defer observe(ctx, a.metrics, "users.get_many", time.Now())

	ids = validIDs(ids)
	if len(ids) == 0 {
		return []*entities.User{}, nil
	}

	query, args, err := dialect.From(usersTable).Prepared(true).
		Select(userColumns...).
		Where(goqu.C("id").In(ids)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return listUsers(ctx, a.client.DB(), query, args)
}

// GetByEmail retrieves a user by email, case-insensitively
func (a *UserAdapter) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	defer observe(ctx, a.metrics, "users.get_by_email", time.Now())
	return getUser(ctx, a.client.DB(), emailMatches(email), false)
}

// List returns all users ordered by creation time
func (a *UserAdapter) List(ctx context.Context) ([]*entities.User, error) {
	defer observe(ctx, a.metrics, "users.list", time.Now())

	query, args, err := dialect.From(usersTable).Prepared(true).
		Select(userColumns...).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return listUsers(ctx, a.client.DB(), query, args)
}

// Delete deletes a user; slots go with it, bookings stay
func (a *UserAdapter) Delete(ctx context.Context, id string) (*entities.User, error) {
	defer observe(ctx, a.metrics, "users.delete", time.Now())

	if !validID(id) {
		return nil, apperrors.NewNotFoundError(entities.MsgUserNotFound)
	}
	return a.deleteWhere(ctx, goqu.C("id").Eq(id))
}

// DeleteByEmail deletes a user by email
func (a *UserAdapter) DeleteByEmail(ctx context.Context, email string) (*entities.User, error) {
	defer observe(ctx, a.metrics, "users.delete_by_email", time.Now())
	return a.deleteWhere(ctx, emailMatches(email))
}

func (a *UserAdapter) deleteWhere(ctx context.Context, where exp.Expression) (*entities.User, error) {
	var deleted *entities.User
	err := a.client.WithTx(ctx, func(tx *sql.Tx) error {
		user, err := getUser(ctx, tx, where, true)
		if err != nil {
			return err
		}

		query, args, err := dialect.Delete(usersTable).Prepared(true).
			Where(goqu.C("id").Eq(user.ID)).
			ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build delete query", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return apperrors.NewInternalError("failed to delete user", err)
		}
		deleted = user
		return nil
	})
	return deleted, err
}

// AddCourse appends course unless already listed
func (a *UserAdapter) AddCourse(ctx context.Context, tutorID, course string) ([]string, error) {
	defer observe(ctx, a.metrics, "users.add_course", time.Now())

	var courses []string
	err := a.withTutorLocked(ctx, tutorID, func(tx *sql.Tx, tutor *entities.User) error {
		courses = tutor.Courses
		if tutor.HasCourse(course) {
			return nil
		}
		courses = append(courses, course)
		return updateCourses(ctx, tx, tutorID, courses)
	})
	return courses, err
}

// RemoveCourse removes course if listed
func (a *UserAdapter) RemoveCourse(ctx context.Context, tutorID, course string) ([]string, error) {
	defer observe(ctx, a.metrics, "users.remove_course", time.Now())

	var courses []string
	err := a.withTutorLocked(ctx, tutorID, func(tx *sql.Tx, tutor *entities.User) error {
		courses = tutor.Courses
		if !tutor.HasCourse(course) {
			return nil
		}
		kept := make([]string, 0, len(tutor.Courses))
		for _, c := range tutor.Courses {
			if c != course {
				kept = append(kept, c)
			}
		}
		courses = kept
		return updateCourses(ctx, tx, tutorID, courses)
	})
	return courses, err
}

// AddSlot appends slot after the tutor's last slot
func (a *UserAdapter) AddSlot(ctx context.Context, tutorID string, slot entities.Slot) ([]entities.Slot, error) {
	defer observe(ctx, a.metrics, "users.add_slot", time.Now())

	var slots []entities.Slot
	err := a.withTutorLocked(ctx, tutorID, func(tx *sql.Tx, tutor *entities.User) error {
		if err := entities.CheckSlotFits(tutor.Availability, slot); err != nil {
			return err
		}

		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.Position = 0
		if n := len(tutor.Availability); n > 0 {
			slot.Position = tutor.Availability[n-1].Position + 1
		}
		if err := insertSlot(ctx, tx, tutorID, &slot); err != nil {
			return err
		}
		if err := touchUser(ctx, tx, tutorID); err != nil {
			return err
		}
		slots = append(tutor.Availability, slot)
		return nil
	})
	return slots, err
}

// RemoveSlot removes the referenced slot; an unresolvable reference is a no-op
func (a *UserAdapter) RemoveSlot(ctx context.Context, tutorID string, ref repositories.SlotRef) ([]entities.Slot, error) {
	defer observe(ctx, a.metrics, "users.remove_slot", time.Now())

	var slots []entities.Slot
	err := a.withTutorLocked(ctx, tutorID, func(tx *sql.Tx, tutor *entities.User) error {
		slots = tutor.Availability
		i := resolveSlot(tutor.Availability, ref)
		if i < 0 {
			return nil
		}

		query, args, err := dialect.Delete(slotsTable).Prepared(true).
			Where(goqu.C("id").Eq(tutor.Availability[i].ID), goqu.C("tutor_id").Eq(tutorID)).
			ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build delete query", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return apperrors.NewInternalError("failed to remove availability", err)
		}
		if err := touchUser(ctx, tx, tutorID); err != nil {
			return err
		}

		slots = append(append([]entities.Slot{}, tutor.Availability[:i]...), tutor.Availability[i+1:]...)
		return nil
	})
	return slots, err
}

// SearchTutors returns tutors offering course, or all tutors when course is empty
func (a *UserAdapter) SearchTutors(ctx context.Context, course string) ([]*entities.User, error) {
	defer observe(ctx, a.metrics, "users.search_tutors", time.Now())

	where := []exp.Expression{goqu.C("role").Eq(string(entities.RoleTutor))}
	if course != "" {
		where = append(where, goqu.L("? = ANY(courses)", course))
	}

	query, args, err := dialect.From(usersTable).Prepared(true).
		Select(userColumns...).
		Where(where...).
		Order(goqu.C("last_name").Asc(), goqu.C("first_name").Asc(), goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build search query", err)
	}
	return listUsers(ctx, a.client.DB(), query, args)
}

// withTutorLocked runs fn in a transaction holding a row lock on the tutor.
// A missing user or a non-tutor is NotFound.
func (a *UserAdapter) withTutorLocked(ctx context.Context, tutorID string, fn func(tx *sql.Tx, tutor *entities.User) error) error {
	if !validID(tutorID) {
		return apperrors.NewNotFoundError(entities.MsgTutorNotFound)
	}
	return a.client.WithTx(ctx, func(tx *sql.Tx) error {
		tutor, err := getUser(ctx, tx, goqu.C("id").Eq(tutorID), true)
		if apperrors.IsNotFound(err) || (err == nil && !tutor.IsTutor()) {
			return apperrors.NewNotFoundError(entities.MsgTutorNotFound)
		}
		if err != nil {
			return err
		}
		return fn(tx, tutor)
	})
}

func resolveSlot(slots []entities.Slot, ref repositories.SlotRef) int {
	if ref.Index != nil {
		if i := *ref.Index; i >= 0 && i < len(slots) {
			return i
		}
		return -1
	}
	for i, s := range slots {
		if s.ID == ref.ID {
			return i
		}
	}
	return -1
}

func emailMatches(email string) exp.Expression {
	return goqu.Func("LOWER", goqu.C("email")).Eq(strings.ToLower(strings.TrimSpace(email)))
}

// getUser loads one user with availability. forUpdate locks the user row.
func getUser(ctx context.Context, q queryer, where exp.Expression, forUpdate bool) (*entities.User, error) {
	ds := dialect.From(usersTable).Prepared(true).Select(userColumns...).Where(where)
	if forUpdate {
		ds = ds.ForUpdate(exp.Wait)
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	user, err := scanUser(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(entities.MsgUserNotFound)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get user", err)
	}

	slots, err := loadSlots(ctx, q, []string{user.ID})
	if err != nil {
		return nil, err
	}
	user.Availability = slots[user.ID]
	if user.Availability == nil {
		user.Availability = []entities.Slot{}
	}
	return user, nil
}

func listUsers(ctx context.Context, q queryer, query string, args []interface{}) ([]*entities.User, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list users", err)
	}
	defer rows.Close()

	users := []*entities.User{}
	ids := []string{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan user", err)
		}
		users = append(users, user)
		ids = append(ids, user.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate users", err)
	}
	if len(users) == 0 {
		return users, nil
	}

	slots, err := loadSlots(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		u.Availability = slots[u.ID]
		if u.Availability == nil {
			u.Availability = []entities.Slot{}
		}
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*entities.User, error) {
	var u entities.User
	var role string
	var courses pq.StringArray
	if err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&role, &courses, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.Role = entities.Role(role)
	u.Courses = []string(courses)
	if u.Courses == nil {
		u.Courses = []string{}
	}
	return &u, nil
}

// loadSlots returns the ordered availability of each tutor in ids
func loadSlots(ctx context.Context, q queryer, ids []string) (map[string][]entities.Slot, error) {
	query, args, err := dialect.From(slotsTable).Prepared(true).
		Select(slotColumns...).
		Where(goqu.C("tutor_id").In(ids)).
		Order(goqu.C("tutor_id").Asc(), goqu.C("position").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build slot query", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load availability", err)
	}
	defer rows.Close()

	out := make(map[string][]entities.Slot, len(ids))
	for rows.Next() {
		var s entities.Slot
		var tutorID string
		if err := rows.Scan(&s.ID, &tutorID, &s.Day, &s.StartTime, &s.EndTime, &s.Position); err != nil {
			return nil, apperrors.NewInternalError("failed to scan availability", err)
		}
		out[tutorID] = append(out[tutorID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate availability", err)
	}
	return out, nil
}

func insertSlot(ctx context.Context, q queryer, tutorID string, slot *entities.Slot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	query, args, err := dialect.Insert(slotsTable).Prepared(true).Rows(goqu.Record{
		"id":         slot.ID,
		"tutor_id":   tutorID,
		"day":        slot.Day,
		"start_time": slot.StartTime,
		"end_time":   slot.EndTime,
		"position":   slot.Position,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to add availability", err)
	}
	return nil
}

func updateCourses(ctx context.Context, q queryer, tutorID string, courses []string) error {
	query, args, err := dialect.Update(usersTable).Prepared(true).
		Set(goqu.Record{"courses": pq.Array(courses), "updated_at": time.Now().UTC()}).
		Where(goqu.C("id").Eq(tutorID)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to update courses", err)
	}
	return nil
}

func touchUser(ctx context.Context, q queryer, id string) error {
	query, args, err := dialect.Update(usersTable).Prepared(true).
		Set(goqu.Record{"updated_at": time.Now().UTC()}).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to update user", err)
	}
	return nil
}
