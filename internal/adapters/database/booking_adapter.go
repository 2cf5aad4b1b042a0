package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/entities"
	"github.com/zatekoja/tutorscheduler/backend/internal/domain/repositories"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

var bookingColumns = []interface{}{
	"id", "student_id", "tutor_id", "course", "day", "start_time", "end_time", "slot_id", "status", "created_at", "updated_at",
}

// BookingAdapter implements the BookingRepository interface
type BookingAdapter struct {
	client  *postgres.Client
	metrics *observability.Metrics
}

// NewBookingAdapter creates a new booking adapter. metrics may be nil.
func NewBookingAdapter(client *postgres.Client, metrics *observability.Metrics) repositories.BookingRepository {
	return &BookingAdapter{
		client:  client,
		metrics: metrics,
	}
}

// Create checks the booking against the locked tutor row and inserts it.
// Concurrent bookings for the same tutor serialize on the lock.
func (a *BookingAdapter) Create(ctx context.Context, booking *entities.Booking, opts repositories.BookingOptions) error {
	defer observe(ctx, a.metrics, "bookings.create", time.Now())

	return a.client.WithTx(ctx, func(tx *sql.Tx) error {
		var tutor *entities.User
		if validID(booking.TutorID) {
			t, err := getUser(ctx, tx, goqu.C("id").Eq(booking.TutorID), true)
			if err != nil && !apperrors.IsNotFound(err) {
				return err
			}
			tutor = t
		}

		var student *entities.User
		if validID(booking.StudentID) {
			s, err := getUser(ctx, tx, goqu.C("id").Eq(booking.StudentID), false)
			if err != nil && !apperrors.IsNotFound(err) {
				return err
			}
			student = s
		}

		if err := entities.CheckStudent(student); err != nil {
			return err
		}
		slot, err := entities.CheckBookable(tutor, booking.Course, booking.Day, booking.StartTime, booking.EndTime)
		if err != nil {
			return err
		}

		if opts.PreventDoubleBooking {
			taken, err := slotTaken(ctx, tx, booking)
			if err != nil {
				return err
			}
			if taken {
				return apperrors.NewConflictError(entities.MsgSlotAlreadyBooked)
			}
		}

		slotID := slot.ID
		booking.SlotID = &slotID
		booking.Status = entities.BookingStatusPending

		query, args, err := dialect.Insert(bookingsTable).Prepared(true).Rows(goqu.Record{
			"id":         booking.ID,
			"student_id": booking.StudentID,
			"tutor_id":   booking.TutorID,
			"course":     booking.Course,
			"day":        booking.Day,
			"start_time": booking.StartTime,
			"end_time":   booking.EndTime,
			"slot_id":    slotID,
			"status":     string(booking.Status),
			"created_at": booking.CreatedAt,
			"updated_at": booking.UpdatedAt,
		}).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build insert query", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return apperrors.NewInternalError("failed to create booking", err)
		}
		return nil
	})
}

func slotTaken(ctx context.Context, q queryer, b *entities.Booking) (bool, error) {
	query, args, err := dialect.From(bookingsTable).Prepared(true).
		Select(goqu.L("1")).
		Where(
			goqu.C("tutor_id").Eq(b.TutorID),
			goqu.C("day").Eq(b.Day),
			goqu.C("start_time").Eq(b.StartTime),
			goqu.C("end_time").Eq(b.EndTime),
			goqu.C("status").Neq(string(entities.BookingStatusCancelled)),
			goqu.C("id").Neq(b.ID),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build query", err)
	}

	var one int
	err = q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewInternalError("failed to check existing bookings", err)
	}
	return true, nil
}

// GetByID retrieves a booking by ID
func (a *BookingAdapter) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	defer observe(ctx, a.metrics, "bookings.get", time.Now())

	if !validID(id) {
		return nil, apperrors.NewNotFoundError(entities.MsgBookingNotFound)
	}
	return getBooking(ctx, a.client.DB(), id)
}

func getBooking(ctx context.Context, q queryer, id string) (*entities.Booking, error) {
	query, args, err := dialect.From(bookingsTable).Prepared(true).
		Select(bookingColumns...).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	booking, err := scanBooking(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(entities.MsgBookingNotFound)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get booking", err)
	}
	return booking, nil
}

// UpdateStatus sets the status of a booking. Moving a booking to an active
// status with PreventDoubleBooking runs under the tutor row lock, like Create.
func (a *BookingAdapter) UpdateStatus(ctx context.Context, id string, status entities.BookingStatus, opts repositories.BookingOptions) (*entities.Booking, error) {
	defer observe(ctx, a.metrics, "bookings.update_status", time.Now())

	if !validID(id) {
		return nil, apperrors.NewNotFoundError(entities.MsgBookingNotFound)
	}
	if !opts.PreventDoubleBooking || status == entities.BookingStatusCancelled {
		return setBookingStatus(ctx, a.client.DB(), id, status)
	}

	var updated *entities.Booking
	err := a.client.WithTx(ctx, func(tx *sql.Tx) error {
		current, err := getBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := lockTutorRow(ctx, tx, current.TutorID); err != nil {
			return err
		}

		taken, err := slotTaken(ctx, tx, current)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.NewConflictError(entities.MsgSlotAlreadyBooked)
		}

		updated, err = setBookingStatus(ctx, tx, id, status)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// lockTutorRow takes the row lock Create holds while it checks a slot.
// A deleted tutor has no row to lock.
func lockTutorRow(ctx context.Context, q queryer, tutorID string) error {
	if !validID(tutorID) {
		return nil
	}
	query, args, err := dialect.From(usersTable).Prepared(true).
		Select("id").
		Where(goqu.C("id").Eq(tutorID)).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query", err)
	}

	var locked string
	err = q.QueryRowContext(ctx, query, args...).Scan(&locked)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewInternalError("failed to lock tutor", err)
	}
	return nil
}

func setBookingStatus(ctx context.Context, q queryer, id string, status entities.BookingStatus) (*entities.Booking, error) {
	query, args, err := dialect.Update(bookingsTable).Prepared(true).
		Set(goqu.Record{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		}).
		Where(goqu.C("id").Eq(id)).
		Returning(bookingColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	booking, err := scanBooking(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(entities.MsgBookingNotFound)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to update booking status", err)
	}
	return booking, nil
}

// ListByTutor returns a tutor's bookings, newest first
func (a *BookingAdapter) ListByTutor(ctx context.Context, tutorID string) ([]*entities.Booking, error) {
	defer observe(ctx, a.metrics, "bookings.list_by_tutor", time.Now())
	return a.listBy(ctx, "tutor_id", tutorID)
}

// ListByStudent returns a student's bookings, newest first
func (a *BookingAdapter) ListByStudent(ctx context.Context, studentID string) ([]*entities.Booking, error) {
	defer observe(ctx, a.metrics, "bookings.list_by_student", time.Now())
	return a.listBy(ctx, "student_id", studentID)
}

func (a *BookingAdapter) listBy(ctx context.Context, column, id string) ([]*entities.Booking, error) {
	bookings := []*entities.Booking{}
	if !validID(id) {
		return bookings, nil
	}

	query, args, err := dialect.From(bookingsTable).Prepared(true).
		Select(bookingColumns...).
		Where(goqu.C(column).Eq(id)).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list bookings", err)
	}
	defer rows.Close()

	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan booking", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate bookings", err)
	}
	return bookings, nil
}

func scanBooking(row rowScanner) (*entities.Booking, error) {
	var b entities.Booking
	var slotID sql.NullString
	var status string
	if err := row.Scan(
		&b.ID, &b.StudentID, &b.TutorID, &b.Course, &b.Day, &b.StartTime, &b.EndTime,
		&slotID, &status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if slotID.Valid {
		b.SlotID = &slotID.String
	}
	b.Status = entities.BookingStatus(status)
	return &b, nil
}
