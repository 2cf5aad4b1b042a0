package entities

import (
	apperrors "github.com/zatekoja/tutorscheduler/backend/pkg/errors"
)

const (
	MsgTutorNotFound      = "Tutor not found"
	MsgStudentNotFound    = "Student not found"
	MsgCourseNotOffered   = "Tutor does not offer this course"
	MsgSlotNotAvailable   = "Time slot not available"
	MsgSlotAlreadyBooked  = "Time slot already booked"
	MsgInvalidStatus      = "Invalid status"
	MsgBookingNotFound    = "Booking not found"
	MsgSlotOverlaps       = "Time slot overlaps an existing slot"
	MsgUserAlreadyExists  = "User already exists"
	MsgInvalidCredentials = "Invalid credentials"
	MsgUserNotFound       = "User not found"
)

// CheckBookable resolves the slot a booking for (course, day, start, end) would occupy.
// The tutor must be a tutor, offer course, and advertise exactly that slot.
func CheckBookable(tutor *User, course, day, startTime, endTime string) (Slot, error) {
	if tutor == nil || !tutor.IsTutor() {
		return Slot{}, apperrors.NewNotFoundError(MsgTutorNotFound)
	}
	if !tutor.HasCourse(course) {
		return Slot{}, apperrors.NewValidationError(MsgCourseNotOffered)
	}
	slot, ok := tutor.FindSlot(day, startTime, endTime)
	if !ok {
		return Slot{}, apperrors.NewValidationError(MsgSlotNotAvailable)
	}
	return slot, nil
}

// CheckStudent fails NotFound unless u is a student
func CheckStudent(u *User) error {
	if u == nil || !u.IsStudent() {
		return apperrors.NewNotFoundError(MsgStudentNotFound)
	}
	return nil
}

// CheckSlotFits fails Conflict when slot overlaps any of existing
func CheckSlotFits(existing []Slot, slot Slot) error {
	for _, s := range existing {
		if s.Overlaps(slot) {
			return apperrors.NewConflictError(MsgSlotOverlaps)
		}
	}
	return nil
}
