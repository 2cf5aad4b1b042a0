package entities

import (
	"time"
)

// clockLayout is the HH:MM form used by the dashboards for start and end times
const clockLayout = "15:04"

// Slot is one availability window advertised by a tutor.
// Day and times are opaque strings; they are compared by exact equality.
type Slot struct {
	ID        string `json:"id" db:"id"`
	Day       string `json:"day" db:"day"`
	StartTime string `json:"startTime" db:"start_time"`
	EndTime   string `json:"endTime" db:"end_time"`
	Position  int    `json:"-" db:"position"`
}

// Matches reports whether the slot is exactly (day, startTime, endTime)
func (s Slot) Matches(day, startTime, endTime string) bool {
	return s.Day == day && s.StartTime == startTime && s.EndTime == endTime
}

// Clock parses the start and end times. ok is false when either is not HH:MM.
func (s Slot) Clock() (start, end time.Time, ok bool) {
	start, err := time.Parse(clockLayout, s.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err = time.Parse(clockLayout, s.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// Overlaps reports whether two slots on the same day share any time.
// Slots whose times are not HH:MM never overlap anything.
func (s Slot) Overlaps(other Slot) bool {
	if s.Day != other.Day {
		return false
	}
	aStart, aEnd, ok := s.Clock()
	if !ok {
		return false
	}
	bStart, bEnd, ok := other.Clock()
	if !ok {
		return false
	}
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
