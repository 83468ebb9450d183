// Package calendar defines the calendar collaborator used by the conversation
// layer and ships Google Calendar and in-memory implementations.
package calendar

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSlotUnavailable is returned when a slot was taken between the
	// availability check and the write.
	ErrSlotUnavailable = errors.New("calendar: slot no longer available")
	// ErrSlotLocked is returned when another turn is writing the same slot.
	ErrSlotLocked = errors.New("calendar: slot is locked by another request")
	// ErrEventNotFound is returned when updating or deleting an unknown event.
	ErrEventNotFound = errors.New("calendar: event not found")
)

// Event is a calendar entry as seen by the conversation layer.
type Event struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Slot is a free interval offered to the user.
type Slot struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewEvent describes an event to create.
type NewEvent struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

// Calendar is the backend the conversation layer books against. Every call
// either completes or returns an error; callers do not retry.
type Calendar interface {
	// IsAvailable reports whether no busy interval overlaps [start, end).
	IsAvailable(ctx context.Context, start, end time.Time) (bool, error)
	// FindFreeSlots returns up to count free slots inside the business-hour
	// window of date, in chronological order.
	FindFreeSlots(ctx context.Context, date time.Time, count int) ([]Slot, error)
	CreateEvent(ctx context.Context, ev NewEvent) (Event, error)
	// FindEventByDate returns the first event on the calendar day of date, or
	// nil when the day is empty.
	FindEventByDate(ctx context.Context, date time.Time) (*Event, error)
	UpdateEvent(ctx context.Context, id string, start, end time.Time) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// Interval is a half-open busy period.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether [start, end) intersects the interval.
func (i Interval) Overlaps(start, end time.Time) bool {
	return start.Before(i.End) && end.After(i.Start)
}
