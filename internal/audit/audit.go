// Package audit records completed appointment actions to durable sinks.
package audit

import (
	"context"
	"errors"
	"time"
)

// Action is what happened to an appointment.
type Action string

const (
	ActionBooked      Action = "BOOKED"
	ActionRescheduled Action = "RESCHEDULED"
	ActionCancelled   Action = "CANCELLED"
)

// Status is the appointment's state after the action.
type Status string

const (
	StatusConfirmed Status = "Confirmed"
	StatusUpdated   Status = "Updated"
	StatusCancelled Status = "Cancelled"
)

// Entry is one audit row.
type Entry struct {
	Timestamp           time.Time
	UserRequest         string
	Action              Action
	AppointmentDateTime string
	Status              Status
}

// Booked builds the entry for a new booking.
func Booked(at time.Time, userRequest, appointment string) Entry {
	return Entry{Timestamp: at, UserRequest: userRequest, Action: ActionBooked, AppointmentDateTime: appointment, Status: StatusConfirmed}
}

// Rescheduled builds the entry for a moved appointment; appointment is the new time.
func Rescheduled(at time.Time, userRequest, appointment string) Entry {
	return Entry{Timestamp: at, UserRequest: userRequest, Action: ActionRescheduled, AppointmentDateTime: appointment, Status: StatusUpdated}
}

// Cancelled builds the entry for a cancelled appointment.
func Cancelled(at time.Time, userRequest, appointment string) Entry {
	return Entry{Timestamp: at, UserRequest: userRequest, Action: ActionCancelled, AppointmentDateTime: appointment, Status: StatusCancelled}
}

// Logger appends entries to a sink.
type Logger interface {
	LogAction(ctx context.Context, entry Entry) error
}

// MultiLogger writes each entry to every sink and joins their errors.
type MultiLogger []Logger

// LogAction never stops at the first failing sink.
func (m MultiLogger) LogAction(ctx context.Context, entry Entry) error {
	var errs []error
	for _, l := range m {
		if l == nil {
			continue
		}
		if err := l.LogAction(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopLogger discards entries.
type NopLogger struct{}

func (NopLogger) LogAction(context.Context, Entry) error { return nil }
