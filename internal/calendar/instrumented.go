package calendar

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Observer records the latency and outcome of calendar calls.
type Observer interface {
	ObserveCalendarRequest(operation, status string, elapsed time.Duration)
}

// InstrumentedCalendar adds tracing spans and latency metrics to every call.
type InstrumentedCalendar struct {
	inner    Calendar
	observer Observer
	tracer   trace.Tracer
}

var _ Calendar = (*InstrumentedCalendar)(nil)

// Instrument wraps inner. A nil observer only traces.
func Instrument(inner Calendar, observer Observer) *InstrumentedCalendar {
	return &InstrumentedCalendar{
		inner:    inner,
		observer: observer,
		tracer:   otel.Tracer("scheduler.internal.calendar"),
	}
}

func (c *InstrumentedCalendar) IsAvailable(ctx context.Context, start, end time.Time) (bool, error) {
	var ok bool
	err := c.observe(ctx, "is_available", func(ctx context.Context) error {
		var err error
		ok, err = c.inner.IsAvailable(ctx, start, end)
		return err
	}, attribute.String("start", start.Format(time.RFC3339)))
	return ok, err
}

func (c *InstrumentedCalendar) FindFreeSlots(ctx context.Context, date time.Time, count int) ([]Slot, error) {
	var slots []Slot
	err := c.observe(ctx, "find_free_slots", func(ctx context.Context) error {
		var err error
		slots, err = c.inner.FindFreeSlots(ctx, date, count)
		return err
	}, attribute.String("date", date.Format("2006-01-02")), attribute.Int("count", count))
	return slots, err
}

func (c *InstrumentedCalendar) CreateEvent(ctx context.Context, ev NewEvent) (Event, error) {
	var created Event
	err := c.observe(ctx, "create_event", func(ctx context.Context) error {
		var err error
		created, err = c.inner.CreateEvent(ctx, ev)
		return err
	}, attribute.String("start", ev.Start.Format(time.RFC3339)))
	return created, err
}

func (c *InstrumentedCalendar) FindEventByDate(ctx context.Context, date time.Time) (*Event, error) {
	var found *Event
	err := c.observe(ctx, "find_event_by_date", func(ctx context.Context) error {
		var err error
		found, err = c.inner.FindEventByDate(ctx, date)
		return err
	}, attribute.String("date", date.Format("2006-01-02")))
	return found, err
}

func (c *InstrumentedCalendar) UpdateEvent(ctx context.Context, id string, start, end time.Time) (Event, error) {
	var updated Event
	err := c.observe(ctx, "update_event", func(ctx context.Context) error {
		var err error
		updated, err = c.inner.UpdateEvent(ctx, id, start, end)
		return err
	}, attribute.String("event_id", id))
	return updated, err
}

func (c *InstrumentedCalendar) DeleteEvent(ctx context.Context, id string) error {
	return c.observe(ctx, "delete_event", func(ctx context.Context) error {
		return c.inner.DeleteEvent(ctx, id)
	}, attribute.String("event_id", id))
}

func (c *InstrumentedCalendar) observe(ctx context.Context, op string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := c.tracer.Start(ctx, "calendar."+op, trace.WithAttributes(attrs...))
	defer span.End()

	started := time.Now()
	err := fn(ctx)
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if c.observer != nil {
		c.observer.ObserveCalendarRequest(op, status, time.Since(started))
	}
	return err
}
