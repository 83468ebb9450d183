package calendar

import (
	"context"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"
)

// GoogleCalendar talks to a single Google Calendar through the v3 API.
type GoogleCalendar struct {
	svc        *gcal.Service
	calendarID string
	hours      Hours
	now        func() time.Time
}

var _ Calendar = (*GoogleCalendar)(nil)

// NewGoogleCalendar wraps an authenticated calendar service.
func NewGoogleCalendar(svc *gcal.Service, calendarID string, hours Hours, now func() time.Time) (*GoogleCalendar, error) {
	if svc == nil {
		return nil, fmt.Errorf("calendar: google service is required")
	}
	if calendarID == "" {
		return nil, fmt.Errorf("calendar: calendar id is required")
	}
	if err := hours.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &GoogleCalendar{svc: svc, calendarID: calendarID, hours: hours, now: now}, nil
}

func (g *GoogleCalendar) IsAvailable(ctx context.Context, start, end time.Time) (bool, error) {
	busy, err := g.busy(ctx, start, end)
	if err != nil {
		return false, err
	}
	return len(busy) == 0, nil
}

func (g *GoogleCalendar) FindFreeSlots(ctx context.Context, date time.Time, count int) ([]Slot, error) {
	windowStart, windowEnd := g.hours.Window(date)
	busy, err := g.busy(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	return ScanFreeSlots(busy, windowStart, windowEnd, g.now(), g.hours.SlotDuration, count), nil
}

func (g *GoogleCalendar) CreateEvent(ctx context.Context, ev NewEvent) (Event, error) {
	created, err := g.svc.Events.Insert(g.calendarID, &gcal.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Start:       g.eventTime(ev.Start),
		End:         g.eventTime(ev.End),
	}).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("calendar: create event: %w", err)
	}
	return g.toEvent(created)
}

func (g *GoogleCalendar) FindEventByDate(ctx context.Context, date time.Time) (*Event, error) {
	dayStart, dayEnd := g.hours.Day(date)
	list, err := g.svc.Events.List(g.calendarID).
		TimeMin(dayStart.Format(time.RFC3339)).
		TimeMax(dayEnd.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: list events: %w", err)
	}
	if len(list.Items) == 0 {
		return nil, nil
	}
	ev, err := g.toEvent(list.Items[0])
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (g *GoogleCalendar) UpdateEvent(ctx context.Context, id string, start, end time.Time) (Event, error) {
	updated, err := g.svc.Events.Patch(g.calendarID, id, &gcal.Event{
		Start: g.eventTime(start),
		End:   g.eventTime(end),
	}).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("calendar: update event %s: %w", id, err)
	}
	return g.toEvent(updated)
}

func (g *GoogleCalendar) DeleteEvent(ctx context.Context, id string) error {
	if err := g.svc.Events.Delete(g.calendarID, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar: delete event %s: %w", id, err)
	}
	return nil
}

func (g *GoogleCalendar) busy(ctx context.Context, start, end time.Time) ([]Interval, error) {
	resp, err := g.svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin:  start.Format(time.RFC3339),
		TimeMax:  end.Format(time.RFC3339),
		TimeZone: g.hours.loc().String(),
		Items:    []*gcal.FreeBusyRequestItem{{Id: g.calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: freebusy query: %w", err)
	}
	cal, ok := resp.Calendars[g.calendarID]
	if !ok {
		return nil, nil
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("calendar: freebusy for %s: %s", g.calendarID, cal.Errors[0].Reason)
	}
	busy := make([]Interval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		bStart, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			return nil, fmt.Errorf("calendar: parse busy start %q: %w", period.Start, err)
		}
		bEnd, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			return nil, fmt.Errorf("calendar: parse busy end %q: %w", period.End, err)
		}
		busy = append(busy, Interval{Start: bStart, End: bEnd})
	}
	return busy, nil
}

func (g *GoogleCalendar) eventTime(t time.Time) *gcal.EventDateTime {
	loc := g.hours.loc()
	return &gcal.EventDateTime{
		DateTime: t.In(loc).Format(time.RFC3339),
		TimeZone: loc.String(),
	}
}

func (g *GoogleCalendar) toEvent(ev *gcal.Event) (Event, error) {
	start, err := g.parseEventTime(ev.Start)
	if err != nil {
		return Event{}, fmt.Errorf("calendar: event %s start: %w", ev.Id, err)
	}
	end, err := g.parseEventTime(ev.End)
	if err != nil {
		return Event{}, fmt.Errorf("calendar: event %s end: %w", ev.Id, err)
	}
	title := ev.Summary
	if title == "" {
		title = "Appointment"
	}
	return Event{ID: ev.Id, Title: title, Start: start, End: end}, nil
}

// parseEventTime accepts timed events and all-day events (date only).
func (g *GoogleCalendar) parseEventTime(edt *gcal.EventDateTime) (time.Time, error) {
	if edt == nil {
		return time.Time{}, fmt.Errorf("missing time")
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, err
		}
		return t.In(g.hours.loc()), nil
	}
	return time.ParseInLocation("2006-01-02", edt.Date, g.hours.loc())
}
