package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryCalendar is a process-local calendar used in development and tests.
type MemoryCalendar struct {
	mu     sync.Mutex
	events map[string]Event
	nextID int
	hours  Hours
	now    func() time.Time
}

var _ Calendar = (*MemoryCalendar)(nil)

// NewMemoryCalendar creates an empty calendar. A nil now defaults to time.Now.
func NewMemoryCalendar(hours Hours, now func() time.Time) *MemoryCalendar {
	if now == nil {
		now = time.Now
	}
	return &MemoryCalendar{
		events: make(map[string]Event),
		hours:  hours,
		now:    now,
	}
}

// Seed inserts events as-is, generating ids for those without one.
func (m *MemoryCalendar) Seed(events ...Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range events {
		if ev.ID == "" {
			ev.ID = m.newIDLocked()
		}
		m.events[ev.ID] = ev
	}
}

// Events returns every stored event ordered by start time.
func (m *MemoryCalendar) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedLocked()
}

func (m *MemoryCalendar) IsAvailable(_ context.Context, start, end time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.events {
		if (Interval{Start: ev.Start, End: ev.End}).Overlaps(start, end) {
			return false, nil
		}
	}
	return true, nil
}

func (m *MemoryCalendar) FindFreeSlots(_ context.Context, date time.Time, count int) ([]Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	windowStart, windowEnd := m.hours.Window(date)
	var busy []Interval
	for _, ev := range m.events {
		b := Interval{Start: ev.Start, End: ev.End}
		if b.Overlaps(windowStart, windowEnd) {
			busy = append(busy, b)
		}
	}
	return ScanFreeSlots(busy, windowStart, windowEnd, m.now(), m.hours.SlotDuration, count), nil
}

func (m *MemoryCalendar) CreateEvent(_ context.Context, ev NewEvent) (Event, error) {
	if !ev.End.After(ev.Start) {
		return Event{}, fmt.Errorf("calendar: event end %s is not after start %s", ev.End, ev.Start)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	created := Event{ID: m.newIDLocked(), Title: ev.Title, Start: ev.Start, End: ev.End}
	m.events[created.ID] = created
	return created, nil
}

func (m *MemoryCalendar) FindEventByDate(_ context.Context, date time.Time) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dayStart, dayEnd := m.hours.Day(date)
	for _, ev := range m.sortedLocked() {
		if (Interval{Start: ev.Start, End: ev.End}).Overlaps(dayStart, dayEnd) {
			found := ev
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MemoryCalendar) UpdateEvent(_ context.Context, id string, start, end time.Time) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return Event{}, fmt.Errorf("calendar: update %s: %w", id, ErrEventNotFound)
	}
	ev.Start, ev.End = start, end
	m.events[id] = ev
	return ev, nil
}

func (m *MemoryCalendar) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return fmt.Errorf("calendar: delete %s: %w", id, ErrEventNotFound)
	}
	delete(m.events, id)
	return nil
}

func (m *MemoryCalendar) newIDLocked() string {
	m.nextID++
	return fmt.Sprintf("evt-%d", m.nextID)
}

func (m *MemoryCalendar) sortedLocked() []Event {
	out := make([]Event, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}
