package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryCalendar(now time.Time) *MemoryCalendar {
	return NewMemoryCalendar(DefaultHours(time.UTC), func() time.Time { return now })
}

func TestMemoryCalendar_AvailabilityAndCreate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	cal := newTestMemoryCalendar(now)

	start := time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	ok, err := cal.IsAvailable(ctx, start, end)
	require.NoError(t, err)
	assert.True(t, ok)

	created, err := cal.CreateEvent(ctx, NewEvent{Title: "Appointment", Start: start, End: end})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	ok, err = cal.IsAvailable(ctx, start.Add(15*time.Minute), end.Add(15*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = cal.IsAvailable(ctx, end, end.Add(30*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok, "back-to-back slot should be free")
}

func TestMemoryCalendar_CreateRejectsEmptyInterval(t *testing.T) {
	cal := newTestMemoryCalendar(time.Now())
	start := time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)
	_, err := cal.CreateEvent(context.Background(), NewEvent{Start: start, End: start})
	assert.Error(t, err)
}

func TestMemoryCalendar_FindEventByDateReturnsEarliest(t *testing.T) {
	ctx := context.Background()
	cal := newTestMemoryCalendar(time.Now())
	cal.Seed(
		Event{ID: "late", Title: "Late", Start: time.Date(2026, 10, 19, 16, 0, 0, 0, time.UTC), End: time.Date(2026, 10, 19, 16, 30, 0, 0, time.UTC)},
		Event{ID: "early", Title: "Early", Start: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC), End: time.Date(2026, 10, 19, 10, 30, 0, 0, time.UTC)},
		Event{ID: "other", Title: "Other", Start: time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC), End: time.Date(2026, 10, 20, 10, 30, 0, 0, time.UTC)},
	)

	found, err := cal.FindEventByDate(ctx, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "early", found.ID)

	none, err := cal.FindEventByDate(ctx, time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMemoryCalendar_FindFreeSlots(t *testing.T) {
	ctx := context.Background()
	cal := newTestMemoryCalendar(time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC))
	cal.Seed(Event{Start: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), End: time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)})

	slots, err := cal.FindFreeSlots(ctx, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), 2)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, 9, slots[0].Start.Hour())
	assert.Equal(t, 30, slots[0].Start.Minute())
	assert.Equal(t, 10, slots[1].Start.Hour())
}

func TestMemoryCalendar_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	cal := newTestMemoryCalendar(time.Now())
	start := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	cal.Seed(Event{ID: "evt", Start: start, End: start.Add(30 * time.Minute)})

	moved, err := cal.UpdateEvent(ctx, "evt", start.Add(2*time.Hour), start.Add(150*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 11, moved.Start.Hour())

	_, err = cal.UpdateEvent(ctx, "missing", start, start)
	assert.True(t, errors.Is(err, ErrEventNotFound))

	require.NoError(t, cal.DeleteEvent(ctx, "evt"))
	assert.Empty(t, cal.Events())
	assert.True(t, errors.Is(cal.DeleteEvent(ctx, "evt"), ErrEventNotFound))
}
