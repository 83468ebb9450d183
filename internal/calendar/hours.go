package calendar

import (
	"fmt"
	"time"
)

// Hours is the business-hour window searched for free slots.
type Hours struct {
	StartHour    int
	EndHour      int
	SlotDuration time.Duration
	Location     *time.Location
}

// DefaultHours is 9:00-18:00 with 30 minute slots.
func DefaultHours(loc *time.Location) Hours {
	return Hours{StartHour: 9, EndHour: 18, SlotDuration: 30 * time.Minute, Location: loc}
}

// Validate rejects windows that cannot produce a slot.
func (h Hours) Validate() error {
	if h.StartHour < 0 || h.EndHour > 24 || h.StartHour >= h.EndHour {
		return fmt.Errorf("calendar: invalid business hours %d-%d", h.StartHour, h.EndHour)
	}
	if h.SlotDuration <= 0 {
		return fmt.Errorf("calendar: slot duration must be positive, got %s", h.SlotDuration)
	}
	return nil
}

func (h Hours) loc() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}

// Window returns the business-hour bounds on the calendar day of date.
func (h Hours) Window(date time.Time) (time.Time, time.Time) {
	d := date.In(h.loc())
	start := time.Date(d.Year(), d.Month(), d.Day(), h.StartHour, 0, 0, 0, h.loc())
	end := time.Date(d.Year(), d.Month(), d.Day(), h.EndHour, 0, 0, 0, h.loc())
	return start, end
}

// Day returns [00:00, next 00:00) on the calendar day of date.
func (h Hours) Day(date time.Time) (time.Time, time.Time) {
	d := date.In(h.loc())
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, h.loc())
	return start, start.AddDate(0, 0, 1)
}

// ScanFreeSlots walks [windowStart, windowEnd) in step increments and returns
// up to count slots of length step that overlap no busy interval. Slots that
// start before notBefore are skipped.
func ScanFreeSlots(busy []Interval, windowStart, windowEnd, notBefore time.Time, step time.Duration, count int) []Slot {
	if count <= 0 || step <= 0 {
		return nil
	}
	var slots []Slot
	for cur := windowStart; cur.Before(windowEnd) && len(slots) < count; cur = cur.Add(step) {
		end := cur.Add(step)
		if end.After(windowEnd) || cur.Before(notBefore) {
			continue
		}
		free := true
		for _, b := range busy {
			if b.Overlaps(cur, end) {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, Slot{Label: SlotLabel(cur, end), Start: cur, End: end})
		}
	}
	return slots
}

// SlotLabel renders "Mon, Jan 5, 2:00 PM - 2:30 PM".
func SlotLabel(start, end time.Time) string {
	end = end.In(start.Location())
	return start.Format("Mon, Jan 2, 3:04 PM") + " - " + end.Format("3:04 PM")
}
