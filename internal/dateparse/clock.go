package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ClockTime is a wall-clock time of day in 24-hour form.
type ClockTime struct {
	Hour   int
	Minute int
}

// String renders "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Valid reports whether the hour and minute are in range.
func (c ClockTime) Valid() bool {
	return c.Hour >= 0 && c.Hour <= 23 && c.Minute >= 0 && c.Minute <= 59
}

var clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// ParseClock reads an "HH:MM" value such as a staged target time.
func ParseClock(s string) (ClockTime, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return ClockTime{}, fmt.Errorf("dateparse: invalid clock time %q", s)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	c := ClockTime{Hour: h, Minute: min}
	if !c.Valid() {
		return ClockTime{}, fmt.Errorf("dateparse: clock time %q out of range", s)
	}
	return c, nil
}

var (
	// "2:30", "2:30pm", "14:00"
	colonTimePattern = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	// "2pm", "11 am"
	meridiemTimePattern = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)
)

type timeRule func(text string) (ClockTime, bool)

var timeRules = []timeRule{
	func(text string) (ClockTime, bool) {
		m := colonTimePattern.FindStringSubmatch(text)
		if m == nil {
			return ClockTime{}, false
		}
		return toClock(m[1], m[2], m[3])
	},
	func(text string) (ClockTime, bool) {
		m := meridiemTimePattern.FindStringSubmatch(text)
		if m == nil {
			return ClockTime{}, false
		}
		return toClock(m[1], "0", m[2])
	},
}

func toClock(hour, minute, meridiem string) (ClockTime, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil {
		return ClockTime{}, false
	}
	m, err := strconv.Atoi(minute)
	if err != nil {
		return ClockTime{}, false
	}
	switch meridiem {
	case "pm":
		if h < 12 {
			h += 12
		}
	case "am":
		if h == 12 {
			h = 0
		}
	}
	c := ClockTime{Hour: h, Minute: m}
	return c, c.Valid()
}

// extractTime returns the first time rule that matches.
func extractTime(text string) *ClockTime {
	for _, rule := range timeRules {
		if c, ok := rule(text); ok {
			return &c
		}
	}
	return nil
}
