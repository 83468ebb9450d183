// Package dateparse extracts calendar dates and clock times from free-text
// scheduling requests.
package dateparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Result holds what a message said about when. Either field may be nil.
type Result struct {
	Date *time.Time
	Time *ClockTime
}

// Reschedule splits a "move X to Y" message into the appointment being moved
// and its new date/time.
type Reschedule struct {
	Original *time.Time
	NewDate  *time.Time
	NewTime  *ClockTime
}

// Parser resolves relative expressions against a reference clock in a single
// business timezone. Dates are returned at midnight in that timezone.
type Parser struct {
	loc *time.Location
	now func() time.Time
}

// New creates a parser. A nil loc means UTC and a nil now means time.Now.
func New(loc *time.Location, now func() time.Time) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Parser{loc: loc, now: now}
}

// Location is the business timezone dates are resolved in.
func (p *Parser) Location() *time.Location { return p.loc }

// Now is the parser's reference instant in the business timezone.
func (p *Parser) Now() time.Time { return p.now().In(p.loc) }

// Parse extracts a date and a time independently. The first matching date
// rule wins, as does the first matching time rule.
func (p *Parser) Parse(text string) Result {
	lower := strings.ToLower(text)
	today := p.today()

	var res Result
	for _, rule := range dateRules {
		if d, ok := rule(lower, today); ok {
			res.Date = &d
			break
		}
	}
	res.Time = extractTime(lower)
	return res
}

var rescheduleSeparator = regexp.MustCompile(`\s+to\s+`)

// ParseReschedule splits on the last standalone "to". Without one, the whole
// message is read as the new date/time and Original stays nil.
func (p *Parser) ParseReschedule(text string) Reschedule {
	lower := strings.ToLower(text)
	seps := rescheduleSeparator.FindAllStringIndex(lower, -1)
	if len(seps) == 0 {
		parsed := p.Parse(lower)
		return Reschedule{NewDate: parsed.Date, NewTime: parsed.Time}
	}
	last := seps[len(seps)-1]
	before := p.Parse(lower[:last[0]])
	after := p.Parse(lower[last[1]:])
	return Reschedule{Original: before.Date, NewDate: after.Date, NewTime: after.Time}
}

// Combine places clock c on the calendar day of date, in date's location.
func Combine(date time.Time, c ClockTime) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour, c.Minute, 0, 0, date.Location())
}

// IsPast reports whether t is strictly before the reference instant.
func (p *Parser) IsPast(t time.Time) bool {
	return t.Before(p.now())
}

func (p *Parser) today() time.Time {
	n := p.Now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, p.loc)
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

const (
	weekdayAlt = `monday|tuesday|wednesday|thursday|friday|saturday|sunday|tues|thurs|thur|mon|tue|wed|thu|fri|sat|sun`
	monthAlt   = `january|february|march|april|may|june|july|august|september|october|november|december|sept|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec`
)

var (
	nextWeekdayPattern = regexp.MustCompile(`\bnext\s+(` + weekdayAlt + `)\b`)
	thisWeekdayPattern = regexp.MustCompile(`\bthis\s+(` + weekdayAlt + `)\b`)
	// Bare weekdays only match full names; "sat" and "sun" are too common as words.
	bareWeekdayPattern = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	dayMonthPattern    = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s*(?:of\s+)?(` + monthAlt + `)\b`)
	monthDayPattern    = regexp.MustCompile(`\b(` + monthAlt + `)\s*(\d{1,2})(?:st|nd|rd|th)?\b`)
)

type dateRule func(text string, today time.Time) (time.Time, bool)

// dateRules run in priority order; the first match wins.
var dateRules = []dateRule{
	relativeDay,
	nextWeekday,
	thisWeekday,
	bareWeekday,
	explicitMonthDay,
}

func relativeDay(text string, today time.Time) (time.Time, bool) {
	switch {
	case strings.Contains(text, "day after tomorrow"):
		return today.AddDate(0, 0, 2), true
	case strings.Contains(text, "tomorrow"):
		return today.AddDate(0, 0, 1), true
	case strings.Contains(text, "today"):
		return today, true
	}
	return time.Time{}, false
}

// nextWeekday is always 1 to 7 days ahead.
func nextWeekday(text string, today time.Time) (time.Time, bool) {
	m := nextWeekdayPattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	days := (int(weekdays[m[1]]) - int(today.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return today.AddDate(0, 0, days), true
}

// thisWeekday stays inside the current Sunday-start week and may be in the past.
func thisWeekday(text string, today time.Time) (time.Time, bool) {
	m := thisWeekdayPattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	return today.AddDate(0, 0, int(weekdays[m[1]])-int(today.Weekday())), true
}

// bareWeekday is the nearest occurrence on or after today.
func bareWeekday(text string, today time.Time) (time.Time, bool) {
	m := bareWeekdayPattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	days := (int(weekdays[m[1]]) - int(today.Weekday()) + 7) % 7
	return today.AddDate(0, 0, days), true
}

// explicitMonthDay resolves in the current year, rolling to next year when
// the date is already before today.
func explicitMonthDay(text string, today time.Time) (time.Time, bool) {
	var dayStr, monthStr string
	if m := dayMonthPattern.FindStringSubmatch(text); m != nil {
		dayStr, monthStr = m[1], m[2]
	} else if m := monthDayPattern.FindStringSubmatch(text); m != nil {
		monthStr, dayStr = m[1], m[2]
	} else {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return time.Time{}, false
	}
	month := months[monthStr]
	d, ok := calendarDate(today.Year(), month, day, today.Location())
	if !ok {
		return time.Time{}, false
	}
	if d.Before(today) {
		if d, ok = calendarDate(today.Year()+1, month, day, today.Location()); !ok {
			return time.Time{}, false
		}
	}
	return d, true
}

// calendarDate rejects days that do not exist in the month (e.g. Feb 30).
func calendarDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if d.Month() != month {
		return time.Time{}, false
	}
	return d, true
}
