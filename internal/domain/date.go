package domain

import "time"

// DateLayout is the calendar-date format used across the API and storage.
// Dates carry no time-of-day component.
const DateLayout = "2006-01-02"

// ParseDate validates a calendar date string
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, Validation("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ValidateRange checks both dates and requires start <= end
func ValidateRange(start, end string) error {
	s, err := ParseDate(start)
	if err != nil {
		return err
	}
	e, err := ParseDate(end)
	if err != nil {
		return err
	}
	if s.After(e) {
		return Validation("invalid range: start %s is after end %s", start, end)
	}
	return nil
}
