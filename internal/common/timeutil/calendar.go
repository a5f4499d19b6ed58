// Package timeutil maps instants onto business calendar dates.
package timeutil

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Calendar answers "what day is it" for one business timezone.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

func NewCalendar(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{loc: loc, now: now}
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Today returns the current business date as YYYY-MM-DD.
func (c *Calendar) Today() string {
	return c.now().In(c.loc).Format(DateLayout)
}

// ResolveDate returns date unchanged when set, today otherwise. A set date must parse.
func (c *Calendar) ResolveDate(date string) (string, error) {
	if date == "" {
		return c.Today(), nil
	}
	if _, err := time.ParseInLocation(DateLayout, date, c.loc); err != nil {
		return "", fmt.Errorf("date %q must be YYYY-MM-DD", date)
	}
	return date, nil
}

// IsPast reports whether date is strictly before today. Past days are finalized by the rollup.
func (c *Calendar) IsPast(date string) bool {
	// YYYY-MM-DD compares lexically in calendar order
	return date < c.Today()
}
