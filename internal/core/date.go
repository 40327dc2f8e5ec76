package core

import (
	"errors"
	"time"
)

// DateLayout is the wire and storage format of a calendar date.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time component, always at UTC midnight.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day. Out-of-range values are
// normalized the way time.Date does.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time-of-day of t, keeping its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MonthBounds returns the first and last calendar day of a month.
func MonthBounds(year, month int) (Date, Date, error) {
	if month < 1 || month > 12 {
		return Date{}, Date{}, ErrInvalidMonth
	}
	first := NewDate(year, month, 1)
	// Day 0 of the next month is the last day of this one.
	last := NewDate(year, month+1, 0)
	return first, last, nil
}
