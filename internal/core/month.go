package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// Date is a calendar day in UTC.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, Invalid("date %q must be YYYY-MM-DD", s)
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// AddMonths steps n calendar months keeping the day of month. When the
// target month is shorter the day is clamped to its last day, so
// 2025-01-31 + 1 month is 2025-02-28.
func (d Date) AddMonths(n int) Date {
	target := MonthOf(d.Time).Add(n)
	return target.Day(d.Day())
}

// Month is a calendar month, the unit of statements, confirmations and
// projections.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth normalizes month overflow, so NewMonth(2025, 13) is 2026-01.
func NewMonth(year int, month time.Month) Month {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: t.Month()}
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth accepts YYYY-MM or a full YYYY-MM-DD date.
func ParseMonth(s string) (Month, error) {
	if t, err := time.Parse(monthLayout, s); err == nil {
		return MonthOf(t), nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return MonthOf(t), nil
	}
	return Month{}, Invalid("month %q must be YYYY-MM", s)
}

func (m Month) IsZero() bool { return m.Year == 0 && m.Month == 0 }

// String formats the month as YYYY-MM.
func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Add steps n months forward (or backward when negative).
func (m Month) Add(n int) Month {
	return NewMonth(m.Year, m.Month+time.Month(n))
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// First returns the first day of the month.
func (m Month) First() Date { return NewDate(m.Year, m.Month, 1) }

// Last returns the last day of the month.
func (m Month) Last() Date { return NewDate(m.Year, m.Month, m.Days()) }

// Day returns the given day inside the month, clamped to [1, Days()].
func (m Month) Day(day int) Date {
	if day < 1 {
		day = 1
	}
	if last := m.Days(); day > last {
		day = last
	}
	return NewDate(m.Year, m.Month, day)
}

// Contains reports whether d falls inside the month.
func (m Month) Contains(d Date) bool {
	return !d.IsZero() && d.Year() == m.Year && d.Month() == m.Month
}

// Before reports whether m is strictly earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// MarshalJSON encodes the date as "YYYY-MM-DD", or null when zero.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(strings.Trim(s, `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON encodes the month as "YYYY-MM", or null when zero.
func (m Month) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Month) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		*m = Month{}
		return nil
	}
	parsed, err := ParseMonth(strings.Trim(s, `"`))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
