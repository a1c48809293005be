package plan

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Civil calendar date (no time of day, no zone)
// =============================================================================

// Date is a plain calendar day. The zero value is "no date".
// Its string form is yyyy-mm-dd, so lexicographic order on the string
// form matches chronological order.
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a strict yyyy-mm-dd date. Anything else is an error.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return Date{t: t}, nil
}

// DateOf truncates a wall-clock time to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func nowUTC() time.Time { return time.Now().UTC() }

func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }
func (d Date) IsZero() bool      { return d.t.IsZero() }

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

// MarshalJSON encodes the date as a "yyyy-mm-dd" string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON is tolerant: malformed input yields the zero Date instead
// of failing the whole decode, so legacy rows survive a read. Validation
// reports zero dates field by field.
func (d *Date) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		*d = Date{}
		return nil
	}
	*d = parsed
	return nil
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// nextMonth advances a (year, month) pair by one month.
func nextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}

// monthOnOrBefore reports whether (y1, m1) <= (y2, m2).
func monthOnOrBefore(y1 int, m1 time.Month, y2 int, m2 time.Month) bool {
	if y1 != y2 {
		return y1 < y2
	}
	return m1 <= m2
}

// ParseMonth parses a strict "YYYY-MM" month selector: exactly 7 characters,
// dash at position 4, month in [1, 12].
func ParseMonth(raw string) (int, time.Month, error) {
	if len(raw) != 7 || raw[4] != '-' {
		return 0, 0, ErrInvalidMonth
	}
	var year, month int
	if _, err := fmt.Sscanf(raw, "%4d-%2d", &year, &month); err != nil {
		return 0, 0, ErrInvalidMonth
	}
	if month < 1 || month > 12 {
		return 0, 0, ErrInvalidMonth
	}
	return year, time.Month(month), nil
}

// MonthRange returns the [start, end) date bounds of a "YYYY-MM" month.
func MonthRange(raw string) (Date, Date, error) {
	year, month, err := ParseMonth(raw)
	if err != nil {
		return Date{}, Date{}, err
	}
	start := NewDate(year, month, 1)
	nextY, nextM := nextMonth(year, month)
	return start, NewDate(nextY, nextM, 1), nil
}
