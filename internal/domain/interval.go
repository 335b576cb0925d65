package domain

import "time"

// DateLayout is the wire format for every date in the API and seed files.
const DateLayout = "2006-01-02"

// Interval is a closed date range [Start, End].
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether both ends are set and Start <= End.
func (i Interval) Valid() bool {
	return !i.Start.IsZero() && !i.End.IsZero() && !i.Start.After(i.End)
}

// Overlaps uses the closed-interval rule: touching boundaries overlap.
func (i Interval) Overlaps(o Interval) bool {
	return !i.Start.After(o.End) && !i.End.Before(o.Start)
}

// Contains reports whether day falls inside the interval, boundaries included.
func (i Interval) Contains(day time.Time) bool {
	d := Day(day)
	return !d.Before(Day(i.Start)) && !d.After(Day(i.End))
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}
