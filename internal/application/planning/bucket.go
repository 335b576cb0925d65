// Package planning computes pool-level capacity tables over a rolling horizon.
package planning

import (
	"fmt"
	"time"

	"ppm-backend/internal/domain"
)

// Period is the granularity of a TimeBucket.
type Period string

const (
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
)

// ParsePeriod accepts week, month or quarter. Empty means month.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodMonth:
		return PeriodMonth, nil
	case PeriodWeek, PeriodQuarter:
		return Period(s), nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// TimeBucket is a closed day range [Start, End] with a display label.
type TimeBucket struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (b TimeBucket) Interval() domain.Interval {
	return domain.Interval{Start: b.Start, End: b.End}
}

// periodStart returns midnight UTC on the first day of the period containing t.
// Weeks start on Monday.
func periodStart(t time.Time, p Period) time.Time {
	d := domain.Day(t)
	switch p {
	case PeriodWeek:
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -offset)
	case PeriodQuarter:
		q := (int(d.Month()) - 1) / 3
		return time.Date(d.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
}

func advance(t time.Time, p Period) time.Time {
	switch p {
	case PeriodWeek:
		return t.AddDate(0, 0, 7)
	case PeriodQuarter:
		return t.AddDate(0, 3, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}

func label(start time.Time, p Period) string {
	switch p {
	case PeriodWeek:
		y, w := start.ISOWeek()
		return fmt.Sprintf("W%02d %d", w, y)
	case PeriodQuarter:
		return fmt.Sprintf("Q%d %d", (int(start.Month())-1)/3+1, start.Year())
	default:
		return start.Format("Jan 2006")
	}
}

// Buckets returns n consecutive periods, the first one containing now.
func Buckets(now time.Time, n int, p Period) []TimeBucket {
	if n <= 0 {
		return []TimeBucket{}
	}
	out := make([]TimeBucket, 0, n)
	start := periodStart(now, p)
	for i := 0; i < n; i++ {
		next := advance(start, p)
		out = append(out, TimeBucket{
			Label: label(start, p),
			Start: start,
			End:   next.AddDate(0, 0, -1),
		})
		start = next
	}
	return out
}
