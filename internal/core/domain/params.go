package domain

import (
	"fmt"
	"time"
)

// DateLayout is the YYYY-MM-DD layout used for dates everywhere.
const DateLayout = "2006-01-02"

// RunParams are the validated parameters of one pipeline run.
type RunParams struct {
	Days        int    `json:"days,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Backfill    bool   `json:"backfill,omitempty"`
	ExtractOnly bool   `json:"extractOnly,omitempty"`
	LoadOnly    bool   `json:"loadOnly,omitempty"`
	Cleanup     bool   `json:"cleanup,omitempty"`
}

// DateRange is an inclusive range of UTC calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Days enumerates every calendar day in the range, oldest first.
func (r DateRange) Days() []time.Time {
	if r.End.Before(r.Start) {
		return nil
	}
	var days []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Len returns the number of days in the range.
func (r DateRange) Len() int {
	return len(r.Days())
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format(DateLayout), r.End.Format(DateLayout))
}

// ParseDate parses a YYYY-MM-DD string as a UTC day.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
