package recurrence

import (
	"time"

	"cloud.google.com/go/civil"
)

// Rule is the evaluation input extracted from an item or special date.
type Rule struct {
	Kind Kind

	// Start is the creation date. Recurring rules never occur before it.
	Start civil.Date

	// DayKey anchors one-time rules. Empty means Start.
	DayKey string
}

// OccursOn reports whether the rule has an occurrence on date d.
//
//   - none:    d is the anchor day
//   - daily:   d is on/after Start
//   - weekly:  d is on/after Start and shares its weekday
//   - monthly: d is on/after Start and shares its day-of-month; months lacking
//     that day are skipped, never clamped
//   - annual:  d is on/after Start and shares its month and day-of-month
func OccursOn(r Rule, d civil.Date) bool {
	switch r.Kind {
	case None, "":
		return r.anchorKey() == d.String()
	}

	if d.Before(r.Start) {
		return false
	}

	switch r.Kind {
	case Daily:
		return true
	case Weekly:
		return weekday(r.Start) == weekday(d)
	case Monthly:
		return r.Start.Day == d.Day
	case Annual:
		return r.Start.Month == d.Month && r.Start.Day == d.Day
	default:
		return false
	}
}

func (r Rule) anchorKey() string {
	if r.DayKey != "" {
		return r.DayKey
	}
	return r.Start.String()
}

func (r Rule) anchor() (civil.Date, error) {
	if r.DayKey == "" {
		return r.Start, nil
	}
	return civil.ParseDate(r.DayKey)
}

// FirstOccurrence returns the earliest date r occurs on: the anchor day for
// one-time rules, Start otherwise.
func FirstOccurrence(r Rule) (civil.Date, error) {
	if !r.Kind.Recurring() {
		return r.anchor()
	}
	return r.Start, nil
}

func weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
