package recurrence

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/teambition/rrule-go"
)

// ErrNotRecurring is returned when an rrule is requested for a one-time rule.
var ErrNotRecurring = errors.New("recurrence: rule does not repeat")

func frequency(k Kind) (rrule.Frequency, error) {
	switch k {
	case Daily:
		return rrule.DAILY, nil
	case Weekly:
		return rrule.WEEKLY, nil
	case Monthly:
		return rrule.MONTHLY, nil
	case Annual:
		return rrule.YEARLY, nil
	default:
		return 0, ErrNotRecurring
	}
}

// ToRRule builds the RFC 5545 rule equivalent to r, starting at midnight of
// r.Start in loc.
func ToRRule(r Rule, loc *time.Location) (*rrule.RRule, error) {
	freq, err := frequency(r.Kind)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	rr, err := rrule.NewRRule(rrule.ROption{
		Freq:    freq,
		Dtstart: r.Start.In(loc),
	})
	if err != nil {
		return nil, fmt.Errorf("recurrence: build rrule: %w", err)
	}
	return rr, nil
}

// RRuleString returns the RRULE value (without DTSTART) for r.
func RRuleString(r Rule) (string, error) {
	freq, err := frequency(r.Kind)
	if err != nil {
		return "", err
	}
	opt := rrule.ROption{Freq: freq}
	return opt.RRuleString(), nil
}

// Between returns every occurrence date in [from, to], in ascending order.
func Between(r Rule, from, to civil.Date, loc *time.Location) ([]civil.Date, error) {
	if to.Before(from) {
		return nil, errors.New("recurrence: range end before start")
	}
	if loc == nil {
		loc = time.Local
	}

	if !r.Kind.Recurring() {
		anchor, err := r.anchor()
		if err != nil {
			return nil, fmt.Errorf("recurrence: anchor: %w", err)
		}
		if anchor.Before(from) || anchor.After(to) {
			return nil, nil
		}
		return []civil.Date{anchor}, nil
	}

	rr, err := ToRRule(r, loc)
	if err != nil {
		return nil, err
	}
	times := rr.Between(from.In(loc), to.In(loc), true)
	out := make([]civil.Date, 0, len(times))
	for _, t := range times {
		out = append(out, civil.DateOf(t.In(loc)))
	}
	return out, nil
}

// upcomingHorizonYears bounds the Upcoming search. Annual rules anchored on
// Feb 29 can go eight years between occurrences across a non-leap century.
const upcomingHorizonYears = 8

// Upcoming returns up to n occurrence dates on or after from.
func Upcoming(r Rule, from civil.Date, n int, loc *time.Location) ([]civil.Date, error) {
	if n <= 0 {
		return nil, nil
	}
	to := civil.DateOf(from.In(time.UTC).AddDate(upcomingHorizonYears*n, 0, 0))
	dates, err := Between(r, from, to, loc)
	if err != nil {
		return nil, err
	}
	if len(dates) > n {
		dates = dates[:n]
	}
	return dates, nil
}
