package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/roach88/agenda/internal/recurrence"
)

// SpecialDateKinds are the recurrences a special date may carry.
var SpecialDateKinds = []recurrence.Kind{recurrence.None, recurrence.Annual}

// SpecialDate is a birthday, anniversary or one-off reminder. Special dates
// are not bucketed and live together in a single document.
type SpecialDate struct {
	ID         string          `json:"id"`
	Label      string          `json:"label"`
	Date       civil.Date      `json:"date"`
	Recurrence recurrence.Kind `json:"recurrence"`
	Color      string          `json:"color,omitempty"`
}

// Rule returns the recurrence input for this special date.
func (s SpecialDate) Rule() recurrence.Rule {
	return recurrence.Rule{Kind: s.Recurrence, Start: s.Date, DayKey: s.Date.String()}
}

// OccursOn reports whether the special date falls on d.
func (s SpecialDate) OccursOn(d civil.Date) bool {
	return recurrence.OccursOn(s.Rule(), d)
}

// Expired reports whether a one-time special date lies strictly before today.
// Annual dates never expire.
func (s SpecialDate) Expired(today civil.Date) bool {
	return !s.Recurrence.Recurring() && s.Date.Before(today)
}

// SpecialDatesDocument is the single stored list of special dates.
type SpecialDatesDocument struct {
	Dates     []SpecialDate `json:"dates"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

type rawSpecialDate struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Date       string `json:"date"`
	Recurrence string `json:"recurrence"`
	Color      string `json:"color"`
}

// DecodeSpecialDates decodes the special-dates document. Entries with an
// unparseable date, an empty label or a recurrence other than none/annual are
// dropped; the second result counts them.
func DecodeSpecialDates(data []byte) ([]SpecialDate, int, error) {
	var raw struct {
		Dates []rawSpecialDate `json:"dates"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("decode special dates: %w", err)
	}

	out := make([]SpecialDate, 0, len(raw.Dates))
	skipped := 0
	for _, r := range raw.Dates {
		sd, err := specialDate(r)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, sd)
	}
	return out, skipped, nil
}

func specialDate(r rawSpecialDate) (SpecialDate, error) {
	label := strings.TrimSpace(r.Label)
	if label == "" {
		return SpecialDate{}, ErrEmptyLabel
	}
	date, err := parseDateish(r.Date)
	if err != nil {
		return SpecialDate{}, err
	}
	kind, err := recurrence.ParseKind(r.Recurrence)
	if err != nil {
		return SpecialDate{}, err
	}
	if kind != recurrence.None && kind != recurrence.Annual {
		return SpecialDate{}, fmt.Errorf("special date %q: recurrence %s not allowed", r.ID, kind)
	}
	color := r.Color
	if color == "" {
		color = DefaultColor
	}
	return SpecialDate{ID: r.ID, Label: label, Date: date, Recurrence: kind, Color: color}, nil
}

// parseDateish accepts a plain date or a timestamp; timestamps keep the date
// they were written with.
func parseDateish(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	if len(s) >= 10 {
		if d, err := civil.ParseDate(s[:10]); err == nil {
			return d, nil
		}
	}
	return civil.Date{}, fmt.Errorf("invalid date %q", s)
}

// EncodeSpecialDates serializes the special-dates document.
func EncodeSpecialDates(dates []SpecialDate, now time.Time) ([]byte, error) {
	if dates == nil {
		dates = []SpecialDate{}
	}
	data, err := json.Marshal(SpecialDatesDocument{Dates: dates, UpdatedAt: now})
	if err != nil {
		return nil, fmt.Errorf("encode special dates: %w", err)
	}
	return data, nil
}
