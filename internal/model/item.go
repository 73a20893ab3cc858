package model

import (
	"slices"
	"time"

	"cloud.google.com/go/civil"

	"github.com/roach88/agenda/internal/recurrence"
)

// DefaultColor is assigned to items and special dates saved without one.
const DefaultColor = "#74aee8"

// Item is a schedulable task.
//
// DayKey equals CreatedOn.String(). It names the day document the item is
// persisted in, and anchors one-time items.
type Item struct {
	ID          string          `json:"id"`
	Label       string          `json:"label"`
	OccursAt    string          `json:"occursAt,omitempty"`
	Color       string          `json:"color,omitempty"`
	CreatedOn   civil.Date      `json:"createdOn"`
	CreatedAt   time.Time       `json:"createdAt"`
	Recurrence  recurrence.Kind `json:"recurrence"`
	DayKey      string          `json:"dayKey"`
	Completed   bool            `json:"completed"`
	CompletedOn []string        `json:"completedOn,omitempty"`
}

// Rule returns the recurrence input for this item.
func (it Item) Rule() recurrence.Rule {
	return recurrence.Rule{Kind: it.Recurrence, Start: it.CreatedOn, DayKey: it.DayKey}
}

// OccursOn reports whether the item is scheduled on d.
func (it Item) OccursOn(d civil.Date) bool {
	return recurrence.OccursOn(it.Rule(), d)
}

// DoneOn reports whether the item counts as completed on d. One-time items
// use the Completed flag; recurring items track completion per date.
func (it Item) DoneOn(d civil.Date) bool {
	if !it.Recurrence.Recurring() {
		return it.Completed
	}
	return slices.Contains(it.CompletedOn, d.String())
}

// Toggled returns a copy of the item with completion on d flipped.
func (it Item) Toggled(d civil.Date) Item {
	out := it.Clone()
	if !it.Recurrence.Recurring() {
		out.Completed = !it.Completed
		return out
	}
	key := d.String()
	if i := slices.Index(out.CompletedOn, key); i >= 0 {
		out.CompletedOn = slices.Delete(out.CompletedOn, i, i+1)
	} else {
		out.CompletedOn = append(out.CompletedOn, key)
		slices.Sort(out.CompletedOn)
	}
	return out
}

// Clone returns a deep copy.
func (it Item) Clone() Item {
	it.CompletedOn = slices.Clone(it.CompletedOn)
	return it
}
