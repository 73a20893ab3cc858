// Package view projects the canonical index onto dates.
//
// Every function here is pure. Projections are recomputed on demand and never
// cached across dates.
package view

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"github.com/roach88/agenda/internal/index"
	"github.com/roach88/agenda/internal/model"
	"github.com/roach88/agenda/internal/recurrence"
)

// Entry is an item as it appears on one date.
type Entry struct {
	Item   model.Item   `json:"item"`
	Bucket model.Bucket `json:"bucket"`
	Done   bool         `json:"done"`
}

// Agenda is the bucketed view of one date.
type Agenda struct {
	Date    civil.Date               `json:"date"`
	Buckets map[model.Bucket][]Entry `json:"buckets"`
}

// Len returns the number of entries across all buckets.
func (a Agenda) Len() int {
	n := 0
	for _, entries := range a.Buckets {
		n += len(entries)
	}
	return n
}

// Project returns the items of ix that occur on date, per bucket, ordered by
// time of day. Untimed items sort last, ties keep index order.
func Project(ix *index.Index, date civil.Date) Agenda {
	a := Agenda{Date: date, Buckets: make(map[model.Bucket][]Entry, len(model.Buckets))}
	for _, b := range model.Buckets {
		entries := []Entry{}
		for _, it := range ix.Items(b) {
			if !it.OccursOn(date) {
				continue
			}
			entries = append(entries, Entry{Item: it, Bucket: b, Done: it.DoneOn(date)})
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return timeLess(entries[i].Item.OccursAt, entries[j].Item.OccursAt)
		})
		a.Buckets[b] = entries
	}
	return a
}

func timeLess(a, b string) bool {
	switch {
	case a == b:
		return false
	case a == "":
		return false
	case b == "":
		return true
	}
	return a < b
}

// DayIndicator summarizes one day of a month for calendar display.
type DayIndicator struct {
	Date     civil.Date `json:"date"`
	Items    int        `json:"items"`
	Pending  int        `json:"pending"`
	Specials []string   `json:"specials,omitempty"`
}

// MonthIndicators evaluates every item and special date against every day of
// the month. Days with nothing scheduled are included with zero counts.
func MonthIndicators(ix *index.Index, specials []model.SpecialDate, year int, month time.Month) []DayIndicator {
	days := recurrence.DaysIn(year, month)
	all := ix.All()

	out := make([]DayIndicator, 0, days)
	for d := 1; d <= days; d++ {
		date := civil.Date{Year: year, Month: month, Day: d}
		ind := DayIndicator{Date: date}
		for _, b := range model.Buckets {
			for _, it := range all[b] {
				if !it.OccursOn(date) {
					continue
				}
				ind.Items++
				if !it.DoneOn(date) {
					ind.Pending++
				}
			}
		}
		for _, s := range specials {
			if s.OccursOn(date) {
				ind.Specials = append(ind.Specials, s.Label)
			}
		}
		out = append(out, ind)
	}
	return out
}

// Upcoming lists the next n dates on or after from that it occurs on.
func Upcoming(it model.Item, from civil.Date, n int) ([]civil.Date, error) {
	return recurrence.Upcoming(it.Rule(), from, n, time.UTC)
}
