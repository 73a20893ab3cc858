// Package export writes the agenda as an iCalendar (RFC 5545) feed.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	ics "github.com/arran4/golang-ical"

	"github.com/roach88/agenda/internal/index"
	"github.com/roach88/agenda/internal/model"
	"github.com/roach88/agenda/internal/recurrence"
)

// DefaultProductID is used when Options.ProductID is empty.
const DefaultProductID = "-//roach88//agenda//EN"

// Options controls calendar output.
type Options struct {
	// Location is the zone item times are interpreted in. Default: time.Local.
	Location *time.Location
	// ProductID is the PRODID of the calendar.
	ProductID string
	// Now stamps DTSTAMP. Default: time.Now().
	Now time.Time
	// Duration of timed items. Default: one hour.
	Duration time.Duration
}

func (o Options) normalize() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.ProductID == "" {
		o.ProductID = DefaultProductID
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.Duration <= 0 {
		o.Duration = time.Hour
	}
	return o
}

// WriteICS writes every item in ix and every special date as a VEVENT.
// Items with a time become timed events, the rest are all-day. Recurring
// entries carry an RRULE anchored at their first occurrence.
func WriteICS(w io.Writer, ix *index.Index, specials []model.SpecialDate, opts Options) error {
	opts = opts.normalize()

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(opts.ProductID)

	for _, b := range model.Buckets {
		for _, it := range ix.Items(b) {
			if err := addItem(cal, b, it, opts); err != nil {
				return fmt.Errorf("export item %s: %w", it.ID, err)
			}
		}
	}
	for _, s := range specials {
		if err := addSpecial(cal, s, opts); err != nil {
			return fmt.Errorf("export special date %s: %w", s.ID, err)
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

func addItem(cal *ics.Calendar, b model.Bucket, it model.Item, opts Options) error {
	start, err := recurrence.FirstOccurrence(it.Rule())
	if err != nil {
		return err
	}

	ev := cal.AddEvent(it.ID)
	ev.SetDtStampTime(opts.Now)
	if !it.CreatedAt.IsZero() {
		ev.SetCreatedTime(it.CreatedAt)
	}
	ev.SetSummary(it.Label)
	ev.SetProperty(ics.ComponentPropertyCategories, strings.ToUpper(string(b)))
	if it.Color != "" {
		ev.SetProperty(ics.ComponentPropertyColor, it.Color)
	}

	if it.OccursAt != "" {
		at, err := time.ParseInLocation(time.DateOnly+" 15:04", start.String()+" "+it.OccursAt, opts.Location)
		if err != nil {
			return err
		}
		ev.SetStartAt(at)
		ev.SetEndAt(at.Add(opts.Duration))
	} else {
		setAllDay(ev, start, opts.Location)
	}

	if !it.Recurrence.Recurring() && it.Completed {
		ev.SetDescription("completed")
	}
	return addRRule(ev, it.Rule())
}

func addSpecial(cal *ics.Calendar, s model.SpecialDate, opts Options) error {
	ev := cal.AddEvent(s.ID)
	ev.SetDtStampTime(opts.Now)
	ev.SetSummary(s.Label)
	ev.SetProperty(ics.ComponentPropertyCategories, "SPECIAL")
	if s.Color != "" {
		ev.SetProperty(ics.ComponentPropertyColor, s.Color)
	}
	setAllDay(ev, s.Date, opts.Location)
	return addRRule(ev, s.Rule())
}

func setAllDay(ev *ics.VEvent, d civil.Date, loc *time.Location) {
	ev.SetAllDayStartAt(d.In(loc))
	ev.SetAllDayEndAt(d.AddDays(1).In(loc))
}

func addRRule(ev *ics.VEvent, r recurrence.Rule) error {
	if !r.Kind.Recurring() {
		return nil
	}
	rule, err := recurrence.RRuleString(r)
	if err != nil {
		return err
	}
	ev.AddRrule(rule)
	return nil
}
