package engine

import (
	"context"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/roach88/agenda/internal/model"
	"github.com/roach88/agenda/internal/recurrence"
)

// SpecialDateInput describes a new special date.
type SpecialDateInput struct {
	Label      string
	Date       civil.Date
	Recurrence recurrence.Kind // none or annual
	Color      string
}

// AddSpecialDate appends a special date and rewrites the list. One-time dates
// in the past are rejected since the next sweep would drop them.
func (c *Coordinator) AddSpecialDate(ctx context.Context, in SpecialDateInput) (model.SpecialDate, error) {
	const op = "add special date"
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return model.SpecialDate{}, validationError(op, "label is required")
	}
	if !in.Date.IsValid() {
		return model.SpecialDate{}, validationError(op, "invalid date %s", in.Date)
	}
	kind, err := recurrence.ParseKind(string(in.Recurrence))
	if err != nil {
		return model.SpecialDate{}, validationError(op, "%v", err)
	}
	if !slices.Contains(model.SpecialDateKinds, kind) {
		return model.SpecialDate{}, validationError(op, "special dates are one-time or annual, not %s", kind)
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = model.DefaultColor
	}
	id := c.ids.Generate()

	created := model.SpecialDate{ID: id, Label: label, Date: in.Date, Recurrence: kind, Color: color}
	err = c.submit(ctx, op, func(time.Time) (persistFunc, error) {
		if created.Expired(c.today()) {
			return nil, validationError(op, "%s is in the past", in.Date)
		}
		next := append(c.SpecialDates(), created)
		c.specials.Store(&next)
		return c.persistSpecials(next), nil
	})
	if err != nil && IsValidation(err) {
		return model.SpecialDate{}, err
	}
	return created, err
}

// RemoveSpecialDate deletes a special date and rewrites the list.
func (c *Coordinator) RemoveSpecialDate(ctx context.Context, id string) error {
	const op = "remove special date"
	return c.submit(ctx, op, func(time.Time) (persistFunc, error) {
		current := c.SpecialDates()
		i := slices.IndexFunc(current, func(s model.SpecialDate) bool { return s.ID == id })
		if i < 0 {
			return nil, notFoundError(op, "special date", id)
		}
		next := slices.Delete(current, i, i+1)
		c.specials.Store(&next)
		return c.persistSpecials(next), nil
	})
}

// SweepSpecialDates prunes expired one-time special dates now and reports
// how many were removed. It waits for the write-back, but a failed
// write-back is only logged.
func (c *Coordinator) SweepSpecialDates(ctx context.Context) (int, error) {
	var pruned int
	err := c.submit(ctx, "sweep special dates", func(time.Time) (persistFunc, error) {
		var persist persistFunc
		pruned, persist = c.pruneSpecials()
		return persist, nil
	})
	return pruned, err
}
