package engine

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/roach88/agenda/internal/model"
	"github.com/roach88/agenda/internal/recurrence"
)

// ItemInput describes a new agenda item.
type ItemInput struct {
	Label      string
	OccursAt   string // HH:MM, optional when Bucket is set
	Bucket     model.Bucket
	Color      string
	Recurrence recurrence.Kind
	// On is the anchor date. Zero means the selected date.
	On civil.Date
}

func (in ItemInput) validate() (model.Bucket, string, recurrence.Kind, error) {
	const op = "add item"
	if strings.TrimSpace(in.Label) == "" {
		return "", "", "", validationError(op, "label is required")
	}
	occursAt, err := model.NormalizeTimeOfDay(in.OccursAt)
	if err != nil {
		return "", "", "", validationError(op, "%v", err)
	}
	kind, err := recurrence.ParseKind(string(in.Recurrence))
	if err != nil {
		return "", "", "", validationError(op, "%v", err)
	}
	if !in.On.IsZero() && !in.On.IsValid() {
		return "", "", "", validationError(op, "invalid date %s", in.On)
	}
	if kind == recurrence.Annual {
		return "", "", "", validationError(op, "annual recurrence is only available for special dates")
	}

	bucket := in.Bucket
	switch {
	case bucket != "":
		if bucket, err = model.ParseBucket(string(bucket)); err != nil {
			return "", "", "", validationError(op, "%v", err)
		}
	case occursAt != "":
		bucket, _ = model.BucketFor(occursAt)
	default:
		return "", "", "", validationError(op, "either a time or a period is required")
	}
	return bucket, occursAt, kind, nil
}

// AddItem creates an item anchored on in.On (default: the selected date)
// and writes that day's document. An item whose content key is already
// indexed is rejected as a validation error.
func (c *Coordinator) AddItem(ctx context.Context, in ItemInput) (model.Item, error) {
	const op = "add item"
	bucket, occursAt, kind, err := in.validate()
	if err != nil {
		return model.Item{}, err
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = model.DefaultColor
	}
	id := c.ids.Generate()

	var created model.Item
	err = c.submit(ctx, op, func(now time.Time) (persistFunc, error) {
		on := in.On
		if on.IsZero() {
			on = c.selected
		}
		created = model.Item{
			ID:         id,
			Label:      strings.TrimSpace(in.Label),
			OccursAt:   occursAt,
			Color:      color,
			CreatedOn:  on,
			CreatedAt:  now,
			Recurrence: kind,
			DayKey:     on.String(),
		}
		before := c.index.Load()
		if existing, dup := before.FindContent(bucket, created); dup {
			return nil, validationError(op, "%q already exists on %s as %s", created.Label, created.DayKey, existing.ID)
		}
		ix := before.WithItem(bucket, created)
		c.index.Store(ix)
		c.reproject()
		return c.persistDay(ix, created.DayKey, now), nil
	})
	if err != nil && IsValidation(err) {
		return model.Item{}, err
	}
	return created, err
}

// ToggleItem flips completion of item id on date on (default: the selected
// date). One-time items flip their completed flag; recurring items flip the
// date in their completion log.
func (c *Coordinator) ToggleItem(ctx context.Context, id string, on civil.Date) (model.Item, error) {
	const op = "toggle item"
	var toggled model.Item
	err := c.submit(ctx, op, func(now time.Time) (persistFunc, error) {
		date := on
		if date.IsZero() {
			date = c.selected
		}
		before := c.index.Load()
		it, _, ok := before.Find(id)
		if !ok {
			return nil, notFoundError(op, "item", id)
		}
		if it.Recurrence.Recurring() && !it.OccursOn(date) {
			return nil, validationError(op, "%q does not occur on %s", it.Label, date)
		}
		toggled = it.Toggled(date)
		ix, _ := before.Replace(toggled)
		c.index.Store(ix)
		c.reproject()
		return c.persistDay(ix, it.DayKey, now), nil
	})
	return toggled, err
}

// RemoveItem deletes item id and rewrites the day document it was anchored
// to.
func (c *Coordinator) RemoveItem(ctx context.Context, id string) error {
	const op = "remove item"
	return c.submit(ctx, op, func(now time.Time) (persistFunc, error) {
		before := c.index.Load()
		it, _, ok := before.Find(id)
		if !ok {
			return nil, notFoundError(op, "item", id)
		}
		ix, _ := before.WithoutItem(id)
		c.index.Store(ix)
		c.reproject()
		// it.DayKey comes from the pre-removal index.
		return c.persistDay(ix, it.DayKey, now), nil
	})
}

// SelectDate changes the date the agenda projection is computed for.
func (c *Coordinator) SelectDate(ctx context.Context, date civil.Date) error {
	if !date.IsValid() {
		return validationError("select date", "invalid date %s", date)
	}
	return c.submit(ctx, "select date", func(time.Time) (persistFunc, error) {
		c.selected = date
		c.reproject()
		return nil, nil
	})
}
