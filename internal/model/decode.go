package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/roach88/agenda/internal/recurrence"
)

var (
	// ErrNoAnchor means a record carries none of createdOn, createdAt or dayKey.
	ErrNoAnchor = errors.New("record has no anchor date")

	// ErrEmptyLabel means a record has a blank label.
	ErrEmptyLabel = errors.New("record has an empty label")
)

// Decoder turns stored JSON into model values, backfilling fields that older
// writers omitted.
type Decoder struct {
	// Location resolves createdAt timestamps to calendar dates.
	// Nil means time.Local.
	Location *time.Location
}

func (d Decoder) location() *time.Location {
	if d.Location == nil {
		return time.Local
	}
	return d.Location
}

// rawItem accepts every item shape that has been written.
type rawItem struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	OccursAt    string     `json:"occursAt"`
	Color       string     `json:"color"`
	CreatedOn   string     `json:"createdOn"`
	CreatedAt   *time.Time `json:"createdAt"`
	Recurrence  string     `json:"recurrence"`
	DayKey      string     `json:"dayKey"`
	Completed   bool       `json:"completed"`
	CompletedOn []string   `json:"completedOn"`
}

// DecodeItem decodes one stored item.
func (d Decoder) DecodeItem(data []byte) (Item, error) {
	var raw rawItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return Item{}, fmt.Errorf("decode item: %w", err)
	}
	return d.item(raw)
}

func (d Decoder) item(raw rawItem) (Item, error) {
	label := strings.TrimSpace(raw.Label)
	if label == "" {
		return Item{}, fmt.Errorf("item %q: %w", raw.ID, ErrEmptyLabel)
	}

	kind, err := recurrence.ParseKind(raw.Recurrence)
	if err != nil {
		return Item{}, fmt.Errorf("item %q: %w", raw.ID, err)
	}

	createdOn, err := d.createdOn(raw)
	if err != nil {
		return Item{}, fmt.Errorf("item %q: %w", raw.ID, err)
	}

	occursAt, err := NormalizeTimeOfDay(raw.OccursAt)
	if err != nil {
		occursAt = ""
	}

	it := Item{
		ID:          raw.ID,
		Label:       label,
		OccursAt:    occursAt,
		Color:       raw.Color,
		CreatedOn:   createdOn,
		Recurrence:  kind,
		DayKey:      strings.TrimSpace(raw.DayKey),
		Completed:   raw.Completed,
		CompletedOn: raw.CompletedOn,
	}
	if raw.CreatedAt != nil {
		it.CreatedAt = *raw.CreatedAt
	}
	if it.DayKey == "" {
		it.DayKey = createdOn.String()
	}
	if it.Color == "" {
		it.Color = DefaultColor
	}
	return it, nil
}

func (d Decoder) createdOn(raw rawItem) (civil.Date, error) {
	if s := strings.TrimSpace(raw.CreatedOn); s != "" {
		if date, err := civil.ParseDate(s); err == nil {
			return date, nil
		}
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return civil.DateOf(ts.In(d.location())), nil
		}
		return civil.Date{}, fmt.Errorf("invalid createdOn %q", s)
	}
	if raw.CreatedAt != nil && !raw.CreatedAt.IsZero() {
		return civil.DateOf(raw.CreatedAt.In(d.location())), nil
	}
	if s := strings.TrimSpace(raw.DayKey); s != "" {
		return civil.ParseDate(s)
	}
	return civil.Date{}, ErrNoAnchor
}

type rawDay struct {
	Version   int                  `json:"version"`
	Buckets   map[string][]rawItem `json:"buckets"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// DecodeDay decodes the day document stored under key. Items that cannot be
// decoded are dropped and counted in Skipped; only a document that is not JSON
// at all is an error. Items without an ID get LegacyID.
func (d Decoder) DecodeDay(key string, data []byte) (DayDocument, error) {
	var raw rawDay
	if err := json.Unmarshal(data, &raw); err != nil {
		return DayDocument{}, fmt.Errorf("decode day %s: %w", key, err)
	}

	buckets := raw.Buckets
	if raw.Version == 0 && buckets == nil {
		legacy, err := legacyBuckets(data)
		if err != nil {
			return DayDocument{}, fmt.Errorf("decode day %s: %w", key, err)
		}
		buckets = legacy
	}

	doc := DayDocument{
		Key:       key,
		Version:   DayDocumentVersion,
		Buckets:   make(map[Bucket][]Item, len(Buckets)),
		UpdatedAt: raw.UpdatedAt,
	}
	for name, rawItems := range buckets {
		b, err := ParseBucket(name)
		if err != nil {
			doc.Skipped += len(rawItems)
			continue
		}
		for _, ri := range rawItems {
			it, err := d.item(ri)
			if err != nil {
				doc.Skipped++
				continue
			}
			if it.ID == "" {
				it.ID = LegacyID(it, b)
			}
			doc.Buckets[b] = append(doc.Buckets[b], it)
		}
	}
	return doc, nil
}

// legacyBuckets reads an unversioned document whose top-level keys are bucket
// names.
func legacyBuckets(data []byte) (map[string][]rawItem, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	out := make(map[string][]rawItem)
	for _, b := range Buckets {
		msg, ok := top[string(b)]
		if !ok {
			continue
		}
		var items []rawItem
		if err := json.Unmarshal(msg, &items); err != nil {
			return nil, fmt.Errorf("bucket %s: %w", b, err)
		}
		out[string(b)] = items
	}
	return out, nil
}
