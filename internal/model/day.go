package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DayDocumentVersion is written into every day document this package encodes.
// Version 0 (absent) documents keep their buckets at the top level and may
// omit createdOn/dayKey on items.
const DayDocumentVersion = 2

// DayDocument is the persisted unit for one calendar date: every item whose
// DayKey equals Key, grouped by bucket. It is always written wholesale.
type DayDocument struct {
	Key       string            `json:"-"`
	Version   int               `json:"version"`
	Buckets   map[Bucket][]Item `json:"buckets"`
	UpdatedAt time.Time         `json:"updatedAt"`

	// Skipped counts records the decoder could not use.
	Skipped int `json:"-"`
}

// Len returns the number of items across all buckets.
func (d DayDocument) Len() int {
	n := 0
	for _, items := range d.Buckets {
		n += len(items)
	}
	return n
}

// EncodeDay serializes a day document. Every bucket is present, empty ones as
// [] so readers never see a missing period.
func EncodeDay(doc DayDocument) ([]byte, error) {
	out := doc
	out.Version = DayDocumentVersion
	out.Buckets = make(map[Bucket][]Item, len(Buckets))
	for _, b := range Buckets {
		items := doc.Buckets[b]
		if items == nil {
			items = []Item{}
		}
		out.Buckets[b] = items
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode day %s: %w", doc.Key, err)
	}
	return data, nil
}
