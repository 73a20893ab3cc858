package index

import (
	"slices"
	"time"

	"github.com/roach88/agenda/internal/model"
)

// DayPayload derives the complete document for dayKey from the index: every
// item whose dayKey matches, in every bucket, and nothing else.
//
// Day documents are overwritten wholesale, so the payload must always be
// derived from the whole index rather than from the item being changed.
func DayPayload(ix *Index, dayKey string, now time.Time) model.DayDocument {
	doc := model.DayDocument{
		Key:       dayKey,
		Version:   model.DayDocumentVersion,
		Buckets:   make(map[model.Bucket][]model.Item, len(model.Buckets)),
		UpdatedAt: now,
	}
	for _, b := range model.Buckets {
		items := []model.Item{}
		for _, it := range ix.buckets[b] {
			if it.DayKey == dayKey {
				items = append(items, it.Clone())
			}
		}
		doc.Buckets[b] = items
	}
	return doc
}

// DayKeys lists the distinct day keys present in the index, sorted.
func (ix *Index) DayKeys() []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, b := range model.Buckets {
		for _, it := range ix.buckets[b] {
			if _, ok := seen[it.DayKey]; !ok {
				seen[it.DayKey] = struct{}{}
				keys = append(keys, it.DayKey)
			}
		}
	}
	slices.Sort(keys)
	return keys
}
