// Package index holds the canonical, deduplicated set of agenda items.
//
// An Index is immutable once built. Mutations return a new Index that shares
// untouched bucket slices with the old one, so a reader holding an *Index
// never observes a partial update.
package index

import (
	"slices"
	"sort"

	"github.com/roach88/agenda/internal/model"
)

// Index is the canonical item set, bucketed by period of day.
type Index struct {
	buckets map[model.Bucket][]model.Item
	byID    map[string]model.Bucket
}

// BuildStats reports what a rebuild discarded.
type BuildStats struct {
	Documents   int
	Items       int
	Duplicates  int
	Misanchored int
	Malformed   int
}

// Empty returns an index with no items.
func Empty() *Index {
	return &Index{
		buckets: make(map[model.Bucket][]model.Item),
		byID:    make(map[string]model.Bucket),
	}
}

// Build rebuilds the index from a full set of day documents.
//
// Documents are visited in key order and buckets in model.Buckets order, so
// the surviving copy of a duplicated item is the same for the same input.
// Items whose dayKey differs from the document they were read from are
// dropped. Of items sharing a content key or an ID, the first one wins.
func Build(docs []model.DayDocument) (*Index, BuildStats) {
	ordered := slices.Clone(docs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Key < ordered[j].Key })

	ix := Empty()
	stats := BuildStats{Documents: len(ordered)}
	seen := make(map[string]struct{})

	for _, doc := range ordered {
		stats.Malformed += doc.Skipped
		for _, b := range model.Buckets {
			for _, it := range doc.Buckets[b] {
				if it.DayKey == "" {
					it.DayKey = it.CreatedOn.String()
				}
				if it.DayKey != doc.Key {
					stats.Misanchored++
					continue
				}
				key := model.ContentKey(it, b)
				if _, dup := seen[key]; dup {
					stats.Duplicates++
					continue
				}
				if _, dup := ix.byID[it.ID]; dup && it.ID != "" {
					stats.Duplicates++
					continue
				}
				seen[key] = struct{}{}
				ix.buckets[b] = append(ix.buckets[b], it.Clone())
				ix.byID[it.ID] = b
				stats.Items++
			}
		}
	}
	return ix, stats
}

// Len returns the number of items.
func (ix *Index) Len() int {
	n := 0
	for _, items := range ix.buckets {
		n += len(items)
	}
	return n
}

// Items returns a copy of the items filed under b.
func (ix *Index) Items(b model.Bucket) []model.Item {
	return cloneItems(ix.buckets[b])
}

// All returns a copy of every bucket.
func (ix *Index) All() map[model.Bucket][]model.Item {
	out := make(map[model.Bucket][]model.Item, len(model.Buckets))
	for _, b := range model.Buckets {
		out[b] = cloneItems(ix.buckets[b])
	}
	return out
}

// Find looks up an item by ID.
func (ix *Index) Find(id string) (model.Item, model.Bucket, bool) {
	b, ok := ix.byID[id]
	if !ok {
		return model.Item{}, "", false
	}
	i := slices.IndexFunc(ix.buckets[b], func(it model.Item) bool { return it.ID == id })
	return ix.buckets[b][i].Clone(), b, true
}

// FindContent returns the item in bucket b with the same content key as it.
func (ix *Index) FindContent(b model.Bucket, it model.Item) (model.Item, bool) {
	key := model.ContentKey(it, b)
	for _, existing := range ix.buckets[b] {
		if model.ContentKey(existing, b) == key {
			return existing.Clone(), true
		}
	}
	return model.Item{}, false
}

// WithItem returns a new index with it appended to bucket b. An item with the
// same ID is replaced.
func (ix *Index) WithItem(b model.Bucket, it model.Item) *Index {
	next := ix
	if _, _, ok := ix.Find(it.ID); ok {
		next, _ = ix.WithoutItem(it.ID)
	}
	out := next.shallow()
	out.buckets[b] = append(slices.Clip(out.buckets[b]), it.Clone())
	out.byID[it.ID] = b
	return out
}

// WithoutItem returns a new index without the item id, and whether the item
// was present.
func (ix *Index) WithoutItem(id string) (*Index, bool) {
	b, ok := ix.byID[id]
	if !ok {
		return ix, false
	}
	out := ix.shallow()
	out.buckets[b] = slices.DeleteFunc(slices.Clone(ix.buckets[b]), func(it model.Item) bool {
		return it.ID == id
	})
	delete(out.byID, id)
	return out, true
}

// Replace returns a new index with the item of the same ID swapped for it,
// keeping its bucket and position.
func (ix *Index) Replace(it model.Item) (*Index, bool) {
	b, ok := ix.byID[it.ID]
	if !ok {
		return ix, false
	}
	out := ix.shallow()
	items := slices.Clone(ix.buckets[b])
	for i := range items {
		if items[i].ID == it.ID {
			items[i] = it.Clone()
		}
	}
	out.buckets[b] = items
	return out, true
}

// shallow copies the maps. Bucket slices are shared and must be cloned
// before they are modified.
func (ix *Index) shallow() *Index {
	out := &Index{
		buckets: make(map[model.Bucket][]model.Item, len(ix.buckets)),
		byID:    make(map[string]model.Bucket, len(ix.byID)),
	}
	for b, items := range ix.buckets {
		out.buckets[b] = items
	}
	for id, b := range ix.byID {
		out.byID[id] = b
	}
	return out
}

func cloneItems(items []model.Item) []model.Item {
	out := make([]model.Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
