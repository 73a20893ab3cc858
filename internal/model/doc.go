// Package model defines the persisted agenda and finance records and their
// wire decoding.
//
// Remote documents are decoded through Decoder, which applies the defaulting
// rules for older records in one place:
//   - a missing dayKey is rebuilt from createdOn
//   - a missing createdOn is rebuilt from createdAt (in the decoder's zone)
//   - an empty recurrence is "none"
//   - an unversioned day document keeps its buckets at the top level
//
// Records are never rejected for missing optional fields. A record that cannot
// be anchored to any date, or names an unknown recurrence, is skipped and
// counted.
package model
