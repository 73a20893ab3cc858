package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeLabel trims, NFC-normalizes and case-folds a label so visually
// identical labels compare equal.
func NormalizeLabel(label string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(label)))
}

// ContentKey is the identity used to collapse duplicate observations of one
// logical item: (bucket, normalized label, time, recurrence, dayKey). It does
// not depend on the item ID or on the document the item was read from.
func ContentKey(it Item, b Bucket) string {
	return strings.Join([]string{
		string(b),
		NormalizeLabel(it.Label),
		it.OccursAt,
		it.Recurrence.String(),
		it.DayKey,
	}, "\x00")
}

// LegacyID derives a stable ID for stored items written without one, so
// commands can still address them after a reload.
func LegacyID(it Item, b Bucket) string {
	sum := sha256.Sum256([]byte(ContentKey(it, b)))
	return "legacy-" + hex.EncodeToString(sum[:8])
}
