package model

import (
	"fmt"
	"strings"
	"time"
)

// Bucket is the period of the day an item is filed under.
type Bucket string

const (
	Morning   Bucket = "morning"
	Afternoon Bucket = "afternoon"
	Night     Bucket = "night"
)

// Buckets lists every bucket in display order. Iteration over a day document
// always follows this order so merges are deterministic.
var Buckets = []Bucket{Morning, Afternoon, Night}

// ParseBucket parses a bucket name.
func ParseBucket(s string) (Bucket, error) {
	b := Bucket(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Buckets {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown bucket %q", s)
}

const timeOfDayLayout = "15:04"

// NormalizeTimeOfDay parses "H:MM"/"HH:MM" and returns the canonical "HH:MM".
// The empty string stays empty.
func NormalizeTimeOfDay(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	t, err := time.Parse(timeOfDayLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	return t.Format(timeOfDayLayout), nil
}

// BucketFor files a time of day: [06:00,12:00) morning, [12:00,18:00)
// afternoon, anything else night.
func BucketFor(timeOfDay string) (Bucket, error) {
	norm, err := NormalizeTimeOfDay(timeOfDay)
	if err != nil {
		return "", err
	}
	if norm == "" {
		return "", fmt.Errorf("time of day is empty")
	}
	t, _ := time.Parse(timeOfDayLayout, norm)
	switch h := t.Hour(); {
	case h >= 6 && h < 12:
		return Morning, nil
	case h >= 12 && h < 18:
		return Afternoon, nil
	default:
		return Night, nil
	}
}
