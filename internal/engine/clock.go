package engine

import "time"

// Clock supplies wall time. "Today" is always derived from it in the
// coordinator's location, never from time.Now directly.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }
