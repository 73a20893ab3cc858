package recurrence

import (
	"fmt"
	"strings"
)

// Kind enumerates how an anchor date expands into occurrences.
type Kind string

const (
	None    Kind = "none"
	Daily   Kind = "daily"
	Weekly  Kind = "weekly"
	Monthly Kind = "monthly"
	Annual  Kind = "annual"
)

// Kinds lists every valid Kind in declaration order.
var Kinds = []Kind{None, Daily, Weekly, Monthly, Annual}

// ParseKind parses a recurrence name. The empty string is None, matching
// records written before recurrence was stored explicitly.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return None, nil
	}
	if !k.Valid() {
		return None, fmt.Errorf("unknown recurrence %q", s)
	}
	return k, nil
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Recurring reports whether k produces more than one occurrence.
func (k Kind) Recurring() bool {
	return k.Valid() && k != None
}

func (k Kind) String() string {
	if k == "" {
		return string(None)
	}
	return string(k)
}
