package engine

import (
	"fmt"

	"github.com/roach88/agenda/internal/docstore"
)

// SpecialDatesKey is the key of the special-dates document inside Paths.Meta.
const SpecialDatesKey = "specialDates"

// Paths names the collections one actor's data lives in.
type Paths struct {
	Agenda   string // day documents keyed by YYYY-MM-DD
	Finances string // month ledgers keyed by YYYY-MM
	Meta     string // holds the special-dates document
}

// PathsFor returns the standard layout for actor: users/<actor>/{agenda,finances,meta}.
func PathsFor(actor string) (Paths, error) {
	if actor == "" {
		return Paths{}, fmt.Errorf("actor is required")
	}
	if err := docstore.ValidatePath("users", actor); err != nil {
		return Paths{}, fmt.Errorf("invalid actor %q: %w", actor, err)
	}
	base := "users/" + actor
	return Paths{
		Agenda:   base + "/agenda",
		Finances: base + "/finances",
		Meta:     base + "/meta",
	}, nil
}
