package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"recurring_toggle", "finance_flow", "special_dates"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, result.Errors)
		})
	}
}

func TestSnapshot(t *testing.T) {
	result := NewResult()
	result.AddTrace(1, OpAddItem, "ok", "id-1")
	result.AddTrace(2, OpToggleItem, "NOT_FOUND", "")
	result.Final = FinalState{
		Selected: "2024-05-10",
		Items:    1,
		Agenda: map[string][]string{
			"morning": {"[ ] Gym", "[x] Run"},
		},
		Specials: []string{"Trip", "Birthday"},
		Income:   "10",
		Expenses: "2.5",
		Balance:  "7.5",
	}

	want := `scenario: sample
trace:
  [1] add_item ok id-1
  [2] toggle_item NOT_FOUND
state:
  selected: 2024-05-10
  items: 1
  morning: [ ] Gym, [x] Run
  afternoon: -
  night: -
  specials: Trip, Birthday
  totals: income=10 expenses=2.5 balance=7.5
`
	assert.Equal(t, want, string(Snapshot("sample", result)))
}
