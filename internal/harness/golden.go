package harness

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/agenda/internal/model"
)

// Snapshot renders a result as the text stored in golden files: the step
// trace followed by the final state.
func Snapshot(name string, result *Result) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	buf.WriteString("trace:\n")
	for _, ev := range result.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s", ev.Step, ev.Op, ev.Outcome)
		if ev.ID != "" {
			fmt.Fprintf(&buf, " %s", ev.ID)
		}
		buf.WriteString("\n")
	}

	f := result.Final
	buf.WriteString("state:\n")
	fmt.Fprintf(&buf, "  selected: %s\n", f.Selected)
	fmt.Fprintf(&buf, "  items: %d\n", f.Items)
	for _, b := range model.Buckets {
		fmt.Fprintf(&buf, "  %s: %s\n", b, joinOrDash(f.Agenda[string(b)]))
	}
	fmt.Fprintf(&buf, "  specials: %s\n", joinOrDash(f.Specials))
	fmt.Fprintf(&buf, "  totals: income=%s expenses=%s balance=%s\n", f.Income, f.Expenses, f.Balance)
	return buf.Bytes()
}

func joinOrDash(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ", ")
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the scenario cannot run. A snapshot mismatch fails t
// through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(scenarioName, result))
}
