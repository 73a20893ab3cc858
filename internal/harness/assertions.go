package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/roach88/agenda/internal/docstore"
	"github.com/roach88/agenda/internal/engine"
	"github.com/roach88/agenda/internal/model"
	"github.com/roach88/agenda/internal/view"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s -> %s\n", event.Step, event.Op, event.Outcome)
		}
	}
	return buf.String()
}

// AssertionContext is the state assertions are evaluated against. The
// coordinator must be stopped so its state no longer moves.
type AssertionContext struct {
	Coordinator   *engine.Coordinator
	Store         docstore.Store
	Paths         engine.Paths
	Notifications []engine.Notification
}

// resolve maps a scenario collection name to the actor's path.
func (a *AssertionContext) resolve(name string) string {
	switch name {
	case "agenda":
		return a.Paths.Agenda
	case "finances":
		return a.Paths.Finances
	case "meta":
		return a.Paths.Meta
	}
	return name
}

// assertAgenda projects the index on the asserted date and compares labels
// in display order.
func assertAgenda(actx *AssertionContext, assertion Assertion) error {
	date, err := civil.ParseDate(assertion.Date)
	if err != nil {
		return fmt.Errorf("agenda: %w", err)
	}
	agenda := view.Project(actx.Coordinator.Index(), date)

	buckets := model.Buckets
	if assertion.Bucket != "" {
		b, err := model.ParseBucket(assertion.Bucket)
		if err != nil {
			return fmt.Errorf("agenda: %w", err)
		}
		buckets = []model.Bucket{b}
	}

	labels, done := []string{}, []string{}
	for _, b := range buckets {
		for _, e := range agenda.Buckets[b] {
			labels = append(labels, e.Item.Label)
			if e.Done {
				done = append(done, e.Item.Label)
			}
		}
	}

	where := assertion.Date
	if assertion.Bucket != "" {
		where += " " + assertion.Bucket
	}
	if assertion.Labels != nil && !slices.Equal(labels, assertion.Labels) {
		return &AssertionError{
			Type:     AssertAgenda,
			Expected: fmt.Sprintf("%s labels %v", where, assertion.Labels),
			Actual:   fmt.Sprintf("%v", labels),
		}
	}
	if assertion.Done != nil && !slices.Equal(done, assertion.Done) {
		return &AssertionError{
			Type:     AssertAgenda,
			Expected: fmt.Sprintf("%s done %v", where, assertion.Done),
			Actual:   fmt.Sprintf("%v", done),
		}
	}
	return nil
}

// assertDocument reads the stored document and counts its entries with the
// same decoders the coordinator uses.
func assertDocument(ctx context.Context, actx *AssertionContext, assertion Assertion) error {
	collection := actx.resolve(assertion.Collection)
	doc, err := actx.Store.Get(ctx, collection, assertion.Key)
	exists := true
	if errors.Is(err, docstore.ErrNotFound) {
		exists, err = false, nil
	}
	if err != nil {
		return fmt.Errorf("document %s/%s: %w", collection, assertion.Key, err)
	}

	wantExists := assertion.Exists == nil || *assertion.Exists
	if exists != wantExists {
		return &AssertionError{
			Type:     AssertDocument,
			Expected: fmt.Sprintf("%s/%s exists=%t", assertion.Collection, assertion.Key, wantExists),
			Actual:   fmt.Sprintf("exists=%t", exists),
		}
	}
	if !exists || assertion.Count == nil {
		return nil
	}

	var n int
	switch assertion.Collection {
	case "agenda":
		day, err := model.Decoder{Location: actx.Coordinator.Location()}.DecodeDay(assertion.Key, doc.Data)
		if err != nil {
			return fmt.Errorf("decode day %s: %w", assertion.Key, err)
		}
		n = day.Len()
	case "finances":
		l, _, err := model.DecodeLedger(assertion.Key, doc.Data)
		if err != nil {
			return fmt.Errorf("decode ledger %s: %w", assertion.Key, err)
		}
		n = len(l.Income) + len(l.Expenses)
	case "meta":
		dates, _, err := model.DecodeSpecialDates(doc.Data)
		if err != nil {
			return fmt.Errorf("decode special dates: %w", err)
		}
		n = len(dates)
	}
	if n != *assertion.Count {
		return &AssertionError{
			Type:     AssertDocument,
			Expected: fmt.Sprintf("%s/%s with %d entries", assertion.Collection, assertion.Key, *assertion.Count),
			Actual:   fmt.Sprintf("%d entries", n),
		}
	}
	return nil
}

func assertSpecialDates(actx *AssertionContext, assertion Assertion) error {
	labels := []string{}
	for _, s := range actx.Coordinator.SpecialDates() {
		labels = append(labels, s.Label)
	}
	want := assertion.Labels
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(labels, want) {
		return &AssertionError{
			Type:     AssertSpecialDates,
			Expected: fmt.Sprintf("%v", want),
			Actual:   fmt.Sprintf("%v", labels),
		}
	}
	return nil
}

// assertTotals compares decimals by value, so "70" matches "70.00".
func assertTotals(actx *AssertionContext, assertion Assertion) error {
	summary, err := actx.Coordinator.Summary()
	if err != nil {
		return fmt.Errorf("totals: %w", err)
	}
	checks := []struct {
		name   string
		want   string
		actual decimal.Decimal
	}{
		{"income", assertion.Income, summary.Totals.Income},
		{"expenses", assertion.Expenses, summary.Totals.Expenses},
		{"balance", assertion.Balance, summary.Totals.Balance},
	}
	for _, c := range checks {
		if c.want == "" {
			continue
		}
		want, err := decimal.NewFromString(c.want)
		if err != nil {
			return fmt.Errorf("totals %s: %w", c.name, err)
		}
		if !want.Equal(c.actual) {
			return &AssertionError{
				Type:     AssertTotals,
				Expected: fmt.Sprintf("%s %s", c.name, want),
				Actual:   c.actual.String(),
			}
		}
	}
	return nil
}

// assertNotification counts notifications with the code. Without a count
// at least one is required.
func assertNotification(actx *AssertionContext, assertion Assertion) error {
	n := 0
	for _, note := range actx.Notifications {
		if string(note.Code) == assertion.Code {
			n++
		}
	}
	switch {
	case assertion.Count == nil && n == 0:
		return &AssertionError{
			Type:     AssertNotification,
			Expected: fmt.Sprintf("at least one %s", assertion.Code),
			Actual:   "none",
		}
	case assertion.Count != nil && n != *assertion.Count:
		return &AssertionError{
			Type:     AssertNotification,
			Expected: fmt.Sprintf("%d x %s", *assertion.Count, assertion.Code),
			Actual:   fmt.Sprintf("%d", n),
		}
	}
	return nil
}

func assertIndex(actx *AssertionContext, assertion Assertion) error {
	if n := actx.Coordinator.Index().Len(); n != *assertion.Count {
		return &AssertionError{
			Type:     AssertIndex,
			Expected: fmt.Sprintf("%d items", *assertion.Count),
			Actual:   fmt.Sprintf("%d items", n),
		}
	}
	return nil
}

// EvaluateAssertions runs all assertions and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	ctx := context.Background()
	var failures []string
	for i, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertAgenda:
			err = assertAgenda(actx, assertion)
		case AssertDocument:
			err = assertDocument(ctx, actx, assertion)
		case AssertSpecialDates:
			err = assertSpecialDates(actx, assertion)
		case AssertTotals:
			err = assertTotals(actx, assertion)
		case AssertNotification:
			err = assertNotification(actx, assertion)
		case AssertIndex:
			err = assertIndex(actx, assertion)
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}
		if err == nil {
			continue
		}
		var aerr *AssertionError
		if errors.As(err, &aerr) {
			aerr.Trace = result.Trace
		}
		failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
	}
	return failures
}
