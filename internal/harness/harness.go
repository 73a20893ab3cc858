package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/roach88/agenda/internal/docstore/memstore"
	"github.com/roach88/agenda/internal/engine"
	"github.com/roach88/agenda/internal/model"
	"github.com/roach88/agenda/internal/recurrence"
	"github.com/roach88/agenda/internal/testutil"
)

// Actor owns every document a scenario touches.
const Actor = "scenario"

// readyTimeout bounds the wait for the first snapshots.
const readyTimeout = 5 * time.Second

// ErrWriteRejected is what the store returns for collections listed in
// Scenario.FailWrites.
var ErrWriteRejected = errors.New("harness: write rejected")

// Harness is one scenario execution: a fresh store, a fixed clock and
// sequential IDs around a running coordinator.
type Harness struct {
	store  *memstore.Store
	paths  engine.Paths
	clock  *testutil.FixedClock
	coord  *engine.Coordinator
	logger *slog.Logger

	failing map[string]bool
	armed   atomic.Bool

	mu    sync.Mutex
	notes []engine.Notification
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Create a fresh in-memory store and write the seed documents
//  2. Start the coordinator and wait for its first snapshots
//  3. Run each step, recording its outcome in the trace
//  4. Stop the coordinator, which waits for in-flight writes
//  5. Evaluate assertions against coordinator state and stored documents
//
// A returned error means the scenario could not run at all; step and
// assertion failures are reported in Result.
func Run(scenario *Scenario) (*Result, error) {
	now, err := time.Parse(time.RFC3339, scenario.Now)
	if err != nil {
		return nil, fmt.Errorf("parse now: %w", err)
	}
	loc := time.UTC
	if scenario.Timezone != "" {
		if loc, err = time.LoadLocation(scenario.Timezone); err != nil {
			return nil, fmt.Errorf("load timezone: %w", err)
		}
	}
	paths, err := engine.PathsFor(Actor)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		paths:   paths,
		clock:   testutil.NewFixedClock(now),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		failing: make(map[string]bool),
	}
	for _, c := range scenario.FailWrites {
		h.failing[h.collection(c)] = true
	}
	h.store = memstore.New(
		memstore.WithClock(h.clock.Now),
		memstore.WithSetFailure(h.rejectWrite),
	)
	defer h.store.Close()

	ctx := context.Background()
	for i, doc := range scenario.Seed {
		if err := h.store.Set(ctx, h.collection(doc.Collection), doc.Key, []byte(doc.Data)); err != nil {
			return nil, fmt.Errorf("seed[%d]: %w", i, err)
		}
	}
	h.armed.Store(true)

	h.coord = engine.New(h.store, paths,
		engine.WithLogger(h.logger),
		engine.WithClock(h.clock),
		engine.WithIDGenerator(testutil.NewSequenceIDs("id")),
		engine.WithLocation(loc),
		engine.WithNotifier(engine.NotifierFunc(h.record)),
	)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- h.coord.Run(runCtx) }()

	select {
	case <-h.coord.Ready():
	case <-time.After(readyTimeout):
		cancel()
		<-done
		return nil, fmt.Errorf("coordinator not ready after %s", readyTimeout)
	}

	result := NewResult()
	h.executeSteps(ctx, scenario.Steps, result)

	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("coordinator: %w", err)
	}

	if result.Final, err = h.capture(); err != nil {
		return nil, err
	}

	actx := &AssertionContext{
		Coordinator:   h.coord,
		Store:         h.store,
		Paths:         paths,
		Notifications: h.notifications(),
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// capture snapshots the stopped coordinator.
func (h *Harness) capture() (FinalState, error) {
	agenda := h.coord.Agenda()
	final := FinalState{
		Selected: agenda.Date.String(),
		Items:    h.coord.Index().Len(),
		Agenda:   make(map[string][]string, len(model.Buckets)),
		Specials: []string{},
	}
	for _, b := range model.Buckets {
		entries := []string{}
		for _, e := range agenda.Buckets[b] {
			mark := "[ ]"
			if e.Done {
				mark = "[x]"
			}
			entries = append(entries, mark+" "+e.Item.Label)
		}
		final.Agenda[string(b)] = entries
	}
	for _, s := range h.coord.SpecialDates() {
		final.Specials = append(final.Specials, s.Label)
	}
	summary, err := h.coord.Summary()
	if err != nil {
		return FinalState{}, fmt.Errorf("summary: %w", err)
	}
	final.Income = summary.Totals.Income.String()
	final.Expenses = summary.Totals.Expenses.String()
	final.Balance = summary.Totals.Balance.String()
	return final, nil
}

// collection maps a scenario collection name to the actor's path.
func (h *Harness) collection(name string) string {
	switch name {
	case "agenda":
		return h.paths.Agenda
	case "finances":
		return h.paths.Finances
	case "meta":
		return h.paths.Meta
	}
	return name
}

func (h *Harness) rejectWrite(collection, _ string) error {
	if h.armed.Load() && h.failing[collection] {
		return ErrWriteRejected
	}
	return nil
}

func (h *Harness) record(n engine.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notes = append(h.notes, n)
}

func (h *Harness) notifications() []engine.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]engine.Notification(nil), h.notes...)
}

// executeSteps runs every step and compares its outcome with the expect
// clause. A step without one must succeed.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) {
	for i, step := range steps {
		id, err := h.execute(ctx, step)
		outcome := outcomeOf(err)
		result.AddTrace(i+1, step.Op, outcome, id)

		want := "ok"
		if step.Expect != nil {
			want = step.Expect.Error
		}
		if outcome != want {
			msg := fmt.Sprintf("steps[%d] %s: expected %s, got %s", i, step.Op, want, outcome)
			if err != nil {
				msg += ": " + err.Error()
			}
			result.AddError(msg)
		}
		h.logger.Debug("step executed", "step", i+1, "op", step.Op, "outcome", outcome)
	}
}

// outcomeOf reduces an error to the code recorded in the trace.
func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	var e *engine.Error
	if errors.As(err, &e) {
		return string(e.Code)
	}
	return "ERROR"
}

// execute dispatches one step. It returns the ID of anything created.
func (h *Harness) execute(ctx context.Context, step Step) (string, error) {
	a := step.Args
	switch step.Op {
	case OpAddItem:
		on, err := optionalDate(a.On)
		if err != nil {
			return "", err
		}
		it, err := h.coord.AddItem(ctx, engine.ItemInput{
			Label:      a.Label,
			OccursAt:   a.At,
			Bucket:     model.Bucket(a.Period),
			Color:      a.Color,
			Recurrence: recurrence.Kind(a.Repeat),
			On:         on,
		})
		return it.ID, err

	case OpToggleItem:
		on, err := optionalDate(a.On)
		if err != nil {
			return "", err
		}
		_, err = h.coord.ToggleItem(ctx, a.ID, on)
		return "", err

	case OpRemoveItem:
		return "", h.coord.RemoveItem(ctx, a.ID)

	case OpSelectDate:
		d, err := civil.ParseDate(a.On)
		if err != nil {
			return "", fmt.Errorf("select_date: %w", err)
		}
		return "", h.coord.SelectDate(ctx, d)

	case OpAddTransaction:
		amount, err := decimal.NewFromString(a.Amount)
		if err != nil {
			return "", fmt.Errorf("add_transaction: amount: %w", err)
		}
		tx, err := h.coord.AddTransaction(ctx, engine.TransactionInput{
			Kind:        model.TransactionKind(a.Kind),
			Amount:      amount,
			Description: a.Description,
			Category:    a.Category,
		})
		return tx.ID, err

	case OpRemoveTransaction:
		return "", h.coord.RemoveTransaction(ctx, model.TransactionKind(a.Kind), a.ID)

	case OpClearMonth:
		return "", h.coord.ClearMonth(ctx, a.Confirmation)

	case OpAddSpecial:
		d, err := civil.ParseDate(a.On)
		if err != nil {
			return "", fmt.Errorf("add_special: %w", err)
		}
		s, err := h.coord.AddSpecialDate(ctx, engine.SpecialDateInput{
			Label:      a.Label,
			Date:       d,
			Recurrence: recurrence.Kind(a.Repeat),
			Color:      a.Color,
		})
		return s.ID, err

	case OpRemoveSpecial:
		return "", h.coord.RemoveSpecialDate(ctx, a.ID)

	case OpSweep:
		_, err := h.coord.SweepSpecialDates(ctx)
		return "", err

	case OpAdvance:
		d, err := time.ParseDuration(a.Duration)
		if err != nil {
			return "", err
		}
		h.clock.Advance(d)
		return "", nil
	}
	return "", fmt.Errorf("unknown op %q", step.Op)
}

func optionalDate(s string) (civil.Date, error) {
	if strings.TrimSpace(s) == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("date %q: %w", s, err)
	}
	return d, nil
}
