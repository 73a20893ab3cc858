package engine

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/roach88/agenda/internal/finance"
	"github.com/roach88/agenda/internal/model"
)

// TransactionInput describes a new income or expense.
type TransactionInput struct {
	Kind        model.TransactionKind
	Amount      decimal.Decimal
	Description string
	Category    string
	// At is the transaction time. Zero means now. It must fall in the
	// current month.
	At time.Time
}

func (in TransactionInput) validate() error {
	const op = "add transaction"
	if _, err := model.ParseTransactionKind(string(in.Kind)); err != nil {
		return validationError(op, "%v", err)
	}
	if !in.Amount.IsPositive() {
		return validationError(op, "amount must be positive, got %s", in.Amount)
	}
	if strings.TrimSpace(in.Description) == "" {
		return validationError(op, "description is required")
	}
	return nil
}

// currentLedger returns the ledger for today's month. After a month
// rollover with no snapshot yet, that is a fresh empty ledger.
func (c *Coordinator) currentLedger() model.MonthLedger {
	month := model.MonthKey(c.today())
	l := *c.ledger.Load()
	if l.Month != month {
		return emptyLedger(month)
	}
	return l
}

// AddTransaction records a transaction in the current month.
func (c *Coordinator) AddTransaction(ctx context.Context, in TransactionInput) (model.Transaction, error) {
	const op = "add transaction"
	if err := in.validate(); err != nil {
		return model.Transaction{}, err
	}
	kind, _ := model.ParseTransactionKind(string(in.Kind))
	id := c.ids.Generate()

	var created model.Transaction
	err := c.submit(ctx, op, func(now time.Time) (persistFunc, error) {
		at := in.At
		if at.IsZero() {
			at = now
		}
		l := c.currentLedger()
		if month := model.MonthKey(civil.DateOf(at.In(c.loc))); month != l.Month {
			return nil, validationError(op, "transaction date %s is outside the current month %s", at.Format(time.DateOnly), l.Month)
		}
		created = model.Transaction{
			ID:          id,
			Amount:      in.Amount,
			Description: strings.TrimSpace(in.Description),
			Category:    model.NormalizeCategory(in.Category),
			Kind:        kind,
			Timestamp:   at,
		}
		next := l.WithTransaction(created)
		c.ledger.Store(&next)
		return c.persistLedger(next, now), nil
	})
	return created, err
}

// RemoveTransaction deletes a transaction from the current month.
func (c *Coordinator) RemoveTransaction(ctx context.Context, kind model.TransactionKind, id string) error {
	const op = "remove transaction"
	if _, err := model.ParseTransactionKind(string(kind)); err != nil {
		return validationError(op, "%v", err)
	}
	return c.submit(ctx, op, func(now time.Time) (persistFunc, error) {
		next, ok := c.currentLedger().WithoutTransaction(kind, id)
		if !ok {
			return nil, notFoundError(op, string(kind), id)
		}
		c.ledger.Store(&next)
		return c.persistLedger(next, now), nil
	})
}

// ClearMonth empties the current month. confirmation must equal the month
// key (YYYY-MM) being cleared.
func (c *Coordinator) ClearMonth(ctx context.Context, confirmation string) error {
	const op = "clear month"
	return c.submit(ctx, op, func(now time.Time) (persistFunc, error) {
		month := model.MonthKey(c.today())
		if strings.TrimSpace(confirmation) != month {
			return nil, validationError(op, "confirmation %q does not match month %s", confirmation, month)
		}
		next := emptyLedger(month)
		c.ledger.Store(&next)
		return c.persistLedger(next, now), nil
	})
}

// Summary aggregates the current month as of today.
func (c *Coordinator) Summary() (finance.Summary, error) {
	l := c.Ledger()
	today := c.today()
	if l.Month != model.MonthKey(today) {
		l = emptyLedger(model.MonthKey(today))
	}
	return finance.Summarize(l, today, c.loc)
}

// ListMonths lists stored months, newest first.
func (c *Coordinator) ListMonths(ctx context.Context) ([]string, error) {
	return finance.ListMonths(ctx, c.store, c.paths.Finances)
}

// LoadMonth reads one historical month straight from the store.
func (c *Coordinator) LoadMonth(ctx context.Context, month string) (model.MonthLedger, error) {
	l, err := finance.LoadMonth(ctx, c.store, c.paths.Finances, month)
	if err != nil {
		if _, _, perr := model.ParseMonthKey(month); perr != nil {
			return model.MonthLedger{}, validationError("load month", "%v", perr)
		}
		return model.MonthLedger{}, err
	}
	return l, nil
}
