package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionKind separates the two sides of a month ledger.
type TransactionKind string

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

// ParseTransactionKind parses "income" or "expense".
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch k := TransactionKind(strings.ToLower(strings.TrimSpace(s))); k {
	case Income, Expense:
		return k, nil
	}
	return "", fmt.Errorf("unknown transaction kind %q", s)
}

// Default categories offered for each side. Any other category is accepted.
var (
	IncomeCategories  = []string{"salary", "freelance", "gift", "investment"}
	ExpenseCategories = []string{"food", "transport", "home", "leisure", "clothing", "health", "education", "other"}
)

// NormalizeCategory lower-cases and trims a category; empty becomes "other".
func NormalizeCategory(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "other"
	}
	return s
}

// Transaction is one income or expense entry.
type Transaction struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Kind        TransactionKind `json:"kind"`
	Timestamp   time.Time       `json:"timestamp"`
}

// MonthLedger is the document stored under a YYYY-MM key.
type MonthLedger struct {
	Month     string        `json:"-"`
	Income    []Transaction `json:"income"`
	Expenses  []Transaction `json:"expenses"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Side returns the transactions of one kind.
func (l MonthLedger) Side(kind TransactionKind) []Transaction {
	if kind == Income {
		return l.Income
	}
	return l.Expenses
}

// Clone returns a copy that shares no slices with l.
func (l MonthLedger) Clone() MonthLedger {
	l.Income = slices.Clone(l.Income)
	l.Expenses = slices.Clone(l.Expenses)
	return l
}

// WithTransaction returns a copy with tx appended to its side.
func (l MonthLedger) WithTransaction(tx Transaction) MonthLedger {
	out := l.Clone()
	if tx.Kind == Income {
		out.Income = append(out.Income, tx)
	} else {
		out.Expenses = append(out.Expenses, tx)
	}
	return out
}

// WithoutTransaction returns a copy without the transaction id on the given
// side, and whether it was present.
func (l MonthLedger) WithoutTransaction(kind TransactionKind, id string) (MonthLedger, bool) {
	out := l.Clone()
	side := &out.Expenses
	if kind == Income {
		side = &out.Income
	}
	i := slices.IndexFunc(*side, func(tx Transaction) bool { return tx.ID == id })
	if i < 0 {
		return l, false
	}
	*side = slices.Delete(*side, i, i+1)
	return out, true
}

// MonthKey formats the ledger key for the month containing d.
func MonthKey(d civil.Date) string {
	return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
}

// ParseMonthKey parses a YYYY-MM key.
func ParseMonthKey(key string) (year int, month time.Month, err error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(key))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month key %q: want YYYY-MM", key)
	}
	return t.Year(), t.Month(), nil
}

type rawTransaction struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Timestamp   time.Time       `json:"timestamp"`
}

// DecodeLedger decodes the month document stored under key. The side a
// transaction sits on determines its kind. Non-positive amounts are dropped
// and counted.
func DecodeLedger(key string, data []byte) (MonthLedger, int, error) {
	var raw struct {
		Income    []rawTransaction `json:"income"`
		Expenses  []rawTransaction `json:"expenses"`
		UpdatedAt time.Time        `json:"updatedAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return MonthLedger{}, 0, fmt.Errorf("decode ledger %s: %w", key, err)
	}

	skipped := 0
	side := func(in []rawTransaction, kind TransactionKind) []Transaction {
		out := make([]Transaction, 0, len(in))
		for _, r := range in {
			if !r.Amount.IsPositive() {
				skipped++
				continue
			}
			out = append(out, Transaction{
				ID:          r.ID,
				Amount:      r.Amount,
				Description: strings.TrimSpace(r.Description),
				Category:    NormalizeCategory(r.Category),
				Kind:        kind,
				Timestamp:   r.Timestamp,
			})
		}
		return out
	}

	l := MonthLedger{
		Month:     key,
		Income:    side(raw.Income, Income),
		Expenses:  side(raw.Expenses, Expense),
		UpdatedAt: raw.UpdatedAt,
	}
	return l, skipped, nil
}

// EncodeLedger serializes a month ledger.
func EncodeLedger(l MonthLedger) ([]byte, error) {
	if l.Income == nil {
		l.Income = []Transaction{}
	}
	if l.Expenses == nil {
		l.Expenses = []Transaction{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("encode ledger %s: %w", l.Month, err)
	}
	return data, nil
}
