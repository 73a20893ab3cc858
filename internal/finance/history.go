package finance

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/agenda/internal/docstore"
	"github.com/roach88/agenda/internal/model"
)

// ListMonths returns the month keys stored in collection, newest first.
// Documents whose key is not a YYYY-MM month are ignored.
func ListMonths(ctx context.Context, store docstore.Store, collection string) ([]string, error) {
	docs, err := store.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	months := make([]string, 0, len(docs))
	for _, doc := range docs {
		if _, _, err := model.ParseMonthKey(doc.Key); err != nil {
			continue
		}
		months = append(months, doc.Key)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months, nil
}

// LoadMonth fetches one month. A month that was never written loads as an
// empty ledger.
func LoadMonth(ctx context.Context, store docstore.Store, collection, month string) (model.MonthLedger, error) {
	if _, _, err := model.ParseMonthKey(month); err != nil {
		return model.MonthLedger{}, err
	}
	doc, err := store.Get(ctx, collection, month)
	if errors.Is(err, docstore.ErrNotFound) {
		return model.MonthLedger{Month: month, Income: []model.Transaction{}, Expenses: []model.Transaction{}}, nil
	}
	if err != nil {
		return model.MonthLedger{}, fmt.Errorf("load month %s: %w", month, err)
	}
	l, _, err := model.DecodeLedger(month, doc.Data)
	if err != nil {
		return model.MonthLedger{}, err
	}
	return l, nil
}
