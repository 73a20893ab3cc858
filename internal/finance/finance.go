// Package finance derives summaries and chart buckets from month ledgers.
//
// All amounts are decimal.Decimal. Functions are pure except ListMonths and
// LoadMonth, which read from a docstore. Feeding the same ledger in twice
// produces the same numbers.
package finance

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/roach88/agenda/internal/model"
	"github.com/roach88/agenda/internal/recurrence"
)

// WeeksPerMonth is the number of week-of-month buckets; day 29-31 fall in
// the fifth.
const WeeksPerMonth = 5

// Totals are the month's sums.
type Totals struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Balance  decimal.Decimal `json:"balance"`
}

// Row is one chart bucket.
type Row struct {
	Label    string          `json:"label"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

func (r Row) empty() bool {
	return r.Income.IsZero() && r.Expenses.IsZero()
}

func (r *Row) add(tx model.Transaction) {
	if tx.Kind == model.Income {
		r.Income = r.Income.Add(tx.Amount)
	} else {
		r.Expenses = r.Expenses.Add(tx.Amount)
	}
	r.Net = r.Income.Sub(r.Expenses)
}

func sum(txs []model.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total
}

// ComputeTotals sums both sides of the ledger.
func ComputeTotals(l model.MonthLedger) Totals {
	in, out := sum(l.Income), sum(l.Expenses)
	return Totals{Income: in, Expenses: out, Balance: in.Sub(out)}
}

// all returns income followed by expenses.
func all(l model.MonthLedger) []model.Transaction {
	return append(slices.Clone(l.Income), l.Expenses...)
}

// ByCategory groups by category. Categories appearing on either side are
// included, in first-seen order (income first).
func ByCategory(l model.MonthLedger) []Row {
	var rows []Row
	pos := make(map[string]int)
	for _, tx := range all(l) {
		i, ok := pos[tx.Category]
		if !ok {
			i = len(rows)
			pos[tx.Category] = i
			rows = append(rows, Row{Label: tx.Category})
		}
		rows[i].add(tx)
	}
	return rows
}

// ByDay buckets by day of month ("01".."31") in loc. Days without activity
// are omitted.
func ByDay(l model.MonthLedger, loc *time.Location) []Row {
	rows := make([]Row, 31)
	for i := range rows {
		rows[i].Label = fmt.Sprintf("%02d", i+1)
	}
	for _, tx := range all(l) {
		rows[dayOf(tx, loc)-1].add(tx)
	}
	return nonEmpty(rows)
}

// ByWeek buckets by week of month, floor((day-1)/7)+1, labelled W1..W5.
// Weeks without activity are omitted.
func ByWeek(l model.MonthLedger, loc *time.Location) []Row {
	rows := make([]Row, WeeksPerMonth)
	for i := range rows {
		rows[i].Label = fmt.Sprintf("W%d", i+1)
	}
	for _, tx := range all(l) {
		rows[WeekOfMonth(dayOf(tx, loc))-1].add(tx)
	}
	return nonEmpty(rows)
}

// WeekOfMonth maps a day of month to its 1-based week bucket.
func WeekOfMonth(day int) int {
	return (day-1)/7 + 1
}

func dayOf(tx model.Transaction, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	return tx.Timestamp.In(loc).Day()
}

func nonEmpty(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if !r.empty() {
			out = append(out, r)
		}
	}
	return out
}

// DailyAverageExpense divides total expenses by the number of days in the
// ledger's month, rounded to cents.
func DailyAverageExpense(l model.MonthLedger) (decimal.Decimal, error) {
	year, month, err := model.ParseMonthKey(l.Month)
	if err != nil {
		return decimal.Zero, err
	}
	days := decimal.NewFromInt(int64(recurrence.DaysIn(year, month)))
	return sum(l.Expenses).Div(days).Round(2), nil
}

// ProjectedBalance extrapolates the net so far to the end of the month:
// net / elapsed days * days in month. With no elapsed days (asOf before the
// month) the raw net is returned. After the month has ended every day has
// elapsed.
func ProjectedBalance(l model.MonthLedger, asOf civil.Date) (decimal.Decimal, error) {
	year, month, err := model.ParseMonthKey(l.Month)
	if err != nil {
		return decimal.Zero, err
	}
	net := ComputeTotals(l).Balance
	days := recurrence.DaysIn(year, month)

	first := civil.Date{Year: year, Month: month, Day: 1}
	last := civil.Date{Year: year, Month: month, Day: days}
	var elapsed int
	switch {
	case asOf.Before(first):
		elapsed = 0
	case asOf.After(last):
		elapsed = days
	default:
		elapsed = asOf.Day
	}
	if elapsed == 0 {
		return net.Round(2), nil
	}
	return net.Div(decimal.NewFromInt(int64(elapsed))).Mul(decimal.NewFromInt(int64(days))).Round(2), nil
}

// PeakExpenseDay returns the date with the largest summed expenses and that
// sum. Ties go to the earlier date. ok is false when there are no expenses.
func PeakExpenseDay(l model.MonthLedger, loc *time.Location) (day civil.Date, total decimal.Decimal, ok bool) {
	if loc == nil {
		loc = time.Local
	}
	byDate := make(map[civil.Date]decimal.Decimal)
	for _, tx := range l.Expenses {
		d := civil.DateOf(tx.Timestamp.In(loc))
		byDate[d] = byDate[d].Add(tx.Amount)
	}
	dates := make([]civil.Date, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	for _, d := range dates {
		if !ok || byDate[d].GreaterThan(total) {
			day, total, ok = d, byDate[d], true
		}
	}
	return day, total, ok
}

// Transactions lists the ledger's transactions, newest first. An empty kind
// lists both sides.
func Transactions(l model.MonthLedger, kind model.TransactionKind) []model.Transaction {
	var txs []model.Transaction
	switch kind {
	case model.Income:
		txs = slices.Clone(l.Income)
	case model.Expense:
		txs = slices.Clone(l.Expenses)
	default:
		txs = all(l)
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Timestamp.After(txs[j].Timestamp) })
	return txs
}

// Summary is everything the finance view shows for one month.
type Summary struct {
	Month               string          `json:"month"`
	Totals              Totals          `json:"totals"`
	DailyAverageExpense decimal.Decimal `json:"dailyAverageExpense"`
	ProjectedBalance    decimal.Decimal `json:"projectedBalance"`
	PeakExpenseDay      *civil.Date     `json:"peakExpenseDay,omitempty"`
	PeakExpenseTotal    decimal.Decimal `json:"peakExpenseTotal"`
	ByCategory          []Row           `json:"byCategory"`
	ByDay               []Row           `json:"byDay"`
	ByWeek              []Row           `json:"byWeek"`
}

// Summarize computes the full summary of l as of the given date.
func Summarize(l model.MonthLedger, asOf civil.Date, loc *time.Location) (Summary, error) {
	avg, err := DailyAverageExpense(l)
	if err != nil {
		return Summary{}, err
	}
	projected, err := ProjectedBalance(l, asOf)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{
		Month:               l.Month,
		Totals:              ComputeTotals(l),
		DailyAverageExpense: avg,
		ProjectedBalance:    projected,
		PeakExpenseTotal:    decimal.Zero,
		ByCategory:          ByCategory(l),
		ByDay:               ByDay(l, loc),
		ByWeek:              ByWeek(l, loc),
	}
	if s.ByCategory == nil {
		s.ByCategory = []Row{}
	}
	if day, total, ok := PeakExpenseDay(l, loc); ok {
		s.PeakExpenseDay = &day
		s.PeakExpenseTotal = total
	}
	return s, nil
}
