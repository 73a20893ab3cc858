package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/agenda/internal/engine"
	"github.com/roach88/agenda/internal/finance"
	"github.com/roach88/agenda/internal/model"
)

// NewFinanceCommand groups the ledger commands.
func NewFinanceCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finance",
		Short: "Monthly income and expense ledger",
	}

	cmd.AddCommand(newFinanceSummaryCommand(opts))
	cmd.AddCommand(newFinanceListCommand(opts))
	cmd.AddCommand(newFinanceAddCommand(opts))
	cmd.AddCommand(newFinanceRemoveCommand(opts))
	cmd.AddCommand(newFinanceClearCommand(opts))
	cmd.AddCommand(newFinanceHistoryCommand(opts))
	return cmd
}

// loadLedger returns the current month from the coordinator, or a stored
// month when one is named.
func loadLedger(cmd *cobra.Command, s *session, month string) (model.MonthLedger, error) {
	if month == "" || month == model.MonthKey(s.today()) {
		return s.coord.Ledger(), nil
	}
	l, err := s.coord.LoadMonth(cmd.Context(), month)
	if err != nil {
		return model.MonthLedger{}, commandFailed("failed to load month", err)
	}
	return l, nil
}

func newFinanceSummaryCommand(opts *RootOptions) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Totals, averages and chart buckets for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			l, err := loadLedger(cmd, s, month)
			if err != nil {
				return err
			}
			sum, err := finance.Summarize(l, s.today(), s.loc)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to summarize", err)
			}
			return formatter(cmd, opts).Render(sum, func(w io.Writer) { writeSummary(w, s.money, sum) })
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "month (YYYY-MM); default current")
	return cmd
}

func writeSummary(w io.Writer, m money, sum finance.Summary) {
	fmt.Fprintln(w, sum.Month)
	fmt.Fprintf(w, "  income             %s\n", m.Format(sum.Totals.Income))
	fmt.Fprintf(w, "  expenses           %s\n", m.Format(sum.Totals.Expenses))
	fmt.Fprintf(w, "  balance            %s\n", m.Format(sum.Totals.Balance))
	fmt.Fprintf(w, "  daily expense avg  %s\n", m.Format(sum.DailyAverageExpense))
	fmt.Fprintf(w, "  projected balance  %s\n", m.Format(sum.ProjectedBalance))
	if sum.PeakExpenseDay != nil {
		fmt.Fprintf(w, "  peak expense day   %s (%s)\n", sum.PeakExpenseDay, m.Format(sum.PeakExpenseTotal))
	}
	writeRows(w, m, "by category", sum.ByCategory)
	writeRows(w, m, "by week", sum.ByWeek)
	writeRows(w, m, "by day", sum.ByDay)
}

func writeRows(w io.Writer, m money, title string, rows []finance.Row) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintln(w, title)
	for _, r := range rows {
		fmt.Fprintf(w, "  %-12s +%s  -%s  = %s\n", r.Label, m.Format(r.Income), m.Format(r.Expenses), m.Format(r.Net))
	}
}

func newFinanceListCommand(opts *RootOptions) *cobra.Command {
	var month, kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var k model.TransactionKind
			if kind != "" && kind != "all" {
				parsed, err := model.ParseTransactionKind(kind)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --kind", err)
				}
				k = parsed
			}

			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			l, err := loadLedger(cmd, s, month)
			if err != nil {
				return err
			}
			txs := finance.Transactions(l, k)
			return formatter(cmd, opts).Render(txs, func(w io.Writer) {
				if len(txs) == 0 {
					fmt.Fprintln(w, "no transactions")
				}
				for _, tx := range txs {
					sign := "+"
					if tx.Kind == model.Expense {
						sign = "-"
					}
					fmt.Fprintf(w, "%s %s%s %-10s %s  #%s\n",
						tx.Timestamp.In(s.loc).Format(time.DateOnly), sign, s.money.Format(tx.Amount), tx.Category, tx.Description, tx.ID)
				}
			})
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "month (YYYY-MM); default current")
	cmd.Flags().StringVar(&kind, "kind", "all", "all|income|expense")
	return cmd
}

func newFinanceAddCommand(opts *RootOptions) *cobra.Command {
	var category, on string

	cmd := &cobra.Command{
		Use:   "add <income|expense> <amount> <description>",
		Short: "Record a transaction in the current month",
		Long: `Record income or an expense. Amounts accept a comma as decimal separator.

Examples:
  agenda finance add income 3500 Salary --category salary
  agenda finance add expense 12,50 "Lunch" --category food`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseTransactionKind(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid kind", err)
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid amount", err)
			}

			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			var at time.Time
			if on != "" {
				d, err := parseDate(on, s.today(), s.today())
				if err != nil {
					return err
				}
				now := s.clock.Now().In(s.loc)
				at = time.Date(d.Year, d.Month, d.Day, now.Hour(), now.Minute(), now.Second(), 0, s.loc)
			}

			tx, err := s.coord.AddTransaction(cmd.Context(), engine.TransactionInput{
				Kind:        kind,
				Amount:      amount,
				Description: strings.Join(args[2:], " "),
				Category:    category,
				At:          at,
			})
			if err != nil {
				return commandFailed("failed to add transaction", err)
			}
			return formatter(cmd, opts).Render(tx, func(w io.Writer) {
				fmt.Fprintf(w, "Added %s %s (%s) #%s\n", tx.Kind, s.money.Format(tx.Amount), tx.Category, tx.ID)
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "category (default other)")
	cmd.Flags().StringVar(&on, "on", "", "date within the current month (default today)")
	return cmd
}

func newFinanceRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <income|expense> <id>",
		Short: "Delete a transaction from the current month",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseTransactionKind(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid kind", err)
			}
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.coord.RemoveTransaction(cmd.Context(), kind, args[1]); err != nil {
				return commandFailed("failed to remove transaction", err)
			}
			return formatter(cmd, opts).Render(map[string]string{"removed": args[1]}, func(w io.Writer) {
				fmt.Fprintf(w, "Removed #%s\n", args[1])
			})
		},
	}
}

func newFinanceClearCommand(opts *RootOptions) *cobra.Command {
	var confirm string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every transaction of the current month",
		Long: `Empty the current month's ledger. --confirm must repeat the month
(YYYY-MM) being cleared.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.coord.ClearMonth(cmd.Context(), confirm); err != nil {
				return commandFailed("failed to clear month", err)
			}
			month := model.MonthKey(s.today())
			return formatter(cmd, opts).Render(map[string]string{"cleared": month}, func(w io.Writer) {
				fmt.Fprintf(w, "Cleared %s\n", month)
			})
		},
	}

	cmd.Flags().StringVar(&confirm, "confirm", "", "the month being cleared (YYYY-MM)")
	_ = cmd.MarkFlagRequired("confirm")
	return cmd
}

// HistoryEntry is one stored month with its totals.
type HistoryEntry struct {
	Month  string         `json:"month"`
	Totals finance.Totals `json:"totals"`
}

func newFinanceHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List stored months with their totals, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			months, err := s.coord.ListMonths(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to list months", err)
			}
			entries := make([]HistoryEntry, 0, len(months))
			for _, month := range months {
				l, err := loadLedger(cmd, s, month)
				if err != nil {
					return err
				}
				entries = append(entries, HistoryEntry{Month: month, Totals: finance.ComputeTotals(l)})
			}
			return formatter(cmd, opts).Render(entries, func(w io.Writer) {
				if len(entries) == 0 {
					fmt.Fprintln(w, "no months recorded")
				}
				for _, e := range entries {
					fmt.Fprintf(w, "%s  +%s  -%s  = %s\n", e.Month,
						s.money.Format(e.Totals.Income), s.money.Format(e.Totals.Expenses), s.money.Format(e.Totals.Balance))
				}
			})
		},
	}
}
