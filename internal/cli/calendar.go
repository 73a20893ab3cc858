package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/agenda/internal/export"
	"github.com/roach88/agenda/internal/model"
	"github.com/roach88/agenda/internal/view"
)

// NewMonthCommand shows per-day indicators for a month.
func NewMonthCommand(opts *RootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "month [YYYY-MM]",
		Short: "Show which days of a month have items or special dates",
		Long: `Evaluate every item and special date against each day of the month.
Text output lists busy days only; --all lists every day.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			month := model.MonthKey(s.today())
			if len(args) == 1 {
				month = args[0]
			}
			year, mon, err := model.ParseMonthKey(month)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid month", err)
			}

			days := view.MonthIndicators(s.coord.Index(), s.coord.SpecialDates(), year, mon)
			return formatter(cmd, opts).Render(days, func(w io.Writer) {
				fmt.Fprintln(w, month)
				for _, d := range days {
					if !all && d.Items == 0 && len(d.Specials) == 0 {
						continue
					}
					line := fmt.Sprintf("  %s %s  items=%d pending=%d", d.Date, d.Date.In(s.loc).Weekday().String()[:3], d.Items, d.Pending)
					if len(d.Specials) > 0 {
						line += "  * " + strings.Join(d.Specials, ", ")
					}
					fmt.Fprintln(w, line)
				}
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "list every day, not only busy ones")
	return cmd
}

// NewUpcomingCommand lists the next occurrences of an item.
func NewUpcomingCommand(opts *RootOptions) *cobra.Command {
	var (
		count int
		from  string
	)

	cmd := &cobra.Command{
		Use:   "upcoming <id>",
		Short: "List the next dates an item occurs on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return NewExitError(ExitCommandError, "-n must be positive")
			}
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			start, err := parseDate(from, s.today(), s.today())
			if err != nil {
				return err
			}
			it, _, ok := s.coord.Index().Find(args[0])
			if !ok {
				return NewExitError(ExitCommandError, fmt.Sprintf("item %q not found", args[0]))
			}
			dates, err := view.Upcoming(it, start, count)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to expand recurrence", err)
			}

			out := make([]string, 0, len(dates))
			for _, d := range dates {
				out = append(out, d.String())
			}
			return formatter(cmd, opts).Render(out, func(w io.Writer) {
				fmt.Fprintf(w, "%s (%s)\n", it.Label, it.Recurrence)
				if len(out) == 0 {
					fmt.Fprintln(w, "  no upcoming dates")
				}
				for _, d := range out {
					fmt.Fprintf(w, "  %s\n", d)
				}
			})
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of dates")
	cmd.Flags().StringVar(&from, "from", "", "first date to consider (default today)")
	return cmd
}

// NewExportCommand writes the agenda as iCalendar.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export items and special dates as an iCalendar file",
		Long: `Write every item and special date as a VEVENT. Recurring entries get an
RRULE, so calendar apps expand them the same way the agenda does.

Examples:
  agenda export > agenda.ics
  agenda export -o ~/agenda.ics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to create output file", err)
				}
				defer f.Close()
				w = f
			}

			err = export.WriteICS(w, s.coord.Index(), s.coord.SpecialDates(), export.Options{
				Location: s.loc,
				Now:      s.clock.Now(),
			})
			if err != nil {
				return WrapExitError(ExitFailure, "failed to export", err)
			}
			formatter(cmd, opts).VerboseLog("exported %d items and %d special dates", s.coord.Index().Len(), len(s.coord.SpecialDates()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
