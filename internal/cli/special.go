package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/agenda/internal/engine"
	"github.com/roach88/agenda/internal/recurrence"
)

// NewSpecialCommand groups the special-date commands.
func NewSpecialCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "special",
		Short: "Birthdays, anniversaries and other marked dates",
		Long: `Special dates are one-time or annual. One-time dates are removed
automatically once they are in the past.`,
	}
	cmd.AddCommand(newSpecialListCommand(opts))
	cmd.AddCommand(newSpecialAddCommand(opts))
	cmd.AddCommand(newSpecialRemoveCommand(opts))
	return cmd
}

func newSpecialListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List special dates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			dates := s.coord.SpecialDates()
			return formatter(cmd, opts).Render(dates, func(w io.Writer) {
				if len(dates) == 0 {
					fmt.Fprintln(w, "no special dates")
				}
				for _, d := range dates {
					fmt.Fprintf(w, "%s  %-6s %s  #%s\n", d.Date, d.Recurrence, d.Label, d.ID)
				}
			})
		},
	}
}

func newSpecialAddCommand(opts *RootOptions) *cobra.Command {
	var (
		annual bool
		color  string
	)

	cmd := &cobra.Command{
		Use:   "add <YYYY-MM-DD> <label>",
		Short: "Add a special date",
		Long: `Add a one-time special date, or an annual one with --annual.

Examples:
  agenda special add 1990-03-02 "Ana birthday" --annual
  agenda special add 2024-07-01 "Trip"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := recurrence.None
			if annual {
				kind = recurrence.Annual
			}

			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			date, err := parseDate(args[0], s.today(), s.today())
			if err != nil {
				return err
			}
			sd, err := s.coord.AddSpecialDate(cmd.Context(), engine.SpecialDateInput{
				Label:      strings.Join(args[1:], " "),
				Date:       date,
				Recurrence: kind,
				Color:      color,
			})
			if err != nil {
				return commandFailed("failed to add special date", err)
			}
			return formatter(cmd, opts).Render(sd, func(w io.Writer) {
				fmt.Fprintf(w, "Added %q on %s (%s) #%s\n", sd.Label, sd.Date, sd.Recurrence, sd.ID)
			})
		},
	}

	cmd.Flags().BoolVar(&annual, "annual", false, "repeat every year")
	cmd.Flags().StringVar(&color, "color", "", "display color (hex)")
	return cmd
}

func newSpecialRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a special date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.coord.RemoveSpecialDate(cmd.Context(), args[0]); err != nil {
				return commandFailed("failed to remove special date", err)
			}
			return formatter(cmd, opts).Render(map[string]string{"removed": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Removed #%s\n", args[0])
			})
		},
	}
}
