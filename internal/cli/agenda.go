package cli

import (
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/roach88/agenda/internal/engine"
	"github.com/roach88/agenda/internal/model"
	"github.com/roach88/agenda/internal/recurrence"
	"github.com/roach88/agenda/internal/view"
)

// ItemResult is an agenda item as shown to the user.
type ItemResult struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Bucket     string `json:"bucket"`
	OccursAt   string `json:"occurs_at,omitempty"`
	Recurrence string `json:"recurrence"`
	DayKey     string `json:"day_key"`
	Color      string `json:"color"`
	Done       bool   `json:"done"`
}

// BucketResult groups the items of one period.
type BucketResult struct {
	Bucket string       `json:"bucket"`
	Items  []ItemResult `json:"items"`
}

// DayResult is the agenda of one date.
type DayResult struct {
	Date     string         `json:"date"`
	Buckets  []BucketResult `json:"buckets"`
	Specials []string       `json:"specials"`
}

func itemResult(it model.Item, b model.Bucket, done bool) ItemResult {
	return ItemResult{
		ID:         it.ID,
		Label:      it.Label,
		Bucket:     string(b),
		OccursAt:   it.OccursAt,
		Recurrence: it.Recurrence.String(),
		DayKey:     it.DayKey,
		Color:      it.Color,
		Done:       done,
	}
}

// parseDate accepts YYYY-MM-DD, "today", "tomorrow" and "yesterday".
// Empty returns def.
func parseDate(s string, today, def civil.Date) (civil.Date, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1), nil
	case "yesterday":
		return today.AddDays(-1), nil
	}
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, NewExitError(ExitCommandError, fmt.Sprintf("invalid date %q: want YYYY-MM-DD", s))
	}
	return d, nil
}

func buildDay(a view.Agenda, specials []model.SpecialDate) DayResult {
	res := DayResult{Date: a.Date.String(), Specials: []string{}}
	for _, b := range model.Buckets {
		br := BucketResult{Bucket: string(b), Items: []ItemResult{}}
		for _, e := range a.Buckets[b] {
			br.Items = append(br.Items, itemResult(e.Item, b, e.Done))
		}
		res.Buckets = append(res.Buckets, br)
	}
	for _, s := range specials {
		if s.OccursOn(a.Date) {
			res.Specials = append(res.Specials, s.Label)
		}
	}
	return res
}

func writeItemLine(w io.Writer, it ItemResult) {
	mark := " "
	if it.Done {
		mark = "x"
	}
	at := it.OccursAt
	if at == "" {
		at = "--:--"
	}
	line := fmt.Sprintf("  [%s] %s %s", mark, at, it.Label)
	if it.Recurrence != string(recurrence.None) {
		line += " (" + it.Recurrence + ")"
	}
	fmt.Fprintf(w, "%s  #%s\n", line, it.ID)
}

func writeDay(w io.Writer, d DayResult) {
	fmt.Fprintln(w, d.Date)
	for _, s := range d.Specials {
		fmt.Fprintf(w, "  * %s\n", s)
	}
	for _, b := range d.Buckets {
		fmt.Fprintf(w, "%s\n", b.Bucket)
		if len(b.Items) == 0 {
			fmt.Fprintln(w, "  (nothing)")
		}
		for _, it := range b.Items {
			writeItemLine(w, it)
		}
	}
}

// NewDayCommand shows the agenda of one date.
func NewDayCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "day [date]",
		Short: "Show the agenda of a date (default today)",
		Long: `Show every item scheduled on a date, grouped by period, with the
special dates that fall on it.

Examples:
  agenda day
  agenda day tomorrow
  agenda day 2024-05-12 --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			date, err := parseDate(arg, s.today(), s.today())
			if err != nil {
				return err
			}
			day := buildDay(view.Project(s.coord.Index(), date), s.coord.SpecialDates())
			return formatter(cmd, opts).Render(day, func(w io.Writer) { writeDay(w, day) })
		},
	}
}

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	At     string
	Period string
	On     string
	Repeat string
	Color  string
}

// NewAddCommand creates an agenda item.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <label>",
		Short: "Add an agenda item",
		Long: `Add a one-time or recurring item. The period is derived from --at
when not given: morning [06:00,12:00), afternoon [12:00,18:00), night otherwise.

Examples:
  agenda add Gym --at 07:00 --repeat weekly
  agenda add "Pay rent" --period morning --on 2024-06-05 --repeat monthly`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.At, "at", "", "time of day (HH:MM)")
	cmd.Flags().StringVar(&opts.Period, "period", "", "morning|afternoon|night")
	cmd.Flags().StringVar(&opts.On, "on", "", "date (YYYY-MM-DD, today, tomorrow); default today")
	cmd.Flags().StringVar(&opts.Repeat, "repeat", "none", "none|daily|weekly|monthly")
	cmd.Flags().StringVar(&opts.Color, "color", "", "display color (hex)")

	return cmd
}

func runAdd(opts *AddOptions, label string, cmd *cobra.Command) error {
	kind, err := recurrence.ParseKind(opts.Repeat)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --repeat", err)
	}

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	on, err := parseDate(opts.On, s.today(), s.today())
	if err != nil {
		return err
	}

	it, err := s.coord.AddItem(cmd.Context(), engine.ItemInput{
		Label:      label,
		OccursAt:   opts.At,
		Bucket:     model.Bucket(opts.Period),
		Color:      opts.Color,
		Recurrence: kind,
		On:         on,
	})
	if err != nil {
		return commandFailed("failed to add item", err)
	}

	_, b, _ := s.coord.Index().Find(it.ID)
	res := itemResult(it, b, false)
	return formatter(cmd, opts.RootOptions).Render(res, func(w io.Writer) {
		fmt.Fprintf(w, "Added %q on %s (%s) #%s\n", it.Label, it.DayKey, b, it.ID)
	})
}

// NewToggleCommand flips completion of an item on a date.
func NewToggleCommand(opts *RootOptions) *cobra.Command {
	var on string

	cmd := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Mark an item done or not done",
		Long: `Flip completion of an item. Recurring items are completed per date:
--on picks the occurrence (default today).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			date, err := parseDate(on, s.today(), s.today())
			if err != nil {
				return err
			}
			it, err := s.coord.ToggleItem(cmd.Context(), args[0], date)
			if err != nil {
				return commandFailed("failed to toggle item", err)
			}
			_, b, _ := s.coord.Index().Find(it.ID)
			res := itemResult(it, b, it.DoneOn(date))
			return formatter(cmd, opts).Render(res, func(w io.Writer) {
				state := "not done"
				if res.Done {
					state = "done"
				}
				fmt.Fprintf(w, "%q is %s on %s\n", it.Label, state, date)
			})
		},
	}

	cmd.Flags().StringVar(&on, "on", "", "occurrence date (default today)")
	return cmd
}

// NewRemoveCommand deletes an item.
func NewRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete an agenda item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.coord.RemoveItem(cmd.Context(), args[0]); err != nil {
				return commandFailed("failed to remove item", err)
			}
			return formatter(cmd, opts).Render(map[string]string{"removed": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Removed #%s\n", args[0])
			})
		},
	}
}
