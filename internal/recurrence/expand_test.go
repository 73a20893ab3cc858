package recurrence

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Expansion through rrule-go and single-date evaluation must agree on every
// day of the range.
func TestBetween_AgreesWithOccursOn(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	rules := []Rule{
		{Kind: Daily, Start: date(t, "2024-02-20")},
		{Kind: Weekly, Start: date(t, "2024-01-03")},
		{Kind: Monthly, Start: date(t, "2024-01-31")},
		{Kind: Monthly, Start: date(t, "2024-01-15")},
		{Kind: Annual, Start: date(t, "2020-02-29")},
		{Kind: None, Start: date(t, "2024-06-01"), DayKey: "2024-06-01"},
	}

	from := date(t, "2024-01-01")
	to := date(t, "2028-12-31")

	for _, r := range rules {
		t.Run(string(r.Kind)+"/"+r.Start.String(), func(t *testing.T) {
			got, err := Between(r, from, to, loc)
			require.NoError(t, err)

			expanded := make(map[civil.Date]bool, len(got))
			for _, d := range got {
				expanded[d] = true
			}

			for d := from; !d.After(to); d = d.AddDays(1) {
				assert.Equal(t, OccursOn(r, d), expanded[d], "date %s", d)
			}
		})
	}
}

func TestBetween_RejectsInvertedRange(t *testing.T) {
	_, err := Between(Rule{Kind: Daily}, date(t, "2024-02-01"), date(t, "2024-01-01"), time.UTC)
	assert.Error(t, err)
}

func TestBetween_NoneOutsideRange(t *testing.T) {
	r := Rule{Kind: None, Start: date(t, "2024-06-01")}
	got, err := Between(r, date(t, "2024-01-01"), date(t, "2024-05-31"), time.UTC)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpcoming(t *testing.T) {
	r := Rule{Kind: Monthly, Start: date(t, "2024-01-31")}

	got, err := Upcoming(r, date(t, "2024-02-01"), 3, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []civil.Date{
		date(t, "2024-03-31"),
		date(t, "2024-05-31"),
		date(t, "2024-07-31"),
	}, got)
}

func TestUpcoming_LeapDay(t *testing.T) {
	r := Rule{Kind: Annual, Start: date(t, "2024-02-29")}

	got, err := Upcoming(r, date(t, "2024-03-01"), 2, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []civil.Date{date(t, "2028-02-29"), date(t, "2032-02-29")}, got)
}

func TestUpcoming_LeapDayAcrossCentury(t *testing.T) {
	r := Rule{Kind: Annual, Start: date(t, "2096-02-29")}

	// 2100 is not a leap year.
	got, err := Upcoming(r, date(t, "2097-01-01"), 1, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []civil.Date{date(t, "2104-02-29")}, got)
}

func TestToRRule_NotRecurring(t *testing.T) {
	_, err := ToRRule(Rule{Kind: None}, time.UTC)
	assert.ErrorIs(t, err, ErrNotRecurring)

	_, err = RRuleString(Rule{Kind: None})
	assert.ErrorIs(t, err, ErrNotRecurring)
}

func TestRRuleString(t *testing.T) {
	s, err := RRuleString(Rule{Kind: Weekly, Start: date(t, "2024-01-03")})
	require.NoError(t, err)
	assert.Contains(t, s, "FREQ=WEEKLY")
}
