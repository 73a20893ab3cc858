package recurrence

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "", want: None},
		{in: "none", want: None},
		{in: " Weekly ", want: Weekly},
		{in: "MONTHLY", want: Monthly},
		{in: "annual", want: Annual},
		{in: "fortnightly", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKind_Recurring(t *testing.T) {
	assert.False(t, None.Recurring())
	assert.False(t, Kind("bogus").Recurring())
	assert.True(t, Daily.Recurring())
	assert.True(t, Annual.Recurring())
	assert.Equal(t, "none", Kind("").String())
}

func TestOccursOn_None(t *testing.T) {
	r := Rule{Kind: None, Start: date(t, "2024-03-10"), DayKey: "2024-03-10"}

	start := date(t, "2024-02-01")
	for i := 0; i < 90; i++ {
		d := start.AddDays(i)
		assert.Equal(t, d.String() == "2024-03-10", OccursOn(r, d), "date %s", d)
	}
}

func TestOccursOn_NoneFallsBackToStart(t *testing.T) {
	r := Rule{Kind: "", Start: date(t, "2024-03-10")}
	assert.True(t, OccursOn(r, date(t, "2024-03-10")))
	assert.False(t, OccursOn(r, date(t, "2024-03-11")))
}

func TestOccursOn_Daily(t *testing.T) {
	r := Rule{Kind: Daily, Start: date(t, "2024-03-10")}
	assert.False(t, OccursOn(r, date(t, "2024-03-09")))
	assert.True(t, OccursOn(r, date(t, "2024-03-10")))
	assert.True(t, OccursOn(r, date(t, "2031-12-31")))
}

func TestOccursOn_Weekly(t *testing.T) {
	created := date(t, "2024-03-13") // Wednesday
	r := Rule{Kind: Weekly, Start: created}

	start := date(t, "2024-01-01")
	for i := 0; i < 400; i++ {
		d := start.AddDays(i)
		got := OccursOn(r, d)
		if d.Before(created) {
			assert.False(t, got, "no occurrence before creation: %s", d)
			continue
		}
		want := d.In(time.UTC).Weekday() == time.Wednesday
		assert.Equal(t, want, got, "date %s", d)
	}
}

func TestOccursOn_MonthlySkipsShortMonths(t *testing.T) {
	r := Rule{Kind: Monthly, Start: date(t, "2024-01-31")}

	assert.True(t, OccursOn(r, date(t, "2024-01-31")))
	assert.False(t, OccursOn(r, date(t, "2024-02-29")), "no Feb 31, must not clamp")
	assert.True(t, OccursOn(r, date(t, "2024-03-31")))
	assert.False(t, OccursOn(r, date(t, "2024-04-30")))
	assert.True(t, OccursOn(r, date(t, "2024-05-31")))
	assert.False(t, OccursOn(r, date(t, "2023-12-31")), "before creation")
}

func TestOccursOn_Annual(t *testing.T) {
	r := Rule{Kind: Annual, Start: date(t, "2020-07-04")}

	assert.False(t, OccursOn(r, date(t, "2019-07-04")))
	assert.True(t, OccursOn(r, date(t, "2020-07-04")))
	assert.True(t, OccursOn(r, date(t, "2025-07-04")))
	assert.False(t, OccursOn(r, date(t, "2025-07-05")))
	assert.False(t, OccursOn(r, date(t, "2025-08-04")))
}

func TestOccursOn_UnknownKind(t *testing.T) {
	r := Rule{Kind: "hourly", Start: date(t, "2024-01-01")}
	assert.False(t, OccursOn(r, date(t, "2024-01-01")))
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, DaysIn(2024, time.February))
	assert.Equal(t, 28, DaysIn(2023, time.February))
	assert.Equal(t, 31, DaysIn(2024, time.December))
	assert.Equal(t, 30, DaysIn(2024, time.April))
}

func TestFirstOccurrence(t *testing.T) {
	got, err := FirstOccurrence(Rule{Kind: None, Start: date(t, "2024-01-01"), DayKey: "2024-01-05"})
	require.NoError(t, err)
	assert.Equal(t, date(t, "2024-01-05"), got)

	got, err = FirstOccurrence(Rule{Kind: Weekly, Start: date(t, "2024-01-01"), DayKey: "2024-01-05"})
	require.NoError(t, err)
	assert.Equal(t, date(t, "2024-01-01"), got)

	_, err = FirstOccurrence(Rule{Kind: None, DayKey: "nope"})
	assert.Error(t, err)
}
