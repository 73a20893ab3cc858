package model

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agenda/internal/recurrence"
)

func TestBucketFor(t *testing.T) {
	tests := []struct {
		in   string
		want Bucket
	}{
		{"06:00", Morning},
		{"11:59", Morning},
		{"12:00", Afternoon},
		{"17:59", Afternoon},
		{"18:00", Night},
		{"00:30", Night},
		{"5:59", Night},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := BucketFor(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := BucketFor("25:00")
	assert.Error(t, err)
	_, err = BucketFor("")
	assert.Error(t, err)
}

func TestContentKey(t *testing.T) {
	base := Item{Label: "Dentist", OccursAt: "09:00", Recurrence: recurrence.None, DayKey: "2024-01-31"}

	t.Run("ignores id and case", func(t *testing.T) {
		other := base
		other.ID = "different"
		other.Label = "  DENTIST "
		assert.Equal(t, ContentKey(base, Morning), ContentKey(other, Morning))
	})

	t.Run("composed and decomposed accents match", func(t *testing.T) {
		a := base
		a.Label = "Caf\u00e9"
		b := base
		b.Label = "Cafe\u0301"
		assert.Equal(t, ContentKey(a, Morning), ContentKey(b, Morning))
	})

	t.Run("empty recurrence is none", func(t *testing.T) {
		other := base
		other.Recurrence = ""
		assert.Equal(t, ContentKey(base, Morning), ContentKey(other, Morning))
	})

	t.Run("each field distinguishes", func(t *testing.T) {
		variants := []Item{base, base, base, base}
		variants[0].Label = "Doctor"
		variants[1].OccursAt = "10:00"
		variants[2].Recurrence = recurrence.Weekly
		variants[3].DayKey = "2024-02-01"
		for _, v := range variants {
			assert.NotEqual(t, ContentKey(base, Morning), ContentKey(v, Morning))
		}
		assert.NotEqual(t, ContentKey(base, Morning), ContentKey(base, Night))
	})
}

func TestItemToggled(t *testing.T) {
	d1 := civil.Date{Year: 2024, Month: 5, Day: 1}
	d2 := civil.Date{Year: 2024, Month: 5, Day: 8}

	once := Item{Recurrence: recurrence.None, DayKey: "2024-05-01"}
	assert.True(t, once.Toggled(d1).DoneOn(d1))
	assert.False(t, once.Toggled(d1).Toggled(d1).DoneOn(d1))

	weekly := Item{Recurrence: recurrence.Weekly, CreatedOn: d1, DayKey: "2024-05-01"}
	done := weekly.Toggled(d2)
	assert.True(t, done.DoneOn(d2))
	assert.False(t, done.DoneOn(d1))
	assert.False(t, weekly.DoneOn(d2), "original must not be mutated")
	assert.False(t, done.Toggled(d2).DoneOn(d2))
}

func TestSpecialDates(t *testing.T) {
	data := []byte(`{"dates":[
		{"id":"1","label":"Birthday","date":"1990-06-15","recurrence":"annual"},
		{"id":"2","label":"Trip","date":"2024-07-01T00:00:00Z"},
		{"id":"3","label":"Bad","date":"2024-07-01","recurrence":"weekly"},
		{"id":"4","label":"","date":"2024-07-01"}
	]}`)

	dates, skipped, err := DecodeSpecialDates(data)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, recurrence.None, dates[1].Recurrence)
	assert.Equal(t, DefaultColor, dates[1].Color)

	today := civil.Date{Year: 2024, Month: 7, Day: 2}
	assert.False(t, dates[0].Expired(today))
	assert.True(t, dates[1].Expired(today))
	assert.False(t, dates[1].Expired(civil.Date{Year: 2024, Month: 7, Day: 1}))
	assert.True(t, dates[0].OccursOn(civil.Date{Year: 2030, Month: 6, Day: 15}))

	out, err := EncodeSpecialDates(dates, time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	again, skipped, err := DecodeSpecialDates(out)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, dates, again)
}

func TestLedger(t *testing.T) {
	data := []byte(`{
		"income": [{"id":"i1","amount":"100","category":" Salary "},{"id":"i2","amount":50,"category":"gift"}],
		"expenses": [{"id":"e1","amount":"30.50","category":""},{"id":"e2","amount":"-1"}]
	}`)

	l, skipped, err := DecodeLedger("2024-05", data)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, l.Income, 2)
	require.Len(t, l.Expenses, 1)
	assert.Equal(t, "salary", l.Income[0].Category)
	assert.Equal(t, Expense, l.Expenses[0].Kind)
	assert.Equal(t, "other", l.Expenses[0].Category)
	assert.True(t, decimal.RequireFromString("30.5").Equal(l.Expenses[0].Amount))

	without, ok := l.WithoutTransaction(Income, "i1")
	require.True(t, ok)
	assert.Len(t, without.Income, 1)
	assert.Len(t, l.Income, 2)

	_, ok = l.WithoutTransaction(Expense, "i1")
	assert.False(t, ok)
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2024-03", MonthKey(civil.Date{Year: 2024, Month: 3, Day: 9}))

	y, m, err := ParseMonthKey("2024-12")
	require.NoError(t, err)
	assert.Equal(t, 2024, y)
	assert.Equal(t, time.December, m)

	_, _, err = ParseMonthKey("2024-13")
	assert.Error(t, err)
}
