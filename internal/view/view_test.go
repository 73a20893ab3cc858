package view

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agenda/internal/index"
	"github.com/roach88/agenda/internal/model"
	"github.com/roach88/agenda/internal/recurrence"
)

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func item(id, label, occursAt, dayKey string, kind recurrence.Kind) model.Item {
	return model.Item{
		ID:         id,
		Label:      label,
		OccursAt:   occursAt,
		Color:      model.DefaultColor,
		CreatedOn:  date(dayKey),
		Recurrence: kind,
		DayKey:     dayKey,
	}
}

func februaryIndex() *index.Index {
	dentist := item("3", "Dentist", "14:00", "2024-02-14", recurrence.None)
	dentist.Completed = true
	return index.Empty().
		WithItem(model.Morning, item("1", "Gym", "07:00", "2024-02-05", recurrence.Weekly)).
		WithItem(model.Afternoon, item("2", "Rent", "13:00", "2024-01-31", recurrence.Monthly)).
		WithItem(model.Afternoon, dentist)
}

func TestProject_OnlyMatchingDate(t *testing.T) {
	ix := index.Empty().WithItem(model.Night, item("x", "Call", "20:00", "2024-05-02", recurrence.None))

	other := Project(ix, date("2024-05-01"))
	assert.Zero(t, other.Len())

	own := Project(ix, date("2024-05-02"))
	require.Len(t, own.Buckets[model.Night], 1)
	assert.Equal(t, "x", own.Buckets[model.Night][0].Item.ID)
}

func TestProject_OrdersByTime(t *testing.T) {
	ix := index.Empty().
		WithItem(model.Morning, item("a", "Untimed", "", "2024-05-01", recurrence.None)).
		WithItem(model.Morning, item("b", "Late", "11:00", "2024-05-01", recurrence.None)).
		WithItem(model.Morning, item("c", "Early", "06:15", "2024-05-01", recurrence.None))

	a := Project(ix, date("2024-05-01"))
	var ids []string
	for _, e := range a.Buckets[model.Morning] {
		ids = append(ids, e.Item.ID)
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
	assert.NotNil(t, a.Buckets[model.Afternoon])
}

func TestProject_DonePerDate(t *testing.T) {
	gym := item("1", "Gym", "07:00", "2024-02-05", recurrence.Weekly).Toggled(date("2024-02-12"))
	ix := index.Empty().WithItem(model.Morning, gym)

	assert.True(t, Project(ix, date("2024-02-12")).Buckets[model.Morning][0].Done)
	assert.False(t, Project(ix, date("2024-02-19")).Buckets[model.Morning][0].Done)
}

func TestMonthIndicators_Golden(t *testing.T) {
	specials := []model.SpecialDate{
		{ID: "s1", Label: "Ana birthday", Date: date("1990-02-20"), Recurrence: recurrence.Annual},
		{ID: "s2", Label: "Trip", Date: date("2024-02-29"), Recurrence: recurrence.None},
	}

	got := MonthIndicators(februaryIndex(), specials, 2024, time.February)
	require.Len(t, got, 29)

	var buf bytes.Buffer
	for _, ind := range got {
		fmt.Fprintf(&buf, "%s items=%d pending=%d", ind.Date, ind.Items, ind.Pending)
		if len(ind.Specials) > 0 {
			fmt.Fprintf(&buf, " specials=%s", strings.Join(ind.Specials, ","))
		}
		buf.WriteByte('\n')
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "month_indicators_2024_02", buf.Bytes())
}

func TestMonthIndicators_AgreesWithProject(t *testing.T) {
	ix := februaryIndex()
	for _, ind := range MonthIndicators(ix, nil, 2024, time.March) {
		assert.Equal(t, Project(ix, ind.Date).Len(), ind.Items, ind.Date.String())
	}
}

func TestUpcoming(t *testing.T) {
	rent := item("2", "Rent", "13:00", "2024-01-31", recurrence.Monthly)

	got, err := Upcoming(rent, date("2024-02-01"), 3)
	require.NoError(t, err)
	assert.Equal(t, []civil.Date{date("2024-03-31"), date("2024-05-31"), date("2024-07-31")}, got)

	once := item("3", "Dentist", "14:00", "2024-02-14", recurrence.None)
	got, err = Upcoming(once, date("2024-02-15"), 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}
