package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/rezervator/internal/intent"
	"github.com/erazemk/rezervator/internal/model"
)

func TestRender_June2024(t *testing.T) {
	today := model.MustParseDate("2024-06-10")
	g := Render(2024, time.June, intent.PurposeStart, today)

	assert.Equal(t, "June 2024", g.Rows[0][0].Label)
	assert.Equal(t, "Mo", g.Rows[1][0].Label)

	// June 1st 2024 is a Saturday.
	firstWeek := g.Rows[2]
	require.Len(t, firstWeek, 7)
	assert.Equal(t, " ", firstWeek[4].Label)
	assert.Equal(t, "1", firstWeek[5].Label)
	assert.Equal(t, "date:start:2024-06-01", firstWeek[5].Token)

	dates := g.Dates()
	require.Len(t, dates, 30)
	assert.Equal(t, "date:start:2024-06-30", dates[29])

	nav := g.Rows[len(g.Rows)-1]
	assert.Equal(t, "nav:start:2024-05", nav[0].Token)
	assert.Equal(t, "date:start:2024-06-10", nav[1].Token)
	assert.Equal(t, "nav:start:2024-07", nav[2].Token)
}

func TestRender_YearBoundaries(t *testing.T) {
	today := model.MustParseDate("2024-12-31")

	dec := Render(2024, time.December, intent.PurposeEnd, today)
	nav := dec.Rows[len(dec.Rows)-1]
	assert.Equal(t, "nav:end:2024-11", nav[0].Token)
	assert.Equal(t, "nav:end:2025-01", nav[2].Token)

	jan := Render(2025, time.January, intent.PurposeCheck, today)
	assert.Equal(t, "nav:check:2024-12", jan.Rows[len(jan.Rows)-1][0].Token)

	overflow := Render(2024, 13, intent.PurposeCheck, today)
	assert.Equal(t, 2025, overflow.Year)
	assert.Equal(t, time.January, overflow.Month)
}

func TestRender_TokensParse(t *testing.T) {
	g := Render(2024, time.February, intent.PurposeCheck, model.MustParseDate("2024-02-01"))
	dates := g.Dates()
	require.Len(t, dates, 29)

	for _, token := range dates {
		in, err := intent.ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, intent.KindDate, in.Kind)
		assert.Equal(t, intent.PurposeCheck, in.Purpose)
	}
	for _, c := range g.Rows[len(g.Rows)-1] {
		_, err := intent.ParseToken(c.Token)
		assert.NoError(t, err)
	}
}
