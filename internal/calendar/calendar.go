// Package calendar renders month grids of selectable date buttons.
package calendar

import (
	"fmt"
	"strconv"
	"time"

	"github.com/erazemk/rezervator/internal/intent"
	"github.com/erazemk/rezervator/internal/model"
)

// Cell is one button of the grid.
type Cell struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// Grid is a rendered month. Rows are: the title, the weekday header, one row
// per week (Monday first), then the navigation row.
type Grid struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Rows  [][]Cell   `json:"rows"`
}

var weekdays = []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

// Render returns the grid for year/month. Every day of the month is a date
// token for purpose; validating the choice is up to the receiver. The
// navigation row moves one month back or forward and offers today.
func Render(year int, month time.Month, purpose intent.Purpose, today model.Date) Grid {
	first := model.NewDate(year, month, 1)
	// Normalize, e.g. month 13.
	year, month = first.Year(), first.Month()

	rows := [][]Cell{
		{{Label: fmt.Sprintf("%s %d", month, year), Token: intent.NoopToken}},
	}

	header := make([]Cell, len(weekdays))
	for i, wd := range weekdays {
		header[i] = Cell{Label: wd, Token: intent.NoopToken}
	}
	rows = append(rows, header)

	// Monday=0 ... Sunday=6.
	offset := (int(first.Weekday()) + 6) % 7
	week := blankWeek()
	col := offset
	for d := first; d.Month() == month; d = d.AddDays(1) {
		week[col] = Cell{Label: strconv.Itoa(d.Day()), Token: intent.DateToken(purpose, d)}
		col++
		if col == 7 {
			rows = append(rows, week)
			week, col = blankWeek(), 0
		}
	}
	if col > 0 {
		rows = append(rows, week)
	}

	prev := first.AddDays(-1)
	next := first.AddDays(32)
	rows = append(rows, []Cell{
		{Label: "◀️", Token: intent.NavToken(purpose, prev.Year(), prev.Month())},
		{Label: "Today", Token: intent.DateToken(purpose, today)},
		{Label: "▶️", Token: intent.NavToken(purpose, next.Year(), next.Month())},
	})

	return Grid{Year: year, Month: month, Rows: rows}
}

// Dates returns the date tokens of the grid in order.
func (g Grid) Dates() []string {
	var tokens []string
	for _, row := range g.Rows[2 : len(g.Rows)-1] {
		for _, c := range row {
			if c.Token != intent.NoopToken {
				tokens = append(tokens, c.Token)
			}
		}
	}
	return tokens
}

func blankWeek() []Cell {
	week := make([]Cell, 7)
	for i := range week {
		week[i] = Cell{Label: " ", Token: intent.NoopToken}
	}
	return week
}
