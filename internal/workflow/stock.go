package workflow

import (
	"context"
	"fmt"

	"github.com/erazemk/rezervator/internal/intent"
	"github.com/erazemk/rezervator/internal/warehouse"
)

// StockOnState is a step of the stock-on-date workflow.
type StockOnState int

const (
	StockSelectDate StockOnState = iota
	StockTerminal
)

func (s StockOnState) String() string {
	if s == StockSelectDate {
		return "SelectDate"
	}
	return "Terminal"
}

// StockOnFlow shows how many units of every item are free on a chosen date.
type StockOnFlow struct {
	deps  *Deps
	state StockOnState
}

// NewStockOnFlow creates a stock-on-date workflow.
func NewStockOnFlow(deps *Deps) *StockOnFlow {
	return &StockOnFlow{deps: deps}
}

func (f *StockOnFlow) Name() string  { return "stock_on" }
func (f *StockOnFlow) State() string { return f.state.String() }

const promptStockDate = "📅 Choose the date to check stock for:"

// Start shows the calendar for the current month.
func (f *StockOnFlow) Start(context.Context) Outcome {
	f.state = StockSelectDate
	today := f.deps.today()
	return Outcome{Replies: []Reply{calendarReply(promptStockDate, intent.PurposeCheck, today.Year(), today.Month(), today)}}
}

// Handle accepts calendar navigation and the chosen date.
func (f *StockOnFlow) Handle(ctx context.Context, in intent.Intent) Outcome {
	if f.state == StockTerminal {
		return Outcome{Done: true}
	}
	switch in.Kind {
	case intent.KindCancel:
		f.state = StockTerminal
		return Cancelled()
	case intent.KindNoop:
		return Outcome{}
	}

	replies, err := f.selectDate(ctx, in)
	out, abort := f.deps.resolve(f.Name(), replies, err)
	if abort {
		f.state = StockTerminal
	}
	out.Done = f.state == StockTerminal
	return out
}

func (f *StockOnFlow) selectDate(ctx context.Context, in intent.Intent) ([]Reply, error) {
	today := f.deps.today()
	switch {
	case in.Kind == intent.KindNavigate && in.Purpose == intent.PurposeCheck:
		return []Reply{calendarReply(promptStockDate, intent.PurposeCheck, in.Year, in.Month, today)}, nil
	case in.Kind != intent.KindDate || in.Purpose != intent.PurposeCheck:
		return nil, validationError("Pick a date from the calendar.")
	case in.Date.Before(today):
		return nil, alertError("The date cannot be in the past!")
	}

	stock, err := f.deps.Warehouse.ListStockOn(ctx, in.Date)
	if err != nil {
		return nil, persistenceError(err)
	}
	f.state = StockTerminal
	return []Reply{{Text: warehouse.RenderStock(fmt.Sprintf("📅 Stock on %s:", in.Date), stock)}}, nil
}
