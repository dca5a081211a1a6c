package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/erazemk/rezervator/internal/availability"
	"github.com/erazemk/rezervator/internal/intent"
	"github.com/erazemk/rezervator/internal/model"
	"github.com/erazemk/rezervator/internal/store"
)

// ReservationState is a step of the reservation workflow.
type ReservationState int

const (
	ResSelectItem ReservationState = iota
	ResEnterQuantity
	ResSelectStartDate
	ResSelectEndDate
	ResEnterEventLabel
	ResTerminal
)

func (s ReservationState) String() string {
	switch s {
	case ResSelectItem:
		return "SelectItem"
	case ResEnterQuantity:
		return "EnterQuantity"
	case ResSelectStartDate:
		return "SelectStartDate"
	case ResSelectEndDate:
		return "SelectEndDate"
	case ResEnterEventLabel:
		return "EnterEventLabel"
	case ResTerminal:
		return "Terminal"
	}
	return fmt.Sprintf("ReservationState(%d)", int(s))
}

type reservationDraft struct {
	item     model.Item // snapshot taken at selection
	quantity int
	start    model.Date
	end      model.Date
}

// ReservationFlow walks a requester through reserving units of an item.
type ReservationFlow struct {
	deps      *Deps
	requester model.Requester
	state     ReservationState
	draft     reservationDraft
}

// NewReservationFlow creates a reservation workflow for requester.
func NewReservationFlow(deps *Deps, requester model.Requester) *ReservationFlow {
	return &ReservationFlow{deps: deps, requester: requester}
}

func (f *ReservationFlow) Name() string  { return "reservation" }
func (f *ReservationFlow) State() string { return f.state.String() }

// Start lists the items that can be reserved.
func (f *ReservationFlow) Start(ctx context.Context) Outcome {
	f.state = ResSelectItem
	items, err := store.ListReservableItems(ctx, f.deps.DB)
	if err != nil {
		return f.finish(nil, persistenceError(err))
	}
	if len(items) == 0 {
		f.state = ResTerminal
		return f.finish([]Reply{{Text: "❌ There are no items available for reservation!"}}, nil)
	}
	return f.finish([]Reply{{
		Text:    "📦 Choose an item to reserve:",
		Options: itemOptions(items, intent.ItemToken, true),
	}}, nil)
}

// Handle feeds the next intent to the current state.
func (f *ReservationFlow) Handle(ctx context.Context, in intent.Intent) Outcome {
	if f.state == ResTerminal {
		return Outcome{Done: true}
	}
	switch in.Kind {
	case intent.KindCancel:
		f.state = ResTerminal
		return Cancelled()
	case intent.KindNoop:
		return Outcome{}
	}

	var replies []Reply
	var err error
	switch f.state {
	case ResSelectItem:
		replies, err = f.selectItem(ctx, in)
	case ResEnterQuantity:
		replies, err = f.enterQuantity(in)
	case ResSelectStartDate:
		replies, err = f.selectStartDate(in)
	case ResSelectEndDate:
		replies, err = f.selectEndDate(in)
	case ResEnterEventLabel:
		replies, err = f.enterEventLabel(ctx, in)
	}
	return f.finish(replies, err)
}

func (f *ReservationFlow) finish(replies []Reply, err error) Outcome {
	var we *Error
	if errors.As(err, &we) && we.Code == ErrCodeCapacity {
		f.state = ResEnterQuantity
		return Outcome{
			Replies: append(replies, Reply{
				Text: fmt.Sprintf("❌ Not enough stock for the selected period! Only %d pcs. available.\n\n"+
					"Enter a new quantity to reserve:", we.Available),
				Options: []Option{cancelOption()},
			}),
			Err: err,
		}
	}

	out, abort := f.deps.resolve(f.Name(), replies, err)
	if abort {
		f.state = ResTerminal
	}
	out.Done = f.state == ResTerminal
	return out
}

func (f *ReservationFlow) selectItem(ctx context.Context, in intent.Intent) ([]Reply, error) {
	if in.Kind != intent.KindItem {
		return nil, validationError(msgUseButton)
	}
	item, err := store.GetItem(ctx, f.deps.DB, in.ID)
	if err != nil {
		return nil, persistenceError(err)
	}
	if item == nil || item.Quantity <= 0 {
		return nil, notFoundError("This item is no longer available.")
	}

	f.draft = reservationDraft{item: *item}
	f.state = ResEnterQuantity
	return []Reply{{
		Text: fmt.Sprintf("📦 Item: %s\n📊 In stock: %d pcs.\n\nEnter the quantity to reserve:",
			item.Title(), item.Quantity),
		Options: []Option{cancelOption()},
	}}, nil
}

func (f *ReservationFlow) enterQuantity(in intent.Intent) ([]Reply, error) {
	n, err := parseQuantity(in)
	if err != nil {
		return nil, err
	}
	if n > f.draft.item.Quantity {
		return nil, validationError("Not enough stock! Only %d pcs. in stock.\nEnter a new quantity:", f.draft.item.Quantity)
	}

	f.draft.quantity = n
	f.state = ResSelectStartDate
	today := f.deps.today()
	return []Reply{calendarReply("📅 Choose the START date of the reservation:",
		intent.PurposeStart, today.Year(), today.Month(), today)}, nil
}

func (f *ReservationFlow) selectStartDate(in intent.Intent) ([]Reply, error) {
	today := f.deps.today()
	switch {
	case in.Kind == intent.KindNavigate && in.Purpose == intent.PurposeStart:
		return []Reply{calendarReply("📅 Choose the START date of the reservation:",
			intent.PurposeStart, in.Year, in.Month, today)}, nil
	case in.Kind != intent.KindDate || in.Purpose != intent.PurposeStart:
		return nil, validationError("Pick a date from the calendar.")
	case in.Date.Before(today):
		return nil, alertError("The start date cannot be in the past!")
	}

	f.draft.start = in.Date
	f.state = ResSelectEndDate
	return []Reply{calendarReply(
		fmt.Sprintf("📅 Start: %s\n\nChoose the END date of the reservation:", in.Date),
		intent.PurposeEnd, in.Date.Year(), in.Date.Month(), today)}, nil
}

func (f *ReservationFlow) selectEndDate(in intent.Intent) ([]Reply, error) {
	switch {
	case in.Kind == intent.KindNavigate && in.Purpose == intent.PurposeEnd:
		return []Reply{calendarReply("📅 Choose the END date of the reservation:",
			intent.PurposeEnd, in.Year, in.Month, f.deps.today())}, nil
	case in.Kind != intent.KindDate || in.Purpose != intent.PurposeEnd:
		return nil, validationError("Pick a date from the calendar.")
	case !in.Date.After(f.draft.start):
		return nil, alertError("The end date must be after the start date!")
	}

	f.draft.end = in.Date
	f.state = ResEnterEventLabel
	return []Reply{{
		Text:    "🎯 Enter the event name or a comment for the reservation:",
		Options: []Option{skipOption(), cancelOption()},
	}}, nil
}

func (f *ReservationFlow) enterEventLabel(ctx context.Context, in intent.Intent) ([]Reply, error) {
	var label string
	switch in.Kind {
	case intent.KindText:
		label = f.deps.eventLabel(in.Text)
	case intent.KindSkip:
		label = f.deps.eventLabel("")
	default:
		return nil, validationError("Enter the event name as text, or press Skip.")
	}

	d := f.draft
	unlock := f.deps.Locks.Lock(d.item.ID)
	defer unlock()

	engine := f.deps.Warehouse.Engine()
	ok, err := engine.CanReserve(ctx, d.item.ID, d.quantity, d.start, d.end)
	if errors.Is(err, availability.ErrItemNotFound) {
		return nil, notFoundError("Item not found!")
	}
	if err != nil {
		return nil, persistenceError(err)
	}
	if !ok {
		available, err := engine.AvailableQuantity(ctx, d.item.ID, d.start, d.end)
		if err != nil {
			return nil, persistenceError(err)
		}
		return nil, capacityError(availability.Clamp(available))
	}

	r, err := store.CreateReservation(ctx, f.deps.DB, model.Reservation{
		ItemID:         d.item.ID,
		Quantity:       d.quantity,
		StartDate:      d.start,
		EndDate:        d.end,
		RequesterID:    f.requester.ID,
		RequesterLabel: f.requester.Label(f.deps.RequesterPlaceholder()),
		EventLabel:     label,
	})
	var shortage *store.ShortageError
	switch {
	case errors.As(err, &shortage):
		return nil, capacityError(availability.Clamp(shortage.Available))
	case errors.Is(err, store.ErrItemNotFound):
		return nil, notFoundError("Item not found!")
	case err != nil:
		return nil, persistenceError(err)
	}

	f.deps.Logger.Info("reservation created",
		"reservation", r.ID, "item", r.ItemID, "quantity", r.Quantity,
		"start", r.StartDate.String(), "end", r.EndDate.String(), "requester", r.RequesterID)

	f.state = ResTerminal
	return []Reply{{Text: fmt.Sprintf("✅ Reservation created!\n\n"+
		"📦 Item: %s - %s\n🔢 Quantity: %d pcs.\n📅 Period: %s - %s\n🎯 Event: %s\n👤 Reserved by: %s",
		r.CategoryName, r.ItemName, r.Quantity, r.StartDate, r.EndDate, r.EventLabel, r.RequesterLabel)}}, nil
}
