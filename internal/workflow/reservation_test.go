package workflow

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/rezervator/internal/intent"
	"github.com/erazemk/rezervator/internal/model"
	"github.com/erazemk/rezervator/internal/store"
)

var anna = model.Requester{ID: 42, Username: "anna", FirstName: "Anna"}

// reserveUpTo drives a reservation flow to the given state.
func reserveUpTo(t *testing.T, e *env, f *ReservationFlow, itemID int64, qty, start, end string, until ReservationState) {
	t.Helper()
	out := f.Start(e.ctx)
	require.False(t, out.Done)
	steps := []struct {
		in    intent.Intent
		state ReservationState
	}{
		{token(t, intent.ItemToken(itemID)), ResEnterQuantity},
		{text(qty), ResSelectStartDate},
		{date(intent.PurposeStart, start), ResSelectEndDate},
		{date(intent.PurposeEnd, end), ResEnterEventLabel},
	}
	for _, s := range steps {
		if f.state == until {
			return
		}
		out := f.Handle(e.ctx, s.in)
		require.NoError(t, out.Err)
		require.Equal(t, s.state, f.state)
	}
	require.Equal(t, until, f.state)
}

func TestReservationFlow_HappyPath(t *testing.T) {
	e := newEnv(t)
	chair := e.item("Wooden goods", "Chair", 10)
	e.item("Wooden goods", "Broken stool", 1)
	_, err := e.db.ExecContext(e.ctx, `UPDATE items SET quantity = 0 WHERE name = 'Broken stool'`)
	require.NoError(t, err)

	f := NewReservationFlow(e.deps, anna)
	out := f.Start(e.ctx)
	require.Len(t, out.Replies, 1)
	assert.Len(t, out.Replies[0].Options, 2, "one item plus cancel")
	assert.True(t, hasToken(out.Replies[0].Options, intent.ItemToken(chair.ID)))
	assert.Equal(t, "SelectItem", f.State())

	out = f.Handle(e.ctx, token(t, intent.ItemToken(chair.ID)))
	assert.Contains(t, out.Replies[0].Text, "Wooden goods - Chair")

	out = f.Handle(e.ctx, text(" 4 "))
	require.NotNil(t, out.Replies[0].Calendar)
	assert.Equal(t, time.June, out.Replies[0].Calendar.Month)

	f.Handle(e.ctx, date(intent.PurposeStart, "2024-06-10"))
	out = f.Handle(e.ctx, date(intent.PurposeEnd, "2024-06-12"))
	assert.True(t, hasToken(out.Replies[0].Options, intent.SkipToken))

	out = f.Handle(e.ctx, text("   "))
	require.NoError(t, out.Err)
	assert.True(t, out.Done)
	assert.Equal(t, "Terminal", f.State())
	assert.Contains(t, out.Replies[0].Text, "Reservation created")
	assert.Contains(t, out.Replies[0].Text, "@anna")

	rs, err := store.ListRequesterReservations(e.ctx, e.db, anna.ID, today)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, 4, rs[0].Quantity)
	assert.Equal(t, "No event", rs[0].EventLabel)
	assert.Equal(t, "@anna", rs[0].RequesterLabel)
	assert.Equal(t, "2024-06-10", rs[0].StartDate.String())
	assert.Equal(t, "2024-06-12", rs[0].EndDate.String())

	// Terminal ignores further input.
	out = f.Handle(e.ctx, text("again"))
	assert.True(t, out.Done)
	assert.Empty(t, out.Replies)
	assert.Equal(t, 1, e.reservationCount())
}

func TestReservationFlow_NoItems(t *testing.T) {
	e := newEnv(t)
	out := NewReservationFlow(e.deps, anna).Start(e.ctx)
	assert.True(t, out.Done)
	assert.Contains(t, out.Replies[0].Text, "no items available")
}

func TestReservationFlow_QuantityValidation(t *testing.T) {
	e := newEnv(t)
	chair := e.item("Wooden goods", "Chair", 10)
	f := NewReservationFlow(e.deps, anna)
	reserveUpTo(t, e, f, chair.ID, "", "", "", ResEnterQuantity)

	for _, bad := range []string{"abc", "2.5", "0", "-3", "11", ""} {
		out := f.Handle(e.ctx, text(bad))
		assert.True(t, IsValidationError(out.Err), "input %q: %v", bad, out.Err)
		assert.False(t, out.Done)
		assert.Equal(t, ResEnterQuantity, f.state, "input %q", bad)
		require.Len(t, out.Replies, 1)
	}

	out := f.Handle(e.ctx, token(t, intent.ItemToken(chair.ID)))
	assert.True(t, IsValidationError(out.Err), "selection tokens are not quantities")

	out = f.Handle(e.ctx, text("10"))
	assert.NoError(t, out.Err)
	assert.Equal(t, ResSelectStartDate, f.state)
}

func TestReservationFlow_DateValidation(t *testing.T) {
	e := newEnv(t)
	chair := e.item("Wooden goods", "Chair", 10)
	f := NewReservationFlow(e.deps, anna)
	reserveUpTo(t, e, f, chair.ID, "1", "", "", ResSelectStartDate)

	out := f.Handle(e.ctx, date(intent.PurposeStart, "2024-06-09"))
	assert.True(t, IsValidationError(out.Err))
	assert.True(t, out.Replies[0].Alert)
	assert.Equal(t, ResSelectStartDate, f.state)

	out = f.Handle(e.ctx, date(intent.PurposeEnd, "2024-06-20"))
	assert.True(t, IsValidationError(out.Err), "end-calendar token in start state")
	assert.Equal(t, ResSelectStartDate, f.state)

	out = f.Handle(e.ctx, intent.Intent{Kind: intent.KindNavigate, Purpose: intent.PurposeStart, Year: 2024, Month: time.August})
	require.NoError(t, out.Err)
	require.NotNil(t, out.Replies[0].Calendar)
	assert.Equal(t, time.August, out.Replies[0].Calendar.Month)
	assert.Equal(t, ResSelectStartDate, f.state)

	out = f.Handle(e.ctx, intent.Intent{Kind: intent.KindNoop})
	assert.Empty(t, out.Replies)

	f.Handle(e.ctx, date(intent.PurposeStart, "2024-08-05"))
	require.Equal(t, ResSelectEndDate, f.state)

	for _, bad := range []string{"2024-08-05", "2024-08-01"} {
		out = f.Handle(e.ctx, date(intent.PurposeEnd, bad))
		assert.True(t, IsValidationError(out.Err), bad)
		assert.Equal(t, ResSelectEndDate, f.state)
	}
	assert.Equal(t, 0, e.reservationCount())

	f.Handle(e.ctx, date(intent.PurposeEnd, "2024-08-06"))
	assert.Equal(t, ResEnterEventLabel, f.state)
}

func TestReservationFlow_CapacityReturnsToQuantity(t *testing.T) {
	e := newEnv(t)
	chair := e.item("Wooden goods", "Chair", 10)
	_, err := store.CreateReservation(e.ctx, e.db, model.Reservation{
		ItemID: chair.ID, Quantity: 8,
		StartDate: model.MustParseDate("2024-06-10"), EndDate: model.MustParseDate("2024-06-15"),
		RequesterID: 1, RequesterLabel: "Boris", EventLabel: "Fair",
	})
	require.NoError(t, err)

	f := NewReservationFlow(e.deps, anna)
	reserveUpTo(t, e, f, chair.ID, "5", "2024-06-12", "2024-06-14", ResEnterEventLabel)

	out := f.Handle(e.ctx, text("Wedding"))
	assert.True(t, IsCapacityError(out.Err))
	assert.False(t, out.Done)
	assert.Equal(t, ResEnterQuantity, f.state)
	assert.Contains(t, out.Replies[0].Text, "Only 2 pcs. available")
	assert.Equal(t, 1, e.reservationCount())

	f.Handle(e.ctx, text("2"))
	f.Handle(e.ctx, date(intent.PurposeStart, "2024-06-12"))
	f.Handle(e.ctx, date(intent.PurposeEnd, "2024-06-14"))
	out = f.Handle(e.ctx, token(t, intent.SkipToken))
	require.NoError(t, out.Err)
	assert.True(t, out.Done)
	assert.Equal(t, 2, e.reservationCount())
}

func TestReservationFlow_CancelFromEveryState(t *testing.T) {
	for _, state := range []ReservationState{ResSelectItem, ResEnterQuantity, ResSelectStartDate, ResSelectEndDate, ResEnterEventLabel} {
		t.Run(state.String(), func(t *testing.T) {
			e := newEnv(t)
			chair := e.item("Wooden goods", "Chair", 10)
			f := NewReservationFlow(e.deps, anna)
			reserveUpTo(t, e, f, chair.ID, "3", "2024-06-11", "2024-06-12", state)

			out := f.Handle(e.ctx, intent.Intent{Kind: intent.KindCancel})
			assert.True(t, out.Done)
			assert.Equal(t, "❌ Operation cancelled.", out.Replies[0].Text)
			assert.Equal(t, ResTerminal, f.state)
			assert.Equal(t, 0, e.reservationCount())
		})
	}
}

func TestReservationFlow_ItemDeletedMidway(t *testing.T) {
	e := newEnv(t)
	chair := e.item("Wooden goods", "Chair", 10)
	f := NewReservationFlow(e.deps, anna)
	reserveUpTo(t, e, f, chair.ID, "3", "2024-06-11", "2024-06-12", ResEnterEventLabel)

	_, err := store.DeleteItem(e.ctx, e.db, chair.ID)
	require.NoError(t, err)

	out := f.Handle(e.ctx, text("Wedding"))
	assert.True(t, IsNotFoundError(out.Err))
	assert.True(t, out.Done)
	assert.Equal(t, 0, e.reservationCount())
}

func TestReservationFlow_SelectMissingItem(t *testing.T) {
	e := newEnv(t)
	e.item("Wooden goods", "Chair", 10)
	f := NewReservationFlow(e.deps, anna)
	f.Start(e.ctx)

	out := f.Handle(e.ctx, token(t, intent.ItemToken(9999)))
	assert.True(t, IsNotFoundError(out.Err))
	assert.True(t, out.Done)
}

func TestReservationFlow_ConcurrentRequestersDoNotOverbook(t *testing.T) {
	e := newEnv(t)
	chair := e.item("Wooden goods", "Chair", 10)

	flows := make([]*ReservationFlow, 4)
	for i := range flows {
		flows[i] = NewReservationFlow(e.deps, model.Requester{ID: int64(i + 1), FirstName: "R"})
		reserveUpTo(t, e, flows[i], chair.ID, "4", "2024-06-11", "2024-06-13", ResEnterEventLabel)
	}

	outcomes := make([]Outcome, len(flows))
	var wg sync.WaitGroup
	for i, f := range flows {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = f.Handle(e.ctx, text("Event"))
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, out := range outcomes {
		if out.Err == nil {
			succeeded++
			continue
		}
		assert.True(t, IsCapacityError(out.Err), "unexpected error %v", out.Err)
	}
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 2, e.reservationCount())
	assert.Equal(t, 0, e.deps.Locks.size())
}

func TestReservationFlow_RequesterPlaceholder(t *testing.T) {
	e := newEnv(t)
	e.deps.Labels = Labels{Event: "Untitled", Requester: "Guest"}
	chair := e.item("Wooden goods", "Chair", 10)

	f := NewReservationFlow(e.deps, model.Requester{ID: 5})
	reserveUpTo(t, e, f, chair.ID, "1", "2024-06-11", "2024-06-12", ResEnterEventLabel)
	out := f.Handle(e.ctx, token(t, intent.SkipToken))
	require.NoError(t, out.Err)

	rs, err := store.ListRequesterReservations(e.ctx, e.db, 5, today)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "Guest", rs[0].RequesterLabel)
	assert.Equal(t, "Untitled", rs[0].EventLabel)
}
