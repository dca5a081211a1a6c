package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erazemk/rezervator/internal/availability"
	"github.com/erazemk/rezervator/internal/db"
	"github.com/erazemk/rezervator/internal/model"
)

func TestChairScenario(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	chair := mustItem(t, database, "Wooden goods", "Chair", 10)
	engine := availability.New(Source(database))

	a, err := CreateReservation(ctx, database, reservation(chair.ID, 4, "2024-06-01", "2024-06-05"))
	if err != nil {
		t.Fatalf("reservation A: %v", err)
	}
	if a.ItemName != "Chair" || a.CategoryName != "Wooden goods" || a.RequesterLabel != "@anna" {
		t.Errorf("unexpected reservation %+v", a)
	}

	if got, _ := engine.AvailableOn(ctx, chair.ID, model.MustParseDate("2024-06-03")); got != 6 {
		t.Errorf("availableOn 06-03: expected 6, got %d", got)
	}

	if _, err := CreateReservation(ctx, database, reservation(chair.ID, 6, "2024-06-03", "2024-06-10")); err != nil {
		t.Fatalf("reservation B: %v", err)
	}

	if got, _ := engine.AvailableOn(ctx, chair.ID, model.MustParseDate("2024-06-04")); got != 0 {
		t.Errorf("availableOn 06-04: expected 0, got %d", got)
	}

	ok, err := engine.CanReserve(ctx, chair.ID, 1, model.MustParseDate("2024-06-04"), model.MustParseDate("2024-06-04"))
	if err != nil || ok {
		t.Errorf("reservation C: expected rejection, got %v, %v", ok, err)
	}
	ok, err = engine.CanReserve(ctx, chair.ID, 5, model.MustParseDate("2024-06-06"), model.MustParseDate("2024-06-06"))
	if err != nil || ok {
		t.Errorf("reservation D: expected rejection, got %v, %v", ok, err)
	}

	// A ranged request that covers 06-04 is rejected by the store too.
	_, err = CreateReservation(ctx, database, reservation(chair.ID, 1, "2024-06-04", "2024-06-05"))
	var shortage *ShortageError
	if !errors.As(err, &shortage) {
		t.Fatalf("expected ShortageError, got %v", err)
	}
	if shortage.Available != 0 || shortage.Requested != 1 {
		t.Errorf("unexpected shortage %+v", shortage)
	}

	var count int
	database.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations`).Scan(&count)
	if count != 2 {
		t.Errorf("expected exactly 2 reservations, got %d", count)
	}
}

func TestCreateReservationRejectsBadInput(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Glass", "Vase", 5)

	if _, err := CreateReservation(ctx, database, reservation(item.ID, 1, "2024-06-05", "2024-06-05")); err == nil {
		t.Error("expected error for end == start")
	}
	if _, err := CreateReservation(ctx, database, reservation(item.ID, 1, "2024-06-05", "2024-06-01")); err == nil {
		t.Error("expected error for end before start")
	}
	if _, err := CreateReservation(ctx, database, reservation(item.ID, 0, "2024-06-01", "2024-06-05")); err == nil {
		t.Error("expected error for zero quantity")
	}
	if _, err := CreateReservation(ctx, database, reservation(9999, 1, "2024-06-01", "2024-06-05")); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestConcurrentReservationsDoNotOverbook(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Glass", "Candle holder", 5)

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := CreateReservation(ctx, database, reservation(item.ID, 1, "2024-06-01", "2024-06-03"))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		var shortage *ShortageError
		switch {
		case err == nil:
			succeeded++
		case errors.As(err, &shortage):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 5 {
		t.Errorf("expected 5 reservations to succeed, got %d", succeeded)
	}
}

func TestDeleteReservation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Glass", "Vase", 2)

	r, _ := CreateReservation(ctx, database, reservation(item.ID, 2, "2024-06-01", "2024-06-03"))
	deleted, err := DeleteReservation(ctx, database, r.ID)
	if err != nil || deleted == nil || deleted.ID != r.ID {
		t.Fatalf("DeleteReservation = %v, %v", deleted, err)
	}

	missing, err := DeleteReservation(ctx, database, r.ID)
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil deleting twice, got %v, %v", missing, err)
	}

	// Returned units are free again.
	if _, err := CreateReservation(ctx, database, reservation(item.ID, 2, "2024-06-01", "2024-06-03")); err != nil {
		t.Errorf("expected units to be free after return: %v", err)
	}
}

func TestReservationListings(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	vase := mustItem(t, database, "Glass", "Vase", 10)
	arch := mustItem(t, database, "Large structures", "Arch", 10)
	today := model.MustParseDate("2024-06-10")

	overdue := reservation(vase.ID, 1, "2024-06-01", "2024-06-09")
	endsToday := reservation(vase.ID, 1, "2024-06-05", "2024-06-10")
	endsSoon := reservation(arch.ID, 1, "2024-06-08", "2024-06-13")
	endsSoon.RequesterID, endsSoon.RequesterLabel = 7, "Boris"
	later := reservation(arch.ID, 1, "2024-06-01", "2024-06-14")
	for _, r := range []model.Reservation{overdue, endsToday, endsSoon, later} {
		if _, err := CreateReservation(ctx, database, r); err != nil {
			t.Fatalf("CreateReservation: %v", err)
		}
	}

	active, _ := ListActiveReservations(ctx, database, today)
	if len(active) != 3 {
		t.Errorf("expected 3 active reservations, got %d", len(active))
	}
	if len(active) > 0 && active[0].StartDate.String() != "2024-06-01" {
		t.Errorf("active reservations not ordered by start date: %v", active[0].StartDate)
	}

	itemActive, _ := ListItemActiveReservations(ctx, database, vase.ID, today)
	if len(itemActive) != 1 {
		t.Errorf("expected 1 active vase reservation, got %d", len(itemActive))
	}

	mine, _ := ListRequesterReservations(ctx, database, 42, today)
	if len(mine) != 2 || mine[0].EndDate.String() != "2024-06-10" {
		t.Errorf("unexpected requester reservations %+v", mine)
	}

	ending, _ := ListReservationsEndingBetween(ctx, database, today, today.AddDays(3))
	if len(ending) != 2 {
		t.Errorf("expected 2 reservations ending within 3 days, got %d", len(ending))
	}

	ended, _ := ListReservationsEndedBefore(ctx, database, today)
	if len(ended) != 1 || ended[0].EndDate.String() != "2024-06-09" {
		t.Errorf("unexpected overdue reservations %+v", ended)
	}

	overlapping, _ := ListReservationsOverlapping(ctx, database, model.MustParseDate("2024-06-14"), model.MustParseDate("2024-06-20"))
	if len(overlapping) != 1 {
		t.Errorf("expected 1 reservation touching 06-14, got %d", len(overlapping))
	}

	requesters, err := ListActiveRequesters(ctx, database, today)
	if err != nil {
		t.Fatalf("ListActiveRequesters: %v", err)
	}
	if len(requesters) != 2 {
		t.Fatalf("expected 2 active requesters, got %+v", requesters)
	}
	if requesters[0].ID != 7 || requesters[0].Label != "Boris" || requesters[1].ID != 42 {
		t.Errorf("unexpected requesters %+v", requesters)
	}
}
