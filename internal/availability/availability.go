// Package availability computes how many units of an item are free for a
// date or date range, given the item's reservations.
//
// All ranges are inclusive on both ends: a reservation from June 1 to June 5
// holds its units on each of the five days.
package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/erazemk/rezervator/internal/model"
)

// ErrItemNotFound is returned when the item does not exist.
var ErrItemNotFound = errors.New("item not found")

// Source supplies item quantities and reservations to an Engine.
type Source interface {
	// ItemQuantity returns the total owned units of an item, or
	// ErrItemNotFound.
	ItemQuantity(ctx context.Context, itemID int64) (int, error)
	// ItemReservations returns the item's reservations overlapping
	// [start, end]. Returning extra, non-overlapping rows is allowed.
	ItemReservations(ctx context.Context, itemID int64, start, end model.Date) ([]model.Reservation, error)
}

// Overlaps reports whether the inclusive ranges [aStart, aEnd] and
// [bStart, bEnd] share at least one date.
func Overlaps(aStart, aEnd, bStart, bEnd model.Date) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// Reserved sums the quantities of the reservations overlapping [start, end].
func Reserved(reservations []model.Reservation, start, end model.Date) int {
	total := 0
	for _, r := range reservations {
		if Overlaps(r.StartDate, r.EndDate, start, end) {
			total += r.Quantity
		}
	}
	return total
}

// Clamp returns n, or 0 when n is negative. Use it for display only.
func Clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Engine answers availability questions against a Source.
type Engine struct {
	src Source
}

// New creates an Engine reading from src.
func New(src Source) *Engine {
	return &Engine{src: src}
}

// ReservedQuantity returns the units of itemID held by reservations that
// overlap [start, end].
func (e *Engine) ReservedQuantity(ctx context.Context, itemID int64, start, end model.Date) (int, error) {
	reservations, err := e.src.ItemReservations(ctx, itemID, start, end)
	if err != nil {
		return 0, fmt.Errorf("loading reservations: %w", err)
	}
	return Reserved(reservations, start, end), nil
}

// AvailableQuantity returns the item's quantity minus ReservedQuantity. The
// result is negative when the item is over-booked.
func (e *Engine) AvailableQuantity(ctx context.Context, itemID int64, start, end model.Date) (int, error) {
	quantity, err := e.src.ItemQuantity(ctx, itemID)
	if err != nil {
		return 0, err
	}
	reserved, err := e.ReservedQuantity(ctx, itemID, start, end)
	if err != nil {
		return 0, err
	}
	return quantity - reserved, nil
}

// AvailableOn returns the free units of itemID on a single date.
func (e *Engine) AvailableOn(ctx context.Context, itemID int64, date model.Date) (int, error) {
	return e.AvailableQuantity(ctx, itemID, date, date)
}

// CanReserve reports whether quantity units of itemID are free for the whole
// range [start, end].
func (e *Engine) CanReserve(ctx context.Context, itemID int64, quantity int, start, end model.Date) (bool, error) {
	available, err := e.AvailableQuantity(ctx, itemID, start, end)
	if err != nil {
		return false, err
	}
	return quantity <= available, nil
}
