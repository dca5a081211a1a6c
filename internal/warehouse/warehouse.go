// Package warehouse implements the single-turn queries and actions: stock
// listings, item lookup, returning reservations and deleting items.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/erazemk/rezervator/internal/availability"
	"github.com/erazemk/rezervator/internal/blob"
	"github.com/erazemk/rezervator/internal/model"
	"github.com/erazemk/rezervator/internal/store"
)

// Service runs warehouse queries against the database and blob store.
type Service struct {
	db     *sql.DB
	blobs  blob.Store
	engine *availability.Engine
	today  func() model.Date
	logger *slog.Logger
}

// New creates a Service. today supplies the current date in the
// warehouse's time zone.
func New(db *sql.DB, blobs blob.Store, today func() model.Date, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		blobs:  blobs,
		engine: availability.New(store.Source(db)),
		today:  today,
		logger: logger,
	}
}

// Engine returns the availability engine reading from the service's database.
func (s *Service) Engine() *availability.Engine {
	return s.engine
}

// Today returns the current date.
func (s *Service) Today() model.Date {
	return s.today()
}

// StockLine is one item of a stock listing.
type StockLine struct {
	Item      model.Item `json:"item"`
	Available int        `json:"available"`
}

// CategoryStock groups stock lines by category.
type CategoryStock struct {
	Category string      `json:"category"`
	Lines    []StockLine `json:"lines"`
}

// ListStock returns every item with its raw quantity, grouped by category.
func (s *Service) ListStock(ctx context.Context) ([]CategoryStock, error) {
	items, err := store.ListItems(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return group(items, func(item model.Item) int { return item.Quantity }), nil
}

// ListStockOn returns every item with its free quantity on date, clamped at
// zero, grouped by category.
func (s *Service) ListStockOn(ctx context.Context, date model.Date) ([]CategoryStock, error) {
	items, err := store.ListItems(ctx, s.db)
	if err != nil {
		return nil, err
	}
	reservations, err := store.ListReservationsOverlapping(ctx, s.db, date, date)
	if err != nil {
		return nil, err
	}

	byItem := make(map[int64][]model.Reservation)
	for _, r := range reservations {
		byItem[r.ItemID] = append(byItem[r.ItemID], r)
	}
	return group(items, func(item model.Item) int {
		return availability.Clamp(item.Quantity - availability.Reserved(byItem[item.ID], date, date))
	}), nil
}

// group expects items ordered by category.
func group(items []model.Item, available func(model.Item) int) []CategoryStock {
	var out []CategoryStock
	for _, item := range items {
		if len(out) == 0 || out[len(out)-1].Category != item.CategoryName {
			out = append(out, CategoryStock{Category: item.CategoryName})
		}
		last := &out[len(out)-1]
		last.Lines = append(last.Lines, StockLine{Item: item, Available: available(item)})
	}
	return out
}

// FindItems returns items whose name contains substr, ignoring case, ordered
// by category then name.
func (s *Service) FindItems(ctx context.Context, substr string) ([]model.Item, error) {
	return store.SearchItems(ctx, s.db, substr)
}

// Card is the detailed view of one item.
type Card struct {
	Item         model.Item          `json:"item"`
	Reservations []model.Reservation `json:"reservations"`
	Image        []byte              `json:"-"`
	// ImageErr is set when the item has an image reference that could not be
	// loaded. The card is still usable without the image.
	ImageErr error `json:"-"`
}

// ItemCard returns the item with its active reservations and image, or nil
// when the item does not exist.
func (s *Service) ItemCard(ctx context.Context, itemID int64) (*Card, error) {
	item, err := store.GetItem(ctx, s.db, itemID)
	if err != nil || item == nil {
		return nil, err
	}
	reservations, err := store.ListItemActiveReservations(ctx, s.db, itemID, s.today())
	if err != nil {
		return nil, err
	}

	card := &Card{Item: *item, Reservations: reservations}
	if item.ImageRef != "" {
		card.Image, card.ImageErr = s.blobs.Get(ctx, item.ImageRef)
	}
	return card, nil
}

// ItemImage returns the stored image of an item. Returns blob.ErrNotFound
// when the item has no image or its blob is gone, and nil, nil when the item
// does not exist.
func (s *Service) ItemImage(ctx context.Context, itemID int64) ([]byte, error) {
	item, err := store.GetItem(ctx, s.db, itemID)
	if err != nil || item == nil {
		return nil, err
	}
	if item.ImageRef == "" {
		return nil, blob.ErrNotFound
	}
	return s.blobs.Get(ctx, item.ImageRef)
}

// ActiveReservations returns all reservations that have not ended yet.
func (s *Service) ActiveReservations(ctx context.Context) ([]model.Reservation, error) {
	return store.ListActiveReservations(ctx, s.db, s.today())
}

// ReturnReservation deletes a reservation, freeing its units. Returns nil
// when it no longer exists.
func (s *Service) ReturnReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	r, err := store.DeleteReservation(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("returning reservation: %w", err)
	}
	if r != nil {
		s.logger.Info("reservation returned", "reservation", r.ID, "item", r.ItemID, "requester", r.RequesterID)
	}
	return r, nil
}

// DeleteItem deletes an item with all its reservations, then its image.
// Returns nil when the item does not exist. A failure to delete the image
// is logged, not returned.
func (s *Service) DeleteItem(ctx context.Context, id int64) (*model.Item, error) {
	item, err := store.DeleteItem(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("deleting item: %w", err)
	}
	if item == nil {
		return nil, nil
	}
	s.logger.Info("item deleted", "item", item.ID, "name", item.Title())

	if item.ImageRef != "" {
		if err := s.blobs.Delete(ctx, item.ImageRef); err != nil && !errors.Is(err, blob.ErrNotFound) {
			s.logger.Error("failed to delete item image", "item", item.ID, "ref", item.ImageRef, "error", err)
		}
	}
	return item, nil
}

// Marker is a traffic-light status of a reservation by days left.
type Marker string

const (
	MarkerGreen  Marker = "🟢"
	MarkerYellow Marker = "🟡"
	MarkerRed    Marker = "🔴"
)

// MarkerFor returns green for more than two days left, yellow for one or two,
// red otherwise.
func MarkerFor(daysLeft int) Marker {
	switch {
	case daysLeft > 2:
		return MarkerGreen
	case daysLeft > 0:
		return MarkerYellow
	default:
		return MarkerRed
	}
}

// Holding is a requester's reservation with its time left.
type Holding struct {
	model.Reservation
	DaysLeft int    `json:"days_left"`
	Marker   Marker `json:"marker"`
}

// Holdings annotates reservations with days left until their end date.
func Holdings(reservations []model.Reservation, today model.Date) []Holding {
	out := make([]Holding, 0, len(reservations))
	for _, r := range reservations {
		left := today.DaysUntil(r.EndDate)
		out = append(out, Holding{Reservation: r, DaysLeft: left, Marker: MarkerFor(left)})
	}
	return out
}

// MyReservations returns the requester's active reservations ordered by end
// date.
func (s *Service) MyReservations(ctx context.Context, requesterID int64) ([]Holding, error) {
	today := s.today()
	reservations, err := store.ListRequesterReservations(ctx, s.db, requesterID, today)
	if err != nil {
		return nil, err
	}
	return Holdings(reservations, today), nil
}

// ErrNegativeWindow is returned for a negative ending-soon window.
var ErrNegativeWindow = errors.New("window must not be negative")

// ListReservationsEndingWithin returns reservations ending between today and
// today+days, both inclusive, ordered by end date.
func (s *Service) ListReservationsEndingWithin(ctx context.Context, days int) ([]Holding, error) {
	if days < 0 {
		return nil, ErrNegativeWindow
	}
	today := s.today()
	reservations, err := store.ListReservationsEndingBetween(ctx, s.db, today, today.AddDays(days))
	if err != nil {
		return nil, err
	}
	return Holdings(reservations, today), nil
}

// ListOverdue returns reservations that ended before today, ordered by end
// date. DaysLeft is negative for every returned holding.
func (s *Service) ListOverdue(ctx context.Context) ([]Holding, error) {
	today := s.today()
	reservations, err := store.ListReservationsEndedBefore(ctx, s.db, today)
	if err != nil {
		return nil, err
	}
	return Holdings(reservations, today), nil
}
