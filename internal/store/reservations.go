package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/rezervator/internal/availability"
	"github.com/erazemk/rezervator/internal/model"
)

// ShortageError is returned by CreateReservation when the item does not have
// enough free units for the requested range.
type ShortageError struct {
	Requested int
	Available int
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("requested %d, only %d available", e.Requested, e.Available)
}

const reservationSelect = `SELECT r.id, r.item_id, r.quantity, r.start_date, r.end_date,
        r.requester_id, r.requester_label, r.event_label, r.created_at,
        i.name, c.name
 FROM reservations r
 JOIN items i ON i.id = r.item_id
 JOIN categories c ON c.id = i.category_id`

func scanReservation(row scanner) (*model.Reservation, error) {
	r := &model.Reservation{}
	if err := row.Scan(&r.ID, &r.ItemID, &r.Quantity, &r.StartDate, &r.EndDate,
		&r.RequesterID, &r.RequesterLabel, &r.EventLabel, &r.CreatedAt,
		&r.ItemName, &r.CategoryName); err != nil {
		return nil, err
	}
	return r, nil
}

func queryReservations(ctx context.Context, q Querier, query string, args ...any) ([]model.Reservation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing reservations: %w", err)
	}
	defer rows.Close()

	var reservations []model.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reservation: %w", err)
		}
		reservations = append(reservations, *r)
	}
	return reservations, rows.Err()
}

func getReservation(ctx context.Context, q Querier, id int64) (*model.Reservation, error) {
	r, err := scanReservation(q.QueryRowContext(ctx, reservationSelect+` WHERE r.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting reservation: %w", err)
	}
	return r, nil
}

// CreateReservation stores r if its item still has r.Quantity free units for
// the whole range. Availability is recomputed inside the inserting
// transaction. Returns ErrItemNotFound or a *ShortageError when the
// reservation cannot be placed.
func CreateReservation(ctx context.Context, db *sql.DB, r model.Reservation) (*model.Reservation, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reservation: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	available, err := availability.New(Source(tx)).AvailableQuantity(ctx, r.ItemID, r.StartDate, r.EndDate)
	if errors.Is(err, availability.ErrItemNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checking availability: %w", err)
	}
	if r.Quantity > available {
		return nil, &ShortageError{Requested: r.Quantity, Available: available}
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (item_id, quantity, start_date, end_date, requester_id, requester_label, event_label)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ItemID, r.Quantity, r.StartDate, r.EndDate, r.RequesterID, r.RequesterLabel, r.EventLabel,
	)
	if err != nil {
		return nil, fmt.Errorf("creating reservation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting reservation id: %w", err)
	}

	created, err := getReservation(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing reservation: %w", err)
	}
	return created, nil
}

// GetReservation returns a reservation by ID.
func GetReservation(ctx context.Context, db *sql.DB, id int64) (*model.Reservation, error) {
	return getReservation(ctx, db, id)
}

// DeleteReservation removes a reservation and returns it, or nil if it did
// not exist.
func DeleteReservation(ctx context.Context, db *sql.DB, id int64) (*model.Reservation, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	r, err := getReservation(ctx, tx, id)
	if err != nil || r == nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("deleting reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing reservation deletion: %w", err)
	}
	return r, nil
}

// ListActiveReservations returns reservations that end on or after today,
// ordered by start date.
func ListActiveReservations(ctx context.Context, db *sql.DB, today model.Date) ([]model.Reservation, error) {
	return queryReservations(ctx, db,
		reservationSelect+` WHERE r.end_date >= ? ORDER BY r.start_date, r.id`, today)
}

// ListItemActiveReservations returns an item's reservations that end on or
// after today, ordered by start date.
func ListItemActiveReservations(ctx context.Context, db *sql.DB, itemID int64, today model.Date) ([]model.Reservation, error) {
	return queryReservations(ctx, db,
		reservationSelect+` WHERE r.item_id = ? AND r.end_date >= ? ORDER BY r.start_date, r.id`, itemID, today)
}

// ListRequesterReservations returns a requester's reservations that end on or
// after today, ordered by end date.
func ListRequesterReservations(ctx context.Context, db *sql.DB, requesterID int64, today model.Date) ([]model.Reservation, error) {
	return queryReservations(ctx, db,
		reservationSelect+` WHERE r.requester_id = ? AND r.end_date >= ? ORDER BY r.end_date, r.id`, requesterID, today)
}

// ListReservationsEndingBetween returns reservations whose end date lies in
// [from, to], ordered by end date.
func ListReservationsEndingBetween(ctx context.Context, db *sql.DB, from, to model.Date) ([]model.Reservation, error) {
	return queryReservations(ctx, db,
		reservationSelect+` WHERE r.end_date >= ? AND r.end_date <= ? ORDER BY r.end_date, r.id`, from, to)
}

// ListReservationsEndedBefore returns reservations whose end date is strictly
// before date, ordered by end date.
func ListReservationsEndedBefore(ctx context.Context, db *sql.DB, date model.Date) ([]model.Reservation, error) {
	return queryReservations(ctx, db,
		reservationSelect+` WHERE r.end_date < ? ORDER BY r.end_date, r.id`, date)
}

// ListReservationsOverlapping returns reservations of all items that overlap
// the inclusive range [start, end].
func ListReservationsOverlapping(ctx context.Context, db *sql.DB, start, end model.Date) ([]model.Reservation, error) {
	return queryReservations(ctx, db,
		reservationSelect+` WHERE r.start_date <= ? AND r.end_date >= ? ORDER BY r.item_id, r.start_date`, end, start)
}

// ActiveRequester is a requester holding at least one active reservation.
type ActiveRequester struct {
	ID    int64
	Label string
}

// ListActiveRequesters returns every distinct requester with a reservation
// ending on or after today. Label is the most recently stored label.
func ListActiveRequesters(ctx context.Context, db *sql.DB, today model.Date) ([]ActiveRequester, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT r.requester_id, r.requester_label
		 FROM reservations r
		 WHERE r.end_date >= ?
		   AND r.id = (SELECT MAX(id) FROM reservations
		               WHERE requester_id = r.requester_id AND end_date >= ?)
		 ORDER BY r.requester_id`,
		today, today,
	)
	if err != nil {
		return nil, fmt.Errorf("listing active requesters: %w", err)
	}
	defer rows.Close()

	var requesters []ActiveRequester
	for rows.Next() {
		var a ActiveRequester
		if err := rows.Scan(&a.ID, &a.Label); err != nil {
			return nil, fmt.Errorf("scanning requester: %w", err)
		}
		requesters = append(requesters, a)
	}
	return requesters, rows.Err()
}
