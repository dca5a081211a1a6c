// Package store holds the SQL queries behind every persisted entity.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/rezervator/internal/availability"
	"github.com/erazemk/rezervator/internal/model"
)

// ErrItemNotFound is returned by writes that target a missing item.
var ErrItemNotFound = availability.ErrItemNotFound

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Source adapts q to an availability.Source. Pass a *sql.Tx to compute
// availability inside a transaction.
func Source(q Querier) availability.Source {
	return source{q: q}
}

type source struct {
	q Querier
}

func (s source) ItemQuantity(ctx context.Context, itemID int64) (int, error) {
	var quantity int
	err := s.q.QueryRowContext(ctx,
		`SELECT quantity FROM items WHERE id = ?`, itemID,
	).Scan(&quantity)
	if err == sql.ErrNoRows {
		return 0, availability.ErrItemNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("getting item quantity: %w", err)
	}
	return quantity, nil
}

func (s source) ItemReservations(ctx context.Context, itemID int64, start, end model.Date) ([]model.Reservation, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, item_id, quantity, start_date, end_date
		 FROM reservations
		 WHERE item_id = ? AND start_date <= ? AND end_date >= ?`,
		itemID, end, start,
	)
	if err != nil {
		return nil, fmt.Errorf("listing item reservations: %w", err)
	}
	defer rows.Close()

	var reservations []model.Reservation
	for rows.Next() {
		var r model.Reservation
		if err := rows.Scan(&r.ID, &r.ItemID, &r.Quantity, &r.StartDate, &r.EndDate); err != nil {
			return nil, fmt.Errorf("scanning reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
