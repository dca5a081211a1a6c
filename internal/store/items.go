package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/rezervator/internal/model"
)

// ErrCategoryNotFound is returned when an item targets a missing category.
var ErrCategoryNotFound = errors.New("category not found")

// ErrQuantityTooLarge is returned when a write would take an item's quantity
// above model.MaxQuantity.
var ErrQuantityTooLarge = fmt.Errorf("quantity exceeds %d", model.MaxQuantity)

const itemSelect = `SELECT i.id, i.category_id, i.name, i.quantity, i.image_ref, i.comment,
        i.created_at, i.updated_at, c.name
 FROM items i
 JOIN categories c ON c.id = i.category_id`

func scanItem(row scanner) (*model.Item, error) {
	item := &model.Item{}
	var imageRef, comment sql.NullString
	if err := row.Scan(&item.ID, &item.CategoryID, &item.Name, &item.Quantity, &imageRef, &comment,
		&item.CreatedAt, &item.UpdatedAt, &item.CategoryName); err != nil {
		return nil, err
	}
	item.ImageRef = imageRef.String
	item.Comment = comment.String
	return item, nil
}

func queryItems(ctx context.Context, q Querier, query string, args ...any) ([]model.Item, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func getItem(ctx context.Context, q Querier, id int64) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx, itemSelect+` WHERE i.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// CreateItem adds quantity units of the named item to a category. When an
// item with the same name (compared case-insensitively) already exists in the
// category its quantity is incremented instead, imageRef and comment are
// ignored, and created is false.
func CreateItem(ctx context.Context, db *sql.DB, categoryID int64, name string, quantity int, imageRef, comment string) (item *model.Item, created bool, err error) {
	name = model.NormalizeName(name)
	if name == "" {
		return nil, false, errors.New("item name is required")
	}
	if quantity <= 0 {
		return nil, false, errors.New("quantity must be positive")
	}
	if quantity > model.MaxQuantity {
		return nil, false, ErrQuantityTooLarge
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE id = ?)`, categoryID,
	).Scan(&exists); err != nil {
		return nil, false, fmt.Errorf("checking category: %w", err)
	}
	if !exists {
		return nil, false, ErrCategoryNotFound
	}

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM items WHERE category_id = ? AND name_key = ?`,
		categoryID, model.NameKey(name),
	).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		result, err := tx.ExecContext(ctx,
			`INSERT INTO items (category_id, name, name_key, quantity, image_ref, comment)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			categoryID, name, model.NameKey(name), quantity, nullString(imageRef), nullString(strings.TrimSpace(comment)),
		)
		if err != nil {
			return nil, false, fmt.Errorf("creating item: %w", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return nil, false, fmt.Errorf("getting item id: %w", err)
		}
		created = true
	case err != nil:
		return nil, false, fmt.Errorf("finding item: %w", err)
	default:
		if err := addQuantity(ctx, tx, id, quantity); err != nil {
			return nil, false, err
		}
	}

	item, err = getItem(ctx, tx, id)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("committing item: %w", err)
	}
	return item, created, nil
}

// AddItemQuantity increments an existing item's quantity by delta.
func AddItemQuantity(ctx context.Context, db *sql.DB, id int64, delta int) (*model.Item, error) {
	if delta <= 0 {
		return nil, errors.New("quantity must be positive")
	}
	if delta > model.MaxQuantity {
		return nil, ErrQuantityTooLarge
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM items WHERE id = ?)`, id,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking item: %w", err)
	}
	if !exists {
		return nil, ErrItemNotFound
	}
	if err := addQuantity(ctx, tx, id, delta); err != nil {
		return nil, err
	}

	item, err := getItem(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item: %w", err)
	}
	return item, nil
}

// addQuantity increments item id by delta unless that would exceed
// model.MaxQuantity. delta must be within (0, model.MaxQuantity].
func addQuantity(ctx context.Context, tx *sql.Tx, id int64, delta int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE items SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND quantity <= ?`,
		delta, id, model.MaxQuantity-delta,
	)
	if err != nil {
		return fmt.Errorf("incrementing item quantity: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking updated items: %w", err)
	}
	if n == 0 {
		return ErrQuantityTooLarge
	}
	return nil
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	return getItem(ctx, db, id)
}

// FindItemByName returns the item of a category whose name matches name
// case-insensitively.
func FindItemByName(ctx context.Context, db *sql.DB, categoryID int64, name string) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		itemSelect+` WHERE i.category_id = ? AND i.name_key = ?`,
		categoryID, model.NameKey(name),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding item: %w", err)
	}
	return item, nil
}

// ListItems returns all items ordered by category name, then item name.
func ListItems(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	return queryItems(ctx, db, itemSelect+` ORDER BY c.name, i.name_key`)
}

// ListReservableItems returns items with a positive quantity.
func ListReservableItems(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	return queryItems(ctx, db, itemSelect+` WHERE i.quantity > 0 ORDER BY c.name, i.name_key`)
}

// ListItemsInCategory returns the items of one category ordered by name.
func ListItemsInCategory(ctx context.Context, db *sql.DB, categoryID int64) ([]model.Item, error) {
	return queryItems(ctx, db, itemSelect+` WHERE i.category_id = ? ORDER BY i.name_key`, categoryID)
}

// SearchItems returns items whose name contains substr, ignoring case.
func SearchItems(ctx context.Context, db *sql.DB, substr string) ([]model.Item, error) {
	pattern := "%" + escapeLike(model.NameKey(substr)) + "%"
	return queryItems(ctx, db,
		itemSelect+` WHERE i.name_key LIKE ? ESCAPE '\' ORDER BY c.name, i.name_key`, pattern)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// DeleteItem removes an item together with all of its reservations and
// returns the deleted item, or nil if it did not exist.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := getItem(ctx, tx, id)
	if err != nil || item == nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE item_id = ?`, id); err != nil {
		return nil, fmt.Errorf("deleting item reservations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("deleting item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item deletion: %w", err)
	}
	return item, nil
}
