package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/erazemk/rezervator/internal/model"
)

// categoryID returns the ID of a seeded category.
func categoryID(t *testing.T, database *sql.DB, name string) int64 {
	t.Helper()
	categories, err := ListCategories(context.Background(), database)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	for _, c := range categories {
		if c.Name == name {
			return c.ID
		}
	}
	t.Fatalf("category %q not seeded", name)
	return 0
}

func mustItem(t *testing.T, database *sql.DB, category, name string, quantity int) *model.Item {
	t.Helper()
	item, _, err := CreateItem(context.Background(), database, categoryID(t, database, category), name, quantity, "", "")
	if err != nil {
		t.Fatalf("CreateItem(%q): %v", name, err)
	}
	return item
}

func reservation(itemID int64, qty int, start, end string) model.Reservation {
	return model.Reservation{
		ItemID:         itemID,
		Quantity:       qty,
		StartDate:      model.MustParseDate(start),
		EndDate:        model.MustParseDate(end),
		RequesterID:    42,
		RequesterLabel: "@anna",
		EventLabel:     "Wedding",
	}
}
