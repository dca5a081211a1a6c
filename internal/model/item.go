package model

import "time"

// Category groups items. The set is seeded on schema creation.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Item is a quantity-tracked stock position. Quantity is the total number of
// owned units, independent of reservations.
type Item struct {
	ID         int64     `json:"id"`
	CategoryID int64     `json:"category_id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	ImageRef   string    `json:"image_ref,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	CategoryName string `json:"category_name,omitempty"`
}

// MaxQuantity is the largest stock an item may hold.
const MaxQuantity = 1_000_000

// Title returns "Category - Name" when the category is known.
func (i Item) Title() string {
	if i.CategoryName == "" {
		return i.Name
	}
	return i.CategoryName + " - " + i.Name
}
