package model

import (
	"errors"
	"time"
)

// Reservation holds Quantity units of an item for every date in
// [StartDate, EndDate], both ends inclusive.
type Reservation struct {
	ID             int64     `json:"id"`
	ItemID         int64     `json:"item_id"`
	Quantity       int       `json:"quantity"`
	StartDate      Date      `json:"start_date"`
	EndDate        Date      `json:"end_date"`
	RequesterID    int64     `json:"requester_id"`
	RequesterLabel string    `json:"requester_label"`
	EventLabel     string    `json:"event_label"`
	CreatedAt      time.Time `json:"created_at"`

	// Joined fields (not always populated).
	ItemName     string `json:"item_name,omitempty"`
	CategoryName string `json:"category_name,omitempty"`
}

// Validate checks the row-level reservation invariants.
func (r Reservation) Validate() error {
	if r.ItemID <= 0 {
		return errors.New("item is required")
	}
	if r.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return errors.New("start and end date are required")
	}
	if !r.EndDate.After(r.StartDate) {
		return errors.New("end date must be after start date")
	}
	return nil
}

// Requester identifies whoever talks to the bot.
type Requester struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

// Label is the display handle stored with a reservation: "@username" when
// known, else the first name, else placeholder.
func (r Requester) Label(placeholder string) string {
	if r.Username != "" {
		return "@" + r.Username
	}
	if r.FirstName != "" {
		return r.FirstName
	}
	return placeholder
}
