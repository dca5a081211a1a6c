package warehouse

import (
	"fmt"
	"strings"
)

// RenderStock formats a stock listing under title.
func RenderStock(title string, stock []CategoryStock) string {
	if len(stock) == 0 {
		return "📭 The warehouse is empty!"
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	for _, group := range stock {
		fmt.Fprintf(&b, "\n📂 %s\n", group.Category)
		for _, line := range group.Lines {
			fmt.Fprintf(&b, "  • %s: %d pcs.\n", line.Item.Name, line.Available)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderCard formats an item card.
func RenderCard(card *Card) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📂 Category: %s\n", card.Item.CategoryName)
	fmt.Fprintf(&b, "📦 Item: %s\n", card.Item.Name)
	fmt.Fprintf(&b, "📊 Quantity: %d pcs.\n", card.Item.Quantity)
	if card.Item.Comment != "" {
		fmt.Fprintf(&b, "💬 Comment: %s\n", card.Item.Comment)
	}
	if card.ImageErr != nil {
		b.WriteString("❌ Photo could not be loaded\n")
	}

	if len(card.Reservations) == 0 {
		b.WriteString("\n✅ No active reservations")
		return b.String()
	}
	b.WriteString("\n📅 Active reservations:\n")
	for _, r := range card.Reservations {
		fmt.Fprintf(&b, "• %s - %s: %d pcs. (%s, %s)\n",
			r.StartDate, r.EndDate, r.Quantity, r.EventLabel, r.RequesterLabel)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderHoldings formats a requester's own reservations.
func RenderHoldings(holdings []Holding) string {
	if len(holdings) == 0 {
		return "📭 You have no active reservations!"
	}

	var b strings.Builder
	b.WriteString("📋 Your active reservations:\n")
	for _, h := range holdings {
		fmt.Fprintf(&b, "\n%s %s - %s (%d pcs.)\n", h.Marker, h.CategoryName, h.ItemName, h.Quantity)
		fmt.Fprintf(&b, "   📅 %s - %s - %s\n", h.StartDate, h.EndDate, h.EventLabel)
		fmt.Fprintf(&b, "   ⏳ Days left: %d\n", h.DaysLeft)
	}
	return strings.TrimRight(b.String(), "\n")
}
