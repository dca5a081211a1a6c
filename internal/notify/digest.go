// Package notify builds the reservation reminder digest and delivers
// reminders to requesters, once on demand or on a schedule.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/rezervator/internal/model"
	"github.com/erazemk/rezervator/internal/warehouse"
)

// DefaultWindow is the number of days ahead a reservation counts as ending
// soon.
const DefaultWindow = 3

// Digest lists the reservations that need attention on Date.
type Digest struct {
	Date    model.Date          `json:"date"`
	Window  int                 `json:"window"`
	Ending  []warehouse.Holding `json:"ending"`
	Overdue []warehouse.Holding `json:"overdue"`
}

// BuildDigest collects reservations ending within window days and those
// already overdue.
func BuildDigest(ctx context.Context, svc *warehouse.Service, window int) (*Digest, error) {
	ending, err := svc.ListReservationsEndingWithin(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("listing ending reservations: %w", err)
	}
	overdue, err := svc.ListOverdue(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing overdue reservations: %w", err)
	}
	return &Digest{Date: svc.Today(), Window: window, Ending: ending, Overdue: overdue}, nil
}

// Empty reports whether nothing needs attention.
func (d *Digest) Empty() bool {
	return len(d.Ending) == 0 && len(d.Overdue) == 0
}

// Render formats the digest for operators.
func (d *Digest) Render() string {
	if d.Empty() {
		return "✅ No reservations need attention!"
	}

	var b strings.Builder
	b.WriteString("🔔 Reservation reminders:\n")
	if len(d.Ending) > 0 {
		b.WriteString("\n📋 Ending soon:\n")
		for _, h := range d.Ending {
			fmt.Fprintf(&b, "• %s%s - ends in %d days (%s)\n", h.ItemName, eventSuffix(h.EventLabel), h.DaysLeft, h.RequesterLabel)
		}
	}
	if len(d.Overdue) > 0 {
		b.WriteString("\n🚨 Overdue:\n")
		for _, h := range d.Overdue {
			fmt.Fprintf(&b, "• %s%s - overdue by %d days (%s)\n", h.ItemName, eventSuffix(h.EventLabel), -h.DaysLeft, h.RequesterLabel)
		}
	}
	b.WriteString("\n💡 Use /notify_all to remind every requester.")
	return b.String()
}

// RenderPersonal formats the reminder sent to a single requester.
func RenderPersonal(holdings []warehouse.Holding) string {
	var b strings.Builder
	b.WriteString("🔔 Reminder about your reservations:\n")
	for _, h := range holdings {
		fmt.Fprintf(&b, "\n%s %s%s\n", h.Marker, h.ItemName, eventSuffix(h.EventLabel))
		fmt.Fprintf(&b, "   📅 Until %s (%d days left)\n", h.EndDate, h.DaysLeft)
	}
	b.WriteString("\n⚠️ Please don't forget to return items on time!")
	return b.String()
}

func eventSuffix(label string) string {
	if label == "" {
		return ""
	}
	return " (" + label + ")"
}
