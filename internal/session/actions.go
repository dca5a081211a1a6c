package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/rezervator/internal/intent"
	"github.com/erazemk/rezervator/internal/notify"
	"github.com/erazemk/rezervator/internal/store"
	"github.com/erazemk/rezervator/internal/warehouse"
	"github.com/erazemk/rezervator/internal/workflow"
)

const (
	msgFailure   = "❌ Something went wrong. Please try again later."
	msgForbidden = "❌ You are not allowed to use this command."
)

var helpText = func() string {
	var b strings.Builder
	b.WriteString("🤖 Warehouse reservations\n\nAvailable actions:\n\n")
	for _, item := range intent.Menu {
		fmt.Fprintf(&b, "%s - /%s\n", item.Label, item.Command)
	}
	b.WriteString("\n/reminders - reservations that need attention\n")
	b.WriteString("/notify_all - remind every requester\n")
	b.WriteString("/cancel - cancel the current operation")
	return b.String()
}()

func menuReply(text string) workflow.Reply {
	options := make([]workflow.Option, 0, len(intent.Menu))
	for _, item := range intent.Menu {
		options = append(options, workflow.Option{Label: item.Label, Token: intent.CommandToken(item.Command)})
	}
	return workflow.Reply{Text: text, Options: options}
}

func (m *Manager) failure(action string, err error) []workflow.Reply {
	m.logger.Error("action failed", "action", action, "error", err)
	return []workflow.Reply{{Text: msgFailure}}
}

func (m *Manager) stock(ctx context.Context) []workflow.Reply {
	stock, err := m.deps.Warehouse.ListStock(ctx)
	if err != nil {
		return m.failure("stock", err)
	}
	return []workflow.Reply{{Text: warehouse.RenderStock("📊 Current stock:", stock)}}
}

func (m *Manager) listReturnable(ctx context.Context) []workflow.Reply {
	reservations, err := m.deps.Warehouse.ActiveReservations(ctx)
	if err != nil {
		return m.failure("return", err)
	}
	if len(reservations) == 0 {
		return []workflow.Reply{{Text: "📭 There are no active reservations."}}
	}

	options := make([]workflow.Option, 0, len(reservations)+1)
	for _, r := range reservations {
		options = append(options, workflow.Option{
			Label: fmt.Sprintf("%s (%d pcs.) %s - %s, %s", r.ItemName, r.Quantity, r.StartDate, r.EndDate, r.RequesterLabel),
			Token: intent.ReturnToken(r.ID),
		})
	}
	options = append(options, workflow.Option{Label: "❌ Cancel", Token: intent.CancelToken})
	return []workflow.Reply{{Text: "↩️ Choose the reservation to return:", Options: options}}
}

func (m *Manager) returnReservation(ctx context.Context, id int64) []workflow.Reply {
	r, err := m.deps.Warehouse.ReturnReservation(ctx, id)
	if err != nil {
		return m.failure("return", err)
	}
	if r == nil {
		return []workflow.Reply{{Text: "❌ Reservation not found!"}}
	}
	return []workflow.Reply{{Text: fmt.Sprintf("✅ Reservation returned!\n\n📦 %s - %s: %d pcs.\n🎉 %s\n👤 %s",
		r.CategoryName, r.ItemName, r.Quantity, r.EventLabel, r.RequesterLabel)}}
}

func (m *Manager) listDeletable(ctx context.Context) []workflow.Reply {
	items, err := store.ListItems(ctx, m.deps.DB)
	if err != nil {
		return m.failure("delete", err)
	}
	if len(items) == 0 {
		return []workflow.Reply{{Text: "📭 The warehouse is empty!"}}
	}

	options := make([]workflow.Option, 0, len(items)+1)
	for _, item := range items {
		options = append(options, workflow.Option{
			Label: fmt.Sprintf("%s (%d pcs.)", item.Title(), item.Quantity),
			Token: intent.DeleteToken(item.ID),
		})
	}
	options = append(options, workflow.Option{Label: "❌ Cancel", Token: intent.CancelToken})
	return []workflow.Reply{{
		Text:    "🗑️ Choose the item to delete. Its reservations are deleted too:",
		Options: options,
	}}
}

func (m *Manager) deleteItem(ctx context.Context, id int64) []workflow.Reply {
	item, err := m.deps.Warehouse.DeleteItem(ctx, id)
	if err != nil {
		return m.failure("delete", err)
	}
	if item == nil {
		return []workflow.Reply{{Text: "❌ Item not found!"}}
	}
	return []workflow.Reply{{Text: fmt.Sprintf("✅ Item deleted: %s", item.Title())}}
}

func (m *Manager) mine(ctx context.Context, requesterID int64) []workflow.Reply {
	holdings, err := m.deps.Warehouse.MyReservations(ctx, requesterID)
	if err != nil {
		return m.failure("my reservations", err)
	}
	return []workflow.Reply{{Text: warehouse.RenderHoldings(holdings)}}
}

func (m *Manager) reminders(ctx context.Context) []workflow.Reply {
	window := m.opts.Window
	if window <= 0 {
		window = notify.DefaultWindow
	}
	digest, err := notify.BuildDigest(ctx, m.deps.Warehouse, window)
	if err != nil {
		return m.failure("reminders", err)
	}
	return []workflow.Reply{{Text: digest.Render()}}
}

func (m *Manager) notifyAll(ctx context.Context) []workflow.Reply {
	if m.broadcaster == nil {
		return []workflow.Reply{{Text: "❌ Notifications are not configured."}}
	}
	res, err := m.broadcaster.NotifyAll(ctx)
	if err != nil {
		return m.failure("notify all", err)
	}
	return []workflow.Reply{{Text: fmt.Sprintf("✅ Reminders sent to %d requesters!", res.Notified)}}
}
