package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/rezervator/internal/blob"
	"github.com/erazemk/rezervator/internal/model"
	"github.com/erazemk/rezervator/internal/warehouse"
)

// StockHandler serves stock listings and items.
type StockHandler struct {
	Warehouse *warehouse.Service
}

// Stock handles GET /api/stock. With ?date=YYYY-MM-DD it returns the units
// free on that date instead of the raw quantities.
func (h *StockHandler) Stock(w http.ResponseWriter, r *http.Request) {
	var (
		stock []warehouse.CategoryStock
		err   error
	)
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, perr := model.ParseDate(raw)
		if perr != nil {
			jsonError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		stock, err = h.Warehouse.ListStockOn(r.Context(), date)
	} else {
		stock, err = h.Warehouse.ListStock(r.Context())
	}
	if err != nil {
		slog.Error("failed to list stock", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list stock")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(stock))
}

// Items handles GET /api/items. ?q= filters by a case-insensitive part of
// the name.
func (h *StockHandler) Items(w http.ResponseWriter, r *http.Request) {
	items, err := h.Warehouse.FindItems(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		slog.Error("failed to find items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(items))
}

// Item handles GET /api/items/{id}.
func (h *StockHandler) Item(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	card, err := h.Warehouse.ItemCard(r.Context(), id)
	if err != nil {
		slog.Error("failed to get item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if card == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	if card.ImageErr != nil {
		slog.Warn("item image unavailable", "item", id, "error", card.ImageErr)
	}

	jsonResponse(w, http.StatusOK, struct {
		Item         model.Item          `json:"item"`
		Reservations []model.Reservation `json:"reservations"`
		HasImage     bool                `json:"has_image"`
	}{card.Item, emptyIfNil(card.Reservations), card.Image != nil})
}

// Image handles GET /api/items/{id}/image.
func (h *StockHandler) Image(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, err := h.Warehouse.ItemImage(r.Context(), id)
	if errors.Is(err, blob.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}
	if err != nil {
		slog.Error("failed to load item image", "item", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(data)
}
