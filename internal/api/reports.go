package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/rezervator/internal/notify"
	"github.com/erazemk/rezervator/internal/warehouse"
)

// ReportsHandler serves the reservation reports and the notify-all action.
type ReportsHandler struct {
	Warehouse   *warehouse.Service
	Broadcaster *notify.Broadcaster
	Window      int
}

// Ending handles GET /api/reports/ending?days=N.
func (h *ReportsHandler) Ending(w http.ResponseWriter, r *http.Request) {
	days := h.Window
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid days")
			return
		}
		days = n
	}

	holdings, err := h.Warehouse.ListReservationsEndingWithin(r.Context(), days)
	if errors.Is(err, warehouse.ErrNegativeWindow) {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("failed to list ending reservations", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list reservations")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(holdings))
}

// Overdue handles GET /api/reports/overdue.
func (h *ReportsHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.Warehouse.ListOverdue(r.Context())
	if err != nil {
		slog.Error("failed to list overdue reservations", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list reservations")
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(holdings))
}

// NotifyAll handles POST /api/reports/notify.
func (h *ReportsHandler) NotifyAll(w http.ResponseWriter, r *http.Request) {
	if h.Broadcaster == nil {
		jsonError(w, http.StatusServiceUnavailable, "notifications are not configured")
		return
	}

	res, err := h.Broadcaster.NotifyAll(r.Context())
	if err != nil {
		slog.Error("failed to notify requesters", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to notify requesters")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("requesters notified", "operator", claims.Username, "notified", res.Notified, "failed", res.Failed)
	jsonResponse(w, http.StatusOK, res)
}
