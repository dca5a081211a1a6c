// Package api is the HTTP surface: operator login, the chat gateway
// endpoint and the warehouse reports.
package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/rezervator/internal/auth"
	"github.com/erazemk/rezervator/internal/model"
	"github.com/erazemk/rezervator/internal/notify"
	"github.com/erazemk/rezervator/internal/session"
	"github.com/erazemk/rezervator/internal/warehouse"
)

// Deps are the collaborators of the API handlers.
type Deps struct {
	DB          *sql.DB
	Signer      *auth.Signer
	Sessions    *session.Manager
	Warehouse   *warehouse.Service
	Broadcaster *notify.Broadcaster
	// Window is the default ending-soon window of the reports, in days.
	Window int
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: d.DB, Signer: d.Signer}
	usersHandler := &UsersHandler{DB: d.DB}
	eventsHandler := &EventsHandler{Sessions: d.Sessions}
	stockHandler := &StockHandler{Warehouse: d.Warehouse}
	reportsHandler := &ReportsHandler{Warehouse: d.Warehouse, Broadcaster: d.Broadcaster, Window: d.Window}

	authMW := AuthMiddleware(d.Signer, d.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)
	requireGateway := RequireRole(model.RoleGateway)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Chat gateway.
	mux.Handle("POST /api/events", authMW(requireGateway(http.HandlerFunc(eventsHandler.Post))))

	// Stock and items (all roles).
	mux.Handle("GET /api/stock", authMW(http.HandlerFunc(stockHandler.Stock)))
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(stockHandler.Items)))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(stockHandler.Item)))
	mux.Handle("GET /api/items/{id}/image", authMW(http.HandlerFunc(stockHandler.Image)))

	// Reports (manager+).
	mux.Handle("GET /api/reports/ending", authMW(requireManager(http.HandlerFunc(reportsHandler.Ending))))
	mux.Handle("GET /api/reports/overdue", authMW(requireManager(http.HandlerFunc(reportsHandler.Overdue))))
	mux.Handle("POST /api/reports/notify", authMW(requireManager(http.HandlerFunc(reportsHandler.NotifyAll))))

	// Operators (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	return mux
}
