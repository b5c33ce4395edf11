package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relayroom/relayroom/chat/internal/handlers"
	authmw "github.com/relayroom/relayroom/chat/internal/middleware"
	"github.com/relayroom/relayroom/common/httputil"
	"github.com/relayroom/relayroom/common/middleware"
)

// NewRouter constructs a ServeMux with chat API routes registered.
func NewRouter(
	auth *handlers.AuthHandler,
	rooms *handlers.RoomHandler,
	messages *handlers.MessageHandler,
	admin *handlers.AdminHandler,
	mw *authmw.AuthMiddleware,
) http.Handler {
	mux := http.NewServeMux()

	// Authentication endpoints
	mux.HandleFunc("POST /api/v1/auth/register", auth.Register)
	mux.HandleFunc("POST /api/v1/auth/login", auth.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", auth.Refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", auth.Logout)

	// Room endpoints use Go 1.22+ method routing with path values.
	mux.HandleFunc("POST /api/v1/rooms", mw.RequireAuth(rooms.Create))
	mux.HandleFunc("GET /api/v1/rooms", mw.RequireAuth(rooms.List))
	mux.HandleFunc("GET /api/v1/rooms/{roomID}", mw.RequireAuth(rooms.Get))
	mux.HandleFunc("PATCH /api/v1/rooms/{roomID}", mw.RequireAuth(rooms.Update))
	mux.HandleFunc("GET /api/v1/rooms/{roomID}/members", mw.RequireAuth(rooms.ListMembers))
	mux.HandleFunc("POST /api/v1/rooms/{roomID}/members", mw.RequireAuth(rooms.AddMember))
	mux.HandleFunc("DELETE /api/v1/rooms/{roomID}/members/{userID}", mw.RequireAuth(rooms.RemoveMember))

	// Message endpoints
	mux.HandleFunc("POST /api/v1/rooms/{roomID}/messages", mw.RequireAuth(messages.Post))
	mux.HandleFunc("GET /api/v1/rooms/{roomID}/messages", mw.RequireAuth(messages.List))
	mux.HandleFunc("PATCH /api/v1/rooms/{roomID}/messages/{messageID}", mw.RequireAuth(messages.Update))
	mux.HandleFunc("DELETE /api/v1/rooms/{roomID}/messages/{messageID}", mw.RequireAuth(messages.Delete))

	// Publisher administration (admin role only)
	mux.HandleFunc("GET /api/v1/admin/publisher", mw.RequireRole("admin")(admin.Status))
	mux.HandleFunc("POST /api/v1/admin/publisher/switch", mw.RequireRole("admin")(admin.Switch))
	mux.HandleFunc("POST /api/v1/admin/publisher/clear", mw.RequireRole("admin")(admin.ClearOverride))

	// Observability
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return middleware.RequestID(mux)
}
