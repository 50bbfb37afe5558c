// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/maruel/myaccount/internal/server/handlers"
	"github.com/maruel/myaccount/internal/server/ratelimit"
)

// multipartOverhead is allowed on top of the file size limits for the
// multipart envelope.
const multipartOverhead = 64 << 10

// NewRouter creates and configures the HTTP router.
// Serves API endpoints at /api/v1/*. limits may be nil to disable rate
// limiting.
func NewRouter(svc *handlers.Services, cfg *handlers.Config, limits *ratelimit.Config) http.Handler {
	mux := &http.ServeMux{}

	hh := handlers.NewHealthHandler(svc, cfg)
	authh := handlers.NewAuthHandler(svc, cfg)
	nh := handlers.NewNoteHandler(svc)
	th := handlers.NewTodoHandler(svc)
	bh := handlers.NewBookmarkHandler(svc)
	eh := handlers.NewExpenseHandler(svc)
	sh := handlers.NewSettingsHandler(svc)
	ph := handlers.NewProfileHandler(svc)
	uh := handlers.NewUploadHandler(svc)
	dh := handlers.NewDashboardHandler(svc)
	ah := handlers.NewAdminHandler(svc)

	// Public endpoints
	mux.Handle("GET /api/v1/health", Wrap(hh.Health, cfg, limits))
	mux.Handle("GET /api/v1/schemas", Wrap(hh.Schemas, cfg, limits))

	// Auth endpoints
	mux.Handle("POST /api/v1/auth/register", Wrap(authh.Register, cfg, limits))
	mux.Handle("POST /api/v1/auth/login", Wrap(authh.Login, cfg, limits))
	mux.Handle("GET /api/v1/auth/me", WrapAuth(authh.Me, svc, cfg, limits))
	mux.Handle("POST /api/v1/auth/password", WrapAuth(authh.ChangePassword, svc, cfg, limits))

	// Notes
	mux.Handle("GET /api/v1/notes", WrapAuth(nh.List, svc, cfg, limits))
	mux.Handle("POST /api/v1/notes", WrapAuth(nh.Create, svc, cfg, limits))
	mux.Handle("GET /api/v1/notes/tags", WrapAuth(nh.Tags, svc, cfg, limits))
	mux.Handle("GET /api/v1/notes/{id}", WrapAuth(nh.Get, svc, cfg, limits))
	mux.Handle("PUT /api/v1/notes/{id}", WrapAuth(nh.Update, svc, cfg, limits))
	mux.Handle("DELETE /api/v1/notes/{id}", WrapAuth(nh.Delete, svc, cfg, limits))

	// To-dos
	mux.Handle("GET /api/v1/todos", WrapAuth(th.List, svc, cfg, limits))
	mux.Handle("POST /api/v1/todos", WrapAuth(th.Create, svc, cfg, limits))
	mux.Handle("GET /api/v1/todos/{id}", WrapAuth(th.Get, svc, cfg, limits))
	mux.Handle("PUT /api/v1/todos/{id}", WrapAuth(th.Update, svc, cfg, limits))
	mux.Handle("DELETE /api/v1/todos/{id}", WrapAuth(th.Delete, svc, cfg, limits))
	mux.Handle("POST /api/v1/todos/{id}/complete", WrapAuth(th.Complete, svc, cfg, limits))

	// Bookmarks
	mux.Handle("GET /api/v1/bookmarks", WrapAuth(bh.List, svc, cfg, limits))
	mux.Handle("POST /api/v1/bookmarks", WrapAuth(bh.Create, svc, cfg, limits))
	mux.Handle("GET /api/v1/bookmarks/categories", WrapAuth(bh.Categories, svc, cfg, limits))
	mux.Handle("GET /api/v1/bookmarks/{id}", WrapAuth(bh.Get, svc, cfg, limits))
	mux.Handle("PUT /api/v1/bookmarks/{id}", WrapAuth(bh.Update, svc, cfg, limits))
	mux.Handle("DELETE /api/v1/bookmarks/{id}", WrapAuth(bh.Delete, svc, cfg, limits))

	// Expenses
	mux.Handle("GET /api/v1/expenses", WrapAuth(eh.List, svc, cfg, limits))
	mux.Handle("POST /api/v1/expenses", WrapAuth(eh.Create, svc, cfg, limits))
	mux.Handle("GET /api/v1/expenses/summary", WrapAuth(eh.Summary, svc, cfg, limits))
	mux.Handle("DELETE /api/v1/expenses/{id}", WrapAuth(eh.Delete, svc, cfg, limits))

	// Settings and profile
	mux.Handle("GET /api/v1/settings", WrapAuth(sh.Get, svc, cfg, limits))
	mux.Handle("PUT /api/v1/settings", WrapAuth(sh.Update, svc, cfg, limits))
	mux.Handle("GET /api/v1/profile", WrapAuth(ph.Get, svc, cfg, limits))
	mux.Handle("PUT /api/v1/profile", WrapAuth(ph.Update, svc, cfg, limits))
	mux.Handle("POST /api/v1/profile/avatar", WrapAuthRaw(ph.UploadAvatar, svc, limits, svc.Store.Profiles.MaxAvatarBytes+multipartOverhead))

	// Uploads
	mux.Handle("GET /api/v1/uploads", WrapAuth(uh.List, svc, cfg, limits))
	mux.Handle("POST /api/v1/uploads", WrapAuthRaw(uh.Upload, svc, limits, svc.Store.Uploads.MaxBytes+multipartOverhead))
	mux.Handle("GET /api/v1/uploads/{name}", WrapAuthRaw(uh.Download, svc, limits, 0))
	mux.Handle("DELETE /api/v1/uploads/{name}", WrapAuth(uh.Delete, svc, cfg, limits))

	mux.Handle("GET /api/v1/dashboard", WrapAuth(dh.Get, svc, cfg, limits))

	// Admin endpoints
	mux.Handle("GET /api/v1/admin/stats", WrapAdmin(ah.Stats, svc, cfg, limits))
	mux.Handle("GET /api/v1/admin/users", WrapAdmin(ah.ListUsers, svc, cfg, limits))
	mux.Handle("POST /api/v1/admin/users/{id}/reset-password", WrapAdmin(ah.ResetPassword, svc, cfg, limits))
	mux.Handle("DELETE /api/v1/admin/users/{id}", WrapAdmin(ah.DeleteUser, svc, cfg, limits))
	mux.Handle("GET /api/v1/admin/logs", WrapAdmin(ah.Logs, svc, cfg, limits))

	return RequestLogger(mux)
}
