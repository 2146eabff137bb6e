// Route table.
//
// Chain helpers:
//   - auth: bearer token
//   - authIdem: auth + Idempotency-Key replay
//   - authMod: auth + any moderator standing
//   - authAdmin: auth + administrator
package main

import (
	"net/http"

	"github.com/akinalp/forumcore/middleware"
	"github.com/akinalp/forumcore/services"
)

func initRoutes(
	mux *http.ServeMux,
	h *Handlers,
	authService services.AuthService,
	gate services.PermissionService,
	idem *middleware.IdempotencyMiddleware,
) {
	// ─── Middleware ───
	authMw := middleware.NewAuthMiddleware(authService)
	roleMw := middleware.NewRoleMiddleware(gate)

	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(handler)
	}
	authIdem := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(idem.Wrap(handler))
	}
	authMod := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(roleMw.RequireModerator(handler))
	}
	authModIdem := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(roleMw.RequireModerator(idem.Wrap(handler)))
	}
	authAdmin := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(roleMw.RequireAdmin(handler))
	}

	mux.HandleFunc("GET /api/health", h.Health.Check)

	// Auth
	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/auth/refresh", h.Auth.Refresh)
	mux.HandleFunc("POST /api/auth/logout", h.Auth.Logout)

	// Users
	mux.Handle("GET /api/users/me", auth(h.Auth.Me))
	mux.Handle("GET /api/users/{id}/voting-stats", auth(h.Vote.VotingStats))

	// Content
	mux.Handle("POST /api/threads", auth(h.Content.CreateThread))
	mux.Handle("GET /api/threads/{id}", auth(h.Content.GetThread))
	mux.Handle("POST /api/threads/{id}/posts", auth(h.Content.CreatePost))

	// Votes
	mux.Handle("POST /api/votes", authIdem(h.Vote.Cast))
	mux.Handle("GET /api/votes/{targetType}/{targetId}", auth(h.Vote.Counts))
	mux.Handle("GET /api/votes/{targetType}/{targetId}/me", auth(h.Vote.Mine))

	// Rankings
	mux.Handle("GET /api/rankings/threads", auth(h.Ranking.TopThreads))
	mux.Handle("GET /api/rankings/{targetType}/{targetId}", auth(h.Ranking.Get))

	// Trust
	mux.Handle("GET /api/trust/leaderboard", auth(h.Trust.Leaderboard))
	mux.Handle("POST /api/trust/me/read-time", auth(h.Trust.RecordReadTime))
	mux.Handle("GET /api/trust/{userId}", auth(h.Trust.Profile))
	mux.Handle("GET /api/trust/{userId}/progress", auth(h.Trust.Progress))
	mux.Handle("POST /api/trust/{userId}/recalculate", authAdmin(h.Trust.Recalculate))

	// Permissions
	mux.Handle("GET /api/permissions", auth(h.Permission.List))
	mux.Handle("GET /api/permissions/{action}", auth(h.Permission.Check))

	// Reports
	mux.Handle("POST /api/reports", auth(h.Report.Create))

	// Moderation
	mux.Handle("GET /api/moderation/reports", authMod(h.Report.ListPending))
	mux.Handle("PATCH /api/moderation/reports/{id}", authMod(h.Report.Review))
	mux.Handle("POST /api/moderation/warnings", authModIdem(h.Moderation.IssueWarning))
	mux.Handle("POST /api/moderation/bans", authModIdem(h.Moderation.IssueBan))
	mux.Handle("DELETE /api/moderation/bans/{userId}", authMod(h.Moderation.LiftBan))
	mux.Handle("POST /api/moderation/users/{userId}/purge", authModIdem(h.Moderation.PurgeUser))
	mux.Handle("DELETE /api/moderation/threads/{id}", authMod(h.Moderation.DeleteThread))
	mux.Handle("DELETE /api/moderation/posts/{id}", authMod(h.Moderation.DeletePost))
	mux.Handle("GET /api/moderation/log", authMod(h.Moderation.Log))
	mux.Handle("GET /api/moderation/users/{userId}/bans", authMod(h.Moderation.UserBans))
	mux.Handle("GET /api/moderation/users/{userId}/warnings", authMod(h.Moderation.UserWarnings))

	// Admin
	mux.Handle("PUT /api/admin/trust/{userId}", authAdmin(h.Trust.SetLevel))
	mux.Handle("GET /api/admin/moderators", authAdmin(h.Admin.ListModerators))
	mux.Handle("POST /api/admin/moderators", authAdmin(h.Admin.AssignModerator))
	mux.Handle("DELETE /api/admin/moderators/{id}", authAdmin(h.Admin.RemoveModerator))

	// WebSocket authenticates with ?token=
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)
}
