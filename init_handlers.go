// Handler wiring.
package main

import (
	"github.com/akinalp/forumcore/config"
	"github.com/akinalp/forumcore/database"
	"github.com/akinalp/forumcore/handlers"
	"github.com/akinalp/forumcore/ws"
)

// Handlers holds every HTTP handler.
type Handlers struct {
	Auth       *handlers.AuthHandler
	Vote       *handlers.VoteHandler
	Content    *handlers.ContentHandler
	Ranking    *handlers.RankingHandler
	Trust      *handlers.TrustHandler
	Permission *handlers.PermissionHandler
	Report     *handlers.ReportHandler
	Moderation *handlers.ModerationHandler
	Admin      *handlers.AdminHandler
	Health     *handlers.HealthHandler
	WS         *ws.Handler
}

func initHandlers(svcs *Services, limiters *RateLimiters, hub *ws.Hub, db *database.DB, cfg *config.Config) *Handlers {
	return &Handlers{
		Auth:       handlers.NewAuthHandler(svcs.Auth, limiters.Login),
		Vote:       handlers.NewVoteHandler(svcs.Vote, limiters.Vote),
		Content:    handlers.NewContentHandler(svcs.Content),
		Ranking:    handlers.NewRankingHandler(svcs.Ranking),
		Trust:      handlers.NewTrustHandler(svcs.Trust),
		Permission: handlers.NewPermissionHandler(svcs.Permission),
		Report:     handlers.NewReportHandler(svcs.Report),
		Moderation: handlers.NewModerationHandler(svcs.Moderation),
		Admin:      handlers.NewAdminHandler(svcs.Moderation),
		Health:     handlers.NewHealthHandler(db.Conn),
		WS:         ws.NewHandler(hub, svcs.Auth, cfg.CORS.AllowedOrigins),
	}
}
