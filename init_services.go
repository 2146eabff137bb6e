// Service wiring.
//
// Order matters only where one service feeds another: the permission gate
// comes first, the trust engine before everything that records activity,
// the notifier before moderation.
package main

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akinalp/forumcore/config"
	"github.com/akinalp/forumcore/pkg/email"
	"github.com/akinalp/forumcore/pkg/rankcache"
	"github.com/akinalp/forumcore/pkg/ratelimit"
	"github.com/akinalp/forumcore/services"
	"github.com/akinalp/forumcore/ws"
)

// Services holds every service instance.
type Services struct {
	Auth       services.AuthService
	Permission services.PermissionService
	Trust      services.TrustService
	Vote       services.VoteService
	Ranking    services.RankingService
	Content    services.ContentService
	Report     services.ReportService
	Moderation services.ModerationService
}

// RateLimiters holds the in-memory limiters.
type RateLimiters struct {
	Login *ratelimit.LoginRateLimiter
	Vote  *ratelimit.ActionRateLimiter
}

// Stop ends the limiters' cleanup loops.
func (l *RateLimiters) Stop() {
	l.Login.Stop()
	l.Vote.Stop()
}

func initServices(repos *Repositories, hub ws.EventPublisher, index services.RankingIndex, cfg *config.Config) (*Services, *RateLimiters, services.BanExpirySweeper) {
	store := repos.Store

	// ─── Email (optional) ───
	var emailSender email.EmailSender
	if cfg.Email.Enabled() {
		emailSender = email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.FromEmail, cfg.Email.AppURL)
		log.Printf("[main] email notices enabled (from=%s)", cfg.Email.FromEmail)
	} else {
		log.Println("[main] email notices disabled (RESEND_API_KEY or RESEND_FROM not set)")
	}

	gate := services.NewPermissionService(store)
	trustService := services.NewTrustService(store, gate, hub)
	notifier := services.NewNotifier(hub, emailSender, repos.Users)

	svcs := &Services{
		Auth:       services.NewAuthService(store, cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry),
		Permission: gate,
		Trust:      trustService,
		Vote:       services.NewVoteService(store, gate, trustService),
		Ranking:    services.NewRankingService(store, index),
		Content:    services.NewContentService(store, gate, trustService),
		Report:     services.NewReportService(store, gate, trustService),
		Moderation: services.NewModerationService(store, gate, notifier),
	}

	limiters := &RateLimiters{
		Login: ratelimit.NewLoginRateLimiter(5, 2*time.Minute),
		Vote:  ratelimit.NewActionRateLimiter(cfg.RateLimit.VoteBurst, cfg.RateLimit.VoteWindow, cfg.RateLimit.VoteCooldown),
	}

	sweeper := services.NewBanExpirySweeper(svcs.Moderation, repos.Sessions, cfg.Moderation.BanSweepInterval)

	return svcs, limiters, sweeper
}

// initRankingIndex connects to Redis when configured. Without Redis, or
// when it cannot be reached at boot, rankings are computed from SQLite.
// The returned close func is never nil.
func initRankingIndex(cfg *config.Config) (services.RankingIndex, func()) {
	if !cfg.Redis.Enabled() {
		log.Println("[main] ranking index disabled (REDIS_ADDR not set)")
		return nil, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[main] redis unreachable at %s, rankings served from sqlite: %v", cfg.Redis.Addr, err)
		_ = client.Close()
		return nil, func() {}
	}

	log.Printf("[main] ranking index on redis %s (prefix=%s)", cfg.Redis.Addr, cfg.Redis.KeyPrefix)
	return rankcache.New(client, cfg.Redis.KeyPrefix), func() {
		if err := client.Close(); err != nil {
			log.Printf("[main] redis close: %v", err)
		}
	}
}
