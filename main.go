// Command forumcore serves the community trust and ranking API.
//
// Boot order: config → database → i18n → repositories → ws hub →
// ranking index → services → callbacks → handlers → routes → HTTP.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/akinalp/forumcore/config"
	"github.com/akinalp/forumcore/database"
	"github.com/akinalp/forumcore/middleware"
	"github.com/akinalp/forumcore/pkg/i18n"
	"github.com/akinalp/forumcore/ws"
)

const idempotencyTTL = 10 * time.Minute

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] forumcore server starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (port=%d)", cfg.Server.Port)

	// ─── Database ───
	migrationsFS, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	if err != nil {
		log.Fatalf("[main] failed to open embedded migrations: %v", err)
	}
	db, err := database.New(cfg.Database.Path, migrationsFS)
	if err != nil {
		log.Fatalf("[main] failed to initialize database: %v", err)
	}
	defer db.Close()

	// ─── i18n ───
	localesFS, err := fs.Sub(i18n.EmbeddedLocales, "locales")
	if err != nil {
		log.Fatalf("[main] failed to open embedded locales: %v", err)
	}
	if err := i18n.Load(localesFS); err != nil {
		log.Fatalf("[main] failed to load i18n translations: %v", err)
	}

	repos := initRepositories(db.Conn)

	hub := ws.NewHub()

	rankIndex, closeIndex := initRankingIndex(cfg)
	defer closeIndex()

	svcs, limiters, sweeper := initServices(repos, hub, rankIndex, cfg)
	defer limiters.Stop()

	registerHubCallbacks(hub, svcs.Trust)
	registerServiceCallbacks(svcs, hub)

	go hub.Run()

	// Boards may be stale or empty after a Redis restart.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := svcs.Ranking.Rebuild(ctx); err != nil {
			log.Printf("[ranking] initial rebuild failed: %v", err)
		}
	}()

	sweeper.Start()

	h := initHandlers(svcs, limiters, hub, db, cfg)

	idem := middleware.NewIdempotencyMiddleware(idempotencyTTL)
	defer idem.Close()

	mux := http.NewServeMux()
	initRoutes(mux, h, svcs.Auth, svcs.Permission, idem)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept-Language", middleware.IdempotencyHeader},
		ExposedHeaders:   []string{"Retry-After", middleware.ReplayedHeader},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      corsHandler.Handler(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] server listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")

	sweeper.Stop()
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[main] forced shutdown: %v", err)
	}

	log.Println("[main] server stopped gracefully")
}
