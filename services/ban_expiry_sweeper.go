package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/akinalp/forumcore/repository"
)

// BanExpirySweeper periodically retires lapsed temporary bans and expired
// refresh sessions.
//
// The permission gate already ignores an active ban past its end, so the
// sweeper only brings the stored rows and the audit log in line.
type BanExpirySweeper interface {
	// Start launches the sweep goroutine. The first sweep runs immediately.
	Start()
	// Stop ends the goroutine. Safe to call more than once.
	Stop()
}

type banExpirySweeper struct {
	moderation ModerationService
	sessions   repository.SessionRepository
	interval   time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
}

// NewBanExpirySweeper builds a sweeper. sessions may be nil.
func NewBanExpirySweeper(moderation ModerationService, sessions repository.SessionRepository, interval time.Duration) BanExpirySweeper {
	return &banExpirySweeper{
		moderation: moderation,
		sessions:   sessions,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
}

func (s *banExpirySweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("[ban-sweeper] starting (interval=%s)", s.interval)

	go func() {
		s.sweep()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopCh:
				log.Println("[ban-sweeper] stopped")
				return
			}
		}
	}()
}

func (s *banExpirySweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

func (s *banExpirySweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.moderation.ExpireBans(ctx, time.Now()); err != nil {
		log.Printf("[ban-sweeper] failed to expire bans: %v", err)
	}

	if s.sessions == nil {
		return
	}
	if err := s.sessions.DeleteExpired(ctx); err != nil {
		log.Printf("[ban-sweeper] failed to delete expired sessions: %v", err)
	}
}
