package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log"
	"slices"

	"golang.org/x/sync/singleflight"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/pkg/rankcache"
	"github.com/akinalp/forumcore/repository"
)

// RankingIndex is a precomputed ranked list store. *rankcache.Index
// implements it on Redis.
type RankingIndex interface {
	Update(ctx context.Context, targetType, id string, scores map[string]float64) error
	Remove(ctx context.Context, targetType, id string, boards ...string) error
	Top(ctx context.Context, board, targetType string, limit int) ([]rankcache.Entry, error)
	Replace(ctx context.Context, board, targetType string, entries []rankcache.Entry) error
}

// RankingService exposes the ranking math over stored vote aggregates.
type RankingService interface {
	GetRanking(ctx context.Context, targetType models.TargetType, targetID string) (*models.Ranking, error)
	TopThreads(ctx context.Context, sort models.RankingSort, limit int) ([]models.RankedThread, error)
	// Refresh re-scores one target in the index, or drops it when the
	// target is gone.
	Refresh(ctx context.Context, targetType models.TargetType, targetID string) error
	// Rebuild recomputes every board from storage. Concurrent calls share
	// one run.
	Rebuild(ctx context.Context) error
}

const (
	defaultRankingLimit = 25
	maxRankingLimit     = 100
)

var rankingBoards = []models.RankingSort{models.SortHot, models.SortControversial, models.SortTop}

type rankingService struct {
	store repository.Store
	index RankingIndex
	group singleflight.Group
}

// NewRankingService builds the ranking engine. index may be nil, in which
// case lists are computed from storage on every call.
func NewRankingService(store repository.Store, index RankingIndex) RankingService {
	return &rankingService{store: store, index: index}
}

func scoreFor(sort models.RankingSort, up, down int, agg models.VoteAggregate) float64 {
	switch sort {
	case models.SortControversial:
		return ControversialScore(up, down)
	case models.SortTop:
		return TopScore(up, down)
	default:
		return HotScore(up, down, agg.TargetCreatedAt)
	}
}

func (s *rankingService) GetRanking(ctx context.Context, targetType models.TargetType, targetID string) (*models.Ranking, error) {
	if _, err := models.ParseTargetType(string(targetType)); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrValidation, err)
	}

	ref, err := s.store.Content().GetRef(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}

	counts, err := s.store.Votes().Counts(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}

	return &models.Ranking{
		TargetType:         targetType,
		TargetID:           targetID,
		HotScore:           HotScore(counts.Upvotes, counts.Downvotes, ref.CreatedAt),
		ControversialScore: ControversialScore(counts.Upvotes, counts.Downvotes),
		Upvotes:            counts.Upvotes,
		Downvotes:          counts.Downvotes,
	}, nil
}

func (s *rankingService) TopThreads(ctx context.Context, sort models.RankingSort, limit int) ([]models.RankedThread, error) {
	if _, err := models.ParseRankingSort(string(sort)); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrValidation, err)
	}
	if sort == "" {
		sort = models.SortHot
	}
	if limit <= 0 {
		limit = defaultRankingLimit
	}
	limit = min(limit, maxRankingLimit)

	if s.index != nil {
		ranked, err := s.topFromIndex(ctx, sort, limit)
		if err == nil {
			return ranked, nil
		}
		log.Printf("[ranking] index read failed, computing from storage: %v", err)
	}

	return s.topFromStorage(ctx, sort, limit)
}

func (s *rankingService) topFromIndex(ctx context.Context, sort models.RankingSort, limit int) ([]models.RankedThread, error) {
	entries, err := s.index.Top(ctx, string(sort), string(models.TargetThread), limit)
	if errors.Is(err, rankcache.ErrEmpty) {
		if err := s.Rebuild(ctx); err != nil {
			return nil, err
		}
		entries, err = s.index.Top(ctx, string(sort), string(models.TargetThread), limit)
		if errors.Is(err, rankcache.ErrEmpty) {
			return []models.RankedThread{}, nil
		}
	}
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	threads, err := s.store.Content().ListThreadsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	ranked := make([]models.RankedThread, 0, len(entries))
	for _, e := range entries {
		thread, ok := threads[e.ID]
		if !ok {
			// deleted since it was indexed
			continue
		}
		counts, err := s.store.Votes().Counts(ctx, models.TargetThread, e.ID)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, models.RankedThread{
			Thread:  thread,
			Ranking: s.rankingOf(thread, counts.Upvotes, counts.Downvotes),
		})
	}
	return ranked, nil
}

func (s *rankingService) topFromStorage(ctx context.Context, sort models.RankingSort, limit int) ([]models.RankedThread, error) {
	aggs, err := s.store.Votes().ThreadAggregates(ctx)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(aggs, func(a, b models.VoteAggregate) int {
		if c := cmp.Compare(scoreFor(sort, b.Upvotes, b.Downvotes, b), scoreFor(sort, a.Upvotes, a.Downvotes, a)); c != 0 {
			return c
		}
		return b.TargetCreatedAt.Compare(a.TargetCreatedAt)
	})
	if len(aggs) > limit {
		aggs = aggs[:limit]
	}

	ids := make([]string, len(aggs))
	for i, a := range aggs {
		ids[i] = a.TargetID
	}
	threads, err := s.store.Content().ListThreadsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	ranked := make([]models.RankedThread, 0, len(aggs))
	for _, a := range aggs {
		thread, ok := threads[a.TargetID]
		if !ok {
			continue
		}
		ranked = append(ranked, models.RankedThread{
			Thread:  thread,
			Ranking: s.rankingOf(thread, a.Upvotes, a.Downvotes),
		})
	}
	return ranked, nil
}

func (s *rankingService) rankingOf(t models.Thread, up, down int) models.Ranking {
	return models.Ranking{
		TargetType:         models.TargetThread,
		TargetID:           t.ID,
		HotScore:           HotScore(up, down, t.CreatedAt),
		ControversialScore: ControversialScore(up, down),
		Upvotes:            up,
		Downvotes:          down,
	}
}

func (s *rankingService) Refresh(ctx context.Context, targetType models.TargetType, targetID string) error {
	// Only threads are listed.
	if s.index == nil || targetType != models.TargetThread {
		return nil
	}

	ranking, err := s.GetRanking(ctx, targetType, targetID)
	if errors.Is(err, pkg.ErrNotFound) {
		boards := make([]string, len(rankingBoards))
		for i, b := range rankingBoards {
			boards[i] = string(b)
		}
		return s.index.Remove(ctx, string(targetType), targetID, boards...)
	}
	if err != nil {
		return err
	}

	return s.index.Update(ctx, string(targetType), targetID, map[string]float64{
		string(models.SortHot):           ranking.HotScore,
		string(models.SortControversial): ranking.ControversialScore,
		string(models.SortTop):           TopScore(ranking.Upvotes, ranking.Downvotes),
	})
}

func (s *rankingService) Rebuild(ctx context.Context) error {
	if s.index == nil {
		return nil
	}

	_, err, _ := s.group.Do("rebuild", func() (any, error) {
		aggs, err := s.store.Votes().ThreadAggregates(ctx)
		if err != nil {
			return nil, err
		}

		for _, board := range rankingBoards {
			entries := make([]rankcache.Entry, len(aggs))
			for i, a := range aggs {
				entries[i] = rankcache.Entry{ID: a.TargetID, Score: scoreFor(board, a.Upvotes, a.Downvotes, a)}
			}
			if err := s.index.Replace(ctx, string(board), string(models.TargetThread), entries); err != nil {
				return nil, err
			}
		}

		log.Printf("[ranking] index rebuilt (%d threads)", len(aggs))
		return nil, nil
	})
	return err
}
