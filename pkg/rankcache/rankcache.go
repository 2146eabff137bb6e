// Package rankcache keeps ranked content lists in Redis sorted sets.
//
// Each board ("hot", "controversial", "top") is one sorted set keyed
// "<prefix>:<board>:<targetType>" whose members are content ids and whose
// scores are the ranking values. Reads are O(log N + M).
package rankcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Top when the board holds no members yet.
var ErrEmpty = errors.New("rankcache: board is empty")

// Entry is one ranked member.
type Entry struct {
	ID    string
	Score float64
}

// Index reads and writes ranking boards.
type Index struct {
	client redis.UniversalClient
	prefix string
}

// New wraps a Redis client. prefix namespaces every key.
func New(client redis.UniversalClient, prefix string) *Index {
	if prefix == "" {
		prefix = "forum:rank"
	}
	return &Index{client: client, prefix: prefix}
}

func (i *Index) key(board, targetType string) string {
	return fmt.Sprintf("%s:%s:%s", i.prefix, board, targetType)
}

// Update sets the score of one member on several boards in a single round trip.
func (i *Index) Update(ctx context.Context, targetType, id string, scores map[string]float64) error {
	_, err := i.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for board, score := range scores {
			pipe.ZAdd(ctx, i.key(board, targetType), redis.Z{Score: score, Member: id})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rankcache: update %s/%s: %w", targetType, id, err)
	}
	return nil
}

// Remove drops a member from the given boards.
func (i *Index) Remove(ctx context.Context, targetType, id string, boards ...string) error {
	_, err := i.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, board := range boards {
			pipe.ZRem(ctx, i.key(board, targetType), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rankcache: remove %s/%s: %w", targetType, id, err)
	}
	return nil
}

// Top returns the highest scored members of a board, best first.
func (i *Index) Top(ctx context.Context, board, targetType string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	zs, err := i.client.ZRevRangeWithScores(ctx, i.key(board, targetType), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("rankcache: top %s/%s: %w", board, targetType, err)
	}
	if len(zs) == 0 {
		return nil, ErrEmpty
	}

	entries := make([]Entry, 0, len(zs))
	for _, z := range zs {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, Entry{ID: id, Score: z.Score})
	}
	return entries, nil
}

// Replace atomically swaps the whole board for entries.
func (i *Index) Replace(ctx context.Context, board, targetType string, entries []Entry) error {
	key := i.key(board, targetType)

	_, err := i.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(entries) == 0 {
			return nil
		}
		members := make([]redis.Z, 0, len(entries))
		for _, e := range entries {
			members = append(members, redis.Z{Score: e.Score, Member: e.ID})
		}
		pipe.ZAdd(ctx, key, members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("rankcache: replace %s/%s: %w", board, targetType, err)
	}
	return nil
}
