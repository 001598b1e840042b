package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// LeaderboardCache handles the all-time leaderboard ZSET
type LeaderboardCache interface {
	AddScore(ctx context.Context, name string, score int) error
	GetTop(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	GetRank(ctx context.Context, name string) (int64, error)
}

// LeaderboardEntry represents a single leaderboard entry
type LeaderboardEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Rank  int    `json:"rank"`
}

type leaderboardCache struct {
	client *redis.Client
	key    string
}

// NewLeaderboardCache creates a new leaderboard cache
func NewLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &leaderboardCache{
		client: client,
		key:    "leaderboard:alltime",
	}
}

func (c *leaderboardCache) AddScore(ctx context.Context, name string, score int) error {
	return c.client.ZIncrBy(ctx, c.key, float64(score), name).Err()
}

func (c *leaderboardCache) GetTop(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, c.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(results))
	for i, z := range results {
		name, _ := z.Member.(string)
		entries[i] = LeaderboardEntry{
			Name:  name,
			Score: int(z.Score),
			Rank:  i + 1,
		}
	}
	return entries, nil
}

func (c *leaderboardCache) GetRank(ctx context.Context, name string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, c.key, name).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err // 1-indexed
}
