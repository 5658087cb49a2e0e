// Package cache holds an optional Redis layer for read-heavy endpoints. The
// leaderboard is recomputed from answers and guesses on every read, so hosts
// polling the scores screen hit Redis instead of the database. A nil *Scores
// disables caching entirely.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Scores struct {
	client *redis.Client
	ctx    context.Context
	ttl    time.Duration
}

func NewScores(addr string) *Scores {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &Scores{
		client: client,
		ctx:    context.Background(),
		ttl:    24 * time.Hour,
	}
}

func scoreKey(sessionID uint) string {
	return fmt.Sprintf("scores:%d", sessionID)
}

func (c *Scores) Set(sessionID uint, v interface{}) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(c.ctx, scoreKey(sessionID), data, c.ttl).Err()
}

// Get unmarshals the cached leaderboard into out. It returns false on a cache
// miss or any Redis error; callers fall back to the database.
func (c *Scores) Get(sessionID uint, out interface{}) bool {
	if c == nil {
		return false
	}
	data, err := c.client.Get(c.ctx, scoreKey(sessionID)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

// Invalidate drops the cached leaderboard after any write that can change
// scores: answers, guesses, grading, restart.
func (c *Scores) Invalidate(sessionID uint) {
	if c == nil {
		return
	}
	c.client.Del(c.ctx, scoreKey(sessionID))
}

func (c *Scores) Ping() error {
	if c == nil {
		return nil
	}
	return c.client.Ping(c.ctx).Err()
}
