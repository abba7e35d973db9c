// Package cache keeps public profiles in Redis so profile lookups from post
// cards do not hit Mongo every time.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"threads/models"

	"github.com/redis/go-redis/v9"
)

type Profiles interface {
	Get(ctx context.Context, query string) (*models.User, bool)
	Set(ctx context.Context, u *models.User)
	Invalidate(ctx context.Context, u *models.User)
}

func idKey(id string) string { return "profile:id:" + id }
func nameKey(name string) string { return "profile:username:" + strings.ToLower(name) }

type RedisProfiles struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewRedisProfiles(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *RedisProfiles {
	return &RedisProfiles{rdb: rdb, ttl: ttl, log: log}
}

// Get looks the query up as an id first, then as a username. Cache errors are misses.
func (c *RedisProfiles) Get(ctx context.Context, query string) (*models.User, bool) {
	for _, key := range []string{idKey(query), nameKey(query)} {
		raw, err := c.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			c.log.Warn("profile cache read failed", "key", key, "error", err)
			return nil, false
		}
		var u models.User
		if err := json.Unmarshal(raw, &u); err != nil {
			c.log.Warn("profile cache entry corrupt", "key", key, "error", err)
			return nil, false
		}
		return &u, true
	}
	return nil, false
}

func (c *RedisProfiles) Set(ctx context.Context, u *models.User) {
	raw, err := json.Marshal(u)
	if err != nil {
		return
	}
	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, idKey(u.ID.Hex()), raw, c.ttl)
	pipe.Set(ctx, nameKey(u.Username), raw, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("profile cache write failed", "user", u.ID.Hex(), "error", err)
	}
}

func (c *RedisProfiles) Invalidate(ctx context.Context, u *models.User) {
	if err := c.rdb.Del(ctx, idKey(u.ID.Hex()), nameKey(u.Username)).Err(); err != nil {
		c.log.Warn("profile cache invalidate failed", "user", u.ID.Hex(), "error", err)
	}
}

// Nop is used when no Redis is configured.
type Nop struct{}

func (Nop) Get(context.Context, string) (*models.User, bool) { return nil, false }
func (Nop) Set(context.Context, *models.User)                {}
func (Nop) Invalidate(context.Context, *models.User)         {}
