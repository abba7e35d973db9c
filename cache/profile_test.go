package cache

import (
	"context"
	"testing"
	"time"

	"threads/logger"
	"threads/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestNopAlwaysMisses(t *testing.T) {
	var c Profiles = Nop{}
	u := &models.User{ID: primitive.NewObjectID(), Username: "ada"}
	c.Set(context.Background(), u)
	_, ok := c.Get(context.Background(), "ada")
	require.False(t, ok)
}

func TestRedisProfiles(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	c := NewRedisProfiles(rdb, time.Minute, logger.Discard())
	u := &models.User{ID: primitive.NewObjectID(), Username: "Ada", Name: "Ada Lovelace"}

	_, ok := c.Get(ctx, u.ID.Hex())
	require.False(t, ok)

	c.Set(ctx, u)
	byID, ok := c.Get(ctx, u.ID.Hex())
	require.True(t, ok)
	require.Equal(t, "Ada Lovelace", byID.Name)

	byName, ok := c.Get(ctx, "ada")
	require.True(t, ok)
	require.Equal(t, u.ID, byName.ID)
	require.Equal(t, time.Minute, mr.TTL(nameKey("Ada")))

	c.Invalidate(ctx, u)
	_, ok = c.Get(ctx, u.ID.Hex())
	require.False(t, ok)
	_, ok = c.Get(ctx, "Ada")
	require.False(t, ok)
}

func TestRedisProfilesExpire(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	c := NewRedisProfiles(rdb, time.Minute, logger.Discard())
	u := &models.User{ID: primitive.NewObjectID(), Username: "ada"}

	c.Set(ctx, u)
	mr.FastForward(2 * time.Minute)
	_, ok := c.Get(ctx, u.ID.Hex())
	require.False(t, ok)
}

func TestRedisProfilesCorruptEntryMisses(t *testing.T) {
	mr, rdb := newRedis(t)
	c := NewRedisProfiles(rdb, time.Minute, logger.Discard())
	require.NoError(t, mr.Set(idKey("broken"), "{not json"))

	_, ok := c.Get(context.Background(), "broken")
	require.False(t, ok)
}

func TestRedisProfilesUnreachable(t *testing.T) {
	mr, rdb := newRedis(t)
	c := NewRedisProfiles(rdb, time.Minute, logger.Discard())
	mr.Close()

	u := &models.User{ID: primitive.NewObjectID(), Username: "ada"}
	c.Set(context.Background(), u)
	_, ok := c.Get(context.Background(), u.ID.Hex())
	require.False(t, ok)
}
