package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"musicstream/config"
	"musicstream/logger"
	"musicstream/model"

	"github.com/redis/go-redis/v9"
)

// trackTTL bounds how long a cached track document lives.
const trackTTL = time.Hour

// RedisTrackCache caches track documents by id. Every operation is
// best-effort: a Redis failure degrades to a miss, never to a request
// error.
type RedisTrackCache struct {
	client *redis.Client
}

// Connect initializes the Redis client and verifies connectivity.
func Connect(cfg *config.Config) (*RedisTrackCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisTrackCache{client: client}, nil
}

func trackKey(id string) string {
	return fmt.Sprintf("track:%s", id)
}

// GetTrack returns the cached track and whether it was found.
func (c *RedisTrackCache) GetTrack(ctx context.Context, id string) (*model.Track, bool) {
	val, err := c.client.Get(ctx, trackKey(id)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("track cache read failed", logger.ErrorField(err))
		}
		return nil, false
	}

	track := &model.Track{}
	if err := json.Unmarshal([]byte(val), track); err != nil {
		logger.Warn("track cache entry corrupt", logger.String("trackId", id), logger.ErrorField(err))
		return nil, false
	}
	return track, true
}

// SetTrack caches a track document with a TTL.
func (c *RedisTrackCache) SetTrack(ctx context.Context, track *model.Track) {
	data, err := json.Marshal(track)
	if err != nil {
		logger.Warn("failed to marshal track for cache", logger.ErrorField(err))
		return
	}
	if err := c.client.Set(ctx, trackKey(track.ID.Hex()), data, trackTTL).Err(); err != nil {
		logger.Warn("track cache write failed", logger.ErrorField(err))
	}
}

// Invalidate drops the cached entry for a track id.
func (c *RedisTrackCache) Invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, trackKey(id)).Err(); err != nil {
		logger.Warn("track cache invalidation failed", logger.ErrorField(err))
	}
}

// Close releases the Redis connection.
func (c *RedisTrackCache) Close() error {
	return c.client.Close()
}
