package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"truthordare/game"

	"github.com/redis/go-redis/v9"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// RedisSnapshotStore mirrors live game sessions into redis so reconnecting
// clients can catch up without going through the game loop.
type RedisSnapshotStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{redis: client, ttl: ttl}
}

func snapshotKey(code string) string {
	return fmt.Sprintf("session:%s", NormalizeCode(code))
}

func (s *RedisSnapshotStore) Save(ctx context.Context, code string, snap game.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, snapshotKey(code), data, s.ttl).Err()
}

func (s *RedisSnapshotStore) Load(ctx context.Context, code string) (*game.Snapshot, error) {
	data, err := s.redis.Get(ctx, snapshotKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}

	var snap game.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *RedisSnapshotStore) Delete(ctx context.Context, code string) error {
	return s.redis.Del(ctx, snapshotKey(code)).Err()
}
