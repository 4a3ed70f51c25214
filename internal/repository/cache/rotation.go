package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/config"
)

var ErrRotationNotFound = errors.New("rotation instant not found")

// RotationMirror publishes the shared "last rotated at" instant so replicas
// that do not run the rotation worker can still answer status queries.
type RotationMirror struct {
	client *redis.Client
	key    string
}

func NewRotationMirror(conf *config.RedisConfig) *RotationMirror {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	return &RotationMirror{client: client, key: conf.Key}
}

func (m *RotationMirror) SaveLastRotatedAt(ctx context.Context, at time.Time) error {
	if err := m.client.Set(ctx, m.key, at.UnixMilli(), 0).Err(); err != nil {
		return fmt.Errorf("m.client.Set -> %w", err)
	}

	return nil
}

func (m *RotationMirror) LoadLastRotatedAt(ctx context.Context) (time.Time, error) {
	data, err := m.client.Get(ctx, m.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, fmt.Errorf("m.client.Get -> %w", ErrRotationNotFound)
		}
		return time.Time{}, fmt.Errorf("m.client.Get -> %w", err)
	}

	ms, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("strconv.ParseInt -> %w", err)
	}

	return time.UnixMilli(ms).UTC(), nil
}

func (m *RotationMirror) Close() error {
	if err := m.client.Close(); err != nil {
		return fmt.Errorf("m.client.Close -> %w", err)
	}

	return nil
}
