package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/config"
)

func TestRotationMirror_UnreachableServer(t *testing.T) {
	mirror := NewRotationMirror(&config.RedisConfig{Addr: "127.0.0.1:1", Key: "rotation:last"})
	defer mirror.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := mirror.SaveLastRotatedAt(ctx, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m.client.Set -> ")

	_, err = mirror.LoadLastRotatedAt(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m.client.Get -> ")
	assert.NotErrorIs(t, err, ErrRotationNotFound)
}
