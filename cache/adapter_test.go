package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCache_Backends(t *testing.T) {
	mr := miniredis.RunT(t)
	for name, cfg := range map[string]CacheConfig{
		"local": {},
		"redis": {RedisAddr: mr.Addr()},
	} {
		t.Run(name, func(t *testing.T) {
			c, err := NewCache(cfg)
			require.NoError(t, err)
			defer c.Close()
			ctx := context.Background()

			_, err = c.Get(ctx, "absent")
			assert.True(t, IsNotFound(err))
			_, err = c.HGet(ctx, "absent", "f")
			assert.True(t, IsNotFound(err))

			require.NoError(t, c.Set(ctx, name+":k", "v", 0))
			v, err := c.Get(ctx, name+":k")
			require.NoError(t, err)
			assert.Equal(t, "v", v)
		})
	}
	assert.False(t, IsNotFound(nil))
}
