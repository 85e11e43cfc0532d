package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRedisStoreRequiresAddress(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{Address: "  "})
	require.ErrorContains(t, err, "address is required")
}

func TestNewRedisStoreFailsWhenUnreachable(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{
		Address: "127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
	})
	require.Error(t, err)
}

func TestPrefixedKeys(t *testing.T) {
	require.Equal(t, "mysite:page:/shop", prefixed("page:/shop"))
	require.Equal(t, "mysite:page:/shop", prefixed("mysite:page:/shop"))
}
