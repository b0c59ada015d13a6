package replay_test

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/totpguard/internal/pkg/replay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedis(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	tests := []struct {
		name    string
		client  *redis.Client
		opts    []replay.RedisOption
		wantErr error
	}{
		{name: "nil client", client: nil, wantErr: replay.ErrRedisClientRequired},
		{name: "negative ttl", client: client, opts: []replay.RedisOption{replay.WithRedisTTL(-1)}, wantErr: replay.ErrInvalidTTL},
		{name: "defaults", client: client},
		{name: "custom prefix", client: client, opts: []replay.RedisOption{replay.WithRedisPrefix("x:")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g, err := replay.NewRedis(tt.client, tt.opts...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, g)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, g)
		})
	}
}
