package replay_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shandysiswandi/totpguard/internal/pkg/replay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Use(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := replay.NewMemory()

	ok, err := g.Use(ctx, 10, "123456", "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Use(ctx, 10, "123456", "alice")
	require.NoError(t, err)
	assert.False(t, ok, "second use of the same triple must be rejected")

	tests := []struct {
		name   string
		bucket uint64
		code   string
		user   string
	}{
		{name: "other user", bucket: 10, code: "123456", user: "bob"},
		{name: "other bucket", bucket: 11, code: "123456", user: "alice"},
		{name: "other code", bucket: 10, code: "654321", user: "alice"},
	}
	for _, tt := range tests {
		ok, err := g.Use(ctx, tt.bucket, tt.code, tt.user)
		require.NoError(t, err, tt.name)
		assert.True(t, ok, tt.name)
	}

	assert.Equal(t, int64(4), g.Len())
}

func TestMemory_IsUsedAndMarkUsed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := replay.NewMemory()

	used, err := g.IsUsed(ctx, 1, "000001", "u")
	require.NoError(t, err)
	assert.False(t, used)
	assert.Equal(t, int64(0), g.Len(), "IsUsed must not record anything")

	require.NoError(t, g.MarkUsed(ctx, 1, "000001", "u"))
	require.NoError(t, g.MarkUsed(ctx, 1, "000001", "u"))

	used, err = g.IsUsed(ctx, 1, "000001", "u")
	require.NoError(t, err)
	assert.True(t, used)
	assert.Equal(t, int64(1), g.Len())
}

func TestMemory_Prune(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := replay.NewMemory()
	for bucket := uint64(1); bucket <= 5; bucket++ {
		_, err := g.Use(ctx, bucket, "111111", "u")
		require.NoError(t, err)
		_, err = g.Use(ctx, bucket, "222222", "u")
		require.NoError(t, err)
	}

	removed, err := g.Prune(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(6), removed)
	assert.Equal(t, int64(4), g.Len())

	used, err := g.IsUsed(ctx, 3, "111111", "u")
	require.NoError(t, err)
	assert.False(t, used)

	used, err = g.IsUsed(ctx, 4, "111111", "u")
	require.NoError(t, err)
	assert.True(t, used)
}

func TestMemory_UseConcurrent(t *testing.T) {
	t.Parallel()

	const workers = 64

	ctx := context.Background()
	g := replay.NewMemory()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	start := make(chan struct{})
	for range workers {
		wg.Go(func() {
			<-start
			ok, err := g.Use(ctx, 7, "987654", "racer")
			if err == nil && ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		})
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, int64(1), g.Len())
}
