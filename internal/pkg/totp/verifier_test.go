package totp_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/totpguard/internal/pkg/clock"
	"github.com/shandysiswandi/totpguard/internal/pkg/otp"
	"github.com/shandysiswandi/totpguard/internal/pkg/replay"
	"github.com/shandysiswandi/totpguard/internal/pkg/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
	testAnchor = int64(1000000000)
)

// counterEngine renders the counter itself, so every bucket has a distinct
// and predictable code.
type counterEngine struct {
	mu    sync.Mutex
	calls []uint64
	err   error
}

func (e *counterEngine) Compute(_ string, counter uint64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, counter)
	if e.err != nil {
		return "", e.err
	}
	return strconv.FormatUint(counter, 10), nil
}

func (*counterEngine) Digits() int { return 8 }

func (e *counterEngine) counters() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]uint64(nil), e.calls...)
}

// constantEngine returns the same code for every bucket.
type constantEngine struct{}

func (constantEngine) Compute(string, uint64) (string, error) { return "000000", nil }
func (constantEngine) Digits() int                            { return 6 }

// flakyGuard fails Use for the listed buckets and delegates the rest.
type flakyGuard struct {
	*replay.Memory
	failing map[uint64]bool
}

func (g *flakyGuard) Use(ctx context.Context, bucket uint64, code, userID string) (bool, error) {
	if g.failing[bucket] {
		return false, errors.New("store unavailable")
	}
	return g.Memory.Use(ctx, bucket, code, userID)
}

func newHOTP(t *testing.T) *otp.HOTP {
	t.Helper()
	engine, err := otp.NewHOTP(otp.HOTPConfig{})
	require.NoError(t, err)
	return engine
}

func newVerifier(t *testing.T, guard replay.Guard, engine otp.Engine, c clock.Clocker) *totp.Verifier {
	t.Helper()
	v, err := totp.NewVerifier(guard, engine, totp.WithClock(c))
	require.NoError(t, err)
	return v
}

func TestNewVerifier(t *testing.T) {
	t.Parallel()

	guard := replay.NewMemory()
	engine := newHOTP(t)

	tests := []struct {
		name    string
		guard   replay.Guard
		engine  otp.Engine
		opts    []totp.Option
		wantErr error
	}{
		{name: "defaults", guard: guard, engine: engine},
		{name: "custom interval", guard: guard, engine: engine, opts: []totp.Option{totp.WithInterval(60)}},
		{name: "custom int interval", guard: guard, engine: engine, opts: []totp.Option{totp.WithIntervalSeconds(15)}},
		{name: "nil guard", guard: nil, engine: engine, wantErr: totp.ErrInvalidConfiguration},
		{name: "nil engine", guard: guard, engine: nil, wantErr: totp.ErrInvalidConfiguration},
		{name: "zero interval", guard: guard, engine: engine, opts: []totp.Option{totp.WithInterval(0)}, wantErr: totp.ErrInvalidConfiguration},
		{name: "zero int interval", guard: guard, engine: engine, opts: []totp.Option{totp.WithIntervalSeconds(0)}, wantErr: totp.ErrInvalidConfiguration},
		{name: "negative interval", guard: guard, engine: engine, opts: []totp.Option{totp.WithIntervalSeconds(-30)}, wantErr: totp.ErrInvalidConfiguration},
		{name: "nil clock", guard: guard, engine: engine, opts: []totp.Option{totp.WithClock(nil)}, wantErr: totp.ErrInvalidConfiguration},
		{name: "oversized window", guard: guard, engine: engine, opts: []totp.Option{totp.WithWindow(1000, 5)}, wantErr: totp.ErrInvalidConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := totp.NewVerifier(tt.guard, tt.engine, tt.opts...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, v)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, v)
		})
	}
}

func TestVerifier_Example(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := clock.NewManualUnix(testAnchor)
	v := newVerifier(t, replay.NewMemory(), newHOTP(t), c)

	code, err := v.GenerateAt(testSecret, time.Unix(testAnchor, 0))
	require.NoError(t, err)
	assert.Len(t, code, 6)

	c.Set(time.Unix(testAnchor+10, 0))

	ok, err := v.CheckCode(ctx, testSecret, code, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.CheckCode(ctx, testSecret, code, "alice")
	require.NoError(t, err)
	assert.False(t, ok, "replayed code must be rejected")

	ok, err = v.CheckCode(ctx, testSecret, code, "bob")
	require.NoError(t, err)
	assert.True(t, ok, "replay tracking is scoped per user")
}

func TestVerifier_RFC6238Vector(t *testing.T) {
	t.Parallel()

	engine, err := otp.NewHOTP(otp.HOTPConfig{Digits: 8})
	require.NoError(t, err)

	v, err := totp.NewVerifier(replay.NewMemory(), engine, totp.WithClock(clock.NewManualUnix(59)))
	require.NoError(t, err)

	code, err := v.Generate(testSecret)
	require.NoError(t, err)
	assert.Equal(t, "94287082", code)

	ok, err := v.CheckCode(context.Background(), testSecret, "94287082", "u")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifier_Determinism(t *testing.T) {
	t.Parallel()

	v := newVerifier(t, replay.NewMemory(), newHOTP(t), clock.New())
	at := time.Unix(1234567890, 0)

	first, err := v.GenerateAt(testSecret, at)
	require.NoError(t, err)
	second, err := v.GenerateAt(testSecret, at)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	sameBucket, err := v.GenerateAt(testSecret, at.Add(-time.Duration(at.Unix()%30)*time.Second))
	require.NoError(t, err)
	assert.Equal(t, first, sameBucket)
}

func TestVerifier_WindowEdges(t *testing.T) {
	t.Parallel()

	const interval = int64(30)

	tests := []struct {
		name   string
		offset int64
		want   bool
	}{
		{name: "anchor", offset: 0, want: true},
		{name: "back edge", offset: -interval * 5, want: true},
		{name: "forward edge", offset: interval * 5, want: true},
		{name: "one past back edge", offset: -interval * 6, want: false},
		{name: "one past forward edge", offset: interval * 6, want: false},
		{name: "far in the past", offset: -interval * 100, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := newVerifier(t, replay.NewMemory(), &counterEngine{}, clock.NewManualUnix(testAnchor))

			code, err := v.GenerateAt(testSecret, time.Unix(testAnchor+tt.offset, 0))
			require.NoError(t, err)

			ok, err := v.CheckCode(context.Background(), testSecret, code, "alice")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestVerifier_CustomWindow(t *testing.T) {
	t.Parallel()

	engine := &counterEngine{}
	v, err := totp.NewVerifier(replay.NewMemory(), engine,
		totp.WithClock(clock.NewManualUnix(testAnchor)),
		totp.WithIntervalSeconds(60),
		totp.WithWindow(1, 0),
	)
	require.NoError(t, err)

	ok, err := v.CheckCode(context.Background(), testSecret, "nope", "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	anchorBucket := uint64(testAnchor) / 60
	assert.Equal(t, []uint64{anchorBucket - 1, anchorBucket}, engine.counters())
}

func TestVerifier_FixedOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	guard := replay.NewMemory()
	v := newVerifier(t, guard, constantEngine{}, clock.NewManualUnix(testAnchor))
	oldest := uint64(testAnchor)/30 - 5

	ok, err := v.CheckCode(ctx, testSecret, "000000", "alice")
	require.NoError(t, err)
	require.True(t, ok)

	used, err := guard.IsUsed(ctx, oldest, "000000", "alice")
	require.NoError(t, err)
	assert.True(t, used, "the earliest bucket in the window is tried first")

	ok, err = v.CheckCode(ctx, testSecret, "000000", "alice")
	require.NoError(t, err)
	require.True(t, ok)

	used, err = guard.IsUsed(ctx, oldest+1, "000000", "alice")
	require.NoError(t, err)
	assert.True(t, used, "a used bucket is skipped and the scan continues")
}

func TestVerifier_GuardErrorContinues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	first := uint64(testAnchor)/30 - 5
	guard := &flakyGuard{Memory: replay.NewMemory(), failing: map[uint64]bool{first: true}}
	v := newVerifier(t, guard, constantEngine{}, clock.NewManualUnix(testAnchor))

	ok, err := v.CheckCode(ctx, testSecret, "000000", "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	used, err := guard.IsUsed(ctx, first+1, "000000", "alice")
	require.NoError(t, err)
	assert.True(t, used)
}

func TestVerifier_GuardAlwaysFailing(t *testing.T) {
	t.Parallel()

	engine := &counterEngine{}
	c := clock.NewManualUnix(testAnchor)
	failing := map[uint64]bool{}
	for b := uint64(testAnchor)/30 - 5; b <= uint64(testAnchor)/30+5; b++ {
		failing[b] = true
	}
	v := newVerifier(t, &flakyGuard{Memory: replay.NewMemory(), failing: failing}, engine, c)

	ok, err := v.CheckCode(context.Background(), testSecret, strconv.FormatInt(testAnchor/30, 10), "alice")
	require.NoError(t, err)
	assert.False(t, ok, "a failing guard never grants access")
}

func TestVerifier_EngineErrorStopsScan(t *testing.T) {
	t.Parallel()

	engine := &counterEngine{err: otp.ErrComputation}
	v := newVerifier(t, replay.NewMemory(), engine, clock.NewManualUnix(testAnchor))

	ok, err := v.CheckCode(context.Background(), testSecret, "123456", "alice")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, engine.counters(), 1)
}

func TestVerifier_InvalidSecret(t *testing.T) {
	t.Parallel()

	v := newVerifier(t, replay.NewMemory(), newHOTP(t), clock.NewManualUnix(testAnchor))

	ok, err := v.CheckCode(context.Background(), "not base32!", "123456", "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = v.Generate("not base32!")
	require.ErrorIs(t, err, otp.ErrInvalidSecret)
}

func TestVerifier_NegativeShiftsSkipped(t *testing.T) {
	t.Parallel()

	engine := &counterEngine{}
	v := newVerifier(t, replay.NewMemory(), engine, clock.NewManualUnix(40))

	ok, err := v.CheckCode(context.Background(), testSecret, "99", "alice")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5, 6}, engine.counters())
}

func TestVerifier_MalformedInput(t *testing.T) {
	t.Parallel()

	v := newVerifier(t, replay.NewMemory(), newHOTP(t), clock.NewManualUnix(testAnchor))
	ctx := context.Background()

	tests := []struct {
		name   string
		secret string
		code   string
	}{
		{name: "empty secret", secret: "", code: "123456"},
		{name: "empty code", secret: testSecret, code: ""},
		{name: "both empty", secret: "", code: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ok, err := v.CheckCode(ctx, tt.secret, tt.code, "alice")
			require.ErrorIs(t, err, totp.ErrInvalidArgument)
			assert.False(t, ok)
		})
	}

	_, err := v.Generate("")
	require.ErrorIs(t, err, totp.ErrInvalidArgument)

	_, err = v.GenerateAt(testSecret, time.Unix(-1, 0))
	require.ErrorIs(t, err, totp.ErrInvalidArgument)
}

func TestVerifier_WrongLengthCodeRejected(t *testing.T) {
	t.Parallel()

	c := clock.NewManualUnix(testAnchor)
	v := newVerifier(t, replay.NewMemory(), newHOTP(t), c)

	code, err := v.Generate(testSecret)
	require.NoError(t, err)

	ok, err := v.CheckCode(context.Background(), testSecret, code[:5], "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.CheckCode(context.Background(), testSecret, code+"0", "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifier_ConcurrentAcceptance(t *testing.T) {
	t.Parallel()

	const workers = 50

	c := clock.NewManualUnix(testAnchor)
	v := newVerifier(t, replay.NewMemory(), newHOTP(t), c)

	code, err := v.Generate(testSecret)
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	start := make(chan struct{})
	for range workers {
		wg.Go(func() {
			<-start
			ok, err := v.CheckCode(context.Background(), testSecret, code, "alice")
			if err == nil && ok {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		})
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, accepted)
}

func TestVerifier_Accessors(t *testing.T) {
	t.Parallel()

	c := clock.NewManualUnix(testAnchor)
	v, err := totp.NewVerifier(replay.NewMemory(), newHOTP(t), totp.WithClock(c))
	require.NoError(t, err)

	back, forward := v.Window()
	assert.Equal(t, uint(5), back)
	assert.Equal(t, uint(5), forward)
	assert.Equal(t, uint64(30), v.Interval())
	assert.Equal(t, 6, v.Digits())
	assert.Equal(t, 6*time.Minute, v.Retention())
	assert.Equal(t, 6*time.Minute, totp.Retention(totp.DefaultInterval, totp.DefaultCheckBack, totp.DefaultCheckForward))
	assert.Equal(t, 2*time.Minute, totp.Retention(60, 0, 0))
	assert.Equal(t, uint64(testAnchor)/30-6, v.PruneHorizon())
	assert.Equal(t, uint64(testAnchor)/30, v.BucketAt(c.Now()))
	assert.Equal(t, time.Unix(1000000020, 0).UTC(), v.ExpiresAt(c.Now()))

	c.Set(time.Unix(60, 0))
	assert.Equal(t, uint64(0), v.PruneHorizon())
}

func TestVerifier_PruneKeepsOldestBucketForSkewedInstances(t *testing.T) {
	t.Parallel()

	guard := replay.NewMemory()
	engine := &counterEngine{}

	verifying, err := totp.NewVerifier(guard, engine, totp.WithClock(clock.NewManualUnix(testAnchor)))
	require.NoError(t, err)
	ahead, err := totp.NewVerifier(guard, engine, totp.WithClock(clock.NewManualUnix(testAnchor+30)))
	require.NoError(t, err)

	oldest := strconv.FormatUint(uint64(testAnchor)/30-5, 10)

	ok, err := verifying.CheckCode(context.Background(), testSecret, oldest, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	janitor := replay.NewJanitor(guard, time.Minute, ahead.PruneHorizon)
	removed, err := janitor.PruneOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)

	ok, err = verifying.CheckCode(context.Background(), testSecret, oldest, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	// Two intervals ahead the record is out of every reachable window.
	later, err := totp.NewVerifier(guard, engine, totp.WithClock(clock.NewManualUnix(testAnchor+60)))
	require.NoError(t, err)
	removed, err = replay.NewJanitor(guard, time.Minute, later.PruneHorizon).PruneOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
