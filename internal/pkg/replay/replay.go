package replay

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrUnknownDriver indicates an unsupported replay driver.
	ErrUnknownDriver = errors.New("replay: unknown driver")
	// ErrRedisClientRequired is returned when the redis driver has no client.
	ErrRedisClientRequired = errors.New("replay: redis client is required")
	// ErrPostgresPoolRequired is returned when the postgres driver has no pool.
	ErrPostgresPoolRequired = errors.New("replay: postgres pool is required")
	// ErrInvalidTTL is returned when a record TTL is not positive.
	ErrInvalidTTL = errors.New("replay: ttl must be positive")
)

// Guard tracks used codes per time bucket and user.
type Guard interface {
	// IsUsed reports whether the triple has been recorded. It has no side effect.
	IsUsed(ctx context.Context, bucket uint64, code, userID string) (bool, error)

	// MarkUsed records the triple. Recording an existing triple is not an error.
	MarkUsed(ctx context.Context, bucket uint64, code, userID string) error

	// Use atomically records the triple if it is not recorded yet.
	// It returns true only for the call that created the record.
	Use(ctx context.Context, bucket uint64, code, userID string) (bool, error)
}

// Pruner is implemented by guards that need external eviction.
type Pruner interface {
	// Prune removes every record whose bucket is strictly lower than before
	// and returns how many were removed.
	Prune(ctx context.Context, before uint64) (int64, error)
}

// recordKey renders a triple as "<bucket>:<code>:<user>". The code comes from
// the engine and never contains a colon, so the user part is unambiguous.
func recordKey(bucket uint64, code, userID string) string {
	var b strings.Builder
	b.Grow(len(code) + len(userID) + 22)
	b.WriteString(strconv.FormatUint(bucket, 10))
	b.WriteByte(':')
	b.WriteString(code)
	b.WriteByte(':')
	b.WriteString(userID)
	return b.String()
}
