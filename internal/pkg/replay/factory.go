package replay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DriverMemory selects the in-process guard.
	DriverMemory = "memory"
	// DriverRedis selects the redis guard.
	DriverRedis = "redis"
	// DriverPostgres selects the postgres guard.
	DriverPostgres = "postgres"
)

// RedisOptions configures the redis driver.
type RedisOptions struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

// PostgresOptions configures the postgres driver.
type PostgresOptions struct {
	Pool PostgresConn
	// Table is the backing table name. Empty uses the default.
	Table string
}

// FactoryOptions groups config for supported replay backends.
type FactoryOptions struct {
	Redis    RedisOptions
	Postgres PostgresOptions
}

// NewFromDriver constructs a Guard by driver name. The postgres driver also
// creates its table.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Guard, error) {
	switch strings.TrimSpace(driver) {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverRedis:
		rd, err := NewRedis(opts.Redis.Client, WithRedisPrefix(opts.Redis.Prefix), WithRedisTTL(opts.Redis.TTL))
		if err != nil {
			return nil, err
		}
		return rd, nil
	case DriverPostgres:
		pg, err := NewPostgres(opts.Postgres.Pool, opts.Postgres.Table)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
