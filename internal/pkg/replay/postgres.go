package replay

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
)

const defaultPostgresTable = "totp_used_codes"

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS %[1]s (
	bucket  BIGINT      NOT NULL,
	code    TEXT        NOT NULL,
	user_id TEXT        NOT NULL,
	used_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (bucket, user_id, code)
)`
	insertSQL = `INSERT INTO %s (bucket, code, user_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	existsSQL = `SELECT EXISTS (SELECT 1 FROM %s WHERE bucket = $1 AND code = $2 AND user_id = $3)`
	pruneSQL  = `DELETE FROM %s WHERE bucket < $1`
)

// PostgresConn is the subset of *pgxpool.Pool used by the Postgres guard.
type PostgresConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is a Guard that stores used codes in a table keyed by the triple.
type Postgres struct {
	db    PostgresConn
	table string
}

// NewPostgres builds a Postgres guard over table. An empty table name uses
// the default.
func NewPostgres(db PostgresConn, table string) (*Postgres, error) {
	if db == nil {
		return nil, ErrPostgresPoolRequired
	}
	if table == "" {
		table = defaultPostgresTable
	}

	return &Postgres{
		db:    db,
		table: pgx.Identifier{lo.SnakeCase(table)}.Sanitize(),
	}, nil
}

// EnsureSchema creates the backing table when it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, fmt.Sprintf(createTableSQL, p.table)); err != nil {
		return fmt.Errorf("replay: postgres create table: %w", err)
	}
	return nil
}

// IsUsed reports whether the triple has a row.
func (p *Postgres) IsUsed(ctx context.Context, bucket uint64, code, userID string) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx, fmt.Sprintf(existsSQL, p.table), int64(bucket), code, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("replay: postgres exists: %w", err)
	}
	return exists, nil
}

// MarkUsed inserts the triple, ignoring duplicates.
func (p *Postgres) MarkUsed(ctx context.Context, bucket uint64, code, userID string) error {
	_, err := p.Use(ctx, bucket, code, userID)
	return err
}

// Use inserts the triple and reports whether this call created the row.
func (p *Postgres) Use(ctx context.Context, bucket uint64, code, userID string) (bool, error) {
	tag, err := p.db.Exec(ctx, fmt.Sprintf(insertSQL, p.table), int64(bucket), code, userID)
	if err != nil {
		return false, fmt.Errorf("replay: postgres insert: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Prune deletes rows for buckets lower than before.
func (p *Postgres) Prune(ctx context.Context, before uint64) (int64, error) {
	tag, err := p.db.Exec(ctx, fmt.Sprintf(pruneSQL, p.table), int64(before))
	if err != nil {
		return 0, fmt.Errorf("replay: postgres prune: %w", err)
	}
	return tag.RowsAffected(), nil
}
