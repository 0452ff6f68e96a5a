package recordsource

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carechain/carechain/internal/domain/record"
	"github.com/carechain/carechain/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Postgres keeps stream items in the record_item table created by the
// embedded migrations.
type Postgres struct {
	pool *pgxpool.Pool
	q    queryable
	now  func() time.Time
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, q: pool, now: time.Now}
}

func (p *Postgres) Name() string { return KindPostgres }

func (p *Postgres) Items(ctx context.Context, stream string) ([]record.RawRecord, error) {
	rows, err := p.q.Query(ctx, `
		SELECT item_key, payload, commit_time
		FROM record_item
		WHERE stream = $1
		ORDER BY seq`, stream)
	if err != nil {
		return nil, fmt.Errorf("query stream %s: %w", stream, err)
	}
	defer rows.Close()

	out := []record.RawRecord{}
	for rows.Next() {
		var (
			raw     record.RawRecord
			payload string
		)
		if err := rows.Scan(&raw.Key, &payload, &raw.CommitTime); err != nil {
			return nil, fmt.Errorf("scan record item: %w", err)
		}
		raw.EncodedPayload = []byte(payload)
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stream %s: %w", stream, err)
	}
	return out, nil
}

func (p *Postgres) Append(ctx context.Context, stream, key string, encodedPayload []byte) error {
	_, err := p.q.Exec(ctx, `
		INSERT INTO record_item (stream, item_key, payload, commit_time)
		VALUES ($1, $2, $3, $4)`,
		stream, key, string(encodedPayload), p.now().Unix())
	if err != nil {
		return fmt.Errorf("append to stream %s: %w", stream, err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Stats() any {
	return db.GetPoolStats(p.pool)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
