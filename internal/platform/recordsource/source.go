// Package recordsource provides the append-only stores patient and
// prescription records are read from: a MultiChain node, a local LevelDB
// history, or a Postgres table.
package recordsource

import (
	"context"
	"errors"

	"github.com/carechain/carechain/internal/domain/record"
)

// Source kinds accepted by configuration.
const (
	KindMultiChain = "multichain"
	KindLevelDB    = "leveldb"
	KindPostgres   = "postgres"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("record source closed")

// Source is an append-only, stream-partitioned record store. Items are
// returned in commit order. A stream that does not exist reads as empty.
type Source interface {
	Name() string
	Items(ctx context.Context, stream string) ([]record.RawRecord, error)
	Append(ctx context.Context, stream, key string, encodedPayload []byte) error
	Ping(ctx context.Context) error
	Stats() any
	Close() error
}
