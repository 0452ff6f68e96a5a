package recordsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/carechain/carechain/internal/domain/record"
)

// LevelDB keeps stream items in a local LevelDB database.
//
// Key layout:
//
//	seq/<stream>              last sequence number of the stream
//	item/<stream>/<seq:020d>  JSON-encoded storedItem
type LevelDB struct {
	db  *leveldb.DB
	mu  sync.Mutex
	now func() time.Time
}

type storedItem struct {
	Key        string `json:"key"`
	Payload    string `json:"payload"`
	CommitTime int64  `json:"commit_time"`
}

// OpenLevelDB opens or creates the database at path.
func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return NewLevelDB(db), nil
}

// NewLevelDB wraps an already open database.
func NewLevelDB(db *leveldb.DB) *LevelDB {
	return &LevelDB{db: db, now: time.Now}
}

// WithClock replaces the clock used to stamp commit times.
func (l *LevelDB) WithClock(now func() time.Time) *LevelDB {
	l.now = now
	return l
}

func (l *LevelDB) Name() string { return KindLevelDB }

func itemPrefix(stream string) []byte {
	return []byte("item/" + stream + "/")
}

func seqKey(stream string) []byte {
	return []byte("seq/" + stream)
}

func (l *LevelDB) Items(ctx context.Context, stream string) ([]record.RawRecord, error) {
	iter := l.db.NewIterator(util.BytesPrefix(itemPrefix(stream)), nil)
	defer iter.Release()

	out := []record.RawRecord{}
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var it storedItem
		if err := json.Unmarshal(iter.Value(), &it); err != nil {
			return nil, fmt.Errorf("leveldb item %s: %w", iter.Key(), err)
		}
		out = append(out, record.RawRecord{
			Key:            it.Key,
			EncodedPayload: []byte(it.Payload),
			CommitTime:     it.CommitTime,
		})
	}
	if err := iter.Error(); err != nil {
		return nil, l.wrap("iterate "+stream, err)
	}
	return out, nil
}

// Append writes the item and advances the stream sequence in one batch.
func (l *LevelDB) Append(ctx context.Context, stream, key string, encodedPayload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	seq, err := l.lastSeq(stream)
	if err != nil {
		return err
	}
	seq++

	value, err := json.Marshal(storedItem{Key: key, Payload: string(encodedPayload), CommitTime: l.now().Unix()})
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Put(append(itemPrefix(stream), []byte(fmt.Sprintf("%020d", seq))...), value)
	batch.Put(seqKey(stream), []byte(strconv.FormatUint(seq, 10)))
	if err := l.db.Write(batch, nil); err != nil {
		return l.wrap("append "+stream, err)
	}
	return nil
}

func (l *LevelDB) lastSeq(stream string) (uint64, error) {
	v, err := l.db.Get(seqKey(stream), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, l.wrap("read sequence", err)
	}
	seq, err := strconv.ParseUint(string(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt sequence for %s: %w", stream, err)
	}
	return seq, nil
}

func (l *LevelDB) Ping(ctx context.Context) error {
	_, err := l.db.GetProperty("leveldb.stats")
	return l.wrap("ping", err)
}

func (l *LevelDB) Stats() any {
	out := map[string]string{}
	for _, prop := range []string{"leveldb.num-files-at-level0", "leveldb.blockpool", "leveldb.alivesnaps", "leveldb.aliveiters"} {
		if v, err := l.db.GetProperty(prop); err == nil {
			out[prop] = v
		}
	}
	return out
}

func (l *LevelDB) Close() error {
	return l.db.Close()
}

func (l *LevelDB) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, leveldb.ErrClosed) {
		return fmt.Errorf("leveldb %s: %w", op, ErrClosed)
	}
	return fmt.Errorf("leveldb %s: %w", op, err)
}
