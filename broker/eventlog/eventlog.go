// Package eventlog provides an indexed, bounded ring of recently
// published events for debug/admin inspection, backed by
// github.com/hashicorp/go-memdb so callers can query by watcher slot or
// by kind without scanning, the same indexed-in-memory-store role
// go-memdb plays elsewhere in this stack.
package eventlog

import (
	"time"

	memdb "github.com/hashicorp/go-memdb"
)

// Record is a debug-facing snapshot of one delivered event. It is
// deliberately decoupled from broker.Event (no refcount, no pool
// membership) since this store outlives the pool slot it was copied
// from.
type Record struct {
	Seq       uint64
	Kind      string
	Path      string
	WatcherID string
	Slot      int
	When      time.Time
}

const tableEvents = "events"

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableEvents: {
				Name: tableEvents,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.UintFieldIndex{Field: "Seq"},
					},
					"slot": {
						Name:    "slot",
						Unique:  false,
						Indexer: &memdb.IntFieldIndex{Field: "Slot"},
					},
					"kind": {
						Name:    "kind",
						Unique:  false,
						Indexer: &memdb.StringFieldIndex{Field: "Kind"},
					},
				},
			},
		},
	}
}

// Log is a fixed-capacity, FIFO-evicted recent-event store.
type Log struct {
	db       *memdb.MemDB
	capacity int
	seq      uint64
}

// New builds a Log retaining at most capacity records, evicting the
// oldest by sequence number once full.
func New(capacity int) (*Log, error) {
	if capacity <= 0 {
		capacity = 4096
	}
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, err
	}
	return &Log{db: db, capacity: capacity}, nil
}

// Append records one delivered event, evicting the oldest entry if the
// log is at capacity.
func (l *Log) Append(kind, path, watcherID string, slot int, when time.Time) error {
	txn := l.db.Txn(true)
	defer txn.Abort()

	l.seq++
	rec := &Record{Seq: l.seq, Kind: kind, Path: path, WatcherID: watcherID, Slot: slot, When: when}
	if err := txn.Insert(tableEvents, rec); err != nil {
		return err
	}

	if l.seq > uint64(l.capacity) {
		oldest := l.seq - uint64(l.capacity)
		if raw, err := txn.First(tableEvents, "id", oldest); err == nil && raw != nil {
			_ = txn.Delete(tableEvents, raw)
		}
	}

	txn.Commit()
	return nil
}

// BySlot returns recent records for a single watcher slot, newest last.
func (l *Log) BySlot(slot int) ([]*Record, error) {
	txn := l.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get(tableEvents, "slot", slot)
	if err != nil {
		return nil, err
	}
	return drain(it), nil
}

// ByKind returns recent records of a single kind, newest last.
func (l *Log) ByKind(kind string) ([]*Record, error) {
	txn := l.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get(tableEvents, "kind", kind)
	if err != nil {
		return nil, err
	}
	return drain(it), nil
}

// All returns every retained record, newest last.
func (l *Log) All() ([]*Record, error) {
	txn := l.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get(tableEvents, "id")
	if err != nil {
		return nil, err
	}
	return drain(it), nil
}

func drain(it memdb.ResultIterator) []*Record {
	var out []*Record
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*Record))
	}
	return out
}
