// Package internstr provides the default, concrete implementation of
// the out-of-scope "intern table" collaborator named in spec.md §1
// (intern(bytes) -> InternedStr, release(InternedStr) -> ()). A real
// kernel build sources this from elsewhere; this default, backed by
// github.com/hashicorp/golang-lru/v2, makes broker.Broker usable
// standalone without a caller supplying one.
package internstr

import (
	"sync"
	"sync/atomic"

	"github.com/fsbroker/fsbroker/broker"
	lru "github.com/hashicorp/golang-lru/v2"
)

// entry is a refcounted interned path.
type entry struct {
	path string
	refs int32
}

// Table is the sole owner of path bytes: Intern returns a handle shared
// by every Event referencing the same path, Release drops one
// reference, and the path bytes are only freed once refs reaches zero.
// An entry is removed from the table as soon as its refs reach zero. A
// bounded LRU records the IDs of live entries; dropping an ID from that
// LRU never frees an entry that still holds references.
type Table struct {
	mu     sync.Mutex
	byPath map[string]uint64
	byID   map[uint64]*entry
	nextID uint64
	recent *lru.Cache[uint64, struct{}]
}

var _ broker.InternTable = (*Table)(nil)

// New builds a Table whose LRU of live entry IDs holds up to capacity
// IDs (8192 when capacity <= 0).
func New(capacity int) *Table {
	if capacity <= 0 {
		capacity = 8192
	}
	c, _ := lru.New[uint64, struct{}](capacity)
	return &Table{
		byPath: make(map[string]uint64),
		byID:   make(map[uint64]*entry),
		recent: c,
	}
}

// Intern returns a handle for path, creating one if this is the first
// reference.
func (t *Table) Intern(path string) broker.InternedStr {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.byPath[path]; ok {
		e := t.byID[id]
		atomic.AddInt32(&e.refs, 1)
		return broker.NewInternedStr(id)
	}

	t.nextID++
	id := t.nextID
	e := &entry{path: path, refs: 1}
	t.byPath[path] = id
	t.byID[id] = e
	t.recent.Add(id, struct{}{})
	return broker.NewInternedStr(id)
}

// Release drops one reference; the path bytes are freed once refs
// reaches zero.
func (t *Table) Release(s broker.InternedStr) {
	if !s.Valid() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byID[s.ID()]
	if !ok {
		return
	}
	if atomic.AddInt32(&e.refs, -1) <= 0 {
		delete(t.byID, s.ID())
		delete(t.byPath, e.path)
		t.recent.Remove(s.ID())
	}
}

// Lookup returns the path bytes for a still-live handle.
func (t *Table) Lookup(s broker.InternedStr) (string, bool) {
	if !s.Valid() {
		return "", false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byID[s.ID()]
	if !ok {
		return "", false
	}
	return e.path, true
}

// Len reports the number of distinct interned paths currently live.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}
