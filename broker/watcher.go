package broker

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// WatcherFlags is an atomic bitset over per-watcher state.
type WatcherFlags uint32

const (
	WatcherDroppedEvents WatcherFlags = 1 << iota
	WatcherClosing
	WatcherWantsCompact
	WatcherWantsExtended
	WatcherPrivilegedService
)

// Watcher is a registered consumer: an interest vector, a device
// denylist, a ring buffer of Event references, and lifecycle flags
// (spec.md §3).
type Watcher struct {
	SlotID int
	ID     string // google/uuid, owner-facing identity
	Name   string
	PID    int32

	interest [numKinds]bool // Report=true, Ignore=false
	denylist map[uint64]bool
	allowAll bool // denylist absent == all devices allowed

	mu    sync.Mutex // guards ring indices and queue contents
	ring  []*Event
	rd    int
	wr    int

	flags uint32 // atomic WatcherFlags

	blockers   int32 // reader-threads sleeping waiting for data
	numReaders int32 // at most 1 active reader, CAS enforced

	maxEventID int64 // highest timestamp ever enqueued to this watcher

	wake chan struct{} // closed-and-replaced signal channel for blocked readers
	wakeMu sync.Mutex
}

func newWatcher(slot int, name string, pid int32, queueDepth int) *Watcher {
	w := &Watcher{
		SlotID:   slot,
		ID:       uuid.NewString(),
		Name:     name,
		PID:      pid,
		denylist: make(map[uint64]bool),
		allowAll: true,
		ring:     make([]*Event, queueDepth+1), // one slot wasted to disambiguate full/empty
		wake:     make(chan struct{}),
	}
	return w
}

func (w *Watcher) capacity() int { return len(w.ring) }

func (w *Watcher) setFlag(f WatcherFlags) {
	for {
		old := atomic.LoadUint32(&w.flags)
		n := old | uint32(f)
		if atomic.CompareAndSwapUint32(&w.flags, old, n) {
			return
		}
	}
}

func (w *Watcher) clearFlag(f WatcherFlags) {
	for {
		old := atomic.LoadUint32(&w.flags)
		n := old &^ uint32(f)
		if atomic.CompareAndSwapUint32(&w.flags, old, n) {
			return
		}
	}
}

func (w *Watcher) hasFlag(f WatcherFlags) bool {
	return atomic.LoadUint32(&w.flags)&uint32(f) != 0
}

// interestedIn reports whether the watcher's interest vector reports
// (rather than ignores) kind, and whether dev is not in its denylist.
func (w *Watcher) interestedIn(kind Kind, dev uint64) bool {
	if !w.interest[int(kind)] {
		return false
	}
	if w.allowAll {
		return true
	}
	return !w.denylist[dev]
}

// setDeviceFilter installs a new denylist (§6 DeviceFilter ioctl). An
// empty list clears the filter (allow all).
func (w *Watcher) setDeviceFilter(devices []uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(devices) == 0 {
		w.allowAll = true
		w.denylist = make(map[uint64]bool)
		return
	}
	w.allowAll = false
	w.denylist = make(map[uint64]bool, len(devices))
	for _, d := range devices {
		w.denylist[d] = true
	}
}

// pending returns the number of live entries in the ring.
func (w *Watcher) pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pendingLocked()
}

func (w *Watcher) pendingLocked() int {
	return (w.wr - w.rd + len(w.ring)) % len(w.ring)
}

func (w *Watcher) fullLocked() bool {
	return (w.wr+1)%len(w.ring) == w.rd
}

func (w *Watcher) emptyLocked() bool {
	return w.rd == w.wr
}

// wakeReaders unblocks any reader sleeping on empty-queue and publishes
// a readiness edge (spec.md §4.7). Safe to call with or without a
// blocked reader present.
func (w *Watcher) wakeReaders() {
	w.wakeMu.Lock()
	close(w.wake)
	w.wake = make(chan struct{})
	w.wakeMu.Unlock()
}

func (w *Watcher) waitChan() chan struct{} {
	w.wakeMu.Lock()
	defer w.wakeMu.Unlock()
	return w.wake
}

// MaxEventID returns the highest timestamp ever enqueued to this
// watcher (the §6 GetCurrentId ioctl).
func (w *Watcher) MaxEventID() int64 {
	return atomic.LoadInt64(&w.maxEventID)
}

func (w *Watcher) bumpMaxEventID(ts int64) {
	for {
		cur := atomic.LoadInt64(&w.maxEventID)
		if ts <= cur {
			return
		}
		if atomic.CompareAndSwapInt64(&w.maxEventID, cur, ts) {
			return
		}
	}
}
