package broker

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Pool is a pre-filled, non-growing allocator of Event slots (spec.md
// §4.1). try_alloc never blocks or sleeps; exhaustion is a first-class
// signal rather than an error surfaced to the producer alone.
type Pool struct {
	mu       sync.Mutex
	slots    []Event
	free     []int // stack of free slot indices
	capacity int

	outstanding    int32 // num_events_outstanding
	pendingRenames int32 // num_pending_rename, per original_source

	dropCount      uint64
	lastDropLogged atomic.Int64 // unix nanos of last rate-limited diagnostic
	rateLimit      time.Duration
	logger         *slog.Logger
}

// NewPool pre-fills capacity Event slots. Capacity is fixed for the
// lifetime of the pool.
func NewPool(capacity int, rateLimit time.Duration, logger *slog.Logger) *Pool {
	if capacity <= 0 {
		capacity = 4096
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		slots:     make([]Event, capacity),
		free:      make([]int, capacity),
		capacity:  capacity,
		rateLimit: rateLimit,
		logger:    logger,
	}
	for i := 0; i < capacity; i++ {
		p.free[i] = capacity - 1 - i
		p.slots[i].slot = i
	}
	return p
}

// Capacity returns the fixed pool size.
func (p *Pool) Capacity() int { return p.capacity }

// Outstanding returns the number of slots currently allocated.
func (p *Pool) Outstanding() int32 { return atomic.LoadInt32(&p.outstanding) }

// PendingRenames returns the count of in-flight two-event publishes.
func (p *Pool) PendingRenames() int32 { return atomic.LoadInt32(&p.pendingRenames) }

// DropCount returns the cumulative number of exhaustion events.
func (p *Pool) DropCount() uint64 { return atomic.LoadUint64(&p.dropCount) }

// TryAlloc returns a fresh slot or (nil, false) on exhaustion. Never
// blocks.
func (p *Pool) TryAlloc() (*Event, bool) {
	p.mu.Lock()
	if len(p.free) == 0 {
		p.mu.Unlock()
		p.recordExhaustion()
		return nil, false
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.mu.Unlock()

	atomic.AddInt32(&p.outstanding, 1)
	ev := &p.slots[idx]
	*ev = Event{slot: idx, refcount: 1} // global-list reference, per event.go's invariant
	return ev, true
}

func (p *Pool) recordExhaustion() {
	atomic.AddUint64(&p.dropCount, 1)
	now := time.Now().UnixNano()
	last := p.lastDropLogged.Load()
	if now-last >= int64(p.rateLimit) && p.lastDropLogged.CompareAndSwap(last, now) {
		p.logger.Warn("fsbroker: event pool exhausted", "capacity", p.capacity)
	}
}

// Free returns a slot to the pool. Callers must have already verified
// refcount reached zero.
func (p *Pool) Free(ev *Event) {
	p.mu.Lock()
	p.free = append(p.free, ev.slot)
	p.mu.Unlock()
	atomic.AddInt32(&p.outstanding, -1)
}

func (p *Pool) beginRenamePair() { atomic.AddInt32(&p.pendingRenames, 1) }
func (p *Pool) endRenamePair()   { atomic.AddInt32(&p.pendingRenames, -1) }
