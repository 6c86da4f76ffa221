package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsbroker/fsbroker/broker/eventlog"
	"github.com/fsbroker/fsbroker/broker/ignoredpath"
)

// RegularSpec is the builder input for Regular-payload kinds
// (CreateFile, Delete, Rename, Exchange, Clone, StatChanged,
// ContentModified, FinderInfoChanged, XattrModified, Chown). Exactly
// one of Handle or OverridePath should be set; Handle is resolved via
// the broker's PathResolver, OverridePath is used verbatim (hardlink
// fan-out, §4.9).
type RegularSpec struct {
	Handle       Handle
	OverridePath string
	Device       uint64
	Inode        uint64
	Mode         uint32
	UID          uint32
	DocumentID   uint64
	// Dest, when set, describes a second event (Rename/Exchange/Clone
	// destination) allocated and spliced alongside the primary.
	Dest *RegularSpec
}

// EventSpec is the tagged builder design note 9 calls for, replacing a
// variadic publisher API: one constructor-shaped struct per kind family
// with required fields plus optional audit token / override path.
type EventSpec struct {
	Kind        Kind
	ProducerPID int32

	Regular  *RegularSpec
	DocId    *DocIdPayload
	Activity *ActivityPayload
	Access   *AccessGrantedSpec
	Unmount  *UnmountPendingPayload
}

// AccessGrantedSpec is the builder input for AccessGranted events.
type AccessGrantedSpec struct {
	Handle     Handle
	AuditToken [8]byte
}

// Broker is the in-process re-expression of spec.md's in-kernel event
// broker: pool, dedup, registry, fan-out, wakeup scheduler, unmount
// barrier, and hardlink fan-out wired together.
type Broker struct {
	cfg *Config

	pool  *Pool
	dedup *dedupFilter

	registry *registry
	wakeup   *wakeupScheduler

	listMu sync.Mutex // event_buf_lock: guards dedup + alloc decisions

	attrs    AttributeOracle
	paths    PathResolver
	interner InternTable
	links    LinkEnumerator
	clock    Clock

	metrics  *metricsCollector
	observer *observerHub
	logger   *slog.Logger
	ignored  *ignoredpath.Matcher

	debugLog *eventlog.Log // optional, nil unless AttachDebugLog is called
}

// AttachDebugLog wires an indexed recent-event store for the admin
// package's /debug/events endpoint. Not safe to call concurrently with
// Publish.
func (b *Broker) AttachDebugLog(l *eventlog.Log) { b.debugLog = l }

// Deps bundles the out-of-scope collaborators named in spec.md §1.
// Any field may be nil. New substitutes a default only for Clock (a
// monotonic clock); every other nil collaborator is skipped. With a nil
// Interner, events carry no paths; broker/internstr provides an
// InternTable that callers can pass in.
type Deps struct {
	Attrs    AttributeOracle
	Paths    PathResolver
	Interner InternTable
	Links    LinkEnumerator
	Clock    Clock
}

// New constructs a Broker. A nil cfg uses DefaultConfig().
func New(cfg *Config, deps Deps) *Broker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clock := deps.Clock
	if clock == nil {
		clock = monotonicClock{}
	}

	b := &Broker{
		cfg:      cfg,
		pool:     NewPool(cfg.PoolCapacity, cfg.DiagnosticRateLimit, logger),
		dedup:    newDedupFilter(cfg.DedupWindow),
		registry: newRegistry(cfg.MaxWatchers),
		attrs:    deps.Attrs,
		paths:    deps.Paths,
		interner: deps.Interner,
		links:    deps.Links,
		clock:    clock,
		metrics:  newMetricsCollector(cfg.PoolCapacity),
		observer: newObserverHub(logger),
		logger:   logger,
		ignored:  ignoredpath.New(cfg.IgnoredPathPrefixes),
	}
	b.wakeup = newWakeupScheduler(cfg.CoalesceWindow, b.wakeAll)
	return b
}

func (b *Broker) wakeAll() {
	b.registry.forEach(func(w *Watcher) {
		if w.pending() > 0 {
			w.wakeReaders()
		}
	})
}

// Close stops the wakeup scheduler. It does not drain watchers; callers
// should RemoveWatcher each registered watcher first if a clean
// shutdown is required.
func (b *Broker) Close() {
	b.wakeup.stop()
}

// AddWatcher registers a new consumer (spec.md §4.10 / §6 clone ioctl).
func (b *Broker) AddWatcher(ctx context.Context, opts AddWatcherOpts) (*Watcher, error) {
	w, err := b.registry.addWatcher(ctx, opts, b.pool.Capacity(), b.cfg.DefaultQueueDepth)
	if err != nil {
		return nil, err
	}
	b.observer.watcherAdded(w)
	return w, nil
}

// RemoveWatcher unregisters and drains a watcher (spec.md §4.10).
func (b *Broker) RemoveWatcher(slot int) error {
	err := b.registry.removeWatcher(slot, b.release)
	if err == nil {
		b.observer.watcherRemoved(slot)
	}
	return err
}

// Publish implements spec.md §4.3's publish pipeline.
func (b *Broker) Publish(ctx context.Context, spec EventSpec) (*Event, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	now := b.clock.Now()

	b.listMu.Lock()
	if b.dedupCheck(spec, now) {
		b.listMu.Unlock()
		return nil, nil // suppressed, not an error
	}

	needsPair := spec.Kind == Rename || spec.Kind == Exchange || spec.Kind == Clone
	primary, ok := b.pool.TryAlloc()
	if !ok {
		b.listMu.Unlock()
		b.onExhausted()
		return nil, ErrPoolExhausted
	}
	var secondary *Event
	if needsPair {
		secondary, ok = b.pool.TryAlloc()
		if !ok {
			b.pool.Free(primary)
			b.listMu.Unlock()
			b.onExhausted()
			return nil, ErrPoolExhausted
		}
		b.pool.beginRenamePair()
	}

	primary.addFlag(FlagBeingCreated)
	primary.addFlag(FlagOnGlobalList)
	primary.Kind = spec.Kind
	primary.Timestamp = now
	primary.ProducerPID = spec.ProducerPID
	if secondary != nil {
		secondary.addFlag(FlagBeingCreated)
		secondary.addFlag(FlagOnGlobalList)
		secondary.Kind = spec.Kind
		secondary.Timestamp = now
		secondary.ProducerPID = spec.ProducerPID
		secondary.isDest = true
	}
	b.listMu.Unlock()

	if err := b.fillPayload(ctx, primary, secondary, spec); err != nil {
		b.release(primary)
		if secondary != nil {
			b.release(secondary)
		}
		if needsPair {
			b.pool.endRenamePair()
		}
		return nil, err
	}

	primary.clearFlag(FlagBeingCreated)
	if secondary != nil {
		secondary.clearFlag(FlagBeingCreated)
		if needsPair {
			b.pool.endRenamePair()
		}
	}

	b.fanOut(primary)
	b.hardlinkFanOut(ctx, primary)

	// The global list's own reference is released once fan-out has
	// handed every interested watcher its copy (spec.md §4.3: the event
	// leaves the global list at the end of publish). primary.Regular.Dest,
	// if any, holds the matching reference for secondary and is released
	// in the same cascade once primary's last watcher reference drops.
	primary.clearFlag(FlagOnGlobalList)
	if secondary != nil {
		secondary.clearFlag(FlagOnGlobalList)
	}
	b.release(primary)

	return primary, nil
}

func validateSpec(spec EventSpec) error {
	if spec.Kind < CreateFile || spec.Kind > EventsDropped {
		return ErrInvalidKind
	}
	switch spec.Kind {
	case DocIdCreated, DocIdChanged:
		if spec.DocId == nil {
			return fmt.Errorf("fsbroker: %w: DocId payload required for %s", ErrInvalidKind, spec.Kind)
		}
	case Activity:
		if spec.Activity == nil {
			return fmt.Errorf("fsbroker: %w: Activity payload required", ErrInvalidKind)
		}
	case AccessGranted:
		if spec.Access == nil {
			return fmt.Errorf("fsbroker: %w: AccessGranted payload required", ErrInvalidKind)
		}
	case UnmountPending:
		if spec.Unmount == nil {
			return fmt.Errorf("fsbroker: %w: UnmountPending payload required", ErrInvalidKind)
		}
	case Rename, Exchange, Clone, CreateFile, Delete, StatChanged, ContentModified,
		FinderInfoChanged, XattrModified, Chown:
		if spec.Regular == nil {
			return fmt.Errorf("fsbroker: %w: Regular payload required for %s", ErrInvalidKind, spec.Kind)
		}
	}
	return nil
}

// dedupCheck resolves the identity key for spec and asks the dedup
// filter. Called with listMu held.
func (b *Broker) dedupCheck(spec EventSpec, now int64) bool {
	if spec.Regular == nil {
		return false
	}
	handle := spec.Regular.Handle
	hasHandle := handle != 0
	path := spec.Regular.OverridePath
	return b.dedup.check(spec.Kind, spec.ProducerPID, handle, hasHandle, path, nsToTime(now))
}

func (b *Broker) onExhausted() {
	b.registry.forEach(func(w *Watcher) {
		w.setFlag(WatcherDroppedEvents)
	})
	b.observer.poolExhausted(b.pool.DropCount())
}

// release drops a reference; when it reaches zero the slot returns to
// the pool and its interned path (if any) is released.
func (b *Broker) release(ev *Event) {
	if ev == nil {
		return
	}
	n := ev.Unref()
	if n > 0 {
		return
	}
	if ev.Regular != nil {
		if ev.Regular.Dest != nil {
			b.release(ev.Regular.Dest)
		}
		if b.interner != nil && ev.Regular.Path.Valid() {
			b.interner.Release(ev.Regular.Path)
		}
	}
	if ev.Access != nil && b.interner != nil && ev.Access.Path.Valid() {
		b.interner.Release(ev.Access.Path)
	}
	b.pool.Free(ev)
}
