package broker

import "sync/atomic"

// Kind identifies the type of a filesystem change. It mirrors spec.md's
// Event.kind enumeration one-to-one.
type Kind int32

const (
	CreateFile Kind = iota
	Delete
	Rename
	Exchange
	Clone
	StatChanged
	ContentModified
	FinderInfoChanged
	XattrModified
	Chown
	DocIdCreated
	DocIdChanged
	Activity
	AccessGranted
	UnmountPending
	EventsDropped
)

func (k Kind) String() string {
	switch k {
	case CreateFile:
		return "CreateFile"
	case Delete:
		return "Delete"
	case Rename:
		return "Rename"
	case Exchange:
		return "Exchange"
	case Clone:
		return "Clone"
	case StatChanged:
		return "StatChanged"
	case ContentModified:
		return "ContentModified"
	case FinderInfoChanged:
		return "FinderInfoChanged"
	case XattrModified:
		return "XattrModified"
	case Chown:
		return "Chown"
	case DocIdCreated:
		return "DocIdCreated"
	case DocIdChanged:
		return "DocIdChanged"
	case Activity:
		return "Activity"
	case AccessGranted:
		return "AccessGranted"
	case UnmountPending:
		return "UnmountPending"
	case EventsDropped:
		return "EventsDropped"
	default:
		return "Unknown"
	}
}

// numKinds bounds the per-type interest vectors and counters.
const numKinds = int(EventsDropped) + 1

// Flags is an atomic bitset over event-level state.
type Flags uint32

const (
	FlagBeingCreated Flags = 1 << iota
	FlagOnGlobalList
	FlagCombinedEvents
	FlagContainsDroppedData
)

// RegularPayload backs CreateFile, Delete, Rename, Exchange, Clone,
// StatChanged, ContentModified, FinderInfoChanged, XattrModified, Chown.
type RegularPayload struct {
	Device     uint64
	Inode      uint64
	Mode       uint32 // file-type bits | permission bits | hardlink hints
	UID        uint32
	DocumentID uint64
	Path       InternedStr
	// Dest is the linked destination event for Rename/Exchange/Clone.
	// It is also spliced onto the global list for accounting but is
	// never the primary entry of a watcher queue.
	Dest *Event
}

// DocIdPayload backs DocIdCreated / DocIdChanged.
type DocIdPayload struct {
	Device    uint64
	SrcInode  uint64
	DstInode  uint64
	DocID     uint64
}

// ActivityPayload backs Activity.
type ActivityPayload struct {
	Version  int32
	Device   uint64
	Inode    uint64
	OriginID int64
	Age      int64
	UseState int32
	Urgency  int32
	Size     int64
}

// AccessGrantedPayload backs AccessGranted.
type AccessGrantedPayload struct {
	Path       InternedStr
	AuditToken [8]byte
}

// UnmountPendingPayload backs UnmountPending.
type UnmountPendingPayload struct {
	Device uint64
}

// Event is a reference-counted record describing one filesystem change.
//
// refcount == (OnGlobalList ? 1 : 0) + (#watcher queues currently holding
// a reference). New allocations start at refcount 1 (the global list
// owns the first reference). The object is immutable after
// FlagBeingCreated is cleared, except for refcount and flags which are
// mutated atomically.
type Event struct {
	Kind        Kind
	Timestamp   int64 // monotonic tick, also the ordering key
	ProducerPID int32

	refcount int32
	flags    uint32

	Regular  *RegularPayload
	DocId    *DocIdPayload
	Activity *ActivityPayload
	Access   *AccessGrantedPayload
	Unmount  *UnmountPendingPayload

	// slot is the pool slot index this Event occupies; used by free().
	slot int

	// isDest marks an Event allocated as the destination half of a
	// Rename/Exchange/Clone pair. It is set once before FlagBeingCreated
	// clears and never mutated again, so no synchronization is needed to
	// read it afterward (spec.md §3: "the destination is never the
	// primary entry of a watcher queue; if encountered alone, skip").
	isDest bool
}

func (e *Event) addFlag(f Flags) {
	for {
		old := atomic.LoadUint32(&e.flags)
		n := old | uint32(f)
		if atomic.CompareAndSwapUint32(&e.flags, old, n) {
			return
		}
	}
}

func (e *Event) clearFlag(f Flags) {
	for {
		old := atomic.LoadUint32(&e.flags)
		n := old &^ uint32(f)
		if atomic.CompareAndSwapUint32(&e.flags, old, n) {
			return
		}
	}
}

func (e *Event) hasFlag(f Flags) bool {
	return atomic.LoadUint32(&e.flags)&uint32(f) != 0
}

// Ref atomically bumps the refcount. Called by fan-out when a reference
// is placed into a watcher queue.
func (e *Event) Ref() int32 {
	return atomic.AddInt32(&e.refcount, 1)
}

// RefCount returns the current refcount.
func (e *Event) RefCount() int32 {
	return atomic.LoadInt32(&e.refcount)
}

// Unref atomically decrements the refcount and returns the new value.
// A negative result is an invariant violation (spec.md §7: "free of
// in-use slot" / negative refcount are programming errors that must
// abort loudly).
func (e *Event) Unref() int32 {
	n := atomic.AddInt32(&e.refcount, -1)
	if n < 0 {
		panic("fsbroker: negative refcount, invariant violation")
	}
	return n
}

// device returns the device field regardless of payload variant, used
// for denylist checks and hardlink fan-out.
func (e *Event) device() uint64 {
	switch {
	case e.Regular != nil:
		return e.Regular.Device
	case e.DocId != nil:
		return e.DocId.Device
	case e.Activity != nil:
		return e.Activity.Device
	case e.Unmount != nil:
		return e.Unmount.Device
	default:
		return 0
	}
}

// path returns the interned path for payloads that carry one, or the
// zero value if none.
func (e *Event) path() InternedStr {
	switch {
	case e.Regular != nil:
		return e.Regular.Path
	case e.Access != nil:
		return e.Access.Path
	default:
		return InternedStr{}
	}
}
