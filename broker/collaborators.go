package broker

import "context"

// InternedStr is an opaque handle to a path string owned by the intern
// table. The broker never inspects the bytes directly except through
// the InternTable it was handed.
type InternedStr struct {
	id uint64
}

// Valid reports whether the handle refers to an interned string.
func (s InternedStr) Valid() bool { return s.id != 0 }

// NewInternedStr builds a handle from a raw ID. It exists so an
// out-of-package InternTable implementation (broker/internstr) can
// construct handles without this package exposing its field.
func NewInternedStr(id uint64) InternedStr { return InternedStr{id: id} }

// ID returns the raw handle value, for an InternTable implementation's
// own bookkeeping.
func (s InternedStr) ID() uint64 { return s.id }

// Attrs is the subset of filesystem attributes the broker needs to fill
// a RegularPayload. Spec.md §1 models attribute lookup as an external
// "oracle"; this struct is the data it returns.
type Attrs struct {
	Device     uint64
	Inode      uint64
	Mode       uint32
	UID        uint32
	DocumentID uint64
	NLink      uint32
}

// Handle identifies a filesystem object the way the kernel producer
// side would (an opaque vnode/file handle). It is never interpreted by
// the broker other than as a dedup identity key and an argument to the
// collaborators below.
type Handle uint64

// AttributeOracle resolves a Handle to its current Attrs. Out of scope
// per spec.md §1; the broker only calls it.
type AttributeOracle interface {
	GetAttributes(ctx context.Context, h Handle) (Attrs, error)
}

// PathResolver resolves a Handle to its current path. Out of scope per
// spec.md §1.
type PathResolver interface {
	PathOf(ctx context.Context, h Handle) (string, error)
}

// InternTable is the sole owner of path bytes. Out of scope per
// spec.md §1 contractually, but broker/internstr ships a default,
// concrete implementation so the module is runnable standalone.
type InternTable interface {
	Intern(path string) InternedStr
	Release(s InternedStr)
	// Lookup returns the path bytes for a still-live handle. Used by the
	// wire encoder and the ignored-directory check.
	Lookup(s InternedStr) (string, bool)
}

// CredentialChecker reports whether the caller holds a named capability.
// Out of scope per spec.md §1; used at add_watcher time to strip
// unauthorized interest types (Activity, AccessGranted) and to mark
// PrivilegedService.
type CredentialChecker interface {
	TaskHas(ctx context.Context, cap Capability) bool
}

// Capability names the entitlements the registry checks for.
type Capability int

const (
	CapActivityEvents Capability = iota
	CapAccessGrantedEvents
	CapPrivilegedService
)

// LinkEnumerator enumerates hardlink siblings of an inode. Out of scope
// per spec.md §1 ("hardlink sibling enumeration").
type LinkEnumerator interface {
	// NextLink returns the next sibling link after cursor, or ok=false
	// when enumeration is exhausted.
	NextLink(ctx context.Context, fsid uint64, cursor uint64) (linkID uint64, path string, ok bool)
}

// Clock supplies monotonic ticks for Event.Timestamp. Out of scope per
// spec.md §1.
type Clock interface {
	Now() int64
}
