package broker

import (
	"sync"
	"time"
)

// dedupIneligible lists kinds excluded from the dedup check (spec.md §4.2):
// "not in {CreateFile, Delete, Rename, Exchange, Chown, DocIdChanged,
// DocIdCreated, Clone, Activity, AccessGranted}" is the eligibility test,
// so this set holds the kinds that are never suppressed.
var dedupIneligible = map[Kind]bool{
	CreateFile:    true,
	Delete:        true,
	Rename:        true,
	Exchange:      true,
	Chown:         true,
	DocIdChanged:  true,
	DocIdCreated:  true,
	Clone:         true,
	Activity:      true,
	AccessGranted: true,
}

// dedupFilter suppresses short-window repeats of identical back-to-back
// events from the same producer (spec.md §4.2). It guards its state
// with its own mutex.
type dedupFilter struct {
	mu sync.Mutex

	lastType        Kind
	lastHandle      Handle
	lastPath        string
	lastPathLen     int
	lastHasHandle   bool
	lastPID         int32
	lastTimestampNs int64
	window          time.Duration
	valid           bool
}

func newDedupFilter(window time.Duration) *dedupFilter {
	return &dedupFilter{window: window}
}

// check reports whether (kind, pid, handle, path) should be suppressed
// given the previous recorded event, and always updates the recorded
// state to the new event (whether suppressed or not — a suppressed
// event still "happened" for comparison purposes against a later one).
func (d *dedupFilter) check(kind Kind, pid int32, handle Handle, hasHandle bool, path string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	suppress := false
	if !dedupIneligible[kind] && d.valid {
		sameIdentity := (hasHandle && d.lastHasHandle && handle == d.lastHandle) ||
			(!hasHandle && !d.lastHasHandle && path == d.lastPath)
		withinWindow := now.UnixNano()-d.lastTimestampNs <= int64(d.window)
		if kind == d.lastType && pid == d.lastPID && sameIdentity && withinWindow {
			suppress = true
		}
	}

	d.lastType = kind
	d.lastPID = pid
	d.lastHandle = handle
	d.lastHasHandle = hasHandle
	d.lastPath = path
	d.lastPathLen = len(path)
	d.lastTimestampNs = now.UnixNano()
	d.valid = true

	return suppress
}
