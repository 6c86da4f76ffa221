package broker

import "time"

// monotonicClock is the default Clock when the caller supplies none: a
// thin wrapper over time.Now's monotonic reading. Production kernel
// builds would source this from the collaborator named in spec.md §1;
// this default makes the package runnable standalone.
type monotonicClock struct{}

func (monotonicClock) Now() int64 { return time.Now().UnixNano() }

func nsToTime(ns int64) time.Time { return time.Unix(0, ns) }
